// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mulewatch/mulewatch/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with both SQLite and PostgreSQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if _, err := r.db.Exec(schema); err != nil {
			return err
		}
	}
	return nil
}

// SaveAnalysis upserts an AnalysisResult keyed by its analysis id.
func (r *SQLRepository) SaveAnalysis(ctx context.Context, result *domain.AnalysisResult) error {
	if result.AnalysisID == "" {
		return fmt.Errorf("%w: analysis_id is required", ErrInvalidInput)
	}

	summary, err := json.Marshal(result.Summary)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}
	accounts, err := json.Marshal(result.Accounts)
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	rings, err := json.Marshal(result.Rings)
	if err != nil {
		return fmt.Errorf("failed to marshal rings: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO analyses (
			analysis_id, status, summary, accounts, rings, error_message, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(analysis_id) DO UPDATE SET
			status = excluded.status,
			summary = excluded.summary,
			accounts = excluded.accounts,
			rings = excluded.rings,
			error_message = excluded.error_message,
			updated_at = excluded.updated_at
	`

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		result.AnalysisID, string(result.Status), string(summary), string(accounts), string(rings),
		result.Error, now, now,
	)
	return err
}

// GetAnalysis retrieves a stored AnalysisResult by id.
func (r *SQLRepository) GetAnalysis(ctx context.Context, analysisID string) (*domain.AnalysisResult, error) {
	if analysisID == "" {
		return nil, fmt.Errorf("%w: analysis_id is required", ErrInvalidInput)
	}

	query := `
		SELECT analysis_id, status, summary, accounts, rings, error_message
		FROM analyses
		WHERE analysis_id = ?
	`

	var result domain.AnalysisResult
	var status string
	var summary, accounts, rings string

	err := r.db.QueryRowContext(ctx, r.rebind(query), analysisID).Scan(
		&result.AnalysisID, &status, &summary, &accounts, &rings, &result.Error,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAnalysisNotFound
	}
	if err != nil {
		return nil, err
	}

	result.Status = domain.AnalysisStatus(status)
	if summary != "" {
		if err := json.Unmarshal([]byte(summary), &result.Summary); err != nil {
			return nil, fmt.Errorf("failed to parse summary: %w", err)
		}
	}
	if accounts != "" {
		if err := json.Unmarshal([]byte(accounts), &result.Accounts); err != nil {
			return nil, fmt.Errorf("failed to parse accounts: %w", err)
		}
	}
	if rings != "" {
		if err := json.Unmarshal([]byte(rings), &result.Rings); err != nil {
			return nil, fmt.Errorf("failed to parse rings: %w", err)
		}
	}

	return &result, nil
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
