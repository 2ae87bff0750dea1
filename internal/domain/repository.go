// Package domain defines the core types and interfaces for mulewatch.
package domain

import (
	"context"
	"time"
)

// Repository persists AnalysisResult records by analysis id. Unlike the
// per-transaction/per-tenant store this module's teacher used, a single
// analysis run is the unit of storage here: the core is a batch
// computation, not an online per-transaction pipeline (spec.md §1).
type Repository interface {
	SaveAnalysis(ctx context.Context, result *AnalysisResult) error
	GetAnalysis(ctx context.Context, analysisID string) (*AnalysisResult, error)

	Ping(ctx context.Context) error
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "sqlite" or "postgres"
	Driver string

	SQLitePath string

	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
