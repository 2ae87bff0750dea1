package repository

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mulewatch/mulewatch/internal/domain"
)

func newTestRepo(t *testing.T) domain.Repository {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "mulewatch-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetAnalysisRoundTrips(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	result := &domain.AnalysisResult{
		AnalysisID: "a1",
		Status:     domain.StatusComplete,
		Accounts: []domain.SuspiciousAccount{
			{AccountID: "acct-1", SuspicionScore: 75.5},
		},
		Rings: []domain.FraudRing{
			{RingID: "RING_001", PatternType: "cycle", MemberAccounts: []string{"acct-1"}},
		},
	}
	if err := repo.SaveAnalysis(ctx, result); err != nil {
		t.Fatalf("SaveAnalysis: %v", err)
	}

	got, err := repo.GetAnalysis(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Status != domain.StatusComplete {
		t.Fatalf("expected status complete, got %v", got.Status)
	}
	if len(got.Accounts) != 1 || got.Accounts[0].AccountID != "acct-1" {
		t.Fatalf("unexpected accounts round-trip: %+v", got.Accounts)
	}
	if len(got.Rings) != 1 || got.Rings[0].RingID != "RING_001" {
		t.Fatalf("unexpected rings round-trip: %+v", got.Rings)
	}
}

func TestSaveAnalysisUpsertsByID(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	if err := repo.SaveAnalysis(ctx, &domain.AnalysisResult{AnalysisID: "a1", Status: domain.StatusPending}); err != nil {
		t.Fatalf("SaveAnalysis(pending): %v", err)
	}
	if err := repo.SaveAnalysis(ctx, &domain.AnalysisResult{AnalysisID: "a1", Status: domain.StatusComplete}); err != nil {
		t.Fatalf("SaveAnalysis(complete): %v", err)
	}

	got, err := repo.GetAnalysis(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAnalysis: %v", err)
	}
	if got.Status != domain.StatusComplete {
		t.Fatalf("expected upsert to overwrite status to complete, got %v", got.Status)
	}
}

func TestGetAnalysisMissingReturnsErrAnalysisNotFound(t *testing.T) {
	repo := newTestRepo(t)
	_, err := repo.GetAnalysis(context.Background(), "missing")
	if !errors.Is(err, domain.ErrAnalysisNotFound) {
		t.Fatalf("expected ErrAnalysisNotFound, got %v", err)
	}
}

func TestSaveAnalysisRequiresID(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.SaveAnalysis(context.Background(), &domain.AnalysisResult{Status: domain.StatusPending})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestPingSucceedsOnOpenConnection(t *testing.T) {
	repo := newTestRepo(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
