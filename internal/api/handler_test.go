package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mulewatch/mulewatch/internal/analysis"
	"github.com/mulewatch/mulewatch/internal/cache"
	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/repository"
)

// repoGetAlwaysFails wraps a real repository, delegating SaveAnalysis
// but failing every GetAnalysis call, so a test using it can prove a
// handler served a read from the cache rather than the repository.
type repoGetAlwaysFails struct {
	domain.Repository
	getCalls atomic.Int64
}

func (r *repoGetAlwaysFails) GetAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	r.getCalls.Add(1)
	return nil, domain.ErrAnalysisNotFound
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "mulewatch-api-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	repo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("repository.New: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	runner := analysis.NewRunner(domain.DefaultConfig().Detection, nil)
	srv := NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0}, repo, nil, runner, "test")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func submitBatch(t *testing.T, ts *httptest.Server, body AnalysisRequest) AnalysisAccepted {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	resp, err := http.Post(ts.URL+"/analyses", "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("POST /analyses: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202 Accepted, got %d", resp.StatusCode)
	}
	var accepted AnalysisAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return accepted
}

func pollComplete(t *testing.T, ts *httptest.Server, id string) domain.FullResult {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get(ts.URL + "/analyses/" + id)
		if err != nil {
			t.Fatalf("GET /analyses/%s: %v", id, err)
		}
		var result domain.FullResult
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			resp.Body.Close()
			t.Fatalf("decode poll response: %v", err)
		}
		resp.Body.Close()
		if result.Status == string(domain.StatusComplete) || result.Status == string(domain.StatusError) {
			return result
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("analysis %s did not complete before deadline", id)
	return domain.FullResult{}
}

func TestSubmitAndPollAnalysisCompletesCycleDetection(t *testing.T) {
	ts := newTestServer(t)

	batch := AnalysisRequest{Transactions: []TransactionInput{
		{Sender: "a", Receiver: "b", Amount: "5000", Timestamp: "2026-01-01T00:00:00Z"},
		{Sender: "b", Receiver: "c", Amount: "5000", Timestamp: "2026-01-01T01:00:00Z"},
		{Sender: "c", Receiver: "a", Amount: "5000", Timestamp: "2026-01-01T02:00:00Z"},
	}}
	accepted := submitBatch(t, ts, batch)
	if accepted.Status != string(domain.StatusPending) {
		t.Fatalf("expected pending status on submit, got %s", accepted.Status)
	}

	result := pollComplete(t, ts, accepted.AnalysisID)
	if result.Status != string(domain.StatusComplete) {
		t.Fatalf("expected complete status, got %s (error=%s)", result.Status, result.Error)
	}
	if result.Result == nil || len(result.Result.FraudRings) != 1 {
		t.Fatalf("expected one fraud ring in result, got %+v", result.Result)
	}
}

func TestSubmitAnalysisRejectsEmptyBatch(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/analyses", "application/json", bytes.NewReader([]byte(`{"transactions":[]}`)))
	if err != nil {
		t.Fatalf("POST /analyses: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty batch, got %d", resp.StatusCode)
	}
}

func TestSubmitAnalysisRejectsMalformedJSON(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Post(ts.URL+"/analyses", "application/json", bytes.NewReader([]byte(`{not json`)))
	if err != nil {
		t.Fatalf("POST /analyses: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed JSON, got %d", resp.StatusCode)
	}
}

func TestGetAnalysisUnknownIDReturns404(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/analyses/does-not-exist")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown analysis id, got %d", resp.StatusCode)
	}
}

func TestDownloadAnalysisRightAfterSubmitReturnsOKOrConflict(t *testing.T) {
	ts := newTestServer(t)
	batch := AnalysisRequest{Transactions: []TransactionInput{
		{Sender: "a", Receiver: "b", Amount: "10", Timestamp: "2026-01-01T00:00:00Z"},
	}}
	accepted := submitBatch(t, ts, batch)

	resp, err := http.Get(ts.URL + "/analyses/" + accepted.AnalysisID + "/download")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 200 (already done) or 409 (still processing), got %d", resp.StatusCode)
	}
}

func TestHealthEndpointReportsHealthy(t *testing.T) {
	ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode health response: %v", err)
	}
	if body["status"] != "healthy" {
		t.Fatalf("expected healthy status, got %+v", body)
	}
}

// TestPollServesFromCacheWithoutHittingRepository proves GetAnalysis is
// actually wired to the cache on the read path: the repository's
// GetAnalysis always fails here, so the poll can only succeed by
// reading the record runAnalysis wrote through to the cache.
func TestPollServesFromCacheWithoutHittingRepository(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "mulewatch-api-cache-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpPath) })

	realRepo, err := repository.New(domain.RepositoryConfig{Driver: "sqlite", SQLitePath: tmpPath})
	if err != nil {
		t.Fatalf("repository.New: %v", err)
	}
	t.Cleanup(func() { realRepo.Close() })
	repo := &repoGetAlwaysFails{Repository: realRepo}

	lru := cache.NewLRUCache(100)
	runner := analysis.NewRunner(domain.DefaultConfig().Detection, nil)
	srv := NewServer(domain.ServerConfig{Host: "127.0.0.1", Port: 0}, repo, lru, runner, "test")
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)

	batch := AnalysisRequest{Transactions: []TransactionInput{
		{Sender: "a", Receiver: "b", Amount: "5000", Timestamp: "2026-01-01T00:00:00Z"},
		{Sender: "b", Receiver: "c", Amount: "5000", Timestamp: "2026-01-01T01:00:00Z"},
		{Sender: "c", Receiver: "a", Amount: "5000", Timestamp: "2026-01-01T02:00:00Z"},
	}}
	accepted := submitBatch(t, ts, batch)

	result := pollComplete(t, ts, accepted.AnalysisID)
	if result.Status != string(domain.StatusComplete) {
		t.Fatalf("expected complete status served from cache, got %s (error=%s)", result.Status, result.Error)
	}
	if repo.getCalls.Load() != 0 {
		t.Fatalf("expected repository.GetAnalysis to never be called, called %d times", repo.getCalls.Load())
	}

	data, err := lru.Get(context.Background(), cacheKeyForAnalysis(accepted.AnalysisID))
	if err != nil {
		t.Fatalf("lru.Get: %v", err)
	}
	if data == nil {
		t.Fatalf("expected the analysis to be cached after completion")
	}
}
