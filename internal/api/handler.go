package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/mulewatch/mulewatch/internal/analysis"
	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/ingest"
	"github.com/shopspring/decimal"
)

// analysisCacheTTL bounds how long a cached analysis record is served
// before the handler falls back to the repository. Short enough that a
// client polling a just-completed run never sees a stale "processing"
// entry for long, since runAnalysis also writes through on every status
// transition.
const analysisCacheTTL = 5 * time.Minute

// Handler holds dependencies for the analysis API surface.
type Handler struct {
	repo     domain.Repository
	cache    domain.Cache
	runner   *analysis.Runner
	progress *ProgressHub
	version  string

	mu          sync.RWMutex
	projections map[string]domain.GraphProjection
}

// NewHandler creates a new API handler.
func NewHandler(repo domain.Repository, cache domain.Cache, runner *analysis.Runner, version string) *Handler {
	return &Handler{
		repo:        repo,
		cache:       cache,
		runner:      runner,
		progress:    NewProgressHub(),
		version:     version,
		projections: make(map[string]domain.GraphProjection),
	}
}

// TransactionInput is one transaction as submitted over JSON. Amount is
// a decimal string to avoid float round-tripping through JSON numbers.
type TransactionInput struct {
	ID        string `json:"id,omitempty"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    string `json:"amount"`
	Timestamp string `json:"timestamp"`
}

// AnalysisRequest is the body of POST /analyses.
type AnalysisRequest struct {
	Transactions []TransactionInput `json:"transactions"`
}

// AnalysisAccepted is the response to POST /analyses.
type AnalysisAccepted struct {
	AnalysisID string `json:"analysis_id"`
	Status     string `json:"status"`
}

// SubmitAnalysis handles POST /analyses: validates the batch, persists
// a pending record, and runs the analysis pipeline on a background
// goroutine so the caller can poll or stream progress.
func (h *Handler) SubmitAnalysis(w http.ResponseWriter, r *http.Request) {
	var req AnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON request body"})
		return
	}

	transactions, err := decodeTransactions(req.Transactions)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	analysisID := uuid.New().String()
	pending := domain.AnalysisResult{AnalysisID: analysisID, Status: domain.StatusPending}
	if err := h.repo.SaveAnalysis(r.Context(), &pending); err != nil {
		slog.Error("failed to save pending analysis", "id", analysisID, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start analysis"})
		return
	}
	h.setCachedAnalysis(r.Context(), &pending)

	go h.runAnalysis(analysisID, transactions)

	writeJSON(w, http.StatusAccepted, AnalysisAccepted{AnalysisID: analysisID, Status: string(domain.StatusPending)})
}

func (h *Handler) runAnalysis(analysisID string, transactions []domain.Transaction) {
	ctx := context.Background()

	processing := domain.AnalysisResult{AnalysisID: analysisID, Status: domain.StatusProcessing}
	if err := h.repo.SaveAnalysis(ctx, &processing); err != nil {
		slog.Error("failed to mark analysis processing", "id", analysisID, "error", err)
	}
	h.setCachedAnalysis(ctx, &processing)

	result, projection, err := h.runner.Run(ctx, analysisID, transactions, func(stage string) {
		h.progress.Publish(analysisID, stage)
	})
	if err != nil {
		slog.Error("analysis run failed", "id", analysisID, "error", err)
		h.progress.Publish(analysisID, "error")
		if saveErr := h.repo.SaveAnalysis(ctx, &result); saveErr != nil {
			slog.Error("failed to save failed analysis", "id", analysisID, "error", saveErr)
		}
		h.setCachedAnalysis(ctx, &result)
		return
	}

	h.mu.Lock()
	h.projections[analysisID] = projection
	h.mu.Unlock()

	if err := h.repo.SaveAnalysis(ctx, &result); err != nil {
		slog.Error("failed to save completed analysis", "id", analysisID, "error", err)
	}
	h.setCachedAnalysis(ctx, &result)
	h.progress.Publish(analysisID, "complete")
}

// getCachedAnalysis reads an analysis record from the cache, tolerating
// a nil cache (Community tier with caching disabled) and any cache-level
// error by falling through to the repository.
func (h *Handler) getCachedAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, bool) {
	if h.cache == nil {
		return nil, false
	}
	data, err := h.cache.Get(ctx, cacheKeyForAnalysis(id))
	if err != nil || data == nil {
		return nil, false
	}
	var result domain.AnalysisResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false
	}
	return &result, true
}

// setCachedAnalysis writes an analysis record through to the cache. A
// nil cache or a cache-level error is logged and otherwise ignored —
// the cache is a fast path in front of the repository, never the
// source of truth.
func (h *Handler) setCachedAnalysis(ctx context.Context, result *domain.AnalysisResult) {
	if h.cache == nil {
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		slog.Warn("failed to marshal analysis for cache", "id", result.AnalysisID, "error", err)
		return
	}
	if err := h.cache.Set(ctx, cacheKeyForAnalysis(result.AnalysisID), data, analysisCacheTTL); err != nil {
		slog.Warn("failed to cache analysis", "id", result.AnalysisID, "error", err)
	}
}

func cacheKeyForAnalysis(id string) string {
	return "analysis:" + id
}

// fetchAnalysis serves an analysis record from the cache when present,
// otherwise falls back to the repository and populates the cache for
// the next poll.
func (h *Handler) fetchAnalysis(ctx context.Context, id string) (*domain.AnalysisResult, error) {
	if cached, ok := h.getCachedAnalysis(ctx, id); ok {
		return cached, nil
	}
	result, err := h.repo.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	h.setCachedAnalysis(ctx, result)
	return result, nil
}

func decodeTransactions(in []TransactionInput) ([]domain.Transaction, error) {
	if len(in) == 0 {
		return nil, domain.ErrEmptyInput
	}

	out := make([]domain.Transaction, 0, len(in))
	for _, t := range in {
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil {
			return nil, domain.ErrInvalidTransaction
		}
		ts, err := ingest.ParseTimestamp(t.Timestamp)
		if err != nil {
			return nil, domain.ErrInvalidTransaction
		}

		txn := domain.Transaction{
			ID:        t.ID,
			Sender:    t.Sender,
			Receiver:  t.Receiver,
			Amount:    amount,
			Timestamp: ts,
		}
		if err := txn.Validate(); err != nil {
			return nil, err
		}
		out = append(out, txn)
	}
	return out, nil
}

// GetAnalysis handles GET /analyses/{id}: the polling-surface
// projection (spec.md §6).
func (h *Handler) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.fetchAnalysis(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, result.ToFullResult())
}

// DownloadAnalysis handles GET /analyses/{id}/download: the reduced
// export projection (spec.md §6).
func (h *Handler) DownloadAnalysis(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	result, err := h.fetchAnalysis(r.Context(), id)
	if err != nil {
		h.writeLookupError(w, id, err)
		return
	}
	if result.Status != domain.StatusComplete {
		writeJSON(w, http.StatusConflict, map[string]string{"error": domain.ErrAnalysisNotReady.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result.ToDownloadResult())
}

// GetGraph handles GET /analyses/{id}/graph: the visualization
// projection (spec.md §6), held in memory for the lifetime of the
// completed run.
func (h *Handler) GetGraph(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	h.mu.RLock()
	projection, ok := h.projections[id]
	h.mu.RUnlock()

	if !ok {
		result, err := h.fetchAnalysis(r.Context(), id)
		if err != nil {
			h.writeLookupError(w, id, err)
			return
		}
		if result.Status != domain.StatusComplete {
			writeJSON(w, http.StatusConflict, map[string]string{"error": domain.ErrAnalysisNotReady.Error()})
			return
		}
		writeJSON(w, http.StatusGone, map[string]string{"error": "graph projection no longer available"})
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (h *Handler) writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, domain.ErrAnalysisNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "analysis not found"})
		return
	}
	slog.Error("failed to get analysis", "id", id, "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to retrieve analysis"})
}

// Health returns server health status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
