// Package analysis orchestrates a single batch analysis run: graph
// build, profile/legitimacy pass, parallel detection, then sequential
// ring/score/overlay/assembly (spec.md §6, §7).
package analysis

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mulewatch/mulewatch/internal/detect"
	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/mulewatch/mulewatch/internal/legitimacy"
	"github.com/mulewatch/mulewatch/internal/overlay"
	"github.com/mulewatch/mulewatch/internal/report"
	"github.com/mulewatch/mulewatch/internal/scoring"
)

// Runner executes analysis runs against a fixed detection configuration
// and an optional overlay rule engine.
type Runner struct {
	cfg     domain.DetectionConfig
	overlay *overlay.Engine
}

// NewRunner builds a Runner. overlayEngine may be nil, disabling the
// supplementary rule layer.
func NewRunner(cfg domain.DetectionConfig, overlayEngine *overlay.Engine) *Runner {
	return &Runner{cfg: cfg, overlay: overlayEngine}
}

// Stage names passed to a Run progress callback, in pipeline order.
const (
	StageGraphBuilt   = "graph_built"
	StageProfiled     = "profiled"
	StageDetected     = "detected"
	StageScored       = "scored"
	StageAssembled    = "assembled"
)

// Run executes one batch analysis end to end (spec.md §6): it builds
// the graph, builds profiles and applies the legitimacy filter, fans
// the three detectors out as one goroutine each joined by a
// sync.WaitGroup (grounded on rules.Engine.EvaluateAll's fan-out shape,
// opensource-finance-osprey), then runs the sequential
// ring→score→overlay→assembly pipeline. progress, if
// non-nil, is invoked synchronously after each stage completes — callers
// needing async delivery (the websocket stream) must not block in it.
//
// On ErrEmptyInput/ErrInvalidTransaction/ErrInternalInvariant, Run
// returns a Status: Error result carrying the message, and the same
// error value, never a partial result alongside a nil error.
func (r *Runner) Run(ctx context.Context, analysisID string, transactions []domain.Transaction, progress func(stage string)) (domain.AnalysisResult, domain.GraphProjection, error) {
	if progress == nil {
		progress = func(string) {}
	}
	start := time.Now()

	g, err := graph.Build(transactions)
	if err != nil {
		return failureResult(analysisID, err), domain.GraphProjection{}, err
	}
	progress(StageGraphBuilt)

	profiles := graph.BuildProfiles(g)
	legitimacy.Apply(g, profiles)
	progress(StageProfiled)

	cycles, smurfs, shells, err := r.detect(ctx, g)
	if err != nil {
		return failureResult(analysisID, err), domain.GraphProjection{}, err
	}
	progress(StageDetected)

	cycles, smurfs, shells, rings := scoring.AssignRings(cycles, smurfs, shells)
	scores, evidence := scoring.Score(profiles, cycles, smurfs, shells)

	if r.overlay != nil {
		for accountID, tags := range r.overlay.Apply(ctx, profiles) {
			ev, ok := evidence[accountID]
			if !ok {
				ev = scoring.TagEvidence{RingIDs: map[string]struct{}{}, Tags: map[string]struct{}{}}
			}
			for _, t := range tags {
				ev.Tags[t] = struct{}{}
			}
			evidence[accountID] = ev
		}
	}
	progress(StageScored)

	accounts, fraudRings, summary := report.Assemble(
		g, profiles, scores, evidence, rings, cycles, shells, time.Since(start).Seconds(),
	)
	projection := graph.Projection(g, profiles, accounts)
	progress(StageAssembled)

	return domain.AnalysisResult{
		AnalysisID: analysisID,
		Status:     domain.StatusComplete,
		Summary:    summary,
		Accounts:   accounts,
		Rings:      fraudRings,
	}, projection, nil
}

type detectOutcome struct {
	cycles []domain.CycleResult
	smurfs []domain.SmurfingResult
	shells []domain.ShellResult
	err    error
}

func (r *Runner) detect(ctx context.Context, g *graph.Graph) ([]domain.CycleResult, []domain.SmurfingResult, []domain.ShellResult, error) {
	var wg sync.WaitGroup
	outcome := detectOutcome{}
	var mu sync.Mutex

	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if rec := recover(); rec != nil {
					mu.Lock()
					outcome.err = fmt.Errorf("%w: detector panic: %v", domain.ErrInternalInvariant, rec)
					mu.Unlock()
				}
			}()
			fn()
		}()
	}

	run(func() {
		cycles := detect.Cycles(g, r.cfg)
		mu.Lock()
		outcome.cycles = cycles
		mu.Unlock()
	})
	run(func() {
		smurfs := detect.Smurfing(g, r.cfg)
		mu.Lock()
		outcome.smurfs = smurfs
		mu.Unlock()
	})
	run(func() {
		shells := detect.Shells(g, r.cfg)
		mu.Lock()
		outcome.shells = shells
		mu.Unlock()
	})

	wg.Wait()

	if ctx.Err() != nil {
		return nil, nil, nil, fmt.Errorf("%w: %v", domain.ErrInternalInvariant, ctx.Err())
	}
	if outcome.err != nil {
		return nil, nil, nil, outcome.err
	}
	return outcome.cycles, outcome.smurfs, outcome.shells, nil
}

func failureResult(analysisID string, err error) domain.AnalysisResult {
	status := domain.StatusError
	return domain.AnalysisResult{
		AnalysisID: analysisID,
		Status:     status,
		Error:      errorMessage(err),
	}
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmptyInput):
		return domain.ErrEmptyInput.Error()
	case errors.Is(err, domain.ErrInvalidTransaction):
		return domain.ErrInvalidTransaction.Error()
	default:
		return err.Error()
	}
}
