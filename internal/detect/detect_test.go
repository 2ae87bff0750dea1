package detect

import (
	"testing"
	"time"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/shopspring/decimal"
)

func tx(sender, receiver string, amount float64, ts time.Time) domain.Transaction {
	return domain.Transaction{
		Sender:    sender,
		Receiver:  receiver,
		Amount:    decimal.NewFromFloat(amount),
		Timestamp: ts,
	}
}

func testConfig() domain.DetectionConfig {
	return domain.DefaultConfig().Detection
}

func TestCyclesFindsTriangle(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		tx("a", "b", 1000, base),
		tx("b", "c", 1000, base.Add(time.Hour)),
		tx("c", "a", 1000, base.Add(2*time.Hour)),
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cycles := Cycles(g, testConfig())
	if len(cycles) != 1 {
		t.Fatalf("expected exactly 1 cycle, got %d: %+v", len(cycles), cycles)
	}
	if cycles[0].Length != 3 {
		t.Fatalf("expected length 3, got %d", cycles[0].Length)
	}
	if cycles[0].TotalAmount != 3000 {
		t.Fatalf("expected total amount 3000, got %v", cycles[0].TotalAmount)
	}
}

func TestCyclesDedupRotations(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	txns := []domain.Transaction{
		tx("a", "b", 500, base),
		tx("b", "c", 500, base.Add(time.Hour)),
		tx("c", "a", 500, base.Add(2*time.Hour)),
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cycles := Cycles(g, testConfig())
	if len(cycles) != 1 {
		t.Fatalf("rotations of the same cycle should dedup to 1 result, got %d", len(cycles))
	}
}

func TestCyclesRespectsTimeWindow(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	txns := []domain.Transaction{
		tx("a", "b", 500, base),
		tx("b", "c", 500, base.Add(time.Hour)),
		tx("c", "a", 500, base.Add(cfg.CycleWindow*2)),
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	cycles := Cycles(g, cfg)
	if len(cycles) != 0 {
		t.Fatalf("expected no cycle outside the window, got %d", len(cycles))
	}
}

func TestSmurfingFanIn(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	var txns []domain.Transaction
	for i := 0; i < cfg.SmurfThreshold+2; i++ {
		sender := string(rune('a' + i))
		txns = append(txns, tx(sender, "hub", 100, base.Add(time.Duration(i)*time.Minute)))
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	results := Smurfing(g, cfg)
	found := false
	for _, r := range results {
		if r.AccountID == "hub" && r.PatternTag == "fan_in" {
			found = true
			if r.UniqueCounterparties < cfg.SmurfThreshold {
				t.Fatalf("expected unique counterparties >= %d, got %d", cfg.SmurfThreshold, r.UniqueCounterparties)
			}
		}
	}
	if !found {
		t.Fatalf("expected a fan_in result for hub, got %+v", results)
	}
}

func TestSmurfingBelowThresholdNotFlagged(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	var txns []domain.Transaction
	for i := 0; i < 3; i++ {
		sender := string(rune('a' + i))
		txns = append(txns, tx(sender, "hub", 100, base.Add(time.Duration(i)*time.Minute)))
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, r := range Smurfing(g, cfg) {
		if r.AccountID == "hub" {
			t.Fatalf("did not expect hub to be flagged below threshold: %+v", r)
		}
	}
}

func TestShellsFindsPassthroughChain(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	txns := []domain.Transaction{
		tx("source", "mid1", 10000, base),
		tx("mid1", "mid2", 10000, base.Add(time.Hour)),
		tx("mid2", "sink", 10000, base.Add(2*time.Hour)),
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	results := Shells(g, cfg)
	if len(results) == 0 {
		t.Fatalf("expected at least one shell chain, got none")
	}
	r := results[0]
	if len(r.Intermediates) != 2 {
		t.Fatalf("expected 2 intermediates, got %d: %v", len(r.Intermediates), r.Intermediates)
	}
	if r.TotalAmount != 30000 {
		t.Fatalf("expected total 30000, got %v", r.TotalAmount)
	}
}

func TestShellsRejectsNonPassthroughIntermediate(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cfg := testConfig()
	// mid1 receives 10000 but only forwards 10, far outside the
	// pass-through ratio, so the three-edge chain must not be flagged.
	txns := []domain.Transaction{
		tx("source", "mid1", 10000, base),
		tx("mid1", "mid2", 10, base.Add(time.Hour)),
		tx("mid2", "sink", 10, base.Add(2*time.Hour)),
	}
	g, err := graph.Build(txns)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, r := range Shells(g, cfg) {
		for _, m := range r.Intermediates {
			if m == "mid1" {
				t.Fatalf("mid1 should not qualify as a pass-through intermediate: %+v", r)
			}
		}
	}
}
