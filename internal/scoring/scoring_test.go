package scoring

import (
	"testing"

	"github.com/mulewatch/mulewatch/internal/domain"
)

func profileFor(id string, txnCount int) *domain.AccountProfile {
	return &domain.AccountProfile{AccountID: id, TransactionCount: txnCount}
}

func TestAssignRingsOrdersByPatternKind(t *testing.T) {
	cycles := []domain.CycleResult{{Nodes: []string{"a", "b", "c"}, Length: 3}}
	smurfs := []domain.SmurfingResult{{AccountID: "d"}}
	shells := []domain.ShellResult{{Chain: []string{"e", "f", "g"}}}

	gotCycles, gotSmurfs, gotShells, rings := AssignRings(cycles, smurfs, shells)

	if len(rings) != 3 {
		t.Fatalf("expected 3 rings, got %d", len(rings))
	}
	if rings[0].RingID != "RING_001" || gotCycles[0].RingID != "RING_001" {
		t.Fatalf("expected cycle to claim RING_001, got %q / %q", rings[0].RingID, gotCycles[0].RingID)
	}
	if rings[1].RingID != "RING_002" || gotSmurfs[0].RingID != "RING_002" {
		t.Fatalf("expected smurfing to claim RING_002, got %q / %q", rings[1].RingID, gotSmurfs[0].RingID)
	}
	if rings[2].RingID != "RING_003" || gotShells[0].RingID != "RING_003" {
		t.Fatalf("expected shell to claim RING_003, got %q / %q", rings[2].RingID, gotShells[0].RingID)
	}
}

func TestScoreTakesMaxPerKindThenSums(t *testing.T) {
	profiles := map[string]*domain.AccountProfile{
		"a": profileFor("a", 1),
	}
	// Two cycle hits against the same account: a short, low-value
	// cycle (base 20*(6-3)=60) and a longer high-value one
	// (base 20*(6-5)+10=30); the fused score must take the max of the
	// two cycle hits (60), not their sum (90), then add nothing else.
	cycles := []domain.CycleResult{
		{RingID: "R1", Nodes: []string{"a", "x", "y"}, Length: 3, TotalAmount: 100},
		{RingID: "R2", Nodes: []string{"a", "p", "q", "r", "s"}, Length: 5, TotalAmount: 50000},
	}

	scores, evidence := Score(profiles, cycles, nil, nil)
	if scores["a"] != 60 {
		t.Fatalf("expected max-per-kind score of 60, got %v", scores["a"])
	}
	tags := evidence["a"].SortedTags()
	if len(tags) != 2 {
		t.Fatalf("expected 2 distinct cycle-length tags, got %v", tags)
	}
}

func TestScoreSumsAcrossKinds(t *testing.T) {
	profiles := map[string]*domain.AccountProfile{
		"a": profileFor("a", 1),
	}
	cycles := []domain.CycleResult{{RingID: "R1", Nodes: []string{"a", "x", "y"}, Length: 3}}
	smurfs := []domain.SmurfingResult{{RingID: "R2", AccountID: "a", PatternTag: "fan_in"}}

	scores, _ := Score(profiles, cycles, smurfs, nil)
	// cycle base 60 + smurf base 25 = 85
	if scores["a"] != 85 {
		t.Fatalf("expected cross-kind sum of 85, got %v", scores["a"])
	}
}

func TestScoreAppliesLegitimacyDeductionAndClamps(t *testing.T) {
	profiles := map[string]*domain.AccountProfile{
		"a": {AccountID: "a", TransactionCount: 1, IsPayroll: true},
	}
	cycles := []domain.CycleResult{{RingID: "R1", Nodes: []string{"a", "x", "y"}, Length: 3}}

	scores, _ := Score(profiles, cycles, nil, nil)
	// base 60, minus payroll deduction 50 = 10
	if scores["a"] != 10 {
		t.Fatalf("expected payroll-deducted score of 10, got %v", scores["a"])
	}
}

func TestScoreClampsToZeroFloor(t *testing.T) {
	profiles := map[string]*domain.AccountProfile{
		"a": {AccountID: "a", TransactionCount: 1, IsPayroll: true, IsMerchant: true, IsSalary: true, IsEstablishedBusiness: true},
	}
	cycles := []domain.CycleResult{{RingID: "R1", Nodes: []string{"a", "x", "y"}, Length: 3}}

	scores, _ := Score(profiles, cycles, nil, nil)
	if scores["a"] != 0 {
		t.Fatalf("expected score clamped to 0, got %v", scores["a"])
	}
}

func TestScoreZeroForUntouchedAccount(t *testing.T) {
	profiles := map[string]*domain.AccountProfile{
		"clean": profileFor("clean", 5),
	}
	scores, evidence := Score(profiles, nil, nil, nil)
	if scores["clean"] != 0 {
		t.Fatalf("expected clean account to score 0, got %v", scores["clean"])
	}
	if _, ok := evidence["clean"]; ok {
		t.Fatalf("did not expect tag evidence for an untouched account")
	}
}
