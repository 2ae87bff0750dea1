package scoring

import (
	"math"
	"sort"

	"github.com/mulewatch/mulewatch/internal/domain"
)

type accountEvidence struct {
	cycleMax   float64
	cycleSet   bool
	smurfMax   float64
	smurfSet   bool
	shellMax   float64
	shellSet   bool
	ringIDs    map[string]struct{}
	tags       map[string]struct{}
}

func newEvidence() *accountEvidence {
	return &accountEvidence{
		ringIDs: make(map[string]struct{}),
		tags:    make(map[string]struct{}),
	}
}

// Score fuses detector output and profile features into a 0-100
// suspicion score per account (spec.md §4.7), alongside the ring-id and
// detected-pattern-tag evidence the report assembler needs to render
// each suspicious account.
//
// Grounded on original_source/backend/app/scorer.py for the point
// table and the max-within-kind-then-sum-across-kinds composition rule.
func Score(profiles map[string]*domain.AccountProfile, cycles []domain.CycleResult, smurfs []domain.SmurfingResult, shells []domain.ShellResult) (map[string]float64, map[string]TagEvidence) {
	evidence := make(map[string]*accountEvidence)
	ensure := func(id string) *accountEvidence {
		e, ok := evidence[id]
		if !ok {
			e = newEvidence()
			evidence[id] = e
		}
		return e
	}

	for _, c := range cycles {
		base := 20.0 * float64(6-min(c.Length, 5))
		if c.TotalAmount > 10000 {
			base += 10
		}
		tag := cycleLengthTag(c.Length)
		for _, acct := range c.Nodes {
			e := ensure(acct)
			e.ringIDs[c.RingID] = struct{}{}
			e.tags[tag] = struct{}{}
			if !e.cycleSet || base > e.cycleMax {
				e.cycleMax = base
				e.cycleSet = true
			}
		}
	}

	for _, s := range smurfs {
		base := 25.0
		if s.VelocityPerHour > 5000 {
			base += 10
		}
		if s.UniqueCounterparties > 20 {
			base += 5
		}
		if s.TotalAmount > 100000 {
			base += 5
		}
		e := ensure(s.AccountID)
		e.ringIDs[s.RingID] = struct{}{}
		e.tags[s.PatternTag] = struct{}{}
		if s.VelocityPerHour > 5000 {
			e.tags["high_velocity"] = struct{}{}
		}
		if !e.smurfSet || base > e.smurfMax {
			e.smurfMax = base
			e.smurfSet = true
		}
	}

	for _, sh := range shells {
		intermediates := make(map[string]struct{}, len(sh.Intermediates))
		for _, m := range sh.Intermediates {
			intermediates[m] = struct{}{}
		}
		for _, acct := range sh.Chain {
			base := 25.0
			if _, ok := intermediates[acct]; ok {
				base += 10 * float64(sh.ShellDepth)
			}
			e := ensure(acct)
			e.ringIDs[sh.RingID] = struct{}{}
			e.tags["shell"] = struct{}{}
			if !e.shellSet || base > e.shellMax {
				e.shellMax = base
				e.shellSet = true
			}
		}
	}

	scores := make(map[string]float64, len(evidence))
	tagEvidence := make(map[string]TagEvidence, len(evidence))
	for id := range profiles {
		e, hasEvidence := evidence[id]
		patternScore := 0.0
		if hasEvidence {
			if e.cycleSet {
				patternScore += e.cycleMax
			}
			if e.smurfSet {
				patternScore += e.smurfMax
			}
			if e.shellSet {
				patternScore += e.shellMax
			}
			tagEvidence[id] = TagEvidence{RingIDs: e.ringIDs, Tags: e.tags}
		}
		scores[id] = clampScore(patternScore + accountFeatureBonus(profiles[id]) + legitimacyDeduction(profiles[id]))
	}

	return scores, tagEvidence
}

// TagEvidence is the set of ring ids and detected-pattern tags that
// accumulated against one account.
type TagEvidence struct {
	RingIDs map[string]struct{}
	Tags    map[string]struct{}
}

func (e TagEvidence) SortedRingIDs() []string {
	out := make([]string, 0, len(e.RingIDs))
	for id := range e.RingIDs {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e TagEvidence) SortedTags() []string {
	out := make([]string, 0, len(e.Tags))
	for t := range e.Tags {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func cycleLengthTag(length int) string {
	switch {
	case length <= 3:
		return "cycle_length_3"
	case length == 4:
		return "cycle_length_4"
	default:
		return "cycle_length_5"
	}
}

func accountFeatureBonus(p *domain.AccountProfile) float64 {
	if p == nil {
		return 0
	}
	bonus := 0.0
	if p.TransactionCount > 10 {
		bonus += math.Min(math.Log10(float64(p.TransactionCount))*5, 15)
	}
	if p.TransactionCount > 0 {
		avg := (p.Inflow + p.Outflow) / (2 * float64(p.TransactionCount))
		if avg > 50000 {
			bonus += 10
		}
	}
	return bonus
}

func legitimacyDeduction(p *domain.AccountProfile) float64 {
	if p == nil {
		return 0
	}
	deduction := 0.0
	if p.IsPayroll {
		deduction -= 50
	}
	if p.IsMerchant {
		deduction -= 40
	}
	if p.IsSalary {
		deduction -= 30
	}
	if p.IsEstablishedBusiness {
		deduction -= 40
	}
	return deduction
}

func clampScore(v float64) float64 {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return math.Round(v*10) / 10
}
