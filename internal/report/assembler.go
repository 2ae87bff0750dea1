// Package report assembles detector, scoring, and ring output into the
// final suspicious-accounts list, fraud-ring list, and summary
// (spec.md §4.8).
package report

import (
	"sort"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/mulewatch/mulewatch/internal/numeric"
	"github.com/mulewatch/mulewatch/internal/scoring"
)

// Assemble builds the suspicious-accounts list, fraud-ring list, and
// summary from the fully-scored analysis state.
//
// Grounded on original_source/backend/app/report_builder.py for sort
// order, the risk-score-as-max-member-score rule, and the
// total-amount-at-risk formula.
func Assemble(
	g *graph.Graph,
	profiles map[string]*domain.AccountProfile,
	scores map[string]float64,
	evidence map[string]scoring.TagEvidence,
	rings []scoring.Ring,
	cycles []domain.CycleResult,
	shells []domain.ShellResult,
	processingSeconds float64,
) (accounts []domain.SuspiciousAccount, fraudRings []domain.FraudRing, summary domain.Summary) {
	accounts = buildAccounts(g, profiles, scores, evidence)
	fraudRings = buildRings(rings, scores)
	summary = buildSummary(g, profiles, accounts, fraudRings, cycles, shells, processingSeconds)
	return accounts, fraudRings, summary
}

func buildAccounts(g *graph.Graph, profiles map[string]*domain.AccountProfile, scores map[string]float64, evidence map[string]scoring.TagEvidence) []domain.SuspiciousAccount {
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var out []domain.SuspiciousAccount
	for _, id := range ids {
		score := scores[id]
		if score <= 0 {
			continue
		}
		p := profiles[id]
		ev := evidence[id]
		ringIDs := ev.SortedRingIDs()

		primary := ""
		if len(ringIDs) > 0 {
			primary = ringIDs[0]
		}

		out = append(out, domain.SuspiciousAccount{
			AccountID:        id,
			SuspicionScore:   score,
			DetectedPatterns: ev.SortedTags(),
			PrimaryRingID:    primary,
			RingIDs:          ringIDs,
			Classification:   p.Classification,
			Inflow:           p.Inflow,
			Outflow:          p.Outflow,
			TransactionCount: p.TransactionCount,
			Neighbors:        neighbors(g, id),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SuspicionScore > out[j].SuspicionScore
	})
	return out
}

func neighbors(g *graph.Graph, id string) []string {
	set := make(map[string]struct{})
	for _, n := range g.Successors(id) {
		if n != id {
			set[n] = struct{}{}
		}
	}
	for _, n := range g.Predecessors(id) {
		if n != id {
			set[n] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for n := range set {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

func buildRings(rings []scoring.Ring, scores map[string]float64) []domain.FraudRing {
	out := make([]domain.FraudRing, 0, len(rings))
	for _, r := range rings {
		members := append([]string{}, r.MemberAccounts...)
		sort.Strings(members)

		risk := 0.0
		for _, m := range members {
			if s, ok := scores[m]; ok && s > risk {
				risk = s
			}
		}

		out = append(out, domain.FraudRing{
			RingID:         r.RingID,
			MemberAccounts: members,
			PatternType:    r.PatternType,
			RiskScore:      risk,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RiskScore > out[j].RiskScore
	})
	return out
}

func buildSummary(
	g *graph.Graph,
	profiles map[string]*domain.AccountProfile,
	accounts []domain.SuspiciousAccount,
	fraudRings []domain.FraudRing,
	cycles []domain.CycleResult,
	shells []domain.ShellResult,
	processingSeconds float64,
) domain.Summary {
	patternCounts := make(map[string]int)
	for _, a := range accounts {
		for _, tag := range a.DetectedPatterns {
			patternCounts[tag]++
		}
	}

	atRisk := 0.0
	for _, c := range cycles {
		atRisk += c.TotalAmount
	}
	for _, sh := range shells {
		atRisk += sh.TotalAmount
	}

	return domain.Summary{
		TotalTransactions:       len(g.Transactions()),
		AccountsAnalyzed:        len(profiles),
		SuspiciousAccountsCount: len(accounts),
		FraudRingsCount:         len(fraudRings),
		PatternCounts:           patternCounts,
		TotalAmountAtRisk:       numeric.Round2(atRisk),
		ProcessingTimeSeconds:   numeric.Round3(processingSeconds),
	}
}
