// Package scoring assigns fraud ring identities and computes the
// per-account suspicion score from detector output (spec.md §4.6-§4.7).
package scoring

import (
	"fmt"

	"github.com/mulewatch/mulewatch/internal/domain"
)

// Ring bundles a pattern detection with the account(s) it implicates,
// before a RingID has been assigned.
type Ring struct {
	RingID        string
	MemberAccounts []string
	PatternType   string

	Cycle    *domain.CycleResult
	Smurfing *domain.SmurfingResult
	Shell    *domain.ShellResult
}

// AssignRings gives every detected pattern a dense, globally unique
// RING_### identifier, processed cycles first, then smurfing, then
// shells (spec.md §4.6) — the same relative priority the original
// implementation uses when a single account belongs to more than one
// ring, so earlier pattern types keep the lower-numbered ids.
//
// Grounded on original_source/backend/app/ring_assigner.py for
// processing order and the zero-padded numbering scheme.
func AssignRings(cycles []domain.CycleResult, smurfs []domain.SmurfingResult, shells []domain.ShellResult) ([]domain.CycleResult, []domain.SmurfingResult, []domain.ShellResult, []Ring) {
	n := 0
	next := func() string {
		n++
		return fmt.Sprintf("RING_%03d", n)
	}

	var rings []Ring

	outCycles := make([]domain.CycleResult, len(cycles))
	for i, c := range cycles {
		c.RingID = next()
		outCycles[i] = c
		rings = append(rings, Ring{
			RingID:         c.RingID,
			MemberAccounts: append([]string{}, c.Nodes...),
			PatternType:    "cycle",
			Cycle:          &outCycles[i],
		})
	}

	outSmurfs := make([]domain.SmurfingResult, len(smurfs))
	for i, s := range smurfs {
		s.RingID = next()
		outSmurfs[i] = s
		rings = append(rings, Ring{
			RingID:         s.RingID,
			MemberAccounts: []string{s.AccountID},
			PatternType:    s.PatternTag,
			Smurfing:       &outSmurfs[i],
		})
	}

	outShells := make([]domain.ShellResult, len(shells))
	for i, sh := range shells {
		sh.RingID = next()
		outShells[i] = sh
		rings = append(rings, Ring{
			RingID:         sh.RingID,
			MemberAccounts: append([]string{}, sh.Chain...),
			PatternType:    "shell",
			Shell:          &outShells[i],
		})
	}

	return outCycles, outSmurfs, outShells, rings
}
