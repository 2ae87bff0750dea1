package detect

import (
	"sort"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/mulewatch/mulewatch/internal/numeric"
	"github.com/shopspring/decimal"
)

// smurfEntry is one transaction projected into an account's group: its
// counterparty and (amount, timestamp), kept in global timestamp order.
type smurfEntry struct {
	counterparty string
	tx           domain.Transaction
}

// Smurfing detects fan-in (receiver with >= T unique senders in a
// W-hour window) and fan-out (sender with >= T unique receivers),
// reporting at most one record per (account, direction): the window
// with the maximum unique-counterparty count (spec.md §4.3).
//
// Grounded on
// original_source/backend/app/detectors/detectors/smurfing_detector.py
// for the exact two-pointer sliding-window algorithm.
func Smurfing(g *graph.Graph, cfg domain.DetectionConfig) []domain.SmurfingResult {
	sorted := g.SortedTransactions()

	fanIn := groupBy(sorted, func(t domain.Transaction) (key, counterparty string) {
		return t.Receiver, t.Sender
	})
	fanOut := groupBy(sorted, func(t domain.Transaction) (key, counterparty string) {
		return t.Sender, t.Receiver
	})

	var results []domain.SmurfingResult
	results = append(results, scanGroups(fanIn, "fan_in", cfg)...)
	results = append(results, scanGroups(fanOut, "fan_out", cfg)...)
	return results
}

func groupBy(sorted []domain.Transaction, key func(domain.Transaction) (string, string)) map[string][]smurfEntry {
	groups := make(map[string][]smurfEntry)
	for _, t := range sorted {
		acct, counterparty := key(t)
		groups[acct] = append(groups[acct], smurfEntry{counterparty: counterparty, tx: t})
	}
	return groups
}

func scanGroups(groups map[string][]smurfEntry, patternTag string, cfg domain.DetectionConfig) []domain.SmurfingResult {
	accounts := make([]string, 0, len(groups))
	for acct := range groups {
		accounts = append(accounts, acct)
	}
	sort.Strings(accounts)

	var out []domain.SmurfingResult
	for _, acct := range accounts {
		if res, ok := bestWindow(acct, groups[acct], patternTag, cfg); ok {
			out = append(out, res)
		}
	}
	return out
}

func bestWindow(account string, entries []smurfEntry, patternTag string, cfg domain.DetectionConfig) (domain.SmurfingResult, bool) {
	freq := make(map[string]int)
	runningTotal := decimal.Zero
	unique := 0

	bestUnique := 0
	bestTotal := decimal.Zero
	var bestStart, bestEnd = entries[0].tx.Timestamp, entries[0].tx.Timestamp

	left := 0
	for right := 0; right < len(entries); right++ {
		r := entries[right]
		if freq[r.counterparty] == 0 {
			unique++
		}
		freq[r.counterparty]++
		runningTotal = runningTotal.Add(r.tx.Amount)

		for left < right && entries[right].tx.Timestamp.Sub(entries[left].tx.Timestamp) > cfg.SmurfWindow {
			l := entries[left]
			freq[l.counterparty]--
			if freq[l.counterparty] == 0 {
				unique--
			}
			runningTotal = runningTotal.Sub(l.tx.Amount)
			left++
		}

		if unique > bestUnique {
			bestUnique = unique
			bestTotal = runningTotal
			bestStart = entries[left].tx.Timestamp
			bestEnd = entries[right].tx.Timestamp
		}
	}

	if bestUnique < cfg.SmurfThreshold {
		return domain.SmurfingResult{}, false
	}

	spanHours := bestEnd.Sub(bestStart).Hours()
	if spanHours < 1 {
		spanHours = 1
	}

	return domain.SmurfingResult{
		AccountID:            account,
		PatternTag:           patternTag,
		UniqueCounterparties: bestUnique,
		TotalAmount:          numeric.Round2(bestTotal.InexactFloat64()),
		VelocityPerHour:      numeric.Round2(bestTotal.InexactFloat64() / spanHours),
		WindowStart:          bestStart,
		WindowEnd:            bestEnd,
	}, true
}
