// Package legitimacy implements the false-positive filter layer of
// spec.md §4.5: four boolean classifiers run per account after profile
// building, tagging accounts whose activity looks like ordinary
// payroll, merchant, salary, or established-business traffic so the
// scorer can discount them.
package legitimacy

import (
	"math"
	"sort"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/shopspring/decimal"
)

var roundCents = map[int64]struct{}{0: {}, 49: {}, 50: {}, 95: {}, 99: {}}

// Apply computes the four legitimacy booleans for every account and
// writes them into profiles in place.
//
// Grounded on original_source/backend/app/filters.py for the exact
// thresholds (dominant-sender ratio, coefficient of variation, median
// interval windows, round-cents set).
func Apply(g *graph.Graph, profiles map[string]*domain.AccountProfile) {
	inbound, outbound := groupByParty(g.Transactions())

	for id, profile := range profiles {
		in := inbound[id]
		out := outbound[id]

		profile.IsPayroll = isPayroll(in)
		profile.IsMerchant = isMerchant(id, in, out)
		profile.IsSalary = isSalary(in, out)
		profile.IsEstablishedBusiness = isEstablishedBusiness(g, id, profile)
	}
}

func groupByParty(txns []domain.Transaction) (inbound, outbound map[string][]domain.Transaction) {
	inbound = make(map[string][]domain.Transaction)
	outbound = make(map[string][]domain.Transaction)
	for _, t := range txns {
		inbound[t.Receiver] = append(inbound[t.Receiver], t)
		outbound[t.Sender] = append(outbound[t.Sender], t)
	}
	return inbound, outbound
}

func isPayroll(in []domain.Transaction) bool {
	if len(in) < 3 {
		return false
	}

	bySender := make(map[string][]domain.Transaction)
	for _, t := range in {
		bySender[t.Sender] = append(bySender[t.Sender], t)
	}

	senders := make([]string, 0, len(bySender))
	for s := range bySender {
		senders = append(senders, s)
	}
	sort.Strings(senders)

	dominantSender := senders[0]
	for _, s := range senders[1:] {
		if len(bySender[s]) > len(bySender[dominantSender]) {
			dominantSender = s
		}
	}
	dominant := bySender[dominantSender]

	ratio := float64(len(dominant)) / float64(len(in))
	if ratio < 0.80 {
		return false
	}

	cv := coefficientOfVariation(dominant)
	if cv > 0.10 {
		return false
	}

	median := medianIntervalDays(dominant)
	return median >= 25 && median <= 35
}

func isMerchant(id string, in, out []domain.Transaction) bool {
	if domain.IsBusinessToken(id) {
		return true
	}

	if len(in) < 20 {
		return false
	}
	if avgAmount(out) <= avgAmount(in) {
		return false
	}
	outCount := len(out)
	if outCount == 0 {
		outCount = 1
	}
	if len(in) < 5*outCount {
		return false
	}

	round := 0
	for _, t := range in {
		if _, ok := roundCents[centsOf(t.Amount)]; ok {
			round++
		}
	}
	return float64(round)/float64(len(in)) > 0.30
}

func isSalary(in, out []domain.Transaction) bool {
	if len(out) < 3 {
		return false
	}
	maxIn := decimal.Zero
	for _, t := range in {
		if t.Amount.GreaterThan(maxIn) {
			maxIn = t.Amount
		}
	}
	if maxIn.IsZero() {
		return false
	}

	threshold := maxIn.Mul(decimal.NewFromFloat(0.7))
	var large []domain.Transaction
	for _, t := range in {
		if t.Amount.GreaterThan(threshold) {
			large = append(large, t)
		}
	}
	if len(large) < 2 {
		return false
	}

	median := medianIntervalDays(large)
	return median >= 25 && median <= 35
}

func isEstablishedBusiness(g *graph.Graph, id string, profile *domain.AccountProfile) bool {
	total := profile.TransactionCount
	if total < 20 {
		return false
	}
	if profile.LastSeen.Sub(profile.FirstSeen).Hours() < 180*24 {
		return false
	}

	neighbors := make(map[string]struct{})
	for _, n := range g.Successors(id) {
		if n != id {
			neighbors[n] = struct{}{}
		}
	}
	for _, n := range g.Predecessors(id) {
		if n != id {
			neighbors[n] = struct{}{}
		}
	}
	if len(neighbors) < 10 {
		return false
	}

	return domain.IsBusinessToken(id) || total > 100
}

func avgAmount(txns []domain.Transaction) float64 {
	if len(txns) == 0 {
		return 0
	}
	sum := decimal.Zero
	for _, t := range txns {
		sum = sum.Add(t.Amount)
	}
	f, _ := sum.Div(decimal.NewFromInt(int64(len(txns)))).Float64()
	return f
}

func coefficientOfVariation(txns []domain.Transaction) float64 {
	if len(txns) == 0 {
		return math.Inf(1)
	}
	amounts := make([]float64, len(txns))
	sum := 0.0
	for i, t := range txns {
		f, _ := t.Amount.Float64()
		amounts[i] = f
		sum += f
	}
	mean := sum / float64(len(amounts))
	if mean == 0 {
		return math.Inf(1)
	}
	var variance float64
	for _, a := range amounts {
		variance += (a - mean) * (a - mean)
	}
	variance /= float64(len(amounts))
	return math.Sqrt(variance) / mean
}

// medianIntervalDays sorts txns by timestamp and returns the median of
// consecutive inter-transaction intervals, in days. Returns 0 for
// fewer than 2 transactions (callers only reach this path with >= 2).
func medianIntervalDays(txns []domain.Transaction) float64 {
	if len(txns) < 2 {
		return 0
	}
	sorted := append([]domain.Transaction{}, txns...)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	intervals := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		intervals = append(intervals, sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Hours()/24)
	}
	sort.Float64s(intervals)

	mid := len(intervals) / 2
	if len(intervals)%2 == 1 {
		return intervals[mid]
	}
	return (intervals[mid-1] + intervals[mid]) / 2
}

func centsOf(amt decimal.Decimal) int64 {
	scaled := amt.Round(2).Mul(decimal.NewFromInt(100))
	return scaled.IntPart() % 100
}
