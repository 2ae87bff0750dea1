// Package graph builds the directed multi-graph of accounts and
// transactions that every detector and the profile builder read from.
package graph

import (
	"sort"
	"time"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/shopspring/decimal"
)

// AmountTime is one (amount, timestamp) pair recorded against an
// aggregated edge, preserved so the cycle detector's temporal
// coherence check can walk the underlying transactions of each edge
// without re-scanning the full sequence.
type AmountTime struct {
	Amount    decimal.Decimal
	Timestamp time.Time
}

// AggregatedEdge is the per (sender, receiver) aggregate of spec.md §3.
type AggregatedEdge struct {
	From, To    string
	TotalAmount decimal.Decimal
	Count       int
	FirstSeen   time.Time
	LastSeen    time.Time
	Pairs       []AmountTime
}

// NodeAggregate is the per-account derived aggregate of spec.md §3,
// accumulated in exact decimal arithmetic to avoid float drift across
// a large batch.
type NodeAggregate struct {
	AccountID        string
	Inflow           decimal.Decimal
	Outflow          decimal.Decimal
	TransactionCount int
	FirstSeen        time.Time
	LastSeen         time.Time
	Classification   domain.AccountType
}

// edgeKey identifies one directed (sender, receiver) pair.
type edgeKey struct {
	From, To string
}

// Graph is the frozen, read-only directed multi-graph over accounts
// and transactions (spec.md §3, §4.1). Once Build returns, a Graph has
// no exported mutator and is safe for concurrent reads by the three
// detectors (spec.md §5).
type Graph struct {
	nodes      map[string]struct{}
	txns       []domain.Transaction
	aggEdges   map[edgeKey]*AggregatedEdge
	forward    map[string]map[string]struct{}
	reverse    map[string]map[string]struct{}
	nodeAgg    map[string]*NodeAggregate
	sortedTxns []domain.Transaction
}

// Build consumes a transaction sequence and materializes the node set,
// aggregated edges, adjacency indices, and per-node aggregates in a
// single linear pass (spec.md §4.1). Duplicates are additive: every
// transaction contributes to its edge and both endpoints' aggregates.
// Business classification is computed once per node and cached.
//
// Grounded on original_source/backend/app/graph_builder.py's
// groupby-based aggregation, re-expressed as one pass instead of a
// pandas groupby, since Go has no vectorized groupby to lean on.
func Build(transactions []domain.Transaction) (*Graph, error) {
	if len(transactions) == 0 {
		return nil, domain.ErrEmptyInput
	}

	g := &Graph{
		nodes:    make(map[string]struct{}),
		txns:     transactions,
		aggEdges: make(map[edgeKey]*AggregatedEdge),
		forward:  make(map[string]map[string]struct{}),
		reverse:  make(map[string]map[string]struct{}),
		nodeAgg:  make(map[string]*NodeAggregate),
	}

	for _, t := range transactions {
		if err := t.Validate(); err != nil {
			return nil, err
		}

		g.nodes[t.Sender] = struct{}{}
		g.nodes[t.Receiver] = struct{}{}

		key := edgeKey{From: t.Sender, To: t.Receiver}
		edge, ok := g.aggEdges[key]
		if !ok {
			edge = &AggregatedEdge{
				From:      t.Sender,
				To:        t.Receiver,
				FirstSeen: t.Timestamp,
				LastSeen:  t.Timestamp,
			}
			g.aggEdges[key] = edge
		}
		edge.TotalAmount = edge.TotalAmount.Add(t.Amount)
		edge.Count++
		if t.Timestamp.Before(edge.FirstSeen) {
			edge.FirstSeen = t.Timestamp
		}
		if t.Timestamp.After(edge.LastSeen) {
			edge.LastSeen = t.Timestamp
		}
		edge.Pairs = append(edge.Pairs, AmountTime{Amount: t.Amount, Timestamp: t.Timestamp})

		if g.forward[t.Sender] == nil {
			g.forward[t.Sender] = make(map[string]struct{})
		}
		g.forward[t.Sender][t.Receiver] = struct{}{}

		if g.reverse[t.Receiver] == nil {
			g.reverse[t.Receiver] = make(map[string]struct{})
		}
		g.reverse[t.Receiver][t.Sender] = struct{}{}

		sender := g.ensureNodeAgg(t.Sender)
		sender.Outflow = sender.Outflow.Add(t.Amount)
		sender.TransactionCount++
		sender.bumpSeen(t.Timestamp)

		receiver := g.ensureNodeAgg(t.Receiver)
		receiver.Inflow = receiver.Inflow.Add(t.Amount)
		receiver.TransactionCount++
		receiver.bumpSeen(t.Timestamp)
	}

	g.sortedTxns = make([]domain.Transaction, len(transactions))
	copy(g.sortedTxns, transactions)
	sort.SliceStable(g.sortedTxns, func(i, j int) bool {
		return g.sortedTxns[i].Timestamp.Before(g.sortedTxns[j].Timestamp)
	})

	return g, nil
}

func (g *Graph) ensureNodeAgg(id string) *NodeAggregate {
	agg, ok := g.nodeAgg[id]
	if !ok {
		agg = &NodeAggregate{
			AccountID:      id,
			Classification: domain.ClassifyAccount(id),
		}
		g.nodeAgg[id] = agg
	}
	return agg
}

func (a *NodeAggregate) bumpSeen(ts time.Time) {
	if a.FirstSeen.IsZero() || ts.Before(a.FirstSeen) {
		a.FirstSeen = ts
	}
	if ts.After(a.LastSeen) {
		a.LastSeen = ts
	}
}

// Nodes returns the node set in sorted order.
func (g *Graph) Nodes() []string {
	out := make([]string, 0, len(g.nodes))
	for n := range g.nodes {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// NodeCount returns the number of distinct accounts.
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// HasNode reports whether id was materialized as a node.
func (g *Graph) HasNode(id string) bool {
	_, ok := g.nodes[id]
	return ok
}

// Successors returns node's out-neighbors, sorted, unique.
func (g *Graph) Successors(node string) []string {
	return sortedKeys(g.forward[node])
}

// Predecessors returns node's in-neighbors, sorted, unique.
func (g *Graph) Predecessors(node string) []string {
	return sortedKeys(g.reverse[node])
}

// OutDegree returns the number of unique successors.
func (g *Graph) OutDegree(node string) int {
	return len(g.forward[node])
}

// InDegree returns the number of unique predecessors.
func (g *Graph) InDegree(node string) int {
	return len(g.reverse[node])
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Edge returns the aggregated edge for (from, to), if any transaction
// has sender=from, receiver=to.
func (g *Graph) Edge(from, to string) (*AggregatedEdge, bool) {
	e, ok := g.aggEdges[edgeKey{From: from, To: to}]
	return e, ok
}

// NodeAggregate returns the per-account aggregate for id.
func (g *Graph) NodeAggregate(id string) (*NodeAggregate, bool) {
	a, ok := g.nodeAgg[id]
	return a, ok
}

// SortedTransactions returns the full transaction sequence stably
// sorted by timestamp ascending — the time-ordered index behind the
// smurfing detector's sliding windows. The cycle detector's
// temporal-coherence check reads AggregatedEdge.Pairs instead.
// The slice is a private copy; callers must not mutate it.
func (g *Graph) SortedTransactions() []domain.Transaction {
	return g.sortedTxns
}

// Transactions returns the original input-order transaction sequence.
func (g *Graph) Transactions() []domain.Transaction {
	return g.txns
}
