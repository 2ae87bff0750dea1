package graph

import (
	"sort"

	"github.com/mulewatch/mulewatch/internal/domain"
)

// Projection builds the visualization surface (spec.md §6): every node
// carries its suspicion score and ring memberships when the account
// scored, every edge carries whether either endpoint is suspicious.
func Projection(g *Graph, profiles map[string]*domain.AccountProfile, accounts []domain.SuspiciousAccount) domain.GraphProjection {
	byAccount := make(map[string]domain.SuspiciousAccount, len(accounts))
	for _, a := range accounts {
		byAccount[a.AccountID] = a
	}

	nodes := make([]domain.GraphNode, 0, g.NodeCount())
	for _, id := range g.Nodes() {
		p := profiles[id]
		a, suspicious := byAccount[id]

		node := domain.GraphNode{
			ID:               id,
			Label:            id,
			AccountType:      string(p.Classification),
			Inflow:           p.Inflow,
			Outflow:          p.Outflow,
			TransactionCount: p.TransactionCount,
		}
		if suspicious {
			node.SuspicionScore = a.SuspicionScore
			node.IsSuspicious = a.SuspicionScore >= domain.SuspiciousThreshold
			node.RingIDs = a.RingIDs
			node.Patterns = a.DetectedPatterns
			node.DetectedPatterns = a.DetectedPatterns
		}
		nodes = append(nodes, node)
	}

	edges := make([]domain.GraphEdge, 0)
	for _, from := range g.Nodes() {
		for _, to := range g.Successors(from) {
			edge, ok := g.Edge(from, to)
			if !ok {
				continue
			}
			fromSuspicious := byAccount[from].SuspicionScore >= domain.SuspiciousThreshold
			toSuspicious := byAccount[to].SuspicionScore >= domain.SuspiciousThreshold
			patternType := ""
			if a, ok := byAccount[from]; ok && len(a.DetectedPatterns) > 0 {
				patternType = a.DetectedPatterns[0]
			}
			edges = append(edges, domain.GraphEdge{
				Source:           from,
				Target:           to,
				Amount:           edge.TotalAmount.InexactFloat64(),
				TransactionCount: edge.Count,
				IsSuspicious:     fromSuspicious || toSuspicious,
				PatternType:      patternType,
			})
		}
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].Source != edges[j].Source {
			return edges[i].Source < edges[j].Source
		}
		return edges[i].Target < edges[j].Target
	})

	return domain.GraphProjection{Nodes: nodes, Edges: edges}
}
