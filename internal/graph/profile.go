package graph

import (
	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/numeric"
)

// BuildProfiles derives one AccountProfile per graph node (spec.md §2
// step 3, Profile Builder). Legitimacy booleans are left false; the
// legitimacy filter fills them in as a separate pass.
func BuildProfiles(g *Graph) map[string]*domain.AccountProfile {
	profiles := make(map[string]*domain.AccountProfile, g.NodeCount())
	for _, id := range g.Nodes() {
		agg, _ := g.NodeAggregate(id)
		profiles[id] = &domain.AccountProfile{
			AccountID:        id,
			Inflow:           numeric.Round2(agg.Inflow.InexactFloat64()),
			Outflow:          numeric.Round2(agg.Outflow.InexactFloat64()),
			TransactionCount: agg.TransactionCount,
			FirstSeen:        agg.FirstSeen,
			LastSeen:         agg.LastSeen,
			Classification:   agg.Classification,
		}
	}
	return profiles
}
