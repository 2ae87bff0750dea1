// Package detect implements the three independent pattern detectors
// (cycle, smurfing, shell) of spec.md §4.2-§4.4. Each is a pure
// function over a frozen graph; the orchestrator parallelizes the
// three, not the detectors themselves (spec.md §5).
package detect

import (
	"sort"
	"strings"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/mulewatch/mulewatch/internal/numeric"
	"github.com/shopspring/decimal"
)

type cycleFrame struct {
	path       []string
	pathSet    map[string]struct{}
	successors []string
	succIdx    int
	visited    bool
}

// Cycles returns every simple directed cycle of length 3..MaxCycleLength
// whose transactions fall within CycleWindow, deduplicated under
// rotational equivalence and capped at MaxCycles (spec.md §4.2).
//
// Grounded on original_source/backend/app/detectors/cycle_detector.py
// for the enumeration/temporal-coherence shape, re-expressed with an
// explicit frame stack per spec.md §9 instead of NetworkX's recursive
// simple_cycles.
func Cycles(g *graph.Graph, cfg domain.DetectionConfig) []domain.CycleResult {
	roots := candidateRoots(g)
	seen := make(map[string]struct{})
	var results []domain.CycleResult

	for _, root := range roots {
		if len(results) >= cfg.MaxCycles {
			break
		}
		found := exploreRoot(g, cfg, root, seen)
		for _, c := range found {
			if len(results) >= cfg.MaxCycles {
				break
			}
			results = append(results, c)
		}
	}

	return results
}

// candidateRoots returns nodes with out-degree > 0, sorted by
// descending out-degree then ascending id for determinism.
func candidateRoots(g *graph.Graph) []string {
	nodes := g.Nodes()
	roots := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if g.OutDegree(n) > 0 {
			roots = append(roots, n)
		}
	}
	sort.Slice(roots, func(i, j int) bool {
		di, dj := g.OutDegree(roots[i]), g.OutDegree(roots[j])
		if di != dj {
			return di > dj
		}
		return roots[i] < roots[j]
	})
	return roots
}

func exploreRoot(g *graph.Graph, cfg domain.DetectionConfig, root string, seen map[string]struct{}) []domain.CycleResult {
	var out []domain.CycleResult

	rootFrame := &cycleFrame{
		path:       []string{root},
		pathSet:    map[string]struct{}{root: {}},
		successors: g.Successors(root),
	}
	stack := []*cycleFrame{rootFrame}
	framesUsed := 0

	for len(stack) > 0 {
		top := stack[len(stack)-1]

		if !top.visited {
			top.visited = true
			framesUsed++
			if framesUsed > cfg.FrameBudget {
				break
			}
			depth := len(top.path)
			if depth >= 3 {
				tail := top.path[depth-1]
				if _, ok := g.Edge(tail, root); ok {
					if c, ok := buildCycle(g, cfg, top.path, seen); ok {
						out = append(out, c)
						if len(out) >= cfg.MaxCycles {
							return out
						}
					}
				}
			}
		}

		if top.succIdx >= len(top.successors) {
			stack = stack[:len(stack)-1]
			continue
		}

		s := top.successors[top.succIdx]
		top.succIdx++

		if _, inPath := top.pathSet[s]; inPath {
			continue
		}
		if len(top.path) >= cfg.MaxCycleLength {
			continue
		}

		newPath := append(append([]string{}, top.path...), s)
		newSet := make(map[string]struct{}, len(top.pathSet)+1)
		for k := range top.pathSet {
			newSet[k] = struct{}{}
		}
		newSet[s] = struct{}{}

		stack = append(stack, &cycleFrame{
			path:       newPath,
			pathSet:    newSet,
			successors: g.Successors(s),
		})
	}

	return out
}

func buildCycle(g *graph.Graph, cfg domain.DetectionConfig, path []string, seen map[string]struct{}) (domain.CycleResult, bool) {
	key := canonicalCycleKey(path)
	if _, ok := seen[key]; ok {
		return domain.CycleResult{}, false
	}

	var allPairs []graph.AmountTime
	n := len(path)
	for i := 0; i < n; i++ {
		from := path[i]
		to := path[(i+1)%n]
		edge, ok := g.Edge(from, to)
		if !ok || len(edge.Pairs) == 0 {
			return domain.CycleResult{}, false
		}
		allPairs = append(allPairs, edge.Pairs...)
	}

	minTs, maxTs := allPairs[0].Timestamp, allPairs[0].Timestamp
	total := decimal.Zero
	for _, p := range allPairs {
		if p.Timestamp.Before(minTs) {
			minTs = p.Timestamp
		}
		if p.Timestamp.After(maxTs) {
			maxTs = p.Timestamp
		}
		total = total.Add(p.Amount)
	}

	span := maxTs.Sub(minTs)
	if span > cfg.CycleWindow {
		return domain.CycleResult{}, false
	}

	seen[key] = struct{}{}

	return domain.CycleResult{
		Nodes:       append([]string{}, path...),
		Length:      n,
		TotalAmount: numeric.Round2(total.InexactFloat64()),
		TimeSpanHrs: numeric.Round2(span.Hours()),
		EdgeCount:   n,
		PatternTag:  "cycle",
	}, true
}

// canonicalCycleKey keys a cycle by the lexicographically smallest
// rotation of its node sequence, so cycles found from different roots
// collapse into one.
func canonicalCycleKey(path []string) string {
	best := strings.Join(path, "\x00")
	for i := 1; i < len(path); i++ {
		rotated := append(append([]string{}, path[i:]...), path[:i]...)
		candidate := strings.Join(rotated, "\x00")
		if candidate < best {
			best = candidate
		}
	}
	return best
}
