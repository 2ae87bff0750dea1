package detect

import (
	"strings"

	"github.com/mulewatch/mulewatch/internal/domain"
	"github.com/mulewatch/mulewatch/internal/graph"
	"github.com/mulewatch/mulewatch/internal/numeric"
	"github.com/shopspring/decimal"
)

type shellFrame struct {
	path       []string
	pathSet    map[string]struct{}
	successors []string
	succIdx    int
}

// Shells finds simple paths whose intermediate nodes exhibit
// pass-through behavior (spec.md §4.4).
//
// Grounded on
// original_source/backend/app/detectors/detectors/shell_detector.py
// for candidate/source/sink derivation and chain validation,
// re-expressed with an explicit stack in place of NetworkX's
// all_simple_paths.
func Shells(g *graph.Graph, cfg domain.DetectionConfig) []domain.ShellResult {
	sources := sourceCandidates(g)
	seen := make(map[string]struct{})

	var out []domain.ShellResult
	totalPaths := 0

	for _, source := range sources {
		if totalPaths >= cfg.ShellMaxPaths {
			break
		}
		perSource := 0

		stack := []*shellFrame{{
			path:       []string{source},
			pathSet:    map[string]struct{}{source: {}},
			successors: g.Successors(source),
		}}

		for len(stack) > 0 {
			if totalPaths >= cfg.ShellMaxPaths || perSource >= cfg.ShellPerSourceCap {
				break
			}

			top := stack[len(stack)-1]
			if top.succIdx >= len(top.successors) {
				stack = stack[:len(stack)-1]
				continue
			}

			s := top.successors[top.succIdx]
			top.succIdx++
			if _, inPath := top.pathSet[s]; inPath {
				continue
			}

			newPath := append(append([]string{}, top.path...), s)
			totalPaths++
			perSource++

			edges := len(newPath) - 1
			if edges >= cfg.ShellMinEdges && isSink(g, s) {
				if result, ok := validateChain(g, cfg, newPath, seen); ok {
					out = append(out, result)
				}
			}

			if edges < cfg.ShellMaxEdges {
				newSet := make(map[string]struct{}, len(top.pathSet)+1)
				for k := range top.pathSet {
					newSet[k] = struct{}{}
				}
				newSet[s] = struct{}{}
				stack = append(stack, &shellFrame{
					path:       newPath,
					pathSet:    newSet,
					successors: g.Successors(s),
				})
			}
		}
	}

	return out
}

func sourceCandidates(g *graph.Graph) []string {
	nodes := g.Nodes()
	var sources []string
	for _, n := range nodes {
		if g.InDegree(n) == 0 || g.OutDegree(n) > g.InDegree(n) {
			sources = append(sources, n)
		}
	}
	if len(sources) == 0 {
		return nodes
	}
	return sources
}

func isSink(g *graph.Graph, n string) bool {
	return g.OutDegree(n) == 0 || g.InDegree(n) > g.OutDegree(n)
}

func isShellCandidate(g *graph.Graph, cfg domain.DetectionConfig, id string) bool {
	agg, ok := g.NodeAggregate(id)
	if !ok {
		return false
	}
	return agg.TransactionCount > 0 && agg.TransactionCount <= cfg.ShellMaxIntermediate
}

func validateChain(g *graph.Graph, cfg domain.DetectionConfig, path []string, seen map[string]struct{}) (domain.ShellResult, bool) {
	intermediates := path[1 : len(path)-1]

	for _, m := range intermediates {
		if !isShellCandidate(g, cfg, m) {
			return domain.ShellResult{}, false
		}
		agg, _ := g.NodeAggregate(m)
		inflow, _ := agg.Inflow.Float64()
		outflow, _ := agg.Outflow.Float64()
		if inflow <= 0 || outflow <= 0 {
			return domain.ShellResult{}, false
		}
		ratio := min(inflow, outflow) / max(inflow, outflow)
		if ratio < 0.5 {
			return domain.ShellResult{}, false
		}
	}

	key := strings.Join(path, "\x00")
	if _, ok := seen[key]; ok {
		return domain.ShellResult{}, false
	}

	total := decimal.Zero
	for i := 0; i < len(path)-1; i++ {
		edge, ok := g.Edge(path[i], path[i+1])
		if !ok {
			return domain.ShellResult{}, false
		}
		total = total.Add(edge.TotalAmount)
	}

	seen[key] = struct{}{}

	return domain.ShellResult{
		PatternTag:    "shell",
		Chain:         append([]string{}, path...),
		Intermediates: append([]string{}, intermediates...),
		TotalAmount:   numeric.Round2(total.InexactFloat64()),
		ShellDepth:    len(intermediates),
	}, true
}
