// Package overlay provides an optional CEL-based supplementary rule
// layer over account profiles (SPEC_FULL.md §C.7). Rules are additive
// and only ever attach a `custom:<rule_id>` pattern tag; they never
// touch the suspicion score computed by internal/scoring.
package overlay

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types/ref"
	"github.com/mulewatch/mulewatch/internal/domain"
)

// Rule is one supplementary pattern rule: a named CEL boolean
// expression evaluated against an account profile's fields.
type Rule struct {
	ID         string
	Expression string
}

// Engine compiles and evaluates overlay rules.
//
// Grounded on internal/rules/engine.go's CEL environment/compiled-rule
// cache/worker-pool shape (opensource-finance-osprey), re-scoped from
// transaction fields to account-profile fields.
type Engine struct {
	mu            sync.RWMutex
	env           *cel.Env
	compiledRules map[string]cel.Program
	maxWorkers    int
}

// NewEngine builds an Engine with the profile variable surface bound.
func NewEngine(maxWorkers int) (*Engine, error) {
	if maxWorkers <= 0 {
		maxWorkers = 8
	}

	env, err := cel.NewEnv(
		cel.Variable("account_id", cel.StringType),
		cel.Variable("inflow", cel.DoubleType),
		cel.Variable("outflow", cel.DoubleType),
		cel.Variable("transaction_count", cel.IntType),
		cel.Variable("classification", cel.StringType),
		cel.Variable("is_payroll", cel.BoolType),
		cel.Variable("is_merchant", cel.BoolType),
		cel.Variable("is_salary", cel.BoolType),
		cel.Variable("is_established_business", cel.BoolType),
	)
	if err != nil {
		return nil, fmt.Errorf("overlay: create CEL environment: %w", err)
	}

	return &Engine{env: env, compiledRules: make(map[string]cel.Program), maxWorkers: maxWorkers}, nil
}

// LoadRules compiles and registers rules, replacing any existing set.
func (e *Engine) LoadRules(rules []Rule) error {
	compiled := make(map[string]cel.Program, len(rules))
	for _, r := range rules {
		ast, issues := e.env.Compile(r.Expression)
		if issues != nil && issues.Err() != nil {
			return fmt.Errorf("overlay: compile rule %s: %w", r.ID, issues.Err())
		}
		if ast.OutputType() != cel.BoolType {
			return fmt.Errorf("overlay: rule %s must return bool, got %s", r.ID, ast.OutputType())
		}
		program, err := e.env.Program(ast)
		if err != nil {
			return fmt.Errorf("overlay: build program for rule %s: %w", r.ID, err)
		}
		compiled[r.ID] = program
	}

	e.mu.Lock()
	e.compiledRules = compiled
	e.mu.Unlock()
	return nil
}

// Apply evaluates every loaded rule against every profile, in
// parallel across accounts, and returns the sorted set of
// `custom:<rule_id>` tags each matching account earned. Accounts with
// no matching rule are absent from the result.
func (e *Engine) Apply(ctx context.Context, profiles map[string]*domain.AccountProfile) map[string][]string {
	e.mu.RLock()
	rules := make(map[string]cel.Program, len(e.compiledRules))
	for id, p := range e.compiledRules {
		rules[id] = p
	}
	e.mu.RUnlock()

	if len(rules) == 0 {
		return nil
	}

	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	tags := make([][]string, len(ids))
	var wg sync.WaitGroup
	sem := make(chan struct{}, e.maxWorkers)

	for i, id := range ids {
		wg.Add(1)
		go func(idx int, accountID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			select {
			case <-ctx.Done():
				return
			default:
			}
			tags[idx] = evaluateAccount(rules, profiles[accountID])
		}(i, id)
	}
	wg.Wait()

	out := make(map[string][]string)
	for i, id := range ids {
		if len(tags[i]) > 0 {
			out[id] = tags[i]
		}
	}
	return out
}

func evaluateAccount(rules map[string]cel.Program, p *domain.AccountProfile) []string {
	activation := map[string]any{
		"account_id":              p.AccountID,
		"inflow":                  p.Inflow,
		"outflow":                 p.Outflow,
		"transaction_count":       int64(p.TransactionCount),
		"classification":          string(p.Classification),
		"is_payroll":              p.IsPayroll,
		"is_merchant":             p.IsMerchant,
		"is_salary":               p.IsSalary,
		"is_established_business": p.IsEstablishedBusiness,
	}

	ruleIDs := make([]string, 0, len(rules))
	for id := range rules {
		ruleIDs = append(ruleIDs, id)
	}
	sort.Strings(ruleIDs)

	var matched []string
	for _, id := range ruleIDs {
		out, _, err := rules[id].Eval(activation)
		if err != nil {
			continue
		}
		if isTrue(out) {
			matched = append(matched, "custom:"+id)
		}
	}
	return matched
}

func isTrue(v ref.Val) bool {
	b, ok := v.Value().(bool)
	return ok && b
}
