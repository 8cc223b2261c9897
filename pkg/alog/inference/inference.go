// Package inference derives new facts by naive forward chaining over a kb.Store.
//
// Every pass tries each rule against each entity of the store, binding the rule
// variable to that entity. Conditions are checked in declared order and the first
// failing one stops the rule. A satisfied rule appends its bound conclusion when it
// is new. Passes repeat until one adds nothing. The fact sequence only grows and is
// bounded by the triples constructible from known entities, so Run terminates, and
// running it again at the fixpoint adds nothing.
package inference

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/alog/pkg/alog/kb"
)

// Engine runs inference over one store.
type Engine struct {
	store  *kb.Store
	logger *zap.Logger
	total  Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for per-pass debug output.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine bound to store.
func New(store *kb.Store, opts ...Option) *Engine {
	e := &Engine{store: store, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Result summarizes a Run.
type Result struct {
	Passes int // passes made, including the final one that added nothing
	Added  int // facts derived
}

// Run chains to a fixpoint.
func (e *Engine) Run() Result {
	var res Result
	for {
		added := e.Pass()
		res.Passes++
		res.Added += added
		e.logger.Debug("inference pass",
			zap.Int("pass", res.Passes),
			zap.Int("added", added),
			zap.Int("facts", e.store.Len()))
		if added == 0 {
			e.total.Passes += res.Passes
			e.total.Added += res.Added
			return res
		}
	}
}

// Total sums every Run made so far.
func (e *Engine) Total() Result { return e.total }

// Pass makes one full pass over rules and entities and returns the number of
// facts it added. The entity universe is recomputed for every rule, so facts
// derived earlier in the pass are already visible.
func (e *Engine) Pass() int {
	added := 0
	for i, r := range e.store.Rules() {
		for _, entity := range e.store.Entities() {
			if !Match(e.store, r.Conditions, entity) {
				continue
			}
			f := r.Conclusion.Bind(entity)
			if e.store.AddDerived(f, kb.Derivation{Rule: i, Binding: entity}) {
				added++
			}
		}
	}
	return added
}

// Match reports whether every condition holds with the variable bound to entity.
// A positive condition holds when its triple is present, a negated one when it is
// absent.
func Match(store *kb.Store, conds []kb.Condition, entity string) bool {
	for _, c := range conds {
		if store.Has(c.Bind(entity)) == c.Negated {
			return false
		}
	}
	return true
}

// Step is one derivation in an explanation.
type Step struct {
	Fact    kb.Fact
	Rule    int    // index of the rule that produced Fact
	Binding string // entity bound to the variable
	Depth   int    // how many derivations away from the explained fact
}

// Steps returns the derivations behind f, depth first, starting with f itself.
// It is empty for asserted or unknown facts.
func (e *Engine) Steps(f kb.Fact) []Step {
	return e.trace(f, 0, make(map[kb.Fact]bool))
}

func (e *Engine) trace(f kb.Fact, depth int, visited map[kb.Fact]bool) []Step {
	if visited[f] {
		return nil
	}
	visited[f] = true

	d, ok := e.store.Derivation(f)
	if !ok {
		return nil
	}
	steps := []Step{{Fact: f, Rule: d.Rule, Binding: d.Binding, Depth: depth}}

	r, ok := e.store.Rule(d.Rule)
	if !ok {
		return steps
	}
	for _, c := range r.Conditions {
		if c.Negated {
			continue
		}
		steps = append(steps, e.trace(c.Bind(d.Binding), depth+1, visited)...)
	}
	return steps
}

// Explain generates a human-readable explanation of f.
func (e *Engine) Explain(f kb.Fact) string {
	if !e.store.Has(f) {
		return fmt.Sprintf("cannot prove %s", f)
	}
	steps := e.Steps(f)
	if len(steps) == 0 {
		return fmt.Sprintf("%s is directly known", f)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inference chain for %s:\n", f)
	for i, s := range steps {
		r, _ := e.store.Rule(s.Rule)
		indent := strings.Repeat("  ", s.Depth+1)
		fmt.Fprintf(&b, "%s%d. %s <- rule %d (%s) with %s=%s\n",
			indent, i+1, s.Fact, s.Rule+1, r, kb.VariableName, s.Binding)
		for _, c := range r.Conditions {
			bound := c.Bind(s.Binding)
			switch {
			case c.Negated:
				fmt.Fprintf(&b, "%s   absent: %s\n", indent, bound)
			default:
				if _, derived := e.store.Derivation(bound); !derived {
					fmt.Fprintf(&b, "%s   known: %s\n", indent, bound)
				}
			}
		}
	}
	return b.String()
}
