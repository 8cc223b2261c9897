package kb

import "strings"

// Store is the in-memory knowledge base: an ordered, duplicate-free fact
// sequence plus the rules and suggestions in the order they were added.
// Nothing is ever removed. Store is not safe for concurrent use; the alog
// facade serializes access.
type Store struct {
	facts       []Fact
	index       map[Fact]struct{}
	rules       []Rule
	suggestions []Suggestion
	derivations map[Fact]Derivation
}

// New creates an empty store.
func New() *Store {
	return &Store{
		index:       make(map[Fact]struct{}),
		derivations: make(map[Fact]Derivation),
	}
}

// AddFact appends f unless it is already present. It reports whether f was new.
func (s *Store) AddFact(f Fact) bool {
	if _, ok := s.index[f]; ok {
		return false
	}
	s.index[f] = struct{}{}
	s.facts = append(s.facts, f)
	return true
}

// AddDerived appends a fact produced by inference and remembers how it was
// derived.
func (s *Store) AddDerived(f Fact, d Derivation) bool {
	if !s.AddFact(f) {
		return false
	}
	s.derivations[f] = d
	return true
}

// AddRule appends an inference rule and returns its index.
func (s *Store) AddRule(r Rule) int {
	s.rules = append(s.rules, r)
	return len(s.rules) - 1
}

// AddSuggestion appends a suggestion rule.
func (s *Store) AddSuggestion(sg Suggestion) {
	s.suggestions = append(s.suggestions, sg)
}

// Has reports whether f is in the fact sequence.
func (s *Store) Has(f Fact) bool {
	_, ok := s.index[f]
	return ok
}

// Len returns the number of facts.
func (s *Store) Len() int { return len(s.facts) }

// Facts returns a copy of the fact sequence in insertion order.
func (s *Store) Facts() []Fact {
	out := make([]Fact, len(s.facts))
	copy(out, s.facts)
	return out
}

// FactAt returns the i-th fact.
func (s *Store) FactAt(i int) Fact { return s.facts[i] }

// Rules returns the inference rules in insertion order.
func (s *Store) Rules() []Rule {
	out := make([]Rule, len(s.rules))
	copy(out, s.rules)
	return out
}

// Rule returns the rule with the given index.
func (s *Store) Rule(i int) (Rule, bool) {
	if i < 0 || i >= len(s.rules) {
		return Rule{}, false
	}
	return s.rules[i], true
}

// Suggestions returns the suggestion rules in insertion order.
func (s *Store) Suggestions() []Suggestion {
	out := make([]Suggestion, len(s.suggestions))
	copy(out, s.suggestions)
	return out
}

// Derivation returns how f was derived. ok is false for asserted facts.
func (s *Store) Derivation(f Fact) (Derivation, bool) {
	d, ok := s.derivations[f]
	return d, ok
}

// DerivedCount returns the number of facts produced by inference.
func (s *Store) DerivedCount() int { return len(s.derivations) }

// Entities returns every entity mentioned by a fact, plus every literal slot of
// an inference rule, in order of first appearance. It is recomputed on each call.
func (s *Store) Entities() []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(e string) {
		if _, ok := seen[e]; ok {
			return
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}
	addTerm := func(t Term) {
		if t.IsVariable() || strings.HasPrefix(t.Value(), "?") {
			return
		}
		add(t.Value())
	}

	for _, f := range s.facts {
		add(f.Subject)
		add(f.Object)
	}
	for _, r := range s.rules {
		for _, c := range r.Conditions {
			addTerm(c.Subject)
			addTerm(c.Object)
		}
		addTerm(r.Conclusion.Subject)
		addTerm(r.Conclusion.Object)
	}
	return out
}
