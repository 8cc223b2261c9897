// Package kb holds the knowledge base data model: facts, rule terms, inference
// rules and suggestion rules, plus the append-only Store that owns them.
package kb

import "strings"

// Relation is a canonical relation token. Unknown surface words pass through the
// canonicalizer unchanged, so a Relation is not restricted to the constants below.
type Relation string

// Canonical relations
const (
	Is       Relation = "is"
	Has      Relation = "has"
	Can      Relation = "can"
	Requires Relation = "requires"
	Causes   Relation = "causes"
	Suggest  Relation = "suggest"
)

// VariableName is how the single rule variable is written in statements.
const VariableName = "?x"

// Fact is a stored (subject, relation, object) triple.
type Fact struct {
	Subject  string
	Relation Relation
	Object   string
}

// String renders the fact as the statement that would assert it.
func (f Fact) String() string {
	return f.Subject + " " + string(f.Relation) + " " + f.Object
}

// Term is one subject or object slot of a rule: either a literal entity or the
// rule variable.
type Term struct {
	value    string
	variable bool
}

// Var is the rule variable.
var Var = Term{variable: true}

// Lit returns a literal term.
func Lit(entity string) Term {
	return Term{value: entity}
}

// ParseTerm turns a slot of a statement into a Term.
func ParseTerm(s string) Term {
	if s == VariableName {
		return Var
	}
	return Lit(s)
}

// IsVariable reports whether t is the rule variable.
func (t Term) IsVariable() bool { return t.variable }

// Value returns the literal entity; empty for the variable.
func (t Term) Value() string { return t.value }

// Bind resolves the term with the variable bound to entity.
func (t Term) Bind(entity string) string {
	if t.variable {
		return entity
	}
	return t.value
}

func (t Term) String() string {
	if t.variable {
		return VariableName
	}
	return t.value
}

// Condition is a triple pattern that must be present (or absent, if Negated).
type Condition struct {
	Subject  Term
	Relation Relation
	Object   Term
	Negated  bool
}

// Bind substitutes entity for the variable in both slots.
func (c Condition) Bind(entity string) Fact {
	return Fact{Subject: c.Subject.Bind(entity), Relation: c.Relation, Object: c.Object.Bind(entity)}
}

func (c Condition) String() string {
	s := c.Subject.String() + " " + string(c.Relation) + " " + c.Object.String()
	if c.Negated {
		return "not " + s
	}
	return s
}

// Template is a rule conclusion.
type Template struct {
	Subject  Term
	Relation Relation
	Object   Term
}

// Bind substitutes entity for the variable in both slots.
func (t Template) Bind(entity string) Fact {
	return Fact{Subject: t.Subject.Bind(entity), Relation: t.Relation, Object: t.Object.Bind(entity)}
}

func (t Template) String() string {
	return t.Subject.String() + " " + string(t.Relation) + " " + t.Object.String()
}

// Rule derives its conclusion for every entity that satisfies all conditions.
type Rule struct {
	Conditions []Condition
	Conclusion Template
}

// Universal expands "all class are property".
func Universal(class, property string) Rule {
	return Rule{
		Conditions: []Condition{{Subject: Var, Relation: Is, Object: Lit(class)}},
		Conclusion: Template{Subject: Var, Relation: Is, Object: Lit(property)},
	}
}

func (r Rule) String() string {
	return "if " + joinConditions(r.Conditions) + " then " + r.Conclusion.String()
}

// Suggestion recommends Text to any entity satisfying its conditions. It is
// evaluated only when asked, never during inference.
type Suggestion struct {
	Conditions []Condition
	Text       string
}

func (s Suggestion) String() string {
	return "if " + joinConditions(s.Conditions) + ` then suggest "` + s.Text + `"`
}

// Derivation records which rule produced a derived fact and the entity the
// variable was bound to.
type Derivation struct {
	Rule    int
	Binding string
}

func joinConditions(conds []Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return strings.Join(parts, " and ")
}
