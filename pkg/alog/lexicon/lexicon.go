package lexicon

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/alog/pkg/alog/kb"
)

// Lexicon maps surface relation words to canonical relations:
// - Groups: canonical -> all surface words (including the canonical itself)
// - Reverse index: surface word -> canonical
//
// Words that are not in the lexicon canonicalize to themselves, so a typo
// silently becomes its own relation.
type Lexicon struct {
	groups       map[kb.Relation][]string
	reverseIndex map[string]kb.Relation
}

// builtin is the fixed relation table every lexicon starts with.
var builtin = []struct {
	canonical kb.Relation
	variants  []string
}{
	{kb.Is, []string{"equals", "are", "be"}},
	{kb.Has, []string{"have", "possesses", "owns"}},
	{kb.Can, []string{"able"}},
	{kb.Requires, []string{"needs", "must"}},
	{kb.Causes, []string{"triggers"}},
	{kb.Suggest, []string{"advise", "recommend"}},
}

// New creates a lexicon holding the built-in relation table.
func New() *Lexicon {
	l := &Lexicon{
		groups:       make(map[kb.Relation][]string),
		reverseIndex: make(map[string]kb.Relation),
	}
	for _, g := range builtin {
		l.AddSynonymGroup(g.canonical, g.variants)
	}
	return l
}

// LoadFromYAML returns the built-in lexicon extended with the groups in path.
//
// Expected format:
//
//	synonyms:
//	  - canonical: has
//	    variants: [holds, carries]
//	  - canonical: suggest
//	    variants: [propose]
func LoadFromYAML(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config struct {
		Synonyms []Group `yaml:"synonyms"`
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parse lexicon %s: %w", path, err)
	}

	lex := New()
	for _, g := range config.Synonyms {
		lex.Extend(kb.Relation(g.Canonical), g.Variants)
	}
	return lex, nil
}

// Group is one canonical relation with its extra surface words.
type Group struct {
	Canonical string   `yaml:"canonical" validate:"required"`
	Variants  []string `yaml:"variants" validate:"required,min=1,dive,required"`
}

// AddSynonymGroup replaces the group for canonical. The canonical word is always
// the first entry of the group. A variant that belongs to another group moves to
// this one, except another group's canonical word, which is ignored.
func (l *Lexicon) AddSynonymGroup(canonical kb.Relation, variants []string) {
	canonical = kb.Relation(strings.ToLower(string(canonical)))
	if prev, ok := l.reverseIndex[string(canonical)]; ok && prev != canonical {
		l.removeVariant(prev, string(canonical))
	}

	if old, exists := l.groups[canonical]; exists {
		for _, v := range old {
			if l.reverseIndex[v] == canonical {
				delete(l.reverseIndex, v)
			}
		}
	}

	normalized := []string{string(canonical)}
	seen := map[string]bool{string(canonical): true}
	for _, v := range variants {
		v = strings.ToLower(strings.TrimSpace(v))
		if v == "" || seen[v] {
			continue
		}
		if _, isCanonical := l.groups[kb.Relation(v)]; isCanonical {
			continue
		}
		if prev, ok := l.reverseIndex[v]; ok && prev != canonical {
			l.removeVariant(prev, v)
		}
		normalized = append(normalized, v)
		seen[v] = true
	}

	l.groups[canonical] = normalized
	for _, v := range normalized {
		l.reverseIndex[v] = canonical
	}
}

// Extend adds surface words to the group for canonical, creating it if needed.
// A word already mapped to another relation moves to this one. Canonical words
// of other relations stay where they are.
func (l *Lexicon) Extend(canonical kb.Relation, variants []string) {
	canonical = kb.Relation(strings.ToLower(string(canonical)))
	existing := l.groups[canonical]
	merged := make([]string, 0, len(existing)+len(variants))
	if len(existing) > 1 {
		merged = append(merged, existing[1:]...)
	}
	merged = append(merged, variants...)
	l.AddSynonymGroup(canonical, merged)
}

// removeVariant drops a non-canonical word from its group.
func (l *Lexicon) removeVariant(canonical kb.Relation, v string) {
	group := l.groups[canonical]
	for i, w := range group {
		if w == v && i > 0 {
			l.groups[canonical] = append(group[:i:i], group[i+1:]...)
			break
		}
	}
	delete(l.reverseIndex, v)
}

// Canonicalize returns the canonical relation for word, or word itself if it is
// not in the lexicon.
//
// Examples:
//   - Canonicalize("owns") -> "has"
//   - Canonicalize("likes") -> "likes"
func (l *Lexicon) Canonicalize(word string) kb.Relation {
	word = strings.ToLower(word)
	if canonical, ok := l.reverseIndex[word]; ok {
		return canonical
	}
	return kb.Relation(word)
}

// Variants returns every surface word of the group word belongs to.
func (l *Lexicon) Variants(word string) []string {
	canonical := l.Canonicalize(word)
	if group, ok := l.groups[canonical]; ok {
		out := make([]string, len(group))
		copy(out, group)
		return out
	}
	return []string{strings.ToLower(word)}
}

// Relations returns the canonical relations, sorted.
func (l *Lexicon) Relations() []kb.Relation {
	out := make([]kb.Relation, 0, len(l.groups))
	for r := range l.groups {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Stats returns statistics about the lexicon contents.
func (l *Lexicon) Stats() Stats {
	total := 0
	for _, g := range l.groups {
		total += len(g)
	}
	return Stats{Relations: len(l.groups), SurfaceWords: total}
}

// Stats holds statistics about lexicon contents.
type Stats struct {
	Relations    int // Number of canonical relations
	SurfaceWords int // Surface words across all relations, canonicals included
}
