// Package parse classifies statement lines and builds the facts, rules and
// suggestions they describe.
//
// The grammar is keyword driven. A line is trimmed, lowercased and stripped of
// one trailing period, then classified (first match wins):
//
//	if ... then suggest "..."    suggestion rule
//	if ... then ...              inference rule
//	all C are P                  universal rule
//	suggest ...                  suggestion rule (needs " then " and a quote)
//	what ... / is ... / who ...  query
//	S is O / S has O             fact
//
// Malformed lines are never errors. They come back as KindUnrecognized or
// KindDropped with a Reason so callers can log them.
package parse

import (
	"strings"

	"github.com/cognicore/alog/pkg/alog/kb"
	"github.com/cognicore/alog/pkg/alog/lexicon"
)

// Kind is the class a line was sorted into.
type Kind int

const (
	KindEmpty Kind = iota
	KindFact
	KindRule
	KindUniversal
	KindSuggestion
	KindQuery
	// KindUnrecognized is a line that matched no statement class.
	KindUnrecognized
	// KindDropped is a line that matched a class but lacked a required part.
	KindDropped
)

var kindNames = [...]string{"empty", "fact", "rule", "universal", "suggestion", "query", "unrecognized", "dropped"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Statement is the result of parsing one line. Which payload field is set
// depends on Kind: Fact for KindFact, Rule for KindRule and KindUniversal,
// Suggestion for KindSuggestion. Text is the normalized line.
type Statement struct {
	Kind       Kind
	Text       string
	Fact       kb.Fact
	Rule       kb.Rule
	Suggestion kb.Suggestion
	Reason     string
}

// Keywords that split a clause into subject and object, in priority order.
var keywords = []string{" is ", " has "}

// Parser turns lines into statements.
type Parser struct {
	lex *lexicon.Lexicon
}

// New creates a parser. A nil lexicon means the built-in relation table.
func New(lex *lexicon.Lexicon) *Parser {
	if lex == nil {
		lex = lexicon.New()
	}
	return &Parser{lex: lex}
}

// Lexicon returns the canonicalizer the parser uses.
func (p *Parser) Lexicon() *lexicon.Lexicon { return p.lex }

// Normalize trims, lowercases and strips one trailing period.
func Normalize(line string) string {
	line = strings.ToLower(strings.TrimSpace(line))
	return strings.TrimSuffix(line, ".")
}

// Parse classifies a raw line and builds its payload.
func (p *Parser) Parse(line string) Statement {
	line = Normalize(line)
	if line == "" {
		return Statement{Kind: KindEmpty}
	}

	switch {
	case strings.HasPrefix(line, "if") && strings.Contains(line, " then "):
		_, consequence, _ := strings.Cut(line, " then ")
		first, _, _ := strings.Cut(strings.TrimSpace(consequence), " ")
		if p.lex.Canonicalize(first) == kb.Suggest {
			return p.parseSuggestion(line)
		}
		return p.parseRule(line)
	case strings.HasPrefix(line, "all"):
		return p.parseUniversal(line)
	case strings.HasPrefix(line, "suggest"):
		return p.parseSuggestion(line)
	case strings.HasPrefix(line, "what"), strings.HasPrefix(line, "is"), strings.HasPrefix(line, "who"):
		return Statement{Kind: KindQuery, Text: line}
	default:
		return p.parseFact(line)
	}
}

func (p *Parser) parseFact(line string) Statement {
	f, ok := p.splitClause(line)
	if !ok {
		return Statement{Kind: KindUnrecognized, Text: line, Reason: "no relation keyword"}
	}
	return Statement{Kind: KindFact, Text: line, Fact: f}
}

func (p *Parser) parseUniversal(line string) Statement {
	if !strings.Contains(line, " are ") {
		return dropped(line, `universal rule without " are "`)
	}
	_, rest, ok := strings.Cut(line, "all ")
	if !ok {
		return dropped(line, `universal rule without "all "`)
	}
	class, property, ok := strings.Cut(rest, " are ")
	if !ok {
		return dropped(line, `universal rule without " are " after "all "`)
	}
	return Statement{
		Kind: KindUniversal,
		Text: line,
		Rule: kb.Universal(strings.TrimSpace(class), strings.TrimSpace(property)),
	}
}

func (p *Parser) parseRule(line string) Statement {
	conds, consequence, ok := strings.Cut(line[3:], " then ")
	if !ok {
		return dropped(line, `rule body without " then "`)
	}
	conclusion, ok := p.splitClause(strings.TrimSpace(consequence))
	if !ok {
		return dropped(line, "rule conclusion has no relation keyword")
	}
	return Statement{
		Kind: KindRule,
		Text: line,
		Rule: kb.Rule{
			Conditions: p.parseConditions(conds),
			Conclusion: kb.Template{
				Subject:  kb.ParseTerm(conclusion.Subject),
				Relation: conclusion.Relation,
				Object:   kb.ParseTerm(conclusion.Object),
			},
		},
	}
}

func (p *Parser) parseSuggestion(line string) Statement {
	if !strings.Contains(line, " then ") || !strings.Contains(line, `"`) {
		return dropped(line, `suggestion without " then " and a quoted text`)
	}
	rulePart, suggestion, _ := strings.Cut(line, " then ")
	_, rest, ok := strings.Cut(strings.TrimSpace(suggestion), " ")
	if !ok {
		return dropped(line, "suggestion without text")
	}
	return Statement{
		Kind: KindSuggestion,
		Text: line,
		Suggestion: kb.Suggestion{
			Conditions: p.parseConditions(strings.TrimPrefix(rulePart, "if ")),
			Text:       strings.Trim(rest, `"`),
		},
	}
}

// parseConditions splits on " and ". A part without a relation keyword is
// skipped, which leaves the rule with fewer conditions than written.
func (p *Parser) parseConditions(text string) []kb.Condition {
	var out []kb.Condition
	for _, part := range strings.Split(text, " and ") {
		part = strings.TrimSpace(part)
		negated := false
		if rest, ok := strings.CutPrefix(part, "not "); ok {
			part = rest
			negated = true
		}
		f, ok := p.splitClause(part)
		if !ok {
			continue
		}
		out = append(out, kb.Condition{
			Subject:  kb.ParseTerm(f.Subject),
			Relation: f.Relation,
			Object:   kb.ParseTerm(f.Object),
			Negated:  negated,
		})
	}
	return out
}

// splitClause splits text at the first " is ", or failing that the first
// " has ".
func (p *Parser) splitClause(text string) (kb.Fact, bool) {
	for _, kw := range keywords {
		subj, obj, ok := strings.Cut(text, kw)
		if !ok {
			continue
		}
		return kb.Fact{
			Subject:  strings.TrimSpace(subj),
			Relation: p.lex.Canonicalize(strings.TrimSpace(kw)),
			Object:   strings.TrimSpace(obj),
		}, true
	}
	return kb.Fact{}, false
}

func dropped(line, reason string) Statement {
	return Statement{Kind: KindDropped, Text: line, Reason: reason}
}
