package query

import (
	"context"
	"regexp"
	"strings"

	"github.com/cognicore/alog/pkg/alog/inference"
	"github.com/cognicore/alog/pkg/alog/kb"
	"github.com/cognicore/alog/pkg/alog/lexicon"
	"github.com/cognicore/alog/pkg/alog/parse"
	"github.com/cognicore/alog/pkg/alog/sink"
)

// Form identifies which query pattern a line matched.
type Form string

const (
	FormNone       Form = ""
	FormBoolean    Form = "boolean"
	FormAttributes Form = "attributes"
	FormSuggestion Form = "suggestion"
	FormWho        Form = "who"
)

// Answers for queries that found nothing.
const (
	Yes          = "yes"
	No           = "no"
	Nothing      = "nothing"
	Nobody       = "nobody"
	NoSuggestion = "no suggestion"
)

var (
	attributesPattern = regexp.MustCompile(`^what does ([\p{L}\p{N}_]+) have`)
	suggestionPattern = regexp.MustCompile(`^what should ([\p{L}\p{N}_]+) do`)
)

// Result describes an evaluated query.
type Result struct {
	Form   Form
	Answer string
	// Found is false when the answer is one of the "not found" forms.
	Found bool
}

// Evaluator answers queries against a store, re-running inference first.
type Evaluator struct {
	store  *kb.Store
	engine *inference.Engine
	lex    *lexicon.Lexicon
	out    sink.Sink
}

// New creates an evaluator. A nil lexicon means the built-in relation table and
// a nil sink discards answers.
func New(store *kb.Store, engine *inference.Engine, lex *lexicon.Lexicon, out sink.Sink) *Evaluator {
	if lex == nil {
		lex = lexicon.New()
	}
	if out == nil {
		out = sink.Discard
	}
	return &Evaluator{store: store, engine: engine, lex: lex, out: out}
}

// Evaluate runs inference, answers line and emits the answer. Lines that match
// no query form emit nothing and return FormNone. The only error is the sink's.
func (ev *Evaluator) Evaluate(ctx context.Context, line string) (Result, error) {
	return ev.EvaluateStatement(ctx, parse.Statement{Kind: parse.KindQuery, Text: parse.Normalize(line)})
}

// EvaluateStatement answers a statement the parser already classified as a
// query. Its text is used as is, so a trailing period is stripped only once.
func (ev *Evaluator) EvaluateStatement(ctx context.Context, st parse.Statement) (Result, error) {
	line := st.Text
	ev.engine.Run()

	res := ev.answer(line)
	if res.Form == FormNone {
		return res, nil
	}
	err := ev.out.Emit(ctx, sink.Answer{Query: line, Form: string(res.Form), Text: res.Answer})
	return res, err
}

func (ev *Evaluator) answer(line string) Result {
	switch {
	case strings.HasPrefix(line, "is"):
		return ev.boolean(line)
	case strings.HasPrefix(line, "what does"):
		if m := attributesPattern.FindStringSubmatch(line); m != nil {
			return ev.attributes(m[1])
		}
	case strings.HasPrefix(line, "what should"):
		if m := suggestionPattern.FindStringSubmatch(line); m != nil {
			return ev.suggestion(m[1])
		}
	case strings.HasPrefix(line, "who"):
		return ev.who(line)
	}
	return Result{}
}

// boolean answers "is <s> <r> <o>", or "is <s> <o>" with relation is.
func (ev *Evaluator) boolean(line string) Result {
	parts := strings.Fields(line)
	var f kb.Fact
	switch len(parts) {
	case 4:
		f = kb.Fact{Subject: parts[1], Relation: ev.lex.Canonicalize(parts[2]), Object: parts[3]}
	case 3:
		f = kb.Fact{Subject: parts[1], Relation: kb.Is, Object: parts[2]}
	default:
		return Result{}
	}
	if ev.store.Has(f) {
		return Result{Form: FormBoolean, Answer: Yes, Found: true}
	}
	return Result{Form: FormBoolean, Answer: No}
}

// attributes lists every o with (subject, has, o), in fact order.
func (ev *Evaluator) attributes(subject string) Result {
	var objs []string
	for _, f := range ev.store.Facts() {
		if f.Subject == subject && f.Relation == kb.Has {
			objs = append(objs, f.Object)
		}
	}
	return joined(FormAttributes, objs, Nothing)
}

// suggestion returns the text of the first suggestion rule that matches subject.
func (ev *Evaluator) suggestion(subject string) Result {
	for _, s := range ev.store.Suggestions() {
		if inference.Match(ev.store, s.Conditions, subject) {
			return Result{Form: FormSuggestion, Answer: s.Text, Found: true}
		}
	}
	return Result{Form: FormSuggestion, Answer: NoSuggestion}
}

// who answers "who has <o>" and "who is <o>". The object is everything after the
// second token, spaces included.
func (ev *Evaluator) who(line string) Result {
	var rel kb.Relation
	switch {
	case strings.Contains(line, "has"):
		rel = kb.Has
	case strings.Contains(line, "is"):
		rel = kb.Is
	default:
		return Result{}
	}
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 3 {
		return Result{}
	}
	object := parts[2]

	var subjects []string
	for _, f := range ev.store.Facts() {
		if f.Relation == rel && f.Object == object {
			subjects = append(subjects, f.Subject)
		}
	}
	return joined(FormWho, subjects, Nobody)
}

func joined(form Form, items []string, empty string) Result {
	if len(items) == 0 {
		return Result{Form: form, Answer: empty}
	}
	return Result{Form: form, Answer: strings.Join(items, ", "), Found: true}
}
