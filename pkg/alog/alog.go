package alog

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"

	"github.com/cognicore/alog/pkg/alog/compliance"
	"github.com/cognicore/alog/pkg/alog/inference"
	"github.com/cognicore/alog/pkg/alog/internalerr"
	"github.com/cognicore/alog/pkg/alog/kb"
	"github.com/cognicore/alog/pkg/alog/lexicon"
	"github.com/cognicore/alog/pkg/alog/parse"
	"github.com/cognicore/alog/pkg/alog/query"
	"github.com/cognicore/alog/pkg/alog/sink"
	"github.com/cognicore/alog/pkg/alog/source"
)

// Engine is the main knowledge base facade. Every method takes one lock, so an
// Engine may be shared between goroutines; the parts underneath are not.
type Engine struct {
	mu     sync.Mutex
	store  *kb.Store
	parser *parse.Parser
	inf    *inference.Engine
	eval   *query.Evaluator
	logger *zap.Logger

	lines   int
	dropped int
}

// Options configures an Engine
type Options struct {
	// Lexicon canonicalizes relation words. Nil means the built-in table.
	Lexicon *lexicon.Lexicon
	// Sink receives query answers. Nil discards them.
	Sink   sink.Sink
	Logger *zap.Logger
}

// New creates an Engine with an empty knowledge base
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	lex := opts.Lexicon
	if lex == nil {
		lex = lexicon.New()
	}

	store := kb.New()
	inf := inference.New(store, inference.WithLogger(logger.Named("inference")))
	return &Engine{
		store:  store,
		parser: parse.New(lex),
		inf:    inf,
		eval:   query.New(store, inf, lex, opts.Sink),
		logger: logger,
	}
}

// IngestLine parses one statement and applies it: facts, rules and suggestions
// are stored, queries are answered. Lines that cannot be parsed are skipped and
// reported through the returned statement's Kind. The only error is the sink's.
func (e *Engine) IngestLine(ctx context.Context, line string) (parse.Statement, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ingest(ctx, line)
}

func (e *Engine) ingest(ctx context.Context, line string) (parse.Statement, error) {
	st := e.parser.Parse(line)
	e.lines++

	switch st.Kind {
	case parse.KindFact:
		if !e.store.AddFact(st.Fact) {
			e.logger.Debug("duplicate fact", zap.Stringer("fact", st.Fact))
		}
	case parse.KindRule, parse.KindUniversal:
		e.store.AddRule(st.Rule)
	case parse.KindSuggestion:
		e.store.AddSuggestion(st.Suggestion)
	case parse.KindQuery:
		if _, err := e.eval.EvaluateStatement(ctx, st); err != nil {
			return st, fmt.Errorf("answer %q: %w", st.Text, err)
		}
	case parse.KindUnrecognized, parse.KindDropped:
		e.dropped++
		e.logger.Debug("statement skipped",
			zap.String("line", st.Text),
			zap.Stringer("kind", st.Kind),
			zap.String("reason", st.Reason))
	}
	return st, nil
}

// IngestReader ingests every line of r. Blank lines and lines starting with '#'
// are skipped before parsing, unlike IngestLine, which counts "# note" as an
// unrecognized statement.
func (e *Engine) IngestReader(ctx context.Context, r io.Reader) error {
	return source.ReadLines(ctx, r, func(line string) error {
		_, err := e.IngestLine(ctx, line)
		return err
	})
}

// IngestFile ingests a statement file. HTML files contribute the text of their
// block elements. Comment lines are skipped as in IngestReader.
func (e *Engine) IngestFile(ctx context.Context, path string) error {
	before := e.Stats()
	err := source.File(ctx, path, func(line string) error {
		_, err := e.IngestLine(ctx, line)
		return err
	})
	if err != nil {
		return fmt.Errorf("ingest %s: %w", path, err)
	}

	after := e.Stats()
	e.logger.Info("ingested file",
		zap.String("path", path),
		zap.Int("facts", after.Facts-before.Facts),
		zap.Int("rules", after.Rules-before.Rules),
		zap.Int("suggestions", after.Suggestions-before.Suggestions),
		zap.Int("skipped", after.Skipped-before.Skipped))
	return nil
}

// Query answers one query line and emits the answer to the sink.
func (e *Engine) Query(ctx context.Context, line string) (query.Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.eval.Evaluate(ctx, line)
}

// Advise answers "what should <entity> do".
func (e *Engine) Advise(ctx context.Context, entity string) (query.Result, error) {
	return e.Query(ctx, "what should "+entity+" do")
}

// Infer chains to a fixpoint without answering anything.
func (e *Engine) Infer() inference.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inf.Run()
}

// Assert adds a fact directly, bypassing the parser. Relations the grammar
// cannot produce, such as requires, enter the knowledge base this way.
func (e *Engine) Assert(f kb.Fact) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.AddFact(f)
}

// Has reports whether f is in the knowledge base. It does not run inference.
func (e *Engine) Has(f kb.Fact) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Has(f)
}

// Facts returns a copy of the fact sequence in insertion order.
func (e *Engine) Facts() []kb.Fact {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Facts()
}

// Explain runs inference and explains how the fact in statement was reached.
func (e *Engine) Explain(statement string) (string, error) {
	st := e.parser.Parse(statement)
	if st.Kind != parse.KindFact {
		return "", fmt.Errorf("explain %q: not a fact (%s): %w", st.Text, st.Kind, internalerr.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.inf.Run()
	return e.inf.Explain(st.Fact), nil
}

// Check runs inference and checks entity's requirements.
func (e *Engine) Check(entity string) compliance.Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inf.Run()
	return compliance.Check(e.store, parse.Normalize(entity))
}

// WriteFacts lists the fact sequence to w, one statement per line.
func (e *Engine) WriteFacts(w io.Writer, showDerived bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	l := &kb.Listing{Store: e.store, ShowDerived: showDerived}
	return l.Write(w)
}

// Stats counts what the knowledge base holds.
type Stats struct {
	Lines       int // statements seen, queries and skipped lines included
	Skipped     int // unrecognized or dropped statements
	Facts       int
	Derived     int
	Rules       int
	Suggestions int
	Passes      int // inference passes across all runs
}

// Stats returns current counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{
		Lines:       e.lines,
		Skipped:     e.dropped,
		Facts:       e.store.Len(),
		Derived:     e.store.DerivedCount(),
		Rules:       len(e.store.Rules()),
		Suggestions: len(e.store.Suggestions()),
		Passes:      e.inf.Total().Passes,
	}
}
