package alog

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/cognicore/alog/pkg/alog/internalerr"
	"github.com/cognicore/alog/pkg/alog/kb"
	"github.com/cognicore/alog/pkg/alog/lexicon"
	"github.com/cognicore/alog/pkg/alog/parse"
	"github.com/cognicore/alog/pkg/alog/query"
	"github.com/cognicore/alog/pkg/alog/sink"
)

const clinic = `# clinic
tom is human
tom has flu
jack is human
jack has flu
alice is human
if ?x is human and ?x has flu then ?x is sick
if ?x is human and not ?x has flu then ?x is healthy
if ?x is sick then suggest "go to doctor"
if ?x is human then suggest "keep walking"
what should tom do
what should alice do
who has flu
is alice healthy
is tom healthy
`

func newTestEngine(t *testing.T) (*Engine, *sink.Collector) {
	t.Helper()
	out := &sink.Collector{}
	return New(Options{Sink: out}), out
}

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	e, out := newTestEngine(t)

	if err := e.IngestReader(ctx, strings.NewReader(clinic)); err != nil {
		t.Fatalf("IngestReader: %v", err)
	}

	want := []string{"go to doctor", "keep walking", "tom, jack", "yes", "no"}
	if diff := cmp.Diff(want, out.Texts()); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}

	st := e.Stats()
	if st.Rules != 2 || st.Suggestions != 2 {
		t.Errorf("Stats = %+v", st)
	}
	if st.Derived != 3 {
		t.Errorf("Derived = %d, want tom/jack sick and alice healthy", st.Derived)
	}
	if st.Passes == 0 {
		t.Error("queries should have run inference")
	}
}

func TestQueriesSeeLaterFacts(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)

	for _, line := range []string{"carl is human", "all human are mammal"} {
		if _, err := e.IngestLine(ctx, line); err != nil {
			t.Fatal(err)
		}
	}
	res, err := e.Query(ctx, "is maria mammal")
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != query.No {
		t.Errorf("maria unknown yet, got %q", res.Answer)
	}

	e.IngestLine(ctx, "maria is human")
	res, _ = e.Query(ctx, "is maria mammal")
	if res.Answer != query.Yes {
		t.Errorf("got %q after adding maria", res.Answer)
	}
}

func TestIngestLineKinds(t *testing.T) {
	ctx := context.Background()
	e, out := newTestEngine(t)

	cases := []struct {
		line string
		want parse.Kind
	}{
		{"anna is doctor", parse.KindFact},
		{"all doctor are human", parse.KindUniversal},
		{"if ?x is doctor then ?x has license", parse.KindRule},
		{"if ?x is doctor then suggest \"rest\"", parse.KindSuggestion},
		{"is anna human", parse.KindQuery},
		{"hello world", parse.KindUnrecognized},
		{"all doctors", parse.KindDropped},
		{"   ", parse.KindEmpty},
	}
	for _, c := range cases {
		st, err := e.IngestLine(ctx, c.line)
		if err != nil {
			t.Fatalf("IngestLine(%q): %v", c.line, err)
		}
		if st.Kind != c.want {
			t.Errorf("IngestLine(%q).Kind = %v, want %v", c.line, st.Kind, c.want)
		}
	}

	if got := out.Texts(); len(got) != 1 || got[0] != query.Yes {
		t.Errorf("answers = %v", got)
	}
	st := e.Stats()
	if st.Skipped != 2 || st.Lines != len(cases) {
		t.Errorf("Stats = %+v", st)
	}
}

func TestDuplicateFactsIgnored(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	e.IngestLine(ctx, "dog has tail")
	e.IngestLine(ctx, "Dog has tail.")

	if got := e.Facts(); len(got) != 1 {
		t.Errorf("Facts = %v, want one", got)
	}
}

func TestQueryStripsOnePeriod(t *testing.T) {
	ctx := context.Background()
	e, out := newTestEngine(t)

	e.IngestLine(ctx, "anna is doctor..")
	if _, err := e.IngestLine(ctx, "is anna doctor.."); err != nil {
		t.Fatal(err)
	}
	res, err := e.Query(ctx, "is anna doctor..")
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != query.Yes {
		t.Errorf("Query = %q", res.Answer)
	}
	if diff := cmp.Diff([]string{query.Yes, query.Yes}, out.Texts()); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}
	if got := out.Answers()[0].Query; got != "is anna doctor." {
		t.Errorf("recorded query = %q", got)
	}
}

func TestCommentLines(t *testing.T) {
	ctx := context.Background()

	e, _ := newTestEngine(t)
	st, err := e.IngestLine(ctx, "# note")
	if err != nil {
		t.Fatal(err)
	}
	if st.Kind != parse.KindUnrecognized || e.Stats().Skipped != 1 {
		t.Errorf("IngestLine(comment) = %v, stats %+v", st.Kind, e.Stats())
	}

	e, _ = newTestEngine(t)
	if err := e.IngestReader(ctx, strings.NewReader("# note\nanna is doctor\n")); err != nil {
		t.Fatal(err)
	}
	if st := e.Stats(); st.Facts != 1 || st.Skipped != 0 || st.Lines != 1 {
		t.Errorf("IngestReader stats = %+v, comments never reach the parser", st)
	}
}

func TestIngestFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "zoo.alog")
	if err := os.WriteFile(path, []byte("dog has tail\ndog has fur\nwhat does dog have\n"), 0644); err != nil {
		t.Fatal(err)
	}
	page := filepath.Join(dir, "zoo.html")
	html := `<html><body><ul><li>cat has whiskers</li></ul><p>what does cat have</p></body></html>`
	if err := os.WriteFile(page, []byte(html), 0644); err != nil {
		t.Fatal(err)
	}

	e, out := newTestEngine(t)
	if err := e.IngestFile(ctx, path); err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if err := e.IngestFile(ctx, page); err != nil {
		t.Fatalf("IngestFile html: %v", err)
	}

	want := []string{"tail, fur", "whiskers"}
	if diff := cmp.Diff(want, out.Texts()); diff != "" {
		t.Errorf("answers mismatch (-want +got):\n%s", diff)
	}

	if err := e.IngestFile(ctx, filepath.Join(dir, "absent.alog")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSinkErrorSurfaces(t *testing.T) {
	boom := errors.New("boom")
	e := New(Options{Sink: sink.Func(func(context.Context, sink.Answer) error { return boom })})

	_, err := e.IngestLine(context.Background(), "is anna doctor")
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	// Non-queries never reach the sink.
	if _, err := e.IngestLine(context.Background(), "anna is doctor"); err != nil {
		t.Errorf("fact ingestion failed: %v", err)
	}
}

func TestExplain(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	e.IngestReader(ctx, strings.NewReader(clinic))

	got, err := e.Explain("tom is sick")
	if err != nil {
		t.Fatalf("Explain: %v", err)
	}
	if !strings.HasPrefix(got, "Inference chain for tom is sick:") {
		t.Errorf("Explain = %q", got)
	}

	got, _ = e.Explain("tom has flu")
	if got != "tom has flu is directly known" {
		t.Errorf("Explain = %q", got)
	}
	got, _ = e.Explain("alice is sick")
	if got != "cannot prove alice is sick" {
		t.Errorf("Explain = %q", got)
	}

	if _, err := e.Explain("who has flu"); !errors.Is(err, internalerr.ErrInvalidInput) {
		t.Errorf("Explain of a query: err = %v", err)
	}
}

func TestCheckAndAdvise(t *testing.T) {
	ctx := context.Background()
	e, out := newTestEngine(t)

	e.Assert(kb.Fact{Subject: "acme_inc", Relation: kb.Requires, Object: "license"})
	e.Assert(kb.Fact{Subject: "acme_inc", Relation: kb.Requires, Object: "audit"})
	e.IngestLine(ctx, "acme_inc has license")
	e.IngestLine(ctx, `if ?x is company and not ?x has audit then suggest "book an audit"`)
	e.IngestLine(ctx, "acme_inc is company")

	if got := e.Check("acme_inc").String(); got != "[SYSTEM] acme_inc is missing required: audit" {
		t.Errorf("Check = %q", got)
	}
	res, err := e.Advise(ctx, "acme_inc")
	if err != nil {
		t.Fatal(err)
	}
	if res.Answer != "book an audit" || out.Texts()[0] != "book an audit" {
		t.Errorf("Advise = %+v", res)
	}

	e.IngestLine(ctx, "acme_inc has audit")
	if r := e.Check("acme_inc"); !r.Compliant() {
		t.Errorf("Check = %v after audit", r)
	}
}

func TestCustomLexicon(t *testing.T) {
	ctx := context.Background()
	lex := lexicon.New()
	lex.Extend(kb.Has, []string{"holds"})

	out := &sink.Collector{}
	e := New(Options{Lexicon: lex, Sink: out})
	e.IngestLine(ctx, "anna has key")
	e.Query(ctx, "is anna holds key")

	if got := out.Texts(); len(got) != 1 || got[0] != query.Yes {
		t.Errorf("answers = %v", got)
	}
}

func TestWriteFacts(t *testing.T) {
	ctx := context.Background()
	e, _ := newTestEngine(t)
	e.IngestReader(ctx, strings.NewReader("carl is human\nall human are mammal\n"))
	e.Infer()

	var buf bytes.Buffer
	if err := e.WriteFacts(&buf, false); err != nil {
		t.Fatal(err)
	}
	if got := buf.String(); got != "carl is human\ncarl is mammal\n" {
		t.Errorf("WriteFacts = %q", got)
	}

	buf.Reset()
	e.WriteFacts(&buf, true)
	if !strings.Contains(buf.String(), "carl is mammal  # rule 1, ?x=carl") {
		t.Errorf("WriteFacts(showDerived) = %q", buf.String())
	}
}

func TestConcurrentIngestAndQuery(t *testing.T) {
	ctx := context.Background()
	e, out := newTestEngine(t)
	e.IngestLine(ctx, "all human are mammal")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := string(rune('a' + i))
			e.IngestLine(ctx, name+" is human")
			e.Query(ctx, "is "+name+" mammal")
		}(i)
	}
	wg.Wait()

	for _, text := range out.Texts() {
		if text != query.Yes {
			t.Errorf("got %q, every query follows its own fact", text)
		}
	}
	if got := len(e.Facts()); got != 16 {
		t.Errorf("facts = %d, want 16", got)
	}
}
