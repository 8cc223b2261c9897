package source

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func collect(t *testing.T, fn func(LineFunc) error) []string {
	t.Helper()
	var got []string
	if err := fn(func(line string) error {
		got = append(got, line)
		return nil
	}); err != nil {
		t.Fatalf("read: %v", err)
	}
	return got
}

func TestReadLinesSkipsCommentsAndBlanks(t *testing.T) {
	input := `
# demo knowledge
carl is human.

  # indented comment
all human are mammal.
is carl mammal
`
	got := collect(t, func(fn LineFunc) error {
		return ReadLines(context.Background(), strings.NewReader(input), fn)
	})

	want := []string{"carl is human.", "all human are mammal.", "is carl mammal"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestReadLinesStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	calls := 0
	err := ReadLines(context.Background(), strings.NewReader("a is b\nc is d\n"), func(string) error {
		calls++
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(err.Error(), "line 1") {
		t.Errorf("error should carry the line number: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestReadLinesHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := ReadLines(ctx, strings.NewReader("a is b\n"), func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestFilePlainText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.alog")
	os.WriteFile(path, []byte("dog has tail.\nwhat does dog have\n"), 0644)

	got := collect(t, func(fn LineFunc) error { return File(context.Background(), path, fn) })
	if len(got) != 2 || got[1] != "what does dog have" {
		t.Errorf("got %v", got)
	}
}

func TestFileMissing(t *testing.T) {
	err := File(context.Background(), filepath.Join(t.TempDir(), "nope.alog"), func(string) error { return nil })
	if !os.IsNotExist(err) {
		t.Errorf("err = %v, want not-exist", err)
	}
}

func TestExtractHTML(t *testing.T) {
	doc := `<html><head><title>Zoo</title><style>p { color: red }</style></head>
<body>
<h1>Zoo   facts</h1>
<p>Carl is <b>human</b>.</p>
<ul>
  <li>dog has tail</li>
  <li>animals
    <ul><li>all human are mammal</li></ul>
  </li>
</ul>
<script>var x = "y is z";</script>
<pre>
is carl mammal
what does dog have
</pre>
</body></html>`

	got, err := ExtractHTML(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("ExtractHTML: %v", err)
	}
	want := []string{
		"Zoo facts",
		"Carl is human.",
		"dog has tail",
		"all human are mammal",
		"is carl mammal",
		"what does dog have",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestFileHTML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.HTML")
	os.WriteFile(path, []byte(`<p>tom is human</p><p># not a statement</p><li>tom has flu</li>`), 0644)

	got := collect(t, func(fn LineFunc) error { return File(context.Background(), path, fn) })
	want := []string{"tom is human", "tom has flu"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("lines mismatch (-want +got):\n%s", diff)
	}
}

func TestIsHTML(t *testing.T) {
	for path, want := range map[string]bool{
		"a.html":    true,
		"b.HTM":     true,
		"c.alog":    false,
		"d.alogq":   false,
		"html":      false,
		"dir/e.htm": true,
	} {
		if got := IsHTML(path); got != want {
			t.Errorf("IsHTML(%q) = %v", path, got)
		}
	}
}
