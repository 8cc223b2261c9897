package config

import (
	"path/filepath"
	"testing"

	"github.com/cognicore/alog/pkg/alog/kb"
)

func TestLoaderDefaults(t *testing.T) {
	loader := &Loader{}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if comp.Config.LogLevel != "info" {
		t.Errorf("LogLevel = %q", comp.Config.LogLevel)
	}
	if got := comp.Lexicon.Canonicalize("owns"); got != kb.Has {
		t.Errorf("builtin lexicon missing: owns -> %q", got)
	}
}

func TestLoaderSynonyms(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, tmpDir, "synonyms.yaml", `synonyms:
  - canonical: has
    variants: [holds]
  - canonical: suggest
    variants: [propose]
`)
	cfgPath := writeFile(t, tmpDir, "alog.yaml", `synonyms_file: synonyms.yaml
synonyms:
  - canonical: is
    variants: [holds]
`)

	loader := &Loader{ConfigPath: cfgPath}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	lex := comp.Lexicon
	if got := lex.Canonicalize("propose"); got != kb.Suggest {
		t.Errorf("propose -> %q, want suggest", got)
	}
	// Inline groups apply after the file.
	if got := lex.Canonicalize("holds"); got != kb.Is {
		t.Errorf("holds -> %q, want is", got)
	}
}

func TestLoaderSynonymsOverride(t *testing.T) {
	tmpDir := t.TempDir()
	override := writeFile(t, tmpDir, "other.yaml", `synonyms:
  - canonical: can
    variants: [manages]
`)

	loader := &Loader{SynonymsPath: override}
	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := comp.Lexicon.Canonicalize("manages"); got != kb.Can {
		t.Errorf("manages -> %q, want can", got)
	}
}

func TestLoaderErrors(t *testing.T) {
	tmpDir := t.TempDir()

	loader := &Loader{ConfigPath: filepath.Join(tmpDir, "absent.yaml")}
	if _, err := loader.Load(); err == nil {
		t.Error("expected error for missing config")
	}

	loader = &Loader{SynonymsPath: filepath.Join(tmpDir, "absent.yaml")}
	if _, err := loader.Load(); err == nil {
		t.Error("expected error for missing synonyms file")
	}
}
