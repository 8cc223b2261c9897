package config

import (
	"fmt"

	"github.com/cognicore/alog/pkg/alog/kb"
	"github.com/cognicore/alog/pkg/alog/lexicon"
)

// Loader loads the config file and constructs components
type Loader struct {
	ConfigPath string
	// SynonymsPath overrides the config's synonyms_file.
	SynonymsPath string
}

// Components holds the loaded configuration and what was built from it
type Components struct {
	Config  *Config
	Lexicon *lexicon.Lexicon
}

// Load reads the configured files and returns initialized components.
// With no ConfigPath the defaults are used.
func (l *Loader) Load() (*Components, error) {
	comp := &Components{Config: Default()}

	if l.ConfigPath != "" {
		cfg, err := Load(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		comp.Config = cfg
	}

	synonyms := comp.Config.SynonymsFile
	if l.SynonymsPath != "" {
		synonyms = l.SynonymsPath
	}
	if synonyms != "" {
		lex, err := lexicon.LoadFromYAML(synonyms)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
		comp.Lexicon = lex
	} else {
		comp.Lexicon = lexicon.New()
	}

	// Inline groups apply last so they win over the file.
	for _, g := range comp.Config.Synonyms {
		comp.Lexicon.Extend(kb.Relation(g.Canonical), g.Variants)
	}

	return comp, nil
}
