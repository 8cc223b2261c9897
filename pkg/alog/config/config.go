package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/alog/pkg/alog/internalerr"
	"github.com/cognicore/alog/pkg/alog/lexicon"
)

var validate = validator.New()

// Config is the alog.yaml file.
type Config struct {
	LogLevel string   `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	Inputs   []string `yaml:"inputs" validate:"dive,required"`
	Queries  []string `yaml:"queries" validate:"dive,required"`

	// Synonyms extends the built-in relation lexicon.
	Synonyms     []lexicon.Group `yaml:"synonyms" validate:"dive"`
	SynonymsFile string          `yaml:"synonyms_file"`

	Transcript Transcript `yaml:"transcript"`
	Compliance []string   `yaml:"compliance" validate:"dive,required"`
	Watch      Watch      `yaml:"watch"`
}

// Transcript configures where answers are recorded. An empty path disables it.
type Transcript struct {
	Path    string `yaml:"path"`
	Session string `yaml:"session" validate:"omitempty,max=64"`
}

// Watch configures the file tailer.
type Watch struct {
	Debounce time.Duration `yaml:"debounce" validate:"gte=0,lte=1m"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Watch:    Watch{Debounce: 100 * time.Millisecond},
	}
}

// Load reads, defaults and validates a YAML config. Relative paths inside the
// file are resolved against the file's directory.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w: %v", path, internalerr.ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}

	base := filepath.Dir(path)
	for i, in := range cfg.Inputs {
		cfg.Inputs[i] = resolve(base, in)
	}
	if cfg.SynonymsFile != "" {
		cfg.SynonymsFile = resolve(base, cfg.SynonymsFile)
	}
	if cfg.Transcript.Path != "" {
		cfg.Transcript.Path = resolve(base, cfg.Transcript.Path)
	}
	return cfg, nil
}

// Validate checks the struct tags and reports every violation in one error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// formatValidationError formats validation errors into readable messages
func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(msgs, "; "))
}

// formatFieldError formats a single field validation error
func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Namespace())
	if i := strings.Index(field, "."); i >= 0 {
		field = field[i+1:]
	}

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
