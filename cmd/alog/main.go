package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/alog/internal/logging"
	"github.com/cognicore/alog/pkg/alog"
	"github.com/cognicore/alog/pkg/alog/config"
	"github.com/cognicore/alog/pkg/alog/sink"
	"github.com/cognicore/alog/pkg/alog/transcript"
	"github.com/cognicore/alog/pkg/alog/transcript/sqlite"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// app holds the global flags and what PersistentPreRunE built from them.
type app struct {
	configPath     string
	synonymsPath   string
	transcriptPath string
	session        string
	verbose        bool

	comp   *config.Components
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "alog",
		Short: "alog - a small forward-chaining knowledge base",
		Long: `alog ingests short statements, derives new facts from if/then rules and
answers questions about them.

Statements:
  anna is doctor
  all human are mammal
  if ?x is human and not ?x has flu then ?x is healthy
  if ?x has flu then suggest "go to doctor"

Queries:
  is anna doctor
  what does dog have
  what should tom do
  who has flu`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loader := &config.Loader{ConfigPath: a.configPath, SynonymsPath: a.synonymsPath}
			comp, err := loader.Load()
			if err != nil {
				return err
			}
			a.comp = comp

			logger, err := logging.New(comp.Config.LogLevel, a.verbose)
			if err != nil {
				return err
			}
			a.logger = logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Config file (YAML)")
	flags.StringVar(&a.synonymsPath, "synonyms", "", "Relation synonyms file (YAML), overrides the config")
	flags.StringVar(&a.transcriptPath, "transcript", "", "Record answers in this SQLite database")
	flags.StringVar(&a.session, "session", "", "Transcript session ID (default: config or random)")
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "Debug logging")

	root.AddCommand(
		newRunCmd(a),
		newReplCmd(a),
		newWatchCmd(a),
		newCheckCmd(a),
		newWhyCmd(a),
		newFactsCmd(a),
		newHistoryCmd(a),
	)
	return root
}

// transcript resolves the transcript flags against the config.
func (a *app) transcript() (path, session string) {
	path, session = a.comp.Config.Transcript.Path, a.comp.Config.Transcript.Session
	if a.transcriptPath != "" {
		path = a.transcriptPath
	}
	if a.session != "" {
		session = a.session
	}
	return path, session
}

// buildEngine creates an engine whose answers go to out (and the transcript when
// one is configured), then ingests the configured inputs followed by files.
func buildEngine(ctx context.Context, a *app, out io.Writer, files ...string) (*alog.Engine, func(), error) {
	sinks := sink.Multi{sink.NewWriter(out)}
	cleanup := func() {}

	if path, session := a.transcript(); path != "" {
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, nil, fmt.Errorf("open transcript: %w", err)
		}
		ts := transcript.NewSink(store, session)
		sinks = append(sinks, ts)
		cleanup = func() { store.Close() }
		a.logger.Info("recording transcript", zap.String("path", path), zap.String("session", ts.Session()))
	}

	engine := alog.New(alog.Options{
		Lexicon: a.comp.Lexicon,
		Sink:    sinks,
		Logger:  a.logger,
	})

	inputs := append(append([]string{}, a.comp.Config.Inputs...), files...)
	for _, path := range inputs {
		if err := engine.IngestFile(ctx, path); err != nil {
			cleanup()
			return nil, nil, err
		}
	}

	return engine, cleanup, nil
}
