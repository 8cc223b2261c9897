package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cognicore/alog/pkg/alog"
	"github.com/cognicore/alog/pkg/alog/internalerr"
	"github.com/cognicore/alog/pkg/alog/source"
	"github.com/cognicore/alog/pkg/alog/transcript"
	"github.com/cognicore/alog/pkg/alog/transcript/sqlite"
)

func newRunCmd(a *app) *cobra.Command {
	var queries []string

	cmd := &cobra.Command{
		Use:   "run [files...]",
		Short: "Ingest statement files and answer their queries",
		Long: `Ingests the configured inputs and the given files in order. Queries inside
the files are answered as they are read, then the config's queries and every
--query, then compliance checks for the config's entities.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			engine, cleanup, err := buildEngine(ctx, a, out, args...)
			if err != nil {
				return err
			}
			defer cleanup()

			for _, q := range append(append([]string{}, a.comp.Config.Queries...), queries...) {
				if _, err := engine.Query(ctx, q); err != nil {
					return err
				}
			}
			for _, entity := range a.comp.Config.Compliance {
				fmt.Fprintln(out, engine.Check(entity))
			}

			logStats(a.logger, engine)
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&queries, "query", "q", nil, "Query to answer after ingesting (repeatable)")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl [files...]",
		Short: "Interactive prompt for statements and queries",
		Long: `Reads one statement or query per line. Lines starting with ':' are commands:
  :facts        list facts, derived ones annotated
  :why <fact>   explain a fact
  :check <e>    compliance check for an entity
  :stats        knowledge base counts
  :quit         exit`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			engine, cleanup, err := buildEngine(ctx, a, out, args...)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(out, "alog - type statements or queries (Ctrl+D to exit)")

			scanner := bufio.NewScanner(cmd.InOrStdin())
			for {
				fmt.Fprint(out, "> ")
				if !scanner.Scan() {
					break
				}

				line := strings.TrimSpace(scanner.Text())
				if line == "" {
					continue
				}
				if strings.HasPrefix(line, ":") {
					if replCommand(engine, out, line) {
						break
					}
					continue
				}

				if _, err := engine.IngestLine(ctx, line); err != nil {
					fmt.Fprintln(out, "Error:", err)
				}
			}

			fmt.Fprintln(out)
			return scanner.Err()
		},
	}
}

// replCommand runs one ':' command and reports whether the loop should end.
func replCommand(engine *alog.Engine, out io.Writer, line string) bool {
	name, arg, _ := strings.Cut(strings.TrimPrefix(line, ":"), " ")
	arg = strings.TrimSpace(arg)

	switch name {
	case "quit", "q", "exit":
		return true
	case "facts":
		engine.Infer()
		if err := engine.WriteFacts(out, true); err != nil {
			fmt.Fprintln(out, "Error:", err)
		}
	case "why":
		text, err := engine.Explain(arg)
		if err != nil {
			fmt.Fprintln(out, "Error:", err)
			return false
		}
		fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	case "check":
		fmt.Fprintln(out, engine.Check(arg))
	case "stats":
		st := engine.Stats()
		fmt.Fprintf(out, "facts=%d derived=%d rules=%d suggestions=%d passes=%d skipped=%d\n",
			st.Facts, st.Derived, st.Rules, st.Suggestions, st.Passes, st.Skipped)
	default:
		fmt.Fprintf(out, "unknown command :%s\n", name)
	}
	return false
}

func newWatchCmd(a *app) *cobra.Command {
	var debounce time.Duration

	cmd := &cobra.Command{
		Use:   "watch <file>",
		Short: "Ingest a file and keep answering as lines are appended",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			engine, cleanup, err := buildEngine(ctx, a, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			if !cmd.Flags().Changed("debounce") {
				debounce = a.comp.Config.Watch.Debounce
			}
			w, err := source.NewWatcher(args[0], func(line string) error {
				_, err := engine.IngestLine(ctx, line)
				return err
			}, source.WithDebounce(debounce), source.WithWatchLogger(a.logger.Named("watch")))
			if err != nil {
				return err
			}

			return watch(ctx, w)
		},
	}

	cmd.Flags().DurationVar(&debounce, "debounce", source.DefaultDebounce, "Wait this long after a write before reading")
	return cmd
}

// watch runs w until ctx is done or the watcher fails.
func watch(ctx context.Context, w *source.Watcher) error {
	g, gctx := errgroup.WithContext(ctx)
	gctx, cancel := context.WithCancel(gctx)
	defer cancel()

	if err := w.Start(gctx); err != nil {
		return err
	}

	g.Go(func() error {
		defer cancel()
		<-w.Done()
		return w.Err()
	})
	g.Go(func() error {
		<-gctx.Done()
		w.Stop()
		return nil
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func newCheckCmd(a *app) *cobra.Command {
	var advise bool

	cmd := &cobra.Command{
		Use:   "check <entity> [files...]",
		Short: "Check an entity's requirements against what it has",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			engine, cleanup, err := buildEngine(ctx, a, out, args[1:]...)
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(out, engine.Check(args[0]))
			if advise {
				if _, err := engine.Advise(ctx, args[0]); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&advise, "advise", false, "Also print the first matching suggestion")
	return cmd
}

func newWhyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "why <fact> [files...]",
		Short:   "Explain how a fact was derived",
		Example: `  alog why "tom is sick" clinic.alog`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			engine, cleanup, err := buildEngine(ctx, a, out, args[1:]...)
			if err != nil {
				return err
			}
			defer cleanup()

			text, err := engine.Explain(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(out, strings.TrimRight(text, "\n"))
			return nil
		},
	}
}

func newFactsCmd(a *app) *cobra.Command {
	var (
		derived bool
		noInfer bool
	)

	cmd := &cobra.Command{
		Use:   "facts [files...]",
		Short: "List facts in insertion order",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			engine, cleanup, err := buildEngine(ctx, a, out, args...)
			if err != nil {
				return err
			}
			defer cleanup()

			if !noInfer {
				engine.Infer()
			}
			return engine.WriteFacts(out, derived)
		},
	}

	cmd.Flags().BoolVar(&derived, "derived", false, "Annotate derived facts with their rule")
	cmd.Flags().BoolVar(&noInfer, "no-infer", false, "List asserted facts without running inference")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recorded answers from the transcript",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			path, session := a.transcript()
			if path == "" {
				return fmt.Errorf("history: no transcript configured: %w", internalerr.ErrInvalidInput)
			}
			store, err := sqlite.Open(ctx, path)
			if err != nil {
				return err
			}
			defer store.Close()

			var entries []transcript.Entry
			if session != "" {
				entries, err = store.Session(ctx, session)
			} else {
				entries, err = store.Recent(ctx, limit)
			}
			if err != nil {
				return err
			}

			for _, e := range entries {
				fmt.Fprintf(out, "%s  %s  %s => %s\n",
					e.AskedAt.Local().Format("2006-01-02 15:04:05"), shortSession(e.Session), e.Query, e.Answer)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", sqlite.DefaultRecent, "Number of entries")
	return cmd
}

func shortSession(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

func logStats(logger *zap.Logger, engine *alog.Engine) {
	st := engine.Stats()
	logger.Info("knowledge base",
		zap.Int("lines", st.Lines),
		zap.Int("facts", st.Facts),
		zap.Int("derived", st.Derived),
		zap.Int("rules", st.Rules),
		zap.Int("suggestions", st.Suggestions),
		zap.Int("passes", st.Passes),
		zap.Int("skipped", st.Skipped))
}
