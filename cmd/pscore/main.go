// Command pscore is the interpreter's CLI: a REPL when given no
// files, or batch evaluation of each file in order when given some
// (spec §6, "CLI").
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/simon-brooke/post-scarcity-sub000"
	"github.com/simon-brooke/post-scarcity-sub000/builtins"
	"github.com/simon-brooke/post-scarcity-sub000/streams"
)

var (
	verbosity int
	noPrompt  bool
)

func main() {
	root := &cobra.Command{
		Use:     "pscore [files...]",
		Short:   "A Lisp interpreter with a paged, reference-counted cell heap",
		Version: "0.1.0",
		RunE:    run,
	}
	root.Flags().CountVarP(&verbosity, "verbose", "v", "increase log verbosity (repeatable)")
	root.Flags().BoolVar(&noPrompt, "no-prompt", false, "suppress the REPL's input prompt")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func buildLogger(verbosity int) *zap.Logger {
	level := zapcore.WarnLevel
	switch {
	case verbosity >= 2:
		level = zapcore.DebugLevel
	case verbosity == 1:
		level = zapcore.InfoLevel
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

func run(cmd *cobra.Command, args []string) error {
	log := buildLogger(verbosity)
	defer log.Sync()

	// sessionID correlates every log line emitted by one interpreter
	// run (REPL or batch), the way a request ID would in a networked
	// service — useful once output from several invocations is
	// aggregated, since nothing else in a log line identifies which
	// process emitted it.
	sessionID := uuid.New().String()
	sugared := log.Sugar().With("session", sessionID)
	sugared.Debugw("starting interpreter session", "category", "session")

	cfg := pscore.NewConfig()
	h := pscore.NewHeap(cfg, sugared)
	ev := pscore.NewEvaluator(h, sugared)
	ev.Oblist = builtins.Install(ev, ev.Oblist)

	if len(args) == 0 {
		return repl(ev, cfg)
	}

	exitCode := 0
	for _, path := range args {
		val, err := evalFile(ev, cfg, path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if h.IsException(val) {
			fmt.Fprintln(os.Stderr, pscore.PrintCell(h, val))
			exitCode = 1
		}
		h.Dec(val)
	}
	os.Exit(exitCode)
	return nil
}

func evalFile(ev *pscore.Evaluator, cfg *pscore.Config, path string) (pscore.CellPtr, error) {
	h := ev.Heap
	streamCell, err := streams.OpenSource(h, path)
	if err != nil {
		return pscore.NilPtr, fmt.Errorf("opening %s: %w", path, err)
	}
	defer h.Dec(streamCell)

	r := pscore.NewReader(h, h.StreamHandle(streamCell), cfg)
	last := pscore.NilPtr
	h.Inc(last)
	for {
		form, err := r.ReadForm()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return pscore.NilPtr, fmt.Errorf("reading %s: %w", path, err)
		}
		h.Dec(last)
		last = ev.Eval(form, ev.Oblist)
		h.Dec(form)
		if h.IsException(last) {
			break
		}
	}
	return last, nil
}

func repl(ev *pscore.Evaluator, cfg *pscore.Config) error {
	h := ev.Heap
	r := pscore.NewReader(h, streams.Stdin(), cfg)
	for {
		if !noPrompt {
			fmt.Print("> ")
		}
		form, err := r.ReadForm()
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		val := ev.Eval(form, ev.Oblist)
		h.Dec(form)
		fmt.Println(pscore.PrintCell(h, val))
		h.Dec(val)
	}
}
