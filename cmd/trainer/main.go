// Package main is the offline training CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/trainer"
)

// exitErr carries a numeric exit code through the cobra error path.
type exitErr struct {
	code int
	msg  string
}

func (e *exitErr) Error() string { return e.msg }

func codeError(code int, format string, args ...any) error {
	return &exitErr{code: code, msg: fmt.Sprintf(format, args...)}
}

type trainFlags struct {
	data     string
	out      string
	seed     int64
	trees    int
	maxDepth int
	testSize float64
	verbose  bool
}

func main() {
	if err := newRootCmd(os.Stdout, os.Stderr).Execute(); err != nil {
		var ee *exitErr
		if errors.As(err, &ee) {
			fmt.Fprintln(os.Stderr, "Error:", ee.msg)
			os.Exit(ee.code)
		}
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "trainer",
		Short:         "Train and inspect LoanWise default-risk models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaults := trainer.DefaultOptions()
	var flags trainFlags
	trainCmd := &cobra.Command{
		Use:   "train",
		Short: "Fit scaler and classifier from a loan CSV export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTrain(cmd.Context(), flags, stdout, stderr)
		},
	}
	f := trainCmd.Flags()
	f.StringVar(&flags.data, "data", "", "Path to the historical loan CSV")
	f.StringVar(&flags.out, "out", "ml/models", "Artifact output directory")
	f.Int64Var(&flags.seed, "seed", defaults.Forest.Seed, "Random seed for split and forest")
	f.IntVar(&flags.trees, "trees", defaults.Forest.NumTrees, "Number of trees")
	f.IntVar(&flags.maxDepth, "max-depth", defaults.Forest.MaxDepth, "Maximum tree depth")
	f.Float64Var(&flags.testSize, "test-size", defaults.TestSize, "Held-out fraction")
	f.BoolVar(&flags.verbose, "verbose", false, "Debug logging")
	_ = trainCmd.MarkFlagRequired("data")

	var artifacts string
	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print version and metrics of a stored artifact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspect(artifacts, stdout)
		},
	}
	inspectCmd.Flags().StringVar(&artifacts, "artifacts", "ml/models", "Artifact directory")

	root.AddCommand(trainCmd, inspectCmd)
	return root
}

func runTrain(ctx context.Context, flags trainFlags, stdout, stderr io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := trainer.DefaultOptions()
	opts.DataPath = flags.data
	opts.OutDir = flags.out
	opts.TestSize = flags.testSize
	opts.Forest.Seed = flags.seed
	opts.Forest.NumTrees = flags.trees
	opts.Forest.MaxDepth = flags.maxDepth

	level := slog.LevelInfo
	if flags.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	art, err := trainer.New(logger).Run(ctx, opts)
	if err != nil {
		return codeError(2, "training failed: %s", err)
	}

	printReport(stdout, art.Report())
	return nil
}

func runInspect(dir string, stdout io.Writer) error {
	art, err := ml.Load(dir)
	if err != nil {
		return codeError(2, "loading artifact: %s", err)
	}
	printReport(stdout, art.Report())
	return nil
}

func printReport(w io.Writer, r ml.Report) {
	fmt.Fprintf(w, "Model version: %s\n", r.Version)
	fmt.Fprintf(w, "Trained at:    %s\n", r.TrainedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "Trees:         %d (max depth %d, seed %d)\n", r.Params.NumTrees, r.Params.MaxDepth, r.Params.Seed)
	fmt.Fprintf(w, "Rows:          %d train / %d test\n\n", r.Metrics.TrainRows, r.Metrics.TestRows)
	fmt.Fprintln(w, "Classification Report:")
	fmt.Fprintln(w, r.Metrics.Classification.String())
	fmt.Fprintf(w, "ROC AUC Score: %.4f\n", r.Metrics.ROCAUC)
}
