package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/harness"
	"github.com/roach88/edgebench/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	RunID    string

	// RunIDs allows overriding the run ID generator (for testing).
	// If nil and RunID is empty, defaults to UUIDv7Generator.
	RunIDs engine.RunIDGenerator
}

// RunSummary is the output of the run command.
type RunSummary struct {
	Scenario string   `json:"scenario"`
	RunID    string   `json:"run_id"`
	Pass     bool     `json:"pass"`
	EndTime  string   `json:"end_time"`
	Events   int      `json:"events"`
	Digest   string   `json:"digest"`
	Errors   []string `json:"errors,omitempty"`
}

func (s RunSummary) String() string {
	status := "PASS"
	if !s.Pass {
		status = "FAIL"
	}
	return fmt.Sprintf("%s %s (run %s, %d events, ended at %s)", status, s.Scenario, s.RunID, s.Events, s.EndTime)
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario",
		Long: `Run a scenario against its design and report the outcome.

Without --db the run is recorded to an in-memory database and discarded.
With --db the run and its events are kept for replay and trace queries.

Exit codes:
  0 - Scenario passed
  1 - Run failed or an assertion did not hold
  2 - Command error (invalid scenario, database error, etc.)

Examples:
  edgebench run ./scenarios/counter_reset.yaml
  edgebench run --db ./runs.db ./scenarios/pwm_half.yaml --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScenarioFile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (optional)")
	cmd.Flags().StringVar(&opts.RunID, "run-id", "", "fixed run ID instead of a generated one")

	return cmd
}

func runScenarioFile(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(opts.RootOptions, cmd.ErrOrStderr())

	sc, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}

	runIDs := opts.RunIDs
	switch {
	case opts.RunID != "":
		runIDs = engine.NewFixedRunID(opts.RunID)
	case runIDs == nil:
		runIDs = engine.UUIDv7Generator{}
	}
	harnessOpts := []harness.Option{
		harness.WithLogger(logger),
		harness.WithRunIDGenerator(runIDs),
	}

	if opts.Database != "" {
		formatter.VerboseLog("opening database %s", opts.Database)
		st, err := store.Open(opts.Database)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer func() {
			if closeErr := st.Close(); closeErr != nil {
				logger.Error("error closing database", "error", closeErr)
			}
		}()
		harnessOpts = append(harnessOpts, harness.WithStore(st))
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	result, err := harness.Run(ctx, sc, harnessOpts...)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	summary := RunSummary{
		Scenario: result.Scenario,
		RunID:    result.RunID,
		Pass:     result.Pass,
		EndTime:  result.EndTime,
		Events:   len(result.Trace.Events),
		Digest:   result.Digest,
		Errors:   result.Errors,
	}
	if err := outputRunSummary(formatter, summary); err != nil {
		return err
	}
	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed", result.Scenario))
	}
	return nil
}

func outputRunSummary(f *OutputFormatter, s RunSummary) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: s, RunID: s.RunID}
		if !s.Pass {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeRun, Message: fmt.Sprintf("scenario %s failed", s.Scenario), Details: s.Errors}
		}
		return f.encode(resp)
	}
	fmt.Fprintln(f.Writer, s)
	writeErrors(f.Writer, s.Errors)
	return nil
}

func writeErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// signalContext derives a context from the command's that is cancelled on
// SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
