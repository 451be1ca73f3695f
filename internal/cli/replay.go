package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/store"
	"github.com/roach88/edgebench/internal/trace"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	RunID    string // optional - specific run only
}

// ReplayRunResult holds the replay result for a single run.
type ReplayRunResult struct {
	RunID    string `json:"run_id"`
	Scenario string `json:"scenario"`
	Status   string `json:"status"`
	EndTime  string `json:"end_time"`
	Events   int    `json:"events"`
	Digest   string `json:"digest"`
	Complete bool   `json:"complete"`
	Verified bool   `json:"verified"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Runs        []ReplayRunResult `json:"runs"`
	TotalRuns   int               `json:"total_runs"`
	AllVerified bool              `json:"all_verified"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Rebuild stored traces and verify their digests",
		Long: `Rebuild the trace of each stored run from its events and verify it.

The rebuilt trace is encoded canonically and its digest compared with the
digest recorded when the run finished. Runs that never finished are
reported as incomplete.

Exit codes:
  0 - Every finished run verified
  1 - A rebuilt trace does not match its recorded digest
  2 - Command error (database not found, unknown run, etc.)

Examples:
  edgebench replay --db ./runs.db
  edgebench replay --db ./runs.db --run 0190a6e2-...
  edgebench replay --db ./runs.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "replay specific run only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var runs []store.Run
	if opts.RunID != "" {
		run, err := st.ReadRun(ctx, opts.RunID)
		if errors.Is(err, store.ErrNotFound) {
			_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
			return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
		}
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read run", err)
		}
		runs = []store.Run{run}
	} else {
		runs, err = st.ListRuns(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list runs", err)
		}
	}

	result := ReplayResult{
		Runs:        make([]ReplayRunResult, 0, len(runs)),
		TotalRuns:   len(runs),
		AllVerified: true,
	}
	for _, run := range runs {
		formatter.VerboseLog("Replaying run %s (%s)", run.ID, run.Scenario)
		rr, err := replayRun(ctx, st, run)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay run %s", run.ID), err)
		}
		result.Runs = append(result.Runs, rr)
		if rr.Complete && !rr.Verified {
			result.AllVerified = false
		}
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.AllVerified {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDigest, Message: "trace digest mismatch"}
		}
		if err := formatter.encode(resp); err != nil {
			return err
		}
	} else {
		outputReplayText(formatter, result)
	}

	if !result.AllVerified {
		return NewExitError(ExitFailure, "trace digest mismatch")
	}
	return nil
}

// replayRun rebuilds the trace of one run and checks it against the stored
// digest.
func replayRun(ctx context.Context, st *store.Store, run store.Run) (ReplayRunResult, error) {
	tr, err := st.ReadTrace(ctx, run.ID)
	if err != nil {
		return ReplayRunResult{}, err
	}
	encoded, err := tr.Bytes()
	if err != nil {
		return ReplayRunResult{}, err
	}
	digest := trace.Digest(encoded)

	complete := run.Status != store.StatusRunning
	return ReplayRunResult{
		RunID:    run.ID,
		Scenario: run.Scenario,
		Status:   run.Status,
		EndTime:  sim.FormatTime(run.EndTime, run.Precision),
		Events:   len(tr.Events),
		Digest:   digest,
		Complete: complete,
		Verified: complete && digest == run.Digest,
	}, nil
}

func outputReplayText(f *OutputFormatter, result ReplayResult) {
	w := f.Writer
	if result.TotalRuns == 0 {
		fmt.Fprintln(w, "No runs found in database.")
		return
	}
	for _, rr := range result.Runs {
		switch {
		case !rr.Complete:
			fmt.Fprintf(w, "? %s %s (incomplete, %d events)\n", rr.RunID, rr.Scenario, rr.Events)
		case rr.Verified:
			fmt.Fprintf(w, "✓ %s %s (%s, %d events, ended at %s)\n", rr.RunID, rr.Scenario, rr.Status, rr.Events, rr.EndTime)
		default:
			fmt.Fprintf(w, "✗ %s %s (digest mismatch)\n", rr.RunID, rr.Scenario)
		}
		if f.Verbose {
			fmt.Fprintf(w, "  digest: %s\n", rr.Digest)
		}
	}
}

// openExisting opens a database that must already exist. store.Open would
// otherwise create an empty one.
func openExisting(path string) (*store.Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("database not found: %s", path), err)
	}
	st, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}
