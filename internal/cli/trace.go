package cli

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/store"
	"github.com/roach88/edgebench/internal/trace"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	RunID    string
	Kinds    []string // optional - filter to these event kinds
	Signal   string   // optional - filter to one signal
}

// TraceResult holds the trace output in JSON mode.
type TraceResult struct {
	Header trace.Object   `json:"header"`
	Events []trace.Object `json:"events"`
}

// validKinds lists the event kinds accepted by --kind.
var validKinds = []engine.EventKind{
	engine.EventEdge,
	engine.EventWrite,
	engine.EventOverride,
	engine.EventRelease,
	engine.EventSample,
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the trace of a stored run",
		Long: `Print the canonical trace of a stored run.

Text output is the JSON Lines trace: a header line followed by one line per
event in seq order, byte-identical to the golden file format. Filters drop
event lines but keep the header.

Examples:
  edgebench trace --db ./runs.db --run 0190a6e2-...
  edgebench trace --db ./runs.db --run 0190a6e2-... --kind sample --signal q
  edgebench trace --db ./runs.db --run 0190a6e2-... --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "run ID to trace (required)")
	_ = cmd.MarkFlagRequired("run")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "filter to event kinds (edge|write|override|release|sample)")
	cmd.Flags().StringVar(&opts.Signal, "signal", "", "filter to one signal")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	formatter := newFormatter(opts.RootOptions, cmd)

	kinds, err := parseKinds(opts.Kinds)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --kind", err)
	}

	st, err := openExisting(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	tr, err := st.ReadTrace(ctx, opts.RunID)
	if errors.Is(err, store.ErrNotFound) {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("run %s not found", opts.RunID), nil)
		return NewExitError(ExitCommandError, fmt.Sprintf("run %s not found", opts.RunID))
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read trace", err)
	}
	tr.Events = filterEvents(tr.Events, kinds, opts.Signal)
	formatter.VerboseLog("Run %s: %d event(s) after filtering", opts.RunID, len(tr.Events))

	if opts.Format == "json" {
		result := TraceResult{
			Header: trace.HeaderObject(tr.Header),
			Events: make([]trace.Object, 0, len(tr.Events)),
		}
		for _, ev := range tr.Events {
			result.Events = append(result.Events, trace.EventObject(ev, tr.Precision))
		}
		return formatter.encode(CLIResponse{Status: "ok", Data: result, RunID: opts.RunID})
	}

	if err := tr.Encode(cmd.OutOrStdout()); err != nil {
		return WrapExitError(ExitCommandError, "failed to encode trace", err)
	}
	return nil
}

func parseKinds(names []string) ([]engine.EventKind, error) {
	kinds := make([]engine.EventKind, 0, len(names))
	for _, n := range names {
		k := engine.EventKind(n)
		if !slices.Contains(validKinds, k) {
			return nil, fmt.Errorf("unknown event kind %q", n)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// filterEvents keeps events of the given kinds on the given signal. Empty
// filters match everything.
func filterEvents(events []engine.Event, kinds []engine.EventKind, signal string) []engine.Event {
	if len(kinds) == 0 && signal == "" {
		return events
	}
	out := make([]engine.Event, 0, len(events))
	for _, ev := range events {
		if len(kinds) > 0 && !slices.Contains(kinds, ev.Kind) {
			continue
		}
		if signal != "" && ev.Signal != signal {
			continue
		}
		out = append(out, ev)
	}
	return out
}
