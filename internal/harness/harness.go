package harness

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/edgebench/internal/dut"
	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/store"
	"github.com/roach88/edgebench/internal/trace"
)

// Option configures a harness run.
type Option func(*config)

type config struct {
	logger *slog.Logger
	runIDs engine.RunIDGenerator
	store  *store.Store
	body   engine.ScenarioFunc
}

// WithLogger sets the logger. Runs are silent by default.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithRunIDGenerator replaces the fixed run ID taken from the scenario.
func WithRunIDGenerator(g engine.RunIDGenerator) Option {
	return func(c *config) { c.runIDs = g }
}

// WithStore records the run into st instead of a fresh in-memory store.
// The caller owns st and must close it.
func WithStore(st *store.Store) Option {
	return func(c *config) { c.store = st }
}

// WithBody replaces the scenario body.
func WithBody(fn engine.ScenarioFunc) Option {
	return func(c *config) { c.body = fn }
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation unless
// WithStore is given. A failed run (for example a stall or a task error) is
// reported in the result, not as an error; the error return is kept for
// problems setting the run up.
//
// Execution flow:
// 1. Build the design and a sim.Memory kernel at the scenario precision
// 2. Begin a run record in the store
// 3. Run the engine scenario, writing events to the store and a recorder
// 4. Finish the run record with the trace digest
// 5. Evaluate assertions against the stored run
func Run(ctx context.Context, sc *Scenario, opts ...Option) (*Result, error) {
	cfg := config{logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(&cfg)
	}
	if cfg.runIDs == nil {
		cfg.runIDs = engine.NewFixedRunID(sc.RunID)
	}

	precision, err := sc.precision()
	if err != nil {
		return nil, err
	}
	limit, err := sc.timeLimit(precision)
	if err != nil {
		return nil, err
	}
	design, err := dut.New(sc.Design, dut.Params(sc.Params))
	if err != nil {
		return nil, err
	}
	k, err := sim.NewMemory(precision, design)
	if err != nil {
		return nil, fmt.Errorf("elaborate %s: %w", sc.Design, err)
	}
	defer k.Close()

	es, err := sc.Build(cfg.body)
	if err != nil {
		return nil, fmt.Errorf("build scenario: %w", err)
	}

	st := cfg.store
	if st == nil {
		st, err = store.OpenMemory()
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory store: %w", err)
		}
		defer st.Close()
	}

	runID := cfg.runIDs.Generate()
	header := trace.Header{Scenario: sc.Name, Design: sc.Design, RunID: runID, Precision: precision}
	if err := st.BeginRun(ctx, store.Run{ID: runID, Scenario: sc.Name, Design: sc.Design, Precision: precision}); err != nil {
		return nil, err
	}

	rec := trace.NewRecorder()
	writer := st.NewEventWriter(ctx, 0)
	runErr := es.Run(ctx, k,
		engine.WithLogger(cfg.logger),
		engine.WithRunID(runID),
		engine.WithTimeLimit(limit),
		engine.WithObserver(rec),
		engine.WithObserver(writer),
	)
	if err := writer.Flush(); err != nil {
		return nil, fmt.Errorf("record run: %w", err)
	}

	tr := rec.Trace(header)
	encoded, err := tr.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encode trace: %w", err)
	}
	digest := trace.Digest(encoded)
	if err := st.FinishRun(ctx, runID, k.Now(), digest, runErr); err != nil {
		return nil, err
	}

	result := NewResult(sc.Name, runID)
	result.Trace = tr
	result.Digest = digest
	result.EndTime = sim.FormatTime(k.Now(), precision)
	if runErr != nil {
		result.RunErr = runErr
		result.AddError(fmt.Sprintf("run failed: %v", runErr))
		cfg.logger.Warn("scenario run failed", "scenario", sc.Name, "run_id", runID, "error", runErr)
	}

	actx := &AssertionContext{Store: st, Ctx: ctx, RunID: runID, Precision: precision}
	for _, msg := range EvaluateAssertions(sc.Assertions, actx) {
		result.AddError(msg)
	}

	cfg.logger.Info("scenario finished",
		"scenario", sc.Name,
		"run_id", runID,
		"end", result.EndTime,
		"pass", result.Pass,
		"events", len(tr.Events))
	return result, nil
}

// CheckDeterminism runs sc twice with the same run ID and reports whether
// the traces are byte-identical.
func CheckDeterminism(ctx context.Context, sc *Scenario, opts ...Option) (bool, error) {
	var digests [2]string
	for i := range digests {
		runOpts := append(opts[:len(opts):len(opts)], WithRunIDGenerator(engine.NewFixedRunID(sc.RunID)))
		res, err := Run(ctx, sc, runOpts...)
		if err != nil {
			return false, err
		}
		digests[i] = res.Digest
	}
	return digests[0] == digests[1], nil
}

func sortedSignals(m map[string]uint64) []string {
	names := make([]string, 0, len(m))
	for n := range m {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
