package store

import (
	"context"
	"fmt"

	"github.com/roach88/edgebench/internal/trace"
)

// ReadTrace rebuilds the trace of a stored run. Encoding it yields the same
// bytes as encoding the trace recorded while the run executed.
func (s *Store) ReadTrace(ctx context.Context, runID string) (*trace.Trace, error) {
	run, err := s.ReadRun(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	events, err := s.Events(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	return &trace.Trace{
		Header: trace.Header{
			Scenario:  run.Scenario,
			Design:    run.Design,
			RunID:     run.ID,
			Precision: run.Precision,
		},
		Events: events,
	}, nil
}

// FindIncompleteRuns returns runs that were started but never finished,
// e.g. because the process crashed mid-run.
func (s *Store) FindIncompleteRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT id, scenario, design, precision, status, error, end_time, digest
		FROM runs
		WHERE status = ?
		ORDER BY rowid ASC
	`, StatusRunning)
}

// LastSeq returns the highest event seq stored for a run, or 0 if it has no
// events.
func (s *Store) LastSeq(ctx context.Context, runID string) (int64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(seq), 0) FROM events WHERE run_id = ?
	`, runID).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last seq of run %s: %w", runID, err)
	}
	return seq, nil
}
