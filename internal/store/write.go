package store

import (
	"context"
	"fmt"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// Run statuses.
const (
	StatusRunning = "running"
	StatusPassed  = "passed"
	StatusFailed  = "failed"
)

// Run is one recorded scenario execution.
type Run struct {
	ID        string
	Scenario  string
	Design    string
	Precision sim.Unit
	Status    string
	Error     string
	EndTime   sim.Time
	Digest    string
}

// BeginRun inserts a run in the running state.
// Returns an error if a run with the same ID already exists.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, design, precision, status)
		VALUES (?, ?, ?, ?, ?)
	`, run.ID, run.Scenario, run.Design, string(run.Precision), StatusRunning)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", run.ID, err)
	}
	return nil
}

// FinishRun records the outcome of a run. A nil runErr marks it passed.
func (s *Store) FinishRun(ctx context.Context, id string, end sim.Time, digest string, runErr error) error {
	status, msg := StatusPassed, ""
	if runErr != nil {
		status, msg = StatusFailed, runErr.Error()
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, error = ?, end_time = ?, digest = ?
		WHERE id = ?
	`, status, msg, int64(end), digest, id)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", id, ErrNotFound)
	}
	return nil
}

// WriteEvents appends events in one transaction.
// Duplicate (run_id, seq) pairs are silently ignored.
func (s *Store) WriteEvents(ctx context.Context, events []engine.Event) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write events: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO events
		(run_id, seq, kind, time, signal, clock, edge, edge_index, value, task)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("write events: prepare: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		edge := ""
		if ev.Kind == engine.EventEdge {
			edge = ev.Edge.String()
		}
		_, err := stmt.ExecContext(ctx,
			ev.RunID,
			ev.Seq,
			string(ev.Kind),
			int64(ev.Time),
			ev.Signal,
			ev.Clock,
			edge,
			toDB(ev.Index),
			toDB(ev.Value),
			ev.Task,
		)
		if err != nil {
			return fmt.Errorf("write event %d of run %s: %w", ev.Seq, ev.RunID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write events: commit: %w", err)
	}
	return nil
}

// EventWriter is an engine.Observer that buffers events and writes them to
// the store in batches.
//
// Observe cannot return an error, so the first write failure is kept and
// reported by Flush; later events are dropped.
type EventWriter struct {
	s       *Store
	ctx     context.Context
	batch   int
	pending []engine.Event
	err     error
}

// DefaultBatchSize is the number of events an EventWriter buffers before
// writing.
const DefaultBatchSize = 512

// NewEventWriter returns an observer writing to s. batch <= 0 selects
// DefaultBatchSize.
func (s *Store) NewEventWriter(ctx context.Context, batch int) *EventWriter {
	if batch <= 0 {
		batch = DefaultBatchSize
	}
	return &EventWriter{s: s, ctx: ctx, batch: batch}
}

// Observe implements engine.Observer.
func (w *EventWriter) Observe(ev engine.Event) {
	if w.err != nil {
		return
	}
	w.pending = append(w.pending, ev)
	if len(w.pending) >= w.batch {
		w.err = w.write()
	}
}

// Flush writes buffered events and returns the first error seen.
func (w *EventWriter) Flush() error {
	if w.err == nil {
		w.err = w.write()
	}
	return w.err
}

func (w *EventWriter) write() error {
	err := w.s.WriteEvents(w.ctx, w.pending)
	w.pending = w.pending[:0]
	return err
}
