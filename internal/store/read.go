package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// ReadRun retrieves a run by ID.
// Returns ErrNotFound if it does not exist.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, scenario, design, precision, status, error, end_time, digest
		FROM runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return run, err
}

// ListRuns returns every run in insertion order.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	return s.queryRuns(ctx, `
		SELECT id, scenario, design, precision, status, error, end_time, digest
		FROM runs
		ORDER BY rowid ASC
	`)
}

func (s *Store) queryRuns(ctx context.Context, query string, args ...any) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		run       Run
		precision string
		end       int64
	)
	if err := row.Scan(&run.ID, &run.Scenario, &run.Design, &precision, &run.Status, &run.Error, &end, &run.Digest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	run.Precision = sim.Unit(precision)
	run.EndTime = sim.Time(end)
	return run, nil
}

// Events returns the events of a run ordered by seq. With kinds, only events
// of those kinds are returned. Returns an empty slice if there are none.
func (s *Store) Events(ctx context.Context, runID string, kinds ...engine.EventKind) ([]engine.Event, error) {
	query := `
		SELECT run_id, seq, kind, time, signal, clock, edge, edge_index, value, task
		FROM events
		WHERE run_id = ?`
	args := []any{runID}
	if len(kinds) > 0 {
		query += " AND kind IN (?" + strings.Repeat(", ?", len(kinds)-1) + ")"
		for _, k := range kinds {
			args = append(args, string(k))
		}
	}
	query += " ORDER BY seq ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []engine.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(row scanner) (engine.Event, error) {
	var (
		ev         engine.Event
		kind, edge string
		at         int64
		index, val int64
	)
	if err := row.Scan(&ev.RunID, &ev.Seq, &kind, &at, &ev.Signal, &ev.Clock, &edge, &index, &val, &ev.Task); err != nil {
		return engine.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = engine.EventKind(kind)
	ev.Time = sim.Time(at)
	ev.Index = fromDB(index)
	ev.Value = fromDB(val)
	switch edge {
	case "rising":
		ev.Edge = sim.Rising
	case "falling":
		ev.Edge = sim.Falling
	}
	return ev, nil
}

// SampleAt returns the value of signal sampled after the index-th rising
// edge of clock. Returns ErrNotFound if no such sample was recorded.
func (s *Store) SampleAt(ctx context.Context, runID, clock, signal string, index uint64) (uint64, error) {
	var v int64
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM events
		WHERE run_id = ? AND kind = ? AND clock = ? AND signal = ? AND edge_index = ?
		ORDER BY seq ASC
		LIMIT 1
	`, runID, string(engine.EventSample), clock, signal, toDB(index)).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("sample of %s at %s edge %d: %w", signal, clock, index, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("sample of %s at %s edge %d: %w", signal, clock, index, err)
	}
	return fromDB(v), nil
}

// Samples returns the samples of signal on clock with edge index in
// [from, to], ordered by index.
func (s *Store) Samples(ctx context.Context, runID, clock, signal string, from, to uint64) ([]engine.Sample, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT edge_index, value FROM events
		WHERE run_id = ? AND kind = ? AND clock = ? AND signal = ?
		  AND edge_index BETWEEN ? AND ?
		ORDER BY edge_index ASC, seq ASC
	`, runID, string(engine.EventSample), clock, signal, toDB(from), toDB(to))
	if err != nil {
		return nil, fmt.Errorf("query samples: %w", err)
	}
	defer rows.Close()

	samples := []engine.Sample{}
	for rows.Next() {
		var index, v int64
		if err := rows.Scan(&index, &v); err != nil {
			return nil, fmt.Errorf("scan sample: %w", err)
		}
		samples = append(samples, engine.Sample{Signal: signal, Clock: clock, Index: fromDB(index), Value: fromDB(v)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate samples: %w", err)
	}
	return samples, nil
}

// EdgeTime returns the simulated time of the index-th edge of clock in the
// given direction. Returns ErrNotFound if the run never reached it.
func (s *Store) EdgeTime(ctx context.Context, runID, clock string, edge sim.Edge, index uint64) (sim.Time, error) {
	var at int64
	err := s.db.QueryRowContext(ctx, `
		SELECT time FROM events
		WHERE run_id = ? AND kind = ? AND clock = ? AND edge = ? AND edge_index = ?
	`, runID, string(engine.EventEdge), clock, edge.String(), toDB(index)).Scan(&at)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s edge %d of %s: %w", edge, index, clock, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%s edge %d of %s: %w", edge, index, clock, err)
	}
	return sim.Time(at), nil
}

// EdgeCount returns the number of edges of clock in the given direction.
// sim.BothEdges counts both directions.
func (s *Store) EdgeCount(ctx context.Context, runID, clock string, edge sim.Edge) (uint64, error) {
	query := `
		SELECT COUNT(*) FROM events
		WHERE run_id = ? AND kind = ? AND clock = ?`
	args := []any{runID, string(engine.EventEdge), clock}
	if edge != sim.BothEdges {
		query += " AND edge = ?"
		args = append(args, edge.String())
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s edges of %s: %w", edge, clock, err)
	}
	return uint64(n), nil
}
