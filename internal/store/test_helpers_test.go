package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// createTestStore creates a new file-backed store for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun inserts a running run with nanosecond precision.
func createTestRun(t *testing.T, s *Store, id string) Run {
	t.Helper()
	run := Run{ID: id, Scenario: "scenario-" + id, Design: "counter", Precision: sim.Nanosecond}
	if err := s.BeginRun(context.Background(), run); err != nil {
		t.Fatalf("BeginRun() failed: %v", err)
	}
	return run
}

// clockEvents returns rising and falling edges of clk with a 10ns period
// starting high, plus a sample of q after every rising edge with value 10*i.
func clockEvents(runID string, cycles int) []engine.Event {
	var events []engine.Event
	seq := int64(0)
	next := func(ev engine.Event) {
		seq++
		ev.Seq = seq
		ev.RunID = runID
		events = append(events, ev)
	}
	for i := 1; i <= cycles; i++ {
		next(engine.Event{Kind: engine.EventEdge, Time: sim.Time(10*i - 5), Signal: "clk", Clock: "clk", Edge: sim.Falling, Index: uint64(i)})
		next(engine.Event{Kind: engine.EventEdge, Time: sim.Time(10 * i), Signal: "clk", Clock: "clk", Edge: sim.Rising, Index: uint64(i), Value: 1})
		next(engine.Event{Kind: engine.EventSample, Time: sim.Time(10 * i), Signal: "q", Clock: "clk", Edge: sim.Rising, Index: uint64(i), Value: uint64(10 * i), Task: "monitor:clk"})
	}
	return events
}
