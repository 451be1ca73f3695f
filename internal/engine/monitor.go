package engine

import (
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// Sample is the value of one signal at one rising edge.
type Sample struct {
	Signal string
	Clock  string
	Index  uint64
	Value  uint64
}

// Monitor samples signals after every rising edge of a clock.
//
// Sampling happens in the read-only phase of the edge's instant, so a sample
// for edge k is the settled value after every write made at edge k.
type Monitor struct {
	clock   string
	stream  *EdgeStream
	handles []*SignalHandle
	last    map[string]Sample
	task    *Task
}

// StartMonitor starts sampling signals on clock.
func StartMonitor(s *Scheduler, clock string, signals ...string) (*Monitor, error) {
	st, ok := s.streams[clock]
	if !ok {
		return nil, newUnknownClockError(clock)
	}
	m := &Monitor{clock: clock, stream: st, last: make(map[string]Sample, len(signals))}
	for _, name := range signals {
		h, err := s.Signal(name)
		if err != nil {
			return nil, fmt.Errorf("monitor on %s: %w", clock, err)
		}
		m.handles = append(m.handles, h)
	}
	m.task = s.Start("monitor:"+clock, m.run)
	return m, nil
}

func (m *Monitor) run(t *Task) error {
	for {
		if err := t.Await(RisingEdge(m.clock)); err != nil {
			return err
		}
		index := m.stream.Rising()
		if err := t.Await(ReadOnly()); err != nil {
			return err
		}
		for _, h := range m.handles {
			v, err := h.Value()
			if err != nil {
				return err
			}
			smp := Sample{Signal: h.Name(), Clock: m.clock, Index: index, Value: v}
			m.last[smp.Signal] = smp
			t.sched.emit(Event{Kind: EventSample, Signal: smp.Signal, Clock: m.clock, Edge: sim.Rising, Index: index, Value: v})
		}
	}
}

// Last returns the most recent sample of signal.
func (m *Monitor) Last(signal string) (Sample, bool) {
	smp, ok := m.last[signal]
	return smp, ok
}

// Task returns the monitor task.
func (m *Monitor) Task() *Task { return m.task }
