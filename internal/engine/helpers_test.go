package engine

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/testutil"
)

// eventLog records observer events. Tasks run one at a time, so it needs no
// lock.
type eventLog struct {
	events []Event
}

func (l *eventLog) Observe(ev Event) { l.events = append(l.events, ev) }

func (l *eventLog) edgeTimes(clock string, e sim.Edge) []sim.Time {
	var times []sim.Time
	for _, ev := range l.events {
		if ev.Kind == EventEdge && ev.Clock == clock && ev.Edge&e != 0 {
			times = append(times, ev.Time)
		}
	}
	return times
}

// samples maps rising-edge index to the sampled value of signal.
func (l *eventLog) samples(signal string) map[uint64]uint64 {
	out := make(map[uint64]uint64)
	for _, ev := range l.events {
		if ev.Kind == EventSample && ev.Signal == signal {
			out[ev.Index] = ev.Value
		}
	}
	return out
}

func (l *eventLog) ofKind(kind EventKind) []Event {
	var out []Event
	for _, ev := range l.events {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestScheduler(t *testing.T, d sim.Design, opts ...Option) (*Scheduler, *eventLog) {
	t.Helper()
	k := testutil.NewKernel(t, d)
	log := &eventLog{}
	base := []Option{WithLogger(quietLogger()), WithRunID("test-run"), WithObserver(log)}
	return New(k, append(base, opts...)...), log
}

func startClock(t *testing.T, s *Scheduler, name string, period int64) *ClockGenerator {
	t.Helper()
	g, err := StartClock(s, ClockConfig{Signal: name, Period: period, Unit: sim.Nanosecond})
	require.NoError(t, err)
	return g
}

// clkAndData is a logic-free design with a clock and a few data ports.
var clkAndData = testutil.Wires{
	{Name: "clk", Width: 1},
	{Name: "clk2", Width: 1},
	{Name: "rst", Width: 1},
	{Name: "data", Width: 8},
	{Name: "bus", Width: 16},
}
