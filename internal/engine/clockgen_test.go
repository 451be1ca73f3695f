package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/testutil"
)

func runCycles(t *testing.T, s *Scheduler, clock string, n int) {
	t.Helper()
	require.NoError(t, s.Run(context.Background(), func(task *Task) error {
		return task.Cycles(clock, n)
	}))
}

func TestStartClock_EdgesEveryHalfPeriod(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	g := startClock(t, s, "clk", 10)
	assert.Equal(t, sim.Time(10), g.Period())
	assert.Equal(t, sim.Time(5), g.High())
	assert.Equal(t, sim.Time(5), g.Low())

	runCycles(t, s, "clk", 5)

	edges := log.edgeTimes("clk", sim.BothEdges)
	require.Len(t, edges, 10)
	for i := 1; i < len(edges); i++ {
		assert.Equal(t, sim.Time(5), edges[i]-edges[i-1], "edge %d", i)
	}
	assert.Equal(t, []sim.Time{10, 20, 30, 40, 50}, log.edgeTimes("clk", sim.Rising))
	assert.Equal(t, uint64(5), g.Stream().Rising())
}

func TestStartClock_ThirdRisingEdgeAtThirty(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)
	runCycles(t, s, "clk", 3)

	rising := log.edgeTimes("clk", sim.Rising)
	require.Len(t, rising, 3)
	assert.Equal(t, sim.Time(30), rising[2])
	assert.Equal(t, sim.Time(30), s.Now())
}

func TestStartClock_StartLow(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	_, err := StartClock(s, ClockConfig{Signal: "clk", Period: 10, Unit: sim.Nanosecond, StartLow: true})
	require.NoError(t, err)
	runCycles(t, s, "clk", 2)

	assert.Equal(t, []sim.Time{5, 15}, log.edgeTimes("clk", sim.Rising))
	assert.Equal(t, []sim.Time{10}, log.edgeTimes("clk", sim.Falling))
}

func TestStartClock_Duty(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	g, err := StartClock(s, ClockConfig{Signal: "clk", Period: 10, Unit: sim.Nanosecond, DutyPercent: 30})
	require.NoError(t, err)
	assert.Equal(t, sim.Time(3), g.High())
	assert.Equal(t, sim.Time(7), g.Low())
	runCycles(t, s, "clk", 2)

	assert.Equal(t, []sim.Time{3, 13}, log.edgeTimes("clk", sim.Falling))
	assert.Equal(t, []sim.Time{10, 20}, log.edgeTimes("clk", sim.Rising))
}

func TestStartClock_UnitConversion(t *testing.T) {
	k := testutil.NewKernelAt(t, sim.Picosecond, clkAndData)
	s := New(k, WithLogger(quietLogger()))
	g, err := StartClock(s, ClockConfig{Signal: "clk", Period: 10, Unit: sim.Nanosecond})
	require.NoError(t, err)
	assert.Equal(t, sim.Time(10000), g.Period())
}

func TestStartClock_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  ClockConfig
	}{
		{"zero period", ClockConfig{Signal: "clk", Period: 0}},
		{"inexact unit", ClockConfig{Signal: "clk", Period: 15, Unit: sim.Picosecond}},
		{"inexact duty", ClockConfig{Signal: "clk", Period: 10, DutyPercent: 33}},
		{"duty too high", ClockConfig{Signal: "clk", Period: 10, DutyPercent: 100}},
		{"odd period", ClockConfig{Signal: "clk", Period: 5}},
		{"wide signal", ClockConfig{Signal: "data", Period: 10}},
		{"no signal", ClockConfig{Period: 10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newTestScheduler(t, clkAndData)
			_, err := StartClock(s, tt.cfg)
			require.Error(t, err)
			assert.True(t, HasCode(err, CodeInvalidClock), "got %v", err)
		})
	}
}

func TestStartClock_UnknownSignal(t *testing.T) {
	s, _ := newTestScheduler(t, clkAndData)
	_, err := StartClock(s, ClockConfig{Signal: "nope", Period: 10})
	assert.ErrorIs(t, err, sim.ErrSignalNotFound)
}

func TestStartClock_DuplicateDriver(t *testing.T) {
	s, _ := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)

	_, err := StartClock(s, ClockConfig{Signal: "clk", Period: 20})
	assert.True(t, IsDuplicateDriver(err))

	_, err = s.TrackClock("clk")
	assert.True(t, IsDuplicateDriver(err))

	_, err = s.TrackClock("clk2")
	require.NoError(t, err)
	_, err = StartClock(s, ClockConfig{Signal: "clk2", Period: 10})
	assert.True(t, IsDuplicateDriver(err))
}

func TestStartClock_TwoClocks(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)
	startClock(t, s, "clk2", 4)
	runCycles(t, s, "clk", 1)

	assert.Equal(t, []sim.Time{4, 8}, log.edgeTimes("clk2", sim.Rising))
}
