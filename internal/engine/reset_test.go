package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/sim"
)

func TestStandardReset(t *testing.T) {
	assert.Equal(t, []Phase{{10, 0}, {10, 1}, {10, 0}}, StandardReset(10, 10, 10, true))
	assert.Equal(t, []Phase{{5, 0}, {2, 1}}, StandardReset(0, 5, 2, false))
}

func TestResetSequencer_Window(t *testing.T) {
	s, log := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)

	err := s.Run(context.Background(), func(task *Task) error {
		if _, err := StartMonitor(s, "clk", "rst"); err != nil {
			return err
		}
		return RunReset(task, ResetConfig{Signal: "rst", Clock: "clk", Phases: StandardReset(10, 10, 10, true)})
	})
	require.NoError(t, err)
	assert.Equal(t, sim.Time(300), s.Now())

	rst := log.samples("rst")
	for k := uint64(1); k < 30; k++ {
		want := uint64(0)
		if k >= 10 && k < 20 {
			want = 1
		}
		assert.Equal(t, want, rst[k], "rst at edge %d", k)
	}
}

func TestResetSequencer_Validation(t *testing.T) {
	s, _ := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)

	_, err := NewResetSequencer(s, ResetConfig{Signal: "rst", Clock: "clk"})
	assert.True(t, IsInvalidSequence(err))

	_, err = NewResetSequencer(s, ResetConfig{Signal: "rst", Clock: "clk", Phases: []Phase{{5, 1}, {0, 0}}})
	assert.True(t, IsInvalidSequence(err))
	assert.Contains(t, err.Error(), "phase 1")

	_, err = NewResetSequencer(s, ResetConfig{Signal: "rst", Clock: "slow", Phases: []Phase{{1, 1}}})
	assert.True(t, IsUnknownClock(err))

	_, err = NewResetSequencer(s, ResetConfig{Signal: "rst", Clock: "clk", Phases: []Phase{{1, 2}}})
	assert.True(t, HasCode(err, CodeValueRange))

	_, err = NewResetSequencer(s, ResetConfig{Signal: "nope", Clock: "clk", Phases: []Phase{{1, 1}}})
	assert.ErrorIs(t, err, sim.ErrSignalNotFound)
}

func TestResetSequencer_RunsOnce(t *testing.T) {
	s, _ := newTestScheduler(t, clkAndData)
	startClock(t, s, "clk", 10)
	r, err := NewResetSequencer(s, ResetConfig{Signal: "rst", Clock: "clk", Phases: []Phase{{2, 1}}})
	require.NoError(t, err)

	var second error
	err = s.Run(context.Background(), func(task *Task) error {
		if err := r.Run(task); err != nil {
			return err
		}
		second = r.Run(task)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, IsInvalidSequence(second))
	assert.Equal(t, sim.Time(20), s.Now())
}
