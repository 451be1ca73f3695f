package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/testutil"
)

func TestInjectFault_OverrideWindow(t *testing.T) {
	s, log := newTestScheduler(t, testutil.Pipe{})
	startClock(t, s, "clk", 10)
	d, err := s.Signal("d")
	require.NoError(t, err)
	require.NoError(t, d.Set(1))

	err = s.Run(context.Background(), func(task *Task) error {
		if _, err := StartMonitor(s, "clk", "d", "q1"); err != nil {
			return err
		}
		ft, err := StartFault(s, Fault{Signal: "d", Value: 9, Clock: "clk", At: 2, Release: 4})
		if err != nil {
			return err
		}
		if err := task.Await(Joined(ft)); err != nil {
			return err
		}
		return task.Cycles("clk", 2)
	})
	require.NoError(t, err)

	samples := log.samples("d")
	assert.Equal(t, uint64(1), samples[1])
	assert.Equal(t, uint64(9), samples[2])
	assert.Equal(t, uint64(9), samples[3])
	assert.Equal(t, uint64(1), samples[4])

	q1 := log.samples("q1")
	assert.Equal(t, uint64(1), q1[2])
	assert.Equal(t, uint64(9), q1[3])
	assert.Equal(t, uint64(9), q1[4])
	assert.Equal(t, uint64(1), q1[5])
	assert.False(t, d.Overridden())
}

func TestInjectFault_HeldUntilEnd(t *testing.T) {
	s, _ := newTestScheduler(t, testutil.Pipe{})
	startClock(t, s, "clk", 10)
	d, err := s.Signal("d")
	require.NoError(t, err)

	err = s.Run(context.Background(), func(task *Task) error {
		if _, err := StartFault(s, Fault{Signal: "d", Value: 5, Clock: "clk", At: 1}); err != nil {
			return err
		}
		return task.Cycles("clk", 4)
	})
	require.NoError(t, err)
	assert.True(t, d.Overridden())
}

func TestInjectFault_Validation(t *testing.T) {
	s, _ := newTestScheduler(t, testutil.Pipe{})
	startClock(t, s, "clk", 10)

	_, err := StartFault(s, Fault{Signal: "d", Clock: "clk", At: -1})
	assert.True(t, IsInvalidSequence(err))

	_, err = StartFault(s, Fault{Signal: "d", Clock: "clk", At: 3, Release: 3})
	assert.True(t, IsInvalidSequence(err))

	_, err = StartFault(s, Fault{Signal: "d", Clock: "slow", At: 1})
	assert.True(t, IsUnknownClock(err))

	_, err = StartFault(s, Fault{Signal: "d", Value: 300, Clock: "clk", At: 1})
	assert.True(t, HasCode(err, CodeValueRange))
}

func TestInjectFault_ConflictWithExistingOverride(t *testing.T) {
	s, _ := newTestScheduler(t, testutil.Pipe{})
	startClock(t, s, "clk", 10)
	d, err := s.Signal("d")
	require.NoError(t, err)
	require.NoError(t, d.Override(2))

	err = s.Run(context.Background(), func(task *Task) error {
		if _, err := StartFault(s, Fault{Signal: "d", Value: 5, Clock: "clk", At: 1}); err != nil {
			return err
		}
		return task.Cycles("clk", 3)
	})
	require.Error(t, err)
	assert.True(t, IsOverrideConflict(err))
	assert.Contains(t, err.Error(), "task fault:d")
}
