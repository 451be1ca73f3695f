package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/sim"
)

func TestActivationQuota(t *testing.T) {
	q := newActivationQuota(2)
	require.NoError(t, q.check(5, sim.Nanosecond))
	require.NoError(t, q.check(5, sim.Nanosecond))

	err := q.check(5, sim.Nanosecond)
	require.Error(t, err)
	assert.True(t, HasCode(err, CodeLivelock))
	assert.Contains(t, err.Error(), "5ns")

	q.reset()
	assert.NoError(t, q.check(6, sim.Nanosecond))
}

func TestActivationQuota_Disabled(t *testing.T) {
	q := newActivationQuota(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.check(0, sim.Nanosecond))
	}
}
