package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunWithGolden_RegisterLatch(t *testing.T) {
	result, err := RunWithGolden(t, loadTestScenario(t, "register_latch"))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestAssertGolden_RerunMatches(t *testing.T) {
	sc := loadTestScenario(t, "register_latch")
	first, err := RunWithGolden(t, sc)
	require.NoError(t, err)

	// A second run compares against the same fixture.
	require.NoError(t, AssertGolden(t, sc.Name, first))
}
