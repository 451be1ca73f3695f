package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/trace"
)

func TestReadTrace_MatchesRecordedEncoding(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	run := createTestRun(t, s, "r1")
	events := clockEvents("r1", 3)
	require.NoError(t, s.WriteEvents(ctx, events))

	recorded := &trace.Trace{
		Header: trace.Header{Scenario: run.Scenario, Design: run.Design, RunID: run.ID, Precision: run.Precision},
		Events: events,
	}
	want, err := recorded.Bytes()
	require.NoError(t, err)

	stored, err := s.ReadTrace(ctx, "r1")
	require.NoError(t, err)
	got, err := stored.Bytes()
	require.NoError(t, err)
	assert.Equal(t, string(want), string(got))
}

func TestReadTrace_UnknownRun(t *testing.T) {
	_, err := createTestStore(t).ReadTrace(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindIncompleteRuns(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	createTestRun(t, s, "done")
	createTestRun(t, s, "crashed")
	require.NoError(t, s.FinishRun(ctx, "done", 10, "", nil))

	runs, err := s.FindIncompleteRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "crashed", runs[0].ID)
}

func TestLastSeq_Empty(t *testing.T) {
	s := createTestStore(t)
	createTestRun(t, s, "r1")

	n, err := s.LastSeq(context.Background(), "r1")
	require.NoError(t, err)
	assert.Zero(t, n)
}
