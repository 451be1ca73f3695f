package trace

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/testutil"
)

func smallTrace() *Trace {
	return &Trace{
		Header: Header{Scenario: "small", Design: "wires", RunID: "run-1", Precision: sim.Nanosecond},
		Events: []engine.Event{
			{Seq: 1, RunID: "run-1", Kind: engine.EventEdge, Time: 10, Signal: "clk", Clock: "clk", Edge: sim.Rising, Index: 1, Value: 1},
			{Seq: 2, RunID: "run-1", Kind: engine.EventSample, Time: 10, Signal: "q", Clock: "clk", Index: 1, Value: 7, Task: "monitor:clk"},
			{Seq: 3, RunID: "run-1", Kind: engine.EventWrite, Time: 10, Signal: "d", Value: 8, Task: "main"},
		},
	}
}

func TestEventObject(t *testing.T) {
	tr := smallTrace()

	edge := EventObject(tr.Events[0], sim.Nanosecond)
	assert.Equal(t, "rising", edge["edge"])
	assert.Equal(t, uint64(1), edge["index"])
	assert.Equal(t, "10ns", edge["time"])
	assert.NotContains(t, edge, "task")

	write := EventObject(tr.Events[2], sim.Nanosecond)
	assert.NotContains(t, write, "edge")
	assert.NotContains(t, write, "index")
	assert.NotContains(t, write, "clock")
	assert.Equal(t, "main", write["task"])
}

func TestTraceGolden(t *testing.T) {
	data, err := smallTrace().Bytes()
	require.NoError(t, err)

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "small", data)
}

func TestDecodeRoundTrip(t *testing.T) {
	tr := smallTrace()
	data, err := tr.Bytes()
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, tr.Header, got.Header)
	assert.Equal(t, tr.Events, got.Events)

	again, err := got.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, again)
}

func TestDecodeErrors(t *testing.T) {
	header := `{"design":"wires","format":"edgebench/trace/v1","precision":"ns","run_id":"r","scenario":"s"}` + "\n"
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "trace is empty"},
		{"bad header", "{", "trace header"},
		{"wrong format", `{"format":"other/v9","precision":"ns"}` + "\n", "unsupported trace format"},
		{"bad precision", `{"format":"edgebench/trace/v1","precision":"parsecs"}` + "\n", "trace header"},
		{"bad event", header + "nope\n", "trace line 2"},
		{"bad time", header + `{"kind":"write","seq":1,"signal":"d","time":"soon","value":1}` + "\n", "trace line 2"},
		{"bad edge", header + `{"edge":"sideways","kind":"edge","seq":1,"signal":"clk","time":"5ns","value":1}` + "\n", `unknown edge "sideways"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDigest(t *testing.T) {
	data, err := smallTrace().Bytes()
	require.NoError(t, err)

	d := Digest(data)
	assert.Len(t, d, 64)
	assert.Equal(t, d, Digest(data))

	other := smallTrace()
	other.Events[1].Value = 6
	changed, err := other.Bytes()
	require.NoError(t, err)
	assert.NotEqual(t, d, Digest(changed))
}

func TestRecorderObservesRun(t *testing.T) {
	k := testutil.NewKernel(t, testutil.Wires{{Name: "clk", Width: 1}, {Name: "d", Width: 8}})
	rec := NewRecorder()
	s := engine.New(k,
		engine.WithLogger(slog.New(slog.DiscardHandler)),
		engine.WithRunID("rec-run"),
		engine.WithObserver(rec),
	)
	_, err := engine.StartClock(s, engine.ClockConfig{Signal: "clk", Period: 10, Unit: sim.Nanosecond})
	require.NoError(t, err)

	err = s.Run(context.Background(), func(task *engine.Task) error {
		if err := task.Cycles("clk", 2); err != nil {
			return err
		}
		d, err := task.Scheduler().Signal("d")
		if err != nil {
			return err
		}
		return d.Set(5)
	})
	require.NoError(t, err)

	rising := 0
	for _, ev := range rec.Kinds(engine.EventEdge) {
		assert.Equal(t, "rec-run", ev.RunID)
		if ev.Edge == sim.Rising {
			rising++
		}
	}
	assert.Equal(t, 2, rising)

	writes := rec.Kinds(engine.EventWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, "d", writes[0].Signal)
	assert.Equal(t, uint64(5), writes[0].Value)
	assert.Equal(t, sim.Time(20), writes[0].Time)

	for i := 1; i < len(rec.Events()); i++ {
		assert.Greater(t, rec.Events()[i].Seq, rec.Events()[i-1].Seq)
	}
}
