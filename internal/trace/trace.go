package trace

import (
	"bufio"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// Format identifies the trace encoding in the header line.
const Format = "edgebench/trace/v1"

// Header describes the run a trace belongs to.
type Header struct {
	Scenario  string
	Design    string
	RunID     string
	Precision sim.Unit
}

// Trace is a header plus the events of one run in emission order.
type Trace struct {
	Header
	Events []engine.Event
}

// Recorder is an engine.Observer that keeps every event it sees.
//
// The scheduler calls observers from one task at a time, so Recorder needs
// no locking as long as it is read after the run returns.
type Recorder struct {
	events []engine.Event
}

// NewRecorder returns an empty recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// Observe implements engine.Observer.
func (r *Recorder) Observe(ev engine.Event) { r.events = append(r.events, ev) }

// Events returns the recorded events.
func (r *Recorder) Events() []engine.Event { return r.events }

// Kinds returns the recorded events of the given kinds, in order.
func (r *Recorder) Kinds(kinds ...engine.EventKind) []engine.Event {
	var out []engine.Event
	for _, ev := range r.events {
		for _, k := range kinds {
			if ev.Kind == k {
				out = append(out, ev)
				break
			}
		}
	}
	return out
}

// Trace wraps the recorded events with h.
func (r *Recorder) Trace(h Header) *Trace {
	return &Trace{Header: h, Events: r.events}
}

// HeaderObject returns the canonical form of the header line.
func HeaderObject(h Header) Object {
	return Object{
		"format":    Format,
		"scenario":  h.Scenario,
		"design":    h.Design,
		"run_id":    h.RunID,
		"precision": string(h.Precision),
	}
}

// EventObject returns the canonical form of ev. Times are rendered with
// their precision unit. Fields that do not apply to the event kind are left
// out.
func EventObject(ev engine.Event, precision sim.Unit) Object {
	obj := Object{
		"seq":    ev.Seq,
		"kind":   string(ev.Kind),
		"time":   sim.FormatTime(ev.Time, precision),
		"signal": ev.Signal,
		"value":  ev.Value,
	}
	if ev.Clock != "" {
		obj["clock"] = ev.Clock
	}
	switch ev.Kind {
	case engine.EventEdge:
		obj["edge"] = ev.Edge.String()
		obj["index"] = ev.Index
	case engine.EventSample:
		obj["index"] = ev.Index
	}
	if ev.Task != "" {
		obj["task"] = ev.Task
	}
	return obj
}

// Encode writes tr as canonical JSON Lines.
func (tr *Trace) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	line, err := MarshalCanonical(HeaderObject(tr.Header))
	if err != nil {
		return fmt.Errorf("trace header: %w", err)
	}
	bw.Write(line)
	bw.WriteByte('\n')
	for _, ev := range tr.Events {
		line, err := MarshalCanonical(EventObject(ev, tr.Precision))
		if err != nil {
			return fmt.Errorf("trace event %d: %w", ev.Seq, err)
		}
		bw.Write(line)
		bw.WriteByte('\n')
	}
	return bw.Flush()
}

// Bytes returns the encoded trace.
func (tr *Trace) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := tr.Encode(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the hex SHA-256 of an encoded trace, domain-separated by
// Format.
func Digest(encoded []byte) string {
	h := sha256.New()
	h.Write([]byte(Format))
	h.Write([]byte{0x00})
	h.Write(encoded)
	return hex.EncodeToString(h.Sum(nil))
}

type headerLine struct {
	Format    string `json:"format"`
	Scenario  string `json:"scenario"`
	Design    string `json:"design"`
	RunID     string `json:"run_id"`
	Precision string `json:"precision"`
}

type eventLine struct {
	Seq    int64  `json:"seq"`
	Kind   string `json:"kind"`
	Time   string `json:"time"`
	Signal string `json:"signal"`
	Clock  string `json:"clock"`
	Edge   string `json:"edge"`
	Index  uint64 `json:"index"`
	Value  uint64 `json:"value"`
	Task   string `json:"task"`
}

// Decode reads a trace written by Encode.
func Decode(r io.Reader) (*Trace, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("trace is empty")
	}
	var hl headerLine
	if err := json.Unmarshal(sc.Bytes(), &hl); err != nil {
		return nil, fmt.Errorf("trace header: %w", err)
	}
	if hl.Format != Format {
		return nil, fmt.Errorf("unsupported trace format %q", hl.Format)
	}
	precision, err := sim.ParseUnit(hl.Precision)
	if err != nil {
		return nil, fmt.Errorf("trace header: %w", err)
	}
	tr := &Trace{Header: Header{
		Scenario:  hl.Scenario,
		Design:    hl.Design,
		RunID:     hl.RunID,
		Precision: precision,
	}}

	for n := 2; sc.Scan(); n++ {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var el eventLine
		if err := json.Unmarshal(sc.Bytes(), &el); err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}
		ev, err := el.event(hl.RunID, precision)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", n, err)
		}
		tr.Events = append(tr.Events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return tr, nil
}

func (el eventLine) event(runID string, precision sim.Unit) (engine.Event, error) {
	v, unit, err := sim.ParseDuration(el.Time)
	if err != nil {
		return engine.Event{}, err
	}
	at, err := sim.Convert(v, unit, precision)
	if err != nil {
		return engine.Event{}, err
	}
	ev := engine.Event{
		Seq:    el.Seq,
		RunID:  runID,
		Kind:   engine.EventKind(el.Kind),
		Time:   at,
		Signal: el.Signal,
		Clock:  el.Clock,
		Index:  el.Index,
		Value:  el.Value,
		Task:   el.Task,
	}
	switch el.Edge {
	case "":
	case "rising":
		ev.Edge = sim.Rising
	case "falling":
		ev.Edge = sim.Falling
	default:
		return engine.Event{}, fmt.Errorf("unknown edge %q", el.Edge)
	}
	return ev, nil
}
