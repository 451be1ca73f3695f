package engine

import "github.com/roach88/edgebench/internal/sim"

// EventKind classifies observer events.
type EventKind string

const (
	EventEdge     EventKind = "edge"
	EventWrite    EventKind = "write"
	EventOverride EventKind = "override"
	EventRelease  EventKind = "release"
	EventSample   EventKind = "sample"
)

// Event is one observable step of a run.
//
// Seq orders events within a run. Time is the simulated time of the instant
// the event belongs to.
type Event struct {
	Seq    int64
	RunID  string
	Kind   EventKind
	Time   sim.Time
	Signal string

	// Clock is the clock of an edge, or the sampling clock of a sample.
	Clock string

	// Edge and Index identify an edge event: the Index-th edge of its
	// direction. Samples carry the index of the rising edge they follow.
	Edge  sim.Edge
	Index uint64

	Value uint64

	// Task is the name of the task that caused the event, if any.
	Task string
}

// Observer receives events synchronously from the running task.
// Implementations must not call back into the scheduler.
type Observer interface {
	Observe(ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev Event)

// Observe calls f(ev).
func (f ObserverFunc) Observe(ev Event) { f(ev) }
