package engine

import "github.com/roach88/edgebench/internal/sim"

// DriverKind says what produces a clock's edges.
type DriverKind string

const (
	// DrivenByGenerator clocks are toggled by a ClockGenerator.
	DrivenByGenerator DriverKind = "generator"

	// DrivenByDesign clocks are outputs of the design, declared with
	// TrackClock.
	DrivenByDesign DriverKind = "design"
)

// EdgeStream is the sequence of observed edges of one clock.
//
// Edge counts start at zero; the level the clock has when it starts being
// tracked is a baseline, not an edge.
type EdgeStream struct {
	name    string
	driver  DriverKind
	level   bool
	rising  uint64
	falling uint64
	last    sim.Time
	waiters []edgeWaiter
}

type edgeWaiter struct {
	w    wakeup
	edge sim.Edge
}

// Name returns the clock signal name.
func (st *EdgeStream) Name() string { return st.name }

// Driver returns what drives the clock.
func (st *EdgeStream) Driver() DriverKind { return st.driver }

// Level reports the last observed level.
func (st *EdgeStream) Level() bool { return st.level }

// Rising returns the number of rising edges observed so far.
func (st *EdgeStream) Rising() uint64 { return st.rising }

// Falling returns the number of falling edges observed so far.
func (st *EdgeStream) Falling() uint64 { return st.falling }

// LastEdge returns the time of the most recent edge, or 0 if none.
func (st *EdgeStream) LastEdge() sim.Time { return st.last }

// Waiting returns the number of tasks registered for an edge.
func (st *EdgeStream) Waiting() int {
	n := 0
	for _, ew := range st.waiters {
		if !ew.w.stale() {
			n++
		}
	}
	return n
}
