// Package sim defines the simulation kernel that edgebench drives, and ships an
// in-process reference kernel.
//
// The kernel owns simulated time and the design's signals. The verification
// core never evaluates design logic itself: it deposits values, advances time
// and asks the kernel to settle, and reads back the net value changes that
// happened since the previous settle.
//
// A real HDL simulator is adapted by implementing Kernel and Signal. Memory is
// the reference implementation used by the tests, the harness and the CLI: a
// design is a set of ports plus clocked processes written in Go.
//
// # Settling
//
// Settle runs delta cycles until the design is stable. In every delta, each
// signal whose observed value changed is reported once (in first-touch order),
// and every process sensitive to an edge among those changes runs against the
// pre-delta values. Process writes are buffered in a Frame and committed once
// all processes of the delta have run, which gives non-blocking assignment
// semantics:
//
//	b.OnEdge(clk, sim.Rising, func(f *sim.Frame) {
//		f.Set(q, f.Get(d)) // d is sampled before any write of this delta lands
//	})
//
// # Time
//
// Time is an integer count of precision steps. Conversions between units are
// exact or fail with ErrInexactTime; nothing is ever rounded.
package sim
