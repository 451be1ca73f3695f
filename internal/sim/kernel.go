package sim

// Edge is a clock transition on bit 0 of a signal. Edges form a bit set so a
// waiter can be sensitive to both.
type Edge uint8

const (
	// Rising is a 0 -> 1 transition.
	Rising Edge = 1 << iota
	// Falling is a 1 -> 0 transition.
	Falling

	// BothEdges matches either transition.
	BothEdges = Rising | Falling
)

func (e Edge) String() string {
	switch e {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	case BothEdges:
		return "any"
	default:
		return "none"
	}
}

// EdgeOf reports the transition of bit 0 between two values.
func EdgeOf(old, cur uint64) (Edge, bool) {
	switch {
	case old&1 == 0 && cur&1 == 1:
		return Rising, true
	case old&1 == 1 && cur&1 == 0:
		return Falling, true
	}
	return 0, false
}

// Change is a net change of a signal's observed value, as reported by Settle.
type Change struct {
	Signal string
	Old    uint64
	New    uint64
	Time   Time
}

// Signal is a kernel handle on one design signal.
//
// The observed value is the forced value while a force is active, and the
// last deposited (driven) value otherwise. Deposits made under a force are
// kept and become observable again on Release.
type Signal interface {
	Name() string
	Width() int
	Value() (uint64, error)
	Deposit(v uint64) error
	Force(v uint64) error
	Release() error
}

// Kernel is the cycle-true simulation kernel executing a loaded design.
type Kernel interface {
	// Now returns the current simulated time.
	Now() Time

	// Precision is the unit of one Time step.
	Precision() Unit

	// Signal looks up a top-level signal by name. Unknown names fail with
	// ErrSignalNotFound.
	Signal(name string) (Signal, error)

	// Signals lists the top-level signal names in declaration order.
	Signals() []string

	// Advance moves simulated time forward to t. Moving backwards fails with
	// ErrTimeReversed; advancing to Now is a no-op.
	Advance(t Time) error

	// Settle runs the design to a fixed point and returns the net observed
	// value changes since the previous Settle, in first-touch order.
	//
	// The first Settle establishes the initial state: values deposited before
	// it report no changes and trigger no processes.
	Settle() ([]Change, error)

	// Close releases the design. Every later call fails with ErrKernelClosed.
	Close() error
}
