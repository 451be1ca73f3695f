package sim

import "github.com/pkg/errors"

// Kernel failures. They are returned wrapped with context; compare with
// errors.Is or errors.Cause.
var (
	// ErrSignalNotFound is returned when a design does not expose a signal.
	ErrSignalNotFound = errors.New("signal not found")

	// ErrKernelClosed is returned by every operation after Close.
	ErrKernelClosed = errors.New("kernel closed")

	// ErrTimeReversed is returned when Advance is asked to move backwards.
	ErrTimeReversed = errors.New("simulated time cannot move backwards")

	// ErrDeltaOverflow is returned when a design does not settle within the
	// delta cycle budget, which usually means a combinational loop.
	ErrDeltaOverflow = errors.New("design did not settle")

	// ErrInexactTime is returned when a duration is not a whole number of
	// precision steps.
	ErrInexactTime = errors.New("duration is not representable at kernel precision")

	// ErrUnknownUnit is returned by ParseUnit for an unsupported time unit.
	ErrUnknownUnit = errors.New("unknown time unit")
)
