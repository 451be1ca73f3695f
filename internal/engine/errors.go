package engine

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned by Await once the awaiting task has been cancelled.
// Tasks should return it (or any error wrapping it) unchanged; the scheduler
// does not treat it as a failure.
var ErrCancelled = errors.New("task cancelled")

// Error is a test-authoring error detected by the engine.
//
// All of them are raised synchronously by the call that caused them and none
// are retryable: they describe a defect in the scenario, not a transient
// condition. Kernel failures are never converted into an Error; they propagate
// wrapped with context only.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Signal is the signal involved, if any.
	Signal string

	// Clock is the clock involved, if any.
	Clock string
}

// ErrorCode categorizes engine errors.
type ErrorCode string

const (
	// CodeUnknownClock: a wait was registered against a clock that is neither
	// driven by a generator nor declared as a derived clock.
	CodeUnknownClock ErrorCode = "UNKNOWN_CLOCK"

	// CodeDuplicateDriver: a second driver was attached to a clock.
	CodeDuplicateDriver ErrorCode = "DUPLICATE_DRIVER"

	// CodeInvalidSequence: a reset or stimulus sequence is malformed.
	CodeInvalidSequence ErrorCode = "INVALID_SEQUENCE"

	// CodeOverrideConflict: override requested on an already-overridden signal.
	CodeOverrideConflict ErrorCode = "OVERRIDE_CONFLICT"

	// CodeInvalidClock: a clock configuration cannot be realized exactly.
	CodeInvalidClock ErrorCode = "INVALID_CLOCK"

	// CodeValueRange: a value does not fit the signal width.
	CodeValueRange ErrorCode = "VALUE_RANGE"

	// CodeReadOnly: a write was attempted during the read-only phase.
	CodeReadOnly ErrorCode = "READ_ONLY"

	// CodeStalled: nothing can make progress while the scenario still waits.
	CodeStalled ErrorCode = "STALLED"

	// CodeTimeLimit: the scenario ran past its simulated time limit.
	CodeTimeLimit ErrorCode = "TIME_LIMIT"

	// CodeLivelock: tasks kept resuming each other without time advancing.
	CodeLivelock ErrorCode = "LIVELOCK"

	// CodeMisuse: the API was called outside its contract (e.g. Await from a
	// task that is not currently running).
	CodeMisuse ErrorCode = "MISUSE"
)

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Signal != "" && e.Clock != "":
		return fmt.Sprintf("%s: %s (signal=%s, clock=%s)", e.Code, e.Message, e.Signal, e.Clock)
	case e.Signal != "":
		return fmt.Sprintf("%s: %s (signal=%s)", e.Code, e.Message, e.Signal)
	case e.Clock != "":
		return fmt.Sprintf("%s: %s (clock=%s)", e.Code, e.Message, e.Clock)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// HasCode reports whether err is, or wraps, an *Error with the given code.
func HasCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// IsUnknownClock reports whether err is an UnknownClockError.
func IsUnknownClock(err error) bool { return HasCode(err, CodeUnknownClock) }

// IsDuplicateDriver reports whether err is a DuplicateDriverError.
func IsDuplicateDriver(err error) bool { return HasCode(err, CodeDuplicateDriver) }

// IsInvalidSequence reports whether err is an InvalidSequenceError.
func IsInvalidSequence(err error) bool { return HasCode(err, CodeInvalidSequence) }

// IsOverrideConflict reports whether err is an OverrideConflictError.
func IsOverrideConflict(err error) bool { return HasCode(err, CodeOverrideConflict) }

func newUnknownClockError(clock string) *Error {
	return &Error{
		Code:    CodeUnknownClock,
		Message: "no generator or derived declaration for this clock",
		Clock:   clock,
	}
}

func newDuplicateDriverError(clock, existing string) *Error {
	return &Error{
		Code:    CodeDuplicateDriver,
		Message: fmt.Sprintf("clock is already driven by %s", existing),
		Clock:   clock,
	}
}

func newInvalidSequenceError(format string, args ...any) *Error {
	return &Error{
		Code:    CodeInvalidSequence,
		Message: fmt.Sprintf(format, args...),
	}
}

func newOverrideConflictError(signal string) *Error {
	return &Error{
		Code:    CodeOverrideConflict,
		Message: "signal is already overridden; release it first",
		Signal:  signal,
	}
}
