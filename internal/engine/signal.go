package engine

import (
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// SignalHandle is a test-bench handle on one kernel signal.
//
// A value written with Set is visible to Value immediately; clocked logic in
// the design samples it on the next active edge. Override takes precedence
// over every driven value until Release.
type SignalHandle struct {
	s          *Scheduler
	sig        sim.Signal
	overridden bool
}

// Name returns the signal name.
func (h *SignalHandle) Name() string { return h.sig.Name() }

// Width returns the signal width in bits.
func (h *SignalHandle) Width() int { return h.sig.Width() }

// Value returns the observed value. Kernel errors are returned unchanged.
func (h *SignalHandle) Value() (uint64, error) { return h.sig.Value() }

// Overridden reports whether an override is active.
func (h *SignalHandle) Overridden() bool { return h.overridden }

// Set drives v onto the signal.
func (h *SignalHandle) Set(v uint64) error {
	return h.drive(v, true)
}

func (h *SignalHandle) drive(v uint64, observed bool) error {
	if err := h.check(v); err != nil {
		return err
	}
	if err := h.sig.Deposit(v); err != nil {
		return err
	}
	if observed {
		h.s.emit(Event{Kind: EventWrite, Signal: h.Name(), Value: v})
	}
	return nil
}

// Override forces v onto the signal until Release.
func (h *SignalHandle) Override(v uint64) error {
	if err := h.check(v); err != nil {
		return err
	}
	if h.overridden {
		return newOverrideConflictError(h.Name())
	}
	if err := h.sig.Force(v); err != nil {
		return err
	}
	h.overridden = true
	h.s.logger.Debug("signal overridden", "signal", h.Name(), "value", v, "time", h.s.formatNow())
	h.s.emit(Event{Kind: EventOverride, Signal: h.Name(), Value: v})
	return nil
}

// Release ends an override; the signal reverts to its normally driven value.
// Releasing a signal that is not overridden does nothing.
func (h *SignalHandle) Release() error {
	if !h.overridden {
		return nil
	}
	if h.s.phase == phaseReadOnly {
		return h.readOnlyError()
	}
	if err := h.sig.Release(); err != nil {
		return err
	}
	h.overridden = false
	v, err := h.sig.Value()
	if err != nil {
		return err
	}
	h.s.logger.Debug("signal released", "signal", h.Name(), "value", v, "time", h.s.formatNow())
	h.s.emit(Event{Kind: EventRelease, Signal: h.Name(), Value: v})
	return nil
}

func (h *SignalHandle) check(v uint64) error {
	if h.s.phase == phaseReadOnly {
		return h.readOnlyError()
	}
	if w := h.Width(); w < 64 && v>>uint(w) != 0 {
		return &Error{
			Code:    CodeValueRange,
			Message: fmt.Sprintf("value %d does not fit in %d bits", v, w),
			Signal:  h.Name(),
		}
	}
	return nil
}

func (h *SignalHandle) readOnlyError() error {
	return &Error{Code: CodeReadOnly, Message: "write during the read-only phase", Signal: h.Name()}
}
