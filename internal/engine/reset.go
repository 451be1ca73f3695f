package engine

import "fmt"

// Phase holds Value on the reset signal for Cycles rising edges.
type Phase struct {
	Cycles int
	Value  uint64
}

// ResetConfig describes a reset sequence on Signal, counted on Clock.
type ResetConfig struct {
	Signal string
	Clock  string
	Phases []Phase
}

// StandardReset builds the usual idle/assert/deassert sequence. Zero-length
// idle or deassert phases are omitted.
func StandardReset(pre, active, post int, activeHigh bool) []Phase {
	on, off := uint64(1), uint64(0)
	if !activeHigh {
		on, off = 0, 1
	}
	var phases []Phase
	if pre > 0 {
		phases = append(phases, Phase{Cycles: pre, Value: off})
	}
	phases = append(phases, Phase{Cycles: active, Value: on})
	if post > 0 {
		phases = append(phases, Phase{Cycles: post, Value: off})
	}
	return phases
}

// ResetSequencer drives a reset signal through its phases. A sequencer runs
// once.
type ResetSequencer struct {
	cfg    ResetConfig
	handle *SignalHandle
	used   bool
}

// NewResetSequencer validates cfg. Malformed phases fail with
// CodeInvalidSequence before anything is driven.
func NewResetSequencer(s *Scheduler, cfg ResetConfig) (*ResetSequencer, error) {
	if err := validatePhases(cfg.Phases); err != nil {
		return nil, err
	}
	if _, ok := s.streams[cfg.Clock]; !ok {
		return nil, newUnknownClockError(cfg.Clock)
	}
	h, err := s.Signal(cfg.Signal)
	if err != nil {
		return nil, err
	}
	for i, p := range cfg.Phases {
		if err := h.check(p.Value); err != nil {
			return nil, fmt.Errorf("reset phase %d: %w", i, err)
		}
	}
	phases := make([]Phase, len(cfg.Phases))
	copy(phases, cfg.Phases)
	cfg.Phases = phases
	return &ResetSequencer{cfg: cfg, handle: h}, nil
}

func validatePhases(phases []Phase) error {
	if len(phases) == 0 {
		return newInvalidSequenceError("reset sequence has no phases")
	}
	for i, p := range phases {
		if p.Cycles <= 0 {
			return newInvalidSequenceError("reset phase %d has %d cycles", i, p.Cycles)
		}
	}
	return nil
}

// Run drives every phase in order from the calling task. It returns when the
// last phase's cycles have elapsed.
func (r *ResetSequencer) Run(t *Task) error {
	if r.used {
		return newInvalidSequenceError("reset sequence on %s already ran", r.cfg.Signal)
	}
	r.used = true

	log := t.sched.logger
	for i, p := range r.cfg.Phases {
		if err := r.handle.Set(p.Value); err != nil {
			return fmt.Errorf("reset phase %d: %w", i, err)
		}
		log.Debug("reset phase", "signal", r.cfg.Signal, "phase", i, "value", p.Value, "cycles", p.Cycles)
		if err := t.Cycles(r.cfg.Clock, p.Cycles); err != nil {
			return err
		}
	}
	log.Info("reset done", "signal", r.cfg.Signal, "time", t.sched.formatNow())
	return nil
}

// RunReset validates cfg and runs it from t.
func RunReset(t *Task, cfg ResetConfig) error {
	r, err := NewResetSequencer(t.sched, cfg)
	if err != nil {
		return err
	}
	return r.Run(t)
}
