package engine

import (
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// ClockConfig describes a periodic clock.
type ClockConfig struct {
	// Signal is the 1-bit clock signal.
	Signal string

	// Period is the clock period in Unit. An empty Unit means the kernel
	// precision.
	Period int64
	Unit   sim.Unit

	// DutyPercent is the share of the period spent high, in (0, 100).
	// Zero means 50.
	DutyPercent int

	// StartLow starts the clock low. By default it starts high, so the first
	// rising edge comes one full period after start.
	StartLow bool
}

// ClockGenerator toggles a clock signal for the rest of the run.
//
// Toggle times are absolute: with start time s, high phase h and low phase l,
// a clock starting high falls at s+h, rises at s+h+l, and so on, so the k-th
// rising edge lands at exactly s + k*period.
type ClockGenerator struct {
	cfg    ClockConfig
	handle *SignalHandle
	stream *EdgeStream
	period sim.Time
	high   sim.Time
	low    sim.Time
	start  sim.Time
	task   *Task
}

// StartClock validates cfg, drives the clock to its initial level and starts
// its generator task. At most one generator may drive a clock.
func StartClock(s *Scheduler, cfg ClockConfig) (*ClockGenerator, error) {
	if st, ok := s.streams[cfg.Signal]; ok {
		return nil, newDuplicateDriverError(cfg.Signal, string(st.driver))
	}
	period, high, err := clockPhases(cfg, s.Precision())
	if err != nil {
		return nil, err
	}
	h, err := s.clockHandle(cfg.Signal)
	if err != nil {
		return nil, err
	}
	if err := h.drive(levelValue(!cfg.StartLow), false); err != nil {
		return nil, err
	}
	st, err := s.track(h, DrivenByGenerator)
	if err != nil {
		return nil, err
	}

	g := &ClockGenerator{
		cfg:    cfg,
		handle: h,
		stream: st,
		period: period,
		high:   high,
		low:    period - high,
		start:  s.Now(),
	}
	g.task = s.Start("clock:"+cfg.Signal, g.run)
	s.logger.Info("clock started",
		"clock", cfg.Signal,
		"period", sim.FormatTime(period, s.Precision()),
		"high", sim.FormatTime(g.high, s.Precision()),
		"start_low", cfg.StartLow)
	return g, nil
}

func clockPhases(cfg ClockConfig, precision sim.Unit) (period, high sim.Time, err error) {
	invalid := func(format string, args ...any) error {
		return &Error{Code: CodeInvalidClock, Message: fmt.Sprintf(format, args...), Clock: cfg.Signal}
	}
	if cfg.Signal == "" {
		return 0, 0, invalid("clock signal name is empty")
	}
	unit := cfg.Unit
	if unit == "" {
		unit = precision
	}
	period, err = sim.Convert(cfg.Period, unit, precision)
	if err != nil {
		return 0, 0, invalid("period %d%s: %v", cfg.Period, unit, err)
	}
	if period <= 0 {
		return 0, 0, invalid("period must be positive, got %d%s", cfg.Period, unit)
	}
	duty := cfg.DutyPercent
	if duty == 0 {
		duty = 50
	}
	if duty < 0 || duty >= 100 {
		return 0, 0, invalid("duty cycle %d%% outside (0, 100)", duty)
	}
	if int64(period)*int64(duty)%100 != 0 {
		return 0, 0, invalid("%d%% of %s is not a whole number of %s steps",
			duty, sim.FormatTime(period, precision), precision)
	}
	return period, period * sim.Time(duty) / 100, nil
}

func (g *ClockGenerator) run(t *Task) error {
	level := !g.cfg.StartLow
	next := g.start
	for {
		if level {
			next += g.high
		} else {
			next += g.low
		}
		if err := t.Await(At(next)); err != nil {
			return err
		}
		level = !level
		if err := g.handle.drive(levelValue(level), false); err != nil {
			return err
		}
	}
}

// Signal returns the clock signal name.
func (g *ClockGenerator) Signal() string { return g.cfg.Signal }

// Period returns the period in precision steps.
func (g *ClockGenerator) Period() sim.Time { return g.period }

// High returns the length of the high phase in precision steps.
func (g *ClockGenerator) High() sim.Time { return g.high }

// Low returns the length of the low phase in precision steps.
func (g *ClockGenerator) Low() sim.Time { return g.low }

// Stream returns the clock's edge stream.
func (g *ClockGenerator) Stream() *EdgeStream { return g.stream }

// Task returns the generator task.
func (g *ClockGenerator) Task() *Task { return g.task }

func levelValue(high bool) uint64 {
	if high {
		return 1
	}
	return 0
}
