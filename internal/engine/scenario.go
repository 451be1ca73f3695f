package engine

import (
	"context"
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// ScenarioFunc is the body of a scenario. It runs as the main task after
// clocks, reset, stimulus, faults and monitors are set up.
type ScenarioFunc func(t *Task, b *Bench) error

// Assignment is an initial signal value.
type Assignment struct {
	Signal string
	Value  uint64
}

// MonitorConfig samples Signals on every rising edge of Clock.
type MonitorConfig struct {
	Clock   string
	Signals []string
}

// Scenario is a validated, reusable test scenario.
type Scenario struct {
	name          string
	clocks        []ClockConfig
	derived       []string
	initial       []Assignment
	reset         *ResetConfig
	stimulusClock string
	stimulus      []Stimulus
	faults        []Fault
	monitors      []MonitorConfig
	body          ScenarioFunc
}

// Name returns the scenario name.
func (sc *Scenario) Name() string { return sc.name }

// ScenarioBuilder assembles a Scenario. The first invalid call is kept and
// reported by Build.
type ScenarioBuilder struct {
	sc  Scenario
	err error
}

// NewScenario starts a scenario description.
func NewScenario(name string) *ScenarioBuilder {
	b := &ScenarioBuilder{sc: Scenario{name: name}}
	if name == "" {
		b.err = &Error{Code: CodeMisuse, Message: "scenario name is empty"}
	}
	return b
}

// Clock adds a generated clock.
func (b *ScenarioBuilder) Clock(cfg ClockConfig) *ScenarioBuilder {
	if b.claim(cfg.Signal, DrivenByGenerator) {
		b.sc.clocks = append(b.sc.clocks, cfg)
	}
	return b
}

// DerivedClock declares a clock produced by the design.
func (b *ScenarioBuilder) DerivedClock(name string) *ScenarioBuilder {
	if b.claim(name, DrivenByDesign) {
		b.sc.derived = append(b.sc.derived, name)
	}
	return b
}

func (b *ScenarioBuilder) claim(clock string, driver DriverKind) bool {
	if b.err != nil {
		return false
	}
	for _, c := range b.sc.clocks {
		if c.Signal == clock {
			b.err = newDuplicateDriverError(clock, string(DrivenByGenerator))
			return false
		}
	}
	for _, d := range b.sc.derived {
		if d == clock {
			if driver == DrivenByDesign {
				return false
			}
			b.err = newDuplicateDriverError(clock, string(DrivenByDesign))
			return false
		}
	}
	return true
}

// Initial drives value onto signal before any task runs.
func (b *ScenarioBuilder) Initial(signal string, value uint64) *ScenarioBuilder {
	b.sc.initial = append(b.sc.initial, Assignment{Signal: signal, Value: value})
	return b
}

// Reset runs cfg before stimulus starts.
func (b *ScenarioBuilder) Reset(cfg ResetConfig) *ScenarioBuilder {
	if b.err != nil {
		return b
	}
	if err := validatePhases(cfg.Phases); err != nil {
		b.err = err
		return b
	}
	b.sc.reset = &cfg
	return b
}

// Stimulus applies entries on clock once reset is done.
func (b *ScenarioBuilder) Stimulus(clock string, entries ...Stimulus) *ScenarioBuilder {
	if b.err != nil {
		return b
	}
	if b.sc.stimulusClock != "" && b.sc.stimulusClock != clock {
		b.err = newInvalidSequenceError("stimulus already counted on %s, not %s", b.sc.stimulusClock, clock)
		return b
	}
	for i, e := range entries {
		if e.Offset < 0 {
			b.err = newInvalidSequenceError("stimulus entry %d has negative offset %d", i, e.Offset)
			return b
		}
	}
	b.sc.stimulusClock = clock
	b.sc.stimulus = append(b.sc.stimulus, entries...)
	return b
}

// Fault arms f once reset is done.
func (b *ScenarioBuilder) Fault(f Fault) *ScenarioBuilder {
	b.sc.faults = append(b.sc.faults, f)
	return b
}

// Monitor samples signals on every rising edge of clock for the whole run.
func (b *ScenarioBuilder) Monitor(clock string, signals ...string) *ScenarioBuilder {
	b.sc.monitors = append(b.sc.monitors, MonitorConfig{Clock: clock, Signals: signals})
	return b
}

// Body sets the scenario body.
func (b *ScenarioBuilder) Body(fn ScenarioFunc) *ScenarioBuilder {
	b.sc.body = fn
	return b
}

// Build returns the scenario or the first error found while building it.
func (b *ScenarioBuilder) Build() (*Scenario, error) {
	if b.err != nil {
		return nil, b.err
	}
	sc := b.sc
	return &sc, nil
}

// Bench gives a scenario body access to the running test bench.
type Bench struct {
	s        *Scheduler
	clocks   map[string]*ClockGenerator
	monitors []*Monitor
	stimulus *Task
	faults   []*Task
}

// Scheduler returns the scheduler running the scenario.
func (b *Bench) Scheduler() *Scheduler { return b.s }

// Signal returns the handle of a signal.
func (b *Bench) Signal(name string) (*SignalHandle, error) { return b.s.Signal(name) }

// Clock returns the generator of a clock.
func (b *Bench) Clock(name string) (*ClockGenerator, bool) {
	g, ok := b.clocks[name]
	return g, ok
}

// Monitors returns the scenario's monitors in declaration order.
func (b *Bench) Monitors() []*Monitor { return b.monitors }

// Stimulus returns the stimulus task, or nil if the scenario has none.
func (b *Bench) Stimulus() *Task { return b.stimulus }

// Faults returns the fault tasks in declaration order.
func (b *Bench) Faults() []*Task { return b.faults }

// Now returns the current simulated time.
func (b *Bench) Now() sim.Time { return b.s.Now() }

// Run executes the scenario against k.
//
// Clocks start and initial values are driven before any task runs. The main
// task then starts monitors, runs reset, starts stimulus and faults, and runs
// the body. Without a body the scenario ends when stimulus is applied and,
// if it has monitors, they have sampled the final edge.
func (sc *Scenario) Run(ctx context.Context, k sim.Kernel, opts ...Option) error {
	s := New(k, opts...)
	bench := &Bench{s: s, clocks: make(map[string]*ClockGenerator, len(sc.clocks))}

	for _, cfg := range sc.clocks {
		g, err := StartClock(s, cfg)
		if err != nil {
			return err
		}
		bench.clocks[cfg.Signal] = g
	}
	for _, name := range sc.derived {
		if _, err := s.TrackClock(name); err != nil {
			return err
		}
	}
	for _, a := range sc.initial {
		h, err := s.Signal(a.Signal)
		if err != nil {
			return fmt.Errorf("initial value: %w", err)
		}
		if err := h.Set(a.Value); err != nil {
			return fmt.Errorf("initial value: %w", err)
		}
	}

	s.logger.Info("scenario starting", "scenario", sc.name)
	return s.Run(ctx, func(t *Task) error {
		for _, mc := range sc.monitors {
			m, err := StartMonitor(s, mc.Clock, mc.Signals...)
			if err != nil {
				return err
			}
			bench.monitors = append(bench.monitors, m)
		}

		var stim *StimulusDriver
		if len(sc.stimulus) > 0 {
			d, err := NewStimulusDriver(s, sc.stimulusClock, sc.stimulus)
			if err != nil {
				return err
			}
			stim = d
		}
		if sc.reset != nil {
			if err := RunReset(t, *sc.reset); err != nil {
				return err
			}
		}
		if stim != nil {
			bench.stimulus = stim.Start(s)
		}
		for _, f := range sc.faults {
			ft, err := StartFault(s, f)
			if err != nil {
				return err
			}
			bench.faults = append(bench.faults, ft)
		}

		if sc.body != nil {
			return sc.body(t, bench)
		}
		if bench.stimulus != nil {
			if err := t.Await(Joined(bench.stimulus)); err != nil {
				return err
			}
			if err := bench.stimulus.Err(); err != nil {
				return err
			}
		}
		if len(bench.monitors) == 0 {
			return nil
		}
		return t.DrainSamples()
	})
}
