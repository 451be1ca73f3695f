package harness

import (
	"fmt"

	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// Build converts the scenario into an engine scenario. body, if non-nil,
// replaces the body derived from Run and Stimulus.
func (s *Scenario) Build(body engine.ScenarioFunc) (*engine.Scenario, error) {
	b := engine.NewScenario(s.Name)

	for _, c := range s.Clocks {
		period, unit, err := sim.ParseDuration(c.Period)
		if err != nil {
			return nil, fmt.Errorf("clock %s: %w", c.Signal, err)
		}
		b.Clock(engine.ClockConfig{
			Signal:      c.Signal,
			Period:      period,
			Unit:        unit,
			DutyPercent: c.Duty,
			StartLow:    c.StartLow,
		})
	}
	for _, name := range s.DerivedClocks {
		b.DerivedClock(name)
	}
	for _, name := range sortedSignals(s.Initial) {
		b.Initial(name, s.Initial[name])
	}
	if r := s.Reset; r != nil {
		b.Reset(engine.ResetConfig{Signal: r.Signal, Clock: r.Clock, Phases: r.phases()})
	}
	if st := s.Stimulus; st != nil && len(st.Entries) > 0 {
		entries := make([]engine.Stimulus, len(st.Entries))
		for i, e := range st.Entries {
			entries[i] = engine.Stimulus{Signal: e.Signal, Value: e.Value, Offset: e.Offset}
		}
		b.Stimulus(st.Clock, entries...)
	}
	for _, f := range s.Faults {
		b.Fault(engine.Fault{Signal: f.Signal, Value: f.Value, Clock: f.Clock, At: f.At, Release: f.Release})
	}
	for _, m := range s.Monitors {
		b.Monitor(m.Clock, m.Signals...)
	}

	if body == nil {
		body = s.body
	}
	b.Body(body)
	return b.Build()
}

// body waits for stimulus and the run length, whichever ends later, then
// lets monitors sample the final edge.
func (s *Scenario) body(t *engine.Task, b *engine.Bench) error {
	if s.Run != nil {
		if err := t.Cycles(s.Run.Clock, s.Run.Cycles); err != nil {
			return err
		}
	}
	if stim := b.Stimulus(); stim != nil {
		if err := t.Await(engine.Joined(stim)); err != nil {
			return err
		}
		if err := stim.Err(); err != nil {
			return err
		}
	}
	return t.DrainSamples()
}

// timeLimit converts TimeLimit to precision steps. Zero means no limit.
func (s *Scenario) timeLimit(precision sim.Unit) (sim.Time, error) {
	if s.TimeLimit == "" {
		return 0, nil
	}
	v, unit, err := sim.ParseDuration(s.TimeLimit)
	if err != nil {
		return 0, fmt.Errorf("time_limit: %w", err)
	}
	limit, err := sim.Convert(v, unit, precision)
	if err != nil {
		return 0, fmt.Errorf("time_limit: %w", err)
	}
	return limit, nil
}
