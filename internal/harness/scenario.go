package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/edgebench/internal/dut"
	"github.com/roach88/edgebench/internal/engine"
	"github.com/roach88/edgebench/internal/sim"
)

// Scenario is a test scenario as written in a YAML file.
// Scenarios drive a registered design with clocks, reset and stimulus and
// assert on the sampled values and edge timing of the run.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario checks.
	Description string `yaml:"description,omitempty"`

	// Design is a registered design name (see package dut).
	Design string `yaml:"design"`

	// Params override the design's default parameters.
	Params map[string]int64 `yaml:"params,omitempty"`

	// Precision is the simulator time step. Defaults to ns.
	Precision string `yaml:"precision,omitempty"`

	// TimeLimit aborts the run once simulated time would pass it, e.g. "10us".
	TimeLimit string `yaml:"time_limit,omitempty"`

	// RunID is an optional fixed run ID for deterministic traces.
	// If empty, defaults to "test-run-default".
	RunID string `yaml:"run_id,omitempty"`

	Clocks        []ClockSpec       `yaml:"clocks"`
	DerivedClocks []string          `yaml:"derived_clocks,omitempty"`
	Initial       map[string]uint64 `yaml:"initial,omitempty"`
	Reset         *ResetSpec        `yaml:"reset,omitempty"`
	Stimulus      *StimulusSpec     `yaml:"stimulus,omitempty"`
	Faults        []FaultSpec       `yaml:"faults,omitempty"`
	Monitors      []MonitorSpec     `yaml:"monitors,omitempty"`

	// Run keeps the scenario going for a number of rising edges after
	// reset. Without it the scenario ends once stimulus is applied.
	Run *RunSpec `yaml:"run,omitempty"`

	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// ClockSpec is a generated clock.
type ClockSpec struct {
	Signal   string `yaml:"signal"`
	Period   string `yaml:"period"`
	Duty     int    `yaml:"duty,omitempty"`
	StartLow bool   `yaml:"start_low,omitempty"`
}

// ResetSpec drives a reset signal on Clock, either as a standard
// idle/assert/deassert sequence or as an explicit list of Phases.
type ResetSpec struct {
	Signal string `yaml:"signal"`
	Clock  string `yaml:"clock"`
	// ActiveHigh defaults to true.
	ActiveHigh *bool `yaml:"active_high,omitempty"`
	Pre        int   `yaml:"pre,omitempty"`
	Active     int   `yaml:"active,omitempty"`
	Post       int   `yaml:"post,omitempty"`

	// Phases replaces Pre/Active/Post and ActiveHigh when set.
	Phases []PhaseSpec `yaml:"phases,omitempty"`
}

// PhaseSpec holds the reset signal at Value for Cycles rising edges.
type PhaseSpec struct {
	Cycles int    `yaml:"cycles"`
	Value  uint64 `yaml:"value"`
}

// phases returns the engine phases the reset drives.
func (r *ResetSpec) phases() []engine.Phase {
	if len(r.Phases) > 0 {
		out := make([]engine.Phase, len(r.Phases))
		for i, p := range r.Phases {
			out[i] = engine.Phase{Cycles: p.Cycles, Value: p.Value}
		}
		return out
	}
	activeHigh := r.ActiveHigh == nil || *r.ActiveHigh
	return engine.StandardReset(r.Pre, r.Active, r.Post, activeHigh)
}

func (r *ResetSpec) validate() error {
	if len(r.Phases) == 0 {
		if r.Active <= 0 {
			return fmt.Errorf("reset: active must be at least 1 cycle, got %d", r.Active)
		}
		return nil
	}
	if r.ActiveHigh != nil || r.Pre != 0 || r.Active != 0 || r.Post != 0 {
		return fmt.Errorf("reset: phases cannot be combined with pre/active/post/active_high")
	}
	for i, p := range r.Phases {
		if p.Cycles <= 0 {
			return fmt.Errorf("reset: phases[%d] must last at least 1 cycle, got %d", i, p.Cycles)
		}
	}
	return nil
}

// StimulusSpec lists values to drive at rising-edge offsets of Clock,
// counted from the end of reset.
type StimulusSpec struct {
	Clock   string      `yaml:"clock"`
	Entries []EntrySpec `yaml:"entries"`
}

// EntrySpec is one stimulus entry.
type EntrySpec struct {
	Signal string `yaml:"signal"`
	Value  uint64 `yaml:"value"`
	Offset int    `yaml:"offset"`
}

// FaultSpec overrides Signal from edge At until edge Release of Clock.
type FaultSpec struct {
	Signal  string `yaml:"signal"`
	Value   uint64 `yaml:"value"`
	Clock   string `yaml:"clock"`
	At      int    `yaml:"at"`
	Release int    `yaml:"release,omitempty"`
}

// MonitorSpec samples Signals after every rising edge of Clock.
type MonitorSpec struct {
	Clock   string   `yaml:"clock"`
	Signals []string `yaml:"signals"`
}

// RunSpec waits Cycles rising edges of Clock after reset.
type RunSpec struct {
	Clock  string `yaml:"clock"`
	Cycles int    `yaml:"cycles"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or violates the scenario schema.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	sc, err := ParseScenario(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

// ParseScenario parses and validates scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("scenario is empty")
	}
	if err := ValidateSchema(doc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	// Strict decode catches fields the schema let through by mistake.
	var sc Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&sc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&sc); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &sc, nil
}

// validateScenario checks what the schema cannot: cross references between
// sections and the design registry.
func validateScenario(s *Scenario) error {
	if _, ok := dut.Lookup(s.Design); !ok {
		return fmt.Errorf("design %q is not registered (known: %v)", s.Design, dut.Names())
	}
	if _, err := s.precision(); err != nil {
		return err
	}

	clocks := make(map[string]bool)
	for i, c := range s.Clocks {
		if clocks[c.Signal] {
			return fmt.Errorf("clocks[%d]: clock %q declared twice", i, c.Signal)
		}
		clocks[c.Signal] = true
	}
	for i, name := range s.DerivedClocks {
		if clocks[name] {
			return fmt.Errorf("derived_clocks[%d]: clock %q declared twice", i, name)
		}
		clocks[name] = true
	}
	known := func(where, clock string) error {
		if !clocks[clock] {
			return fmt.Errorf("%s: unknown clock %q", where, clock)
		}
		return nil
	}

	if s.Reset != nil {
		if err := known("reset", s.Reset.Clock); err != nil {
			return err
		}
		if err := s.Reset.validate(); err != nil {
			return err
		}
	}
	if s.Stimulus != nil {
		if err := known("stimulus", s.Stimulus.Clock); err != nil {
			return err
		}
	}
	for i, f := range s.Faults {
		if err := known(fmt.Sprintf("faults[%d]", i), f.Clock); err != nil {
			return err
		}
		if f.Release != 0 && f.Release <= f.At {
			return fmt.Errorf("faults[%d]: release %d must come after at %d", i, f.Release, f.At)
		}
	}
	for i, m := range s.Monitors {
		if err := known(fmt.Sprintf("monitors[%d]", i), m.Clock); err != nil {
			return err
		}
	}
	if s.Run != nil {
		if err := known("run", s.Run.Clock); err != nil {
			return err
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a, clocks); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scenario) precision() (sim.Unit, error) {
	if s.Precision == "" {
		return sim.Nanosecond, nil
	}
	u, err := sim.ParseUnit(s.Precision)
	if err != nil {
		return "", fmt.Errorf("precision: %w", err)
	}
	return u, nil
}
