package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/engine"
)

const minimalYAML = `
name: minimal
design: register
clocks:
  - signal: clk_i
    period: 10ns
`

func TestParseScenario_Minimal(t *testing.T) {
	sc, err := ParseScenario([]byte(minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, "minimal", sc.Name)
	assert.Equal(t, "register", sc.Design)
	require.Len(t, sc.Clocks, 1)
	assert.Equal(t, ClockSpec{Signal: "clk_i", Period: "10ns"}, sc.Clocks[0])
	assert.Nil(t, sc.Reset)
	assert.Nil(t, sc.Run)
}

func TestLoadScenario_Files(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "pwm_half.yaml"))
	require.NoError(t, err)

	assert.Equal(t, map[string]int64{"divider": 4}, sc.Params)
	assert.Equal(t, []string{"clk_pwm"}, sc.DerivedClocks)
	assert.Equal(t, map[string]uint64{"duty_cycle_in": 50}, sc.Initial)
	require.NotNil(t, sc.Reset)
	assert.Nil(t, sc.Reset.ActiveHigh)
	assert.Equal(t, 4, sc.Reset.Active)
	require.NotNil(t, sc.Run)
	assert.Equal(t, RunSpec{Clock: "clk_pwm", Cycles: 101}, *sc.Run)
	assert.Len(t, sc.Assertions, 3)
}

func TestLoadScenario_MissingFile(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read scenario file")
}

func TestLoadScenario_PrefixesPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: x\n"), 0o644))

	_, err := LoadScenario(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestParseScenario_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"empty", "", "scenario is empty"},
		{"malformed", "name: [", "failed to parse YAML"},
		{"missing design", "name: x\nclocks: [{signal: clk, period: 10ns}]\n", "invalid scenario"},
		{"no clocks", "name: x\ndesign: register\nclocks: []\n", "invalid scenario"},
		{"typo field", minimalYAML + "asertions: []\n", "invalid scenario"},
		{"bad period", "name: x\ndesign: register\nclocks: [{signal: clk_i, period: 10 nanoseconds}]\n", "invalid scenario"},
		{"bad duty", "name: x\ndesign: register\nclocks: [{signal: clk_i, period: 10ns, duty: 100}]\n", "invalid scenario"},
		{"bad precision", minimalYAML + "precision: ks\n", "invalid scenario"},
		{"negative offset", minimalYAML + "stimulus: {clock: clk_i, entries: [{signal: d, value: 1, offset: -1}]}\n", "invalid scenario"},
		{"unknown assertion", minimalYAML + "assertions: [{type: eventually, clock: clk_i}]\n", "invalid scenario"},
		{"unregistered design", "name: x\ndesign: alu\nclocks: [{signal: clk_i, period: 10ns}]\n", `design "alu" is not registered`},
		{"duplicate clock", minimalYAML + "derived_clocks: [clk_i]\n", `clock "clk_i" declared twice`},
		{"reset on unknown clock", minimalYAML + "reset: {signal: rst_i, clock: clk_x, active: 2}\n", `reset: unknown clock "clk_x"`},
		{"run on unknown clock", minimalYAML + "run: {clock: clk_x, cycles: 2}\n", `run: unknown clock "clk_x"`},
		{"fault release before at", minimalYAML + "faults: [{signal: d, value: 1, clock: clk_i, at: 4, release: 2}]\n", "release 2 must come after at 4"},
		{"stable range reversed", minimalYAML + "assertions: [{type: stable, signal: q, clock: clk_i, from: 5, to: 2, value: 0}]\n", "requires 1 <= from <= to"},
		{"reset phases with active", minimalYAML + "reset: {signal: rst_i, clock: clk_i, active: 2, phases: [{cycles: 1, value: 1}]}\n", "invalid scenario"},
		{"reset phase without cycles", minimalYAML + "reset: {signal: rst_i, clock: clk_i, phases: [{cycles: 0, value: 1}]}\n", "invalid scenario"},
		{"reset phases empty", minimalYAML + "reset: {signal: rst_i, clock: clk_i, phases: []}\n", "invalid scenario"},
		{"edge_time any", minimalYAML + "assertions: [{type: edge_time, clock: clk_i, edge: any, index: 1, time: 10ns}]\n", "invalid scenario"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateSchema_ReportsPath(t *testing.T) {
	err := ValidateSchema(map[string]any{
		"name":   "x",
		"design": "register",
		"clocks": []any{map[string]any{"signal": "clk_i", "period": "ten"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema violation")
	assert.Contains(t, err.Error(), "period")
}

func TestBuild_ActiveLowReset(t *testing.T) {
	sc, err := ParseScenario([]byte(minimalYAML + "reset: {signal: rst_i, clock: clk_i, active_high: false, pre: 1, active: 2}\n"))
	require.NoError(t, err)
	require.NotNil(t, sc.Reset.ActiveHigh)
	assert.False(t, *sc.Reset.ActiveHigh)

	_, err = sc.Build(nil)
	require.NoError(t, err)
}

func TestLoadScenario_PhasedReset(t *testing.T) {
	sc, err := LoadScenario(filepath.Join("testdata", "scenarios", "pwm_sweep.yaml"))
	require.NoError(t, err)
	require.NotNil(t, sc.Reset)
	assert.Equal(t, []PhaseSpec{{Cycles: 2, Value: 0}, {Cycles: 4, Value: 1}, {Cycles: 1, Value: 0}}, sc.Reset.Phases)
	assert.Equal(t, []engine.Phase{{Cycles: 2, Value: 0}, {Cycles: 4, Value: 1}, {Cycles: 1, Value: 0}}, sc.Reset.phases())
	require.NotNil(t, sc.Stimulus)
	assert.Len(t, sc.Stimulus.Entries, 7)

	_, err = sc.Build(nil)
	require.NoError(t, err)
}

func TestResetSpec_Validate(t *testing.T) {
	high := true
	tests := []struct {
		name  string
		reset ResetSpec
		want  string
	}{
		{"standard", ResetSpec{Active: 2}, ""},
		{"standard without active", ResetSpec{Pre: 1}, "active must be at least 1 cycle"},
		{"phases", ResetSpec{Phases: []PhaseSpec{{Cycles: 1, Value: 1}}}, ""},
		{"phases and active", ResetSpec{Active: 1, Phases: []PhaseSpec{{Cycles: 1, Value: 1}}}, "cannot be combined"},
		{"phases and polarity", ResetSpec{ActiveHigh: &high, Phases: []PhaseSpec{{Cycles: 1, Value: 1}}}, "cannot be combined"},
		{"zero-cycle phase", ResetSpec{Phases: []PhaseSpec{{Cycles: 1, Value: 1}, {Cycles: 0}}}, "phases[1] must last at least 1 cycle"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.reset.validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestResetSpec_StandardPhases(t *testing.T) {
	low := false
	r := ResetSpec{ActiveHigh: &low, Pre: 1, Active: 2}
	assert.Equal(t, []engine.Phase{{Cycles: 1, Value: 1}, {Cycles: 2, Value: 0}}, r.phases())
}

func TestTimeLimit(t *testing.T) {
	sc := &Scenario{TimeLimit: "2us"}
	limit, err := sc.timeLimit("ns")
	require.NoError(t, err)
	assert.EqualValues(t, 2000, limit)

	sc.TimeLimit = ""
	limit, err = sc.timeLimit("ns")
	require.NoError(t, err)
	assert.Zero(t, limit)
}
