package harness

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/edgebench/internal/sim"
	"github.com/roach88/edgebench/internal/store"
)

// Assertion checks the recorded run.
type Assertion struct {
	// Type specifies the assertion type:
	// - "value_at": Signal sampled at rising edge Index of Clock equals Value
	// - "stable": every sample of Signal in edges [From, To] equals Value
	// - "high_count": Count samples of Signal in edges [From, To] are non-zero
	// - "edge_time": edge Index of Clock in direction Edge happened at Time
	// - "edge_count": Clock made Count edges in direction Edge
	Type string `yaml:"type"`

	Signal string `yaml:"signal,omitempty"`
	Clock  string `yaml:"clock,omitempty"`

	// Edge is "rising", "falling" or, for edge_count only, "any".
	Edge string `yaml:"edge,omitempty"`

	Index uint64 `yaml:"index,omitempty"`
	From  uint64 `yaml:"from,omitempty"`
	To    uint64 `yaml:"to,omitempty"`
	Value uint64 `yaml:"value,omitempty"`
	Count uint64 `yaml:"count,omitempty"`

	// Time is a duration such as "30ns".
	Time string `yaml:"time,omitempty"`
}

// Assertion type constants.
const (
	AssertValueAt   = "value_at"
	AssertStable    = "stable"
	AssertHighCount = "high_count"
	AssertEdgeTime  = "edge_time"
	AssertEdgeCount = "edge_count"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Expected string // Human-readable expected outcome
	Actual   string // Human-readable actual outcome
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s", e.Actual)
	return buf.String()
}

// AssertionContext gives assertions access to the stored run.
type AssertionContext struct {
	Store     *store.Store
	Ctx       context.Context
	RunID     string
	Precision sim.Unit
}

// EvaluateAssertions evaluates all assertions against the stored run.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(assertions []Assertion, actx *AssertionContext) []string {
	var msgs []string

	for i, assertion := range assertions {
		var err error
		if actx == nil || actx.Store == nil {
			err = fmt.Errorf("assertion[%d]: %s requires a store", i, assertion.Type)
		} else {
			switch assertion.Type {
			case AssertValueAt:
				err = assertValueAt(actx, assertion)
			case AssertStable:
				err = assertStable(actx, assertion)
			case AssertHighCount:
				err = assertHighCount(actx, assertion)
			case AssertEdgeTime:
				err = assertEdgeTime(actx, assertion)
			case AssertEdgeCount:
				err = assertEdgeCount(actx, assertion)
			default:
				err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
			}
		}

		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}

	return msgs
}

func assertValueAt(actx *AssertionContext, a Assertion) error {
	v, err := actx.Store.SampleAt(actx.Ctx, actx.RunID, a.Clock, a.Signal, a.Index)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{
			Type:     AssertValueAt,
			Expected: fmt.Sprintf("%s = %d at %s edge %d", a.Signal, a.Value, a.Clock, a.Index),
			Actual:   "no sample recorded (is the signal monitored and did the run reach the edge?)",
		}
	}
	if err != nil {
		return err
	}
	if v != a.Value {
		return &AssertionError{
			Type:     AssertValueAt,
			Expected: fmt.Sprintf("%s = %d at %s edge %d", a.Signal, a.Value, a.Clock, a.Index),
			Actual:   fmt.Sprintf("%s = %d", a.Signal, v),
		}
	}
	return nil
}

func assertStable(actx *AssertionContext, a Assertion) error {
	samples, err := actx.Store.Samples(actx.Ctx, actx.RunID, a.Clock, a.Signal, a.From, a.To)
	if err != nil {
		return err
	}
	expected := fmt.Sprintf("%s = %d on %s edges %d..%d", a.Signal, a.Value, a.Clock, a.From, a.To)
	if want := a.To - a.From + 1; uint64(len(samples)) != want {
		return &AssertionError{
			Type:     AssertStable,
			Expected: expected,
			Actual:   fmt.Sprintf("%d of %d samples recorded", len(samples), want),
		}
	}
	for _, smp := range samples {
		if smp.Value != a.Value {
			return &AssertionError{
				Type:     AssertStable,
				Expected: expected,
				Actual:   fmt.Sprintf("%s = %d at edge %d", a.Signal, smp.Value, smp.Index),
			}
		}
	}
	return nil
}

func assertHighCount(actx *AssertionContext, a Assertion) error {
	samples, err := actx.Store.Samples(actx.Ctx, actx.RunID, a.Clock, a.Signal, a.From, a.To)
	if err != nil {
		return err
	}
	expected := fmt.Sprintf("%s high on %d of %s edges %d..%d", a.Signal, a.Count, a.Clock, a.From, a.To)
	if want := a.To - a.From + 1; uint64(len(samples)) != want {
		return &AssertionError{
			Type:     AssertHighCount,
			Expected: expected,
			Actual:   fmt.Sprintf("%d of %d samples recorded", len(samples), want),
		}
	}
	var high uint64
	for _, smp := range samples {
		if smp.Value != 0 {
			high++
		}
	}
	if high != a.Count {
		return &AssertionError{
			Type:     AssertHighCount,
			Expected: expected,
			Actual:   fmt.Sprintf("high on %d", high),
		}
	}
	return nil
}

func assertEdgeTime(actx *AssertionContext, a Assertion) error {
	edge, err := parseEdge(a.Edge)
	if err != nil {
		return err
	}
	v, unit, err := sim.ParseDuration(a.Time)
	if err != nil {
		return err
	}
	want, err := sim.Convert(v, unit, actx.Precision)
	if err != nil {
		return err
	}
	expected := fmt.Sprintf("%s edge %d of %s at %s", a.Edge, a.Index, a.Clock, sim.FormatTime(want, actx.Precision))

	got, err := actx.Store.EdgeTime(actx.Ctx, actx.RunID, a.Clock, edge, a.Index)
	if errors.Is(err, store.ErrNotFound) {
		return &AssertionError{Type: AssertEdgeTime, Expected: expected, Actual: "edge never happened"}
	}
	if err != nil {
		return err
	}
	if got != want {
		return &AssertionError{
			Type:     AssertEdgeTime,
			Expected: expected,
			Actual:   "at " + sim.FormatTime(got, actx.Precision),
		}
	}
	return nil
}

func assertEdgeCount(actx *AssertionContext, a Assertion) error {
	edge, err := parseEdge(a.Edge)
	if err != nil {
		return err
	}
	n, err := actx.Store.EdgeCount(actx.Ctx, actx.RunID, a.Clock, edge)
	if err != nil {
		return err
	}
	if n != a.Count {
		return &AssertionError{
			Type:     AssertEdgeCount,
			Expected: fmt.Sprintf("%d %s edges of %s", a.Count, a.Edge, a.Clock),
			Actual:   fmt.Sprintf("%d", n),
		}
	}
	return nil
}

func parseEdge(s string) (sim.Edge, error) {
	switch s {
	case "rising":
		return sim.Rising, nil
	case "falling":
		return sim.Falling, nil
	case "any":
		return sim.BothEdges, nil
	}
	return 0, fmt.Errorf("unknown edge %q", s)
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion, clocks map[string]bool) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}
	if !clocks[a.Clock] {
		return fmt.Errorf("assertions[%d]: unknown clock %q", index, a.Clock)
	}
	switch a.Type {
	case AssertValueAt:
		if a.Index == 0 {
			return fmt.Errorf("assertions[%d]: value_at requires index >= 1", index)
		}
	case AssertStable, AssertHighCount:
		if a.From == 0 || a.To < a.From {
			return fmt.Errorf("assertions[%d]: %s requires 1 <= from <= to, got %d..%d", index, a.Type, a.From, a.To)
		}
		if a.Type == AssertHighCount && a.Count > a.To-a.From+1 {
			return fmt.Errorf("assertions[%d]: high_count %d exceeds the %d edges in range", index, a.Count, a.To-a.From+1)
		}
	case AssertEdgeTime:
		if a.Edge == "any" {
			return fmt.Errorf("assertions[%d]: edge_time needs a rising or falling edge", index)
		}
		if _, err := parseEdge(a.Edge); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
		if _, _, err := sim.ParseDuration(a.Time); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	case AssertEdgeCount:
		if _, err := parseEdge(a.Edge); err != nil {
			return fmt.Errorf("assertions[%d]: %w", index, err)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
