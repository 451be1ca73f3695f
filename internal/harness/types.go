package harness

import "github.com/roach88/edgebench/internal/trace"

// Result is the outcome of a test scenario execution.
type Result struct {
	Scenario string `json:"scenario"`
	RunID    string `json:"run_id"`

	// Pass is true if the run finished and every assertion held.
	Pass bool `json:"pass"`

	// Errors contains the run failure, if any, and one message per failed
	// assertion. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// EndTime is the simulated time the run stopped at, e.g. "230ns".
	EndTime string `json:"end_time"`

	// Digest identifies the encoded trace; see trace.Digest.
	Digest string `json:"digest"`

	// RunErr is the error the engine returned, if any.
	RunErr error `json:"-"`

	// Trace holds every event of the run.
	Trace *trace.Trace `json:"-"`
}

// NewResult creates a new passing result.
func NewResult(scenario, runID string) *Result {
	return &Result{
		Scenario: scenario,
		RunID:    runID,
		Pass:     true,
		Errors:   []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
