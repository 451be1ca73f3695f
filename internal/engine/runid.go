package engine

import "github.com/google/uuid"

// RunIDGenerator produces the ID stamped on every event of a run.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so runs stored side
// by side sort by start time.
type UUIDv7Generator struct{}

// Generate returns a new hyphenated UUIDv7.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// DefaultRunID is the ID FixedRunID falls back to when none is given.
const DefaultRunID = "test-run-default"

// FixedRunID generates the same run ID every time, so repeated runs of a
// scenario produce byte-identical traces.
type FixedRunID struct {
	id string
}

// NewFixedRunID creates a generator for id. An empty id becomes
// DefaultRunID.
func NewFixedRunID(id string) FixedRunID {
	if id == "" {
		id = DefaultRunID
	}
	return FixedRunID{id: id}
}

// Generate returns the fixed run ID.
func (g FixedRunID) Generate() string {
	return g.id
}
