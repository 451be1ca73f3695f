package engine

import (
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// DefaultMaxActivations bounds the number of task resumptions within one
// simulated instant.
const DefaultMaxActivations = 100_000

// activationQuota catches zero-time livelock: tasks that keep waking each
// other without ever letting simulated time advance, e.g. a loop awaiting
// Joined on a finished task. It counts resumptions and is reset whenever
// time advances.
type activationQuota struct {
	max     int
	current int
}

func newActivationQuota(max int) *activationQuota {
	return &activationQuota{max: max}
}

// check counts one resumption and fails once the quota is exhausted.
func (q *activationQuota) check(now sim.Time, precision sim.Unit) error {
	q.current++
	if q.max > 0 && q.current > q.max {
		return &Error{
			Code:    CodeLivelock,
			Message: fmt.Sprintf("%d task activations at %s without time advancing", q.max, sim.FormatTime(now, precision)),
		}
	}
	return nil
}

func (q *activationQuota) reset() { q.current = 0 }
