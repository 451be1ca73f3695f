// Package engine implements the edgebench cycle-synchronized scheduler.
//
// The engine drives a simulation kernel (package sim) in lock-step with clock
// edges: it generates clock stimulus, sequences resets, applies stimulus at
// exact edge boundaries, samples outputs and overrides signals for fault
// injection.
//
// ARCHITECTURE:
//
// Cooperative tasks:
// Every concurrently running behaviour (a clock generator, a stimulus driver,
// the scenario body) is a Task. Tasks run on their own goroutines, but the
// scheduler hands control to exactly one of them at a time and waits for it to
// yield. A task yields only inside Await. This gives:
//   - Deterministic interleaving for a fixed scenario
//   - No locking around signals or scheduler state
//   - Suspension points that are explicit in the scenario code
//
// Instant processing:
//  1. Pop the next ready task and resume it until it yields
//  2. Settle the kernel; changes on tracked clocks become edge events
//  3. Each edge event moves its waiters to the ready queue in FIFO order
//  4. Repeat until nothing is ready, then run the ReadOnly phase
//  5. Advance the kernel to the earliest pending timer
//
// Waiters registered for an edge therefore all resume before any waiter of a
// later edge, and before simulated time moves past that edge.
//
// Visibility:
// A value written right after edge k is read back immediately by the test
// bench but sampled by the design's clocked logic on edge k+1. A value sampled
// in the ReadOnly phase after edge k is the settled value after every edge-k
// write, which is what Monitor reports as "the value at edge k".
//
// Cancellation:
// Ending a scenario cancels every outstanding task. Cancellation is
// cooperative: the task's pending Await returns ErrCancelled.
package engine
