package engine

import (
	"fmt"
	"runtime/debug"

	"github.com/roach88/edgebench/internal/sim"
)

// TaskFunc is the body of a task. Returning ErrCancelled (wrapped or not) is
// a clean exit; any other error from a background task aborts the scenario.
type TaskFunc func(t *Task) error

type taskState int

const (
	taskNew taskState = iota
	taskRunning
	taskParked
	taskDone
)

// Task is a resumable behaviour scheduled by a Scheduler.
//
// A Task's methods other than Name, Done and Err must only be called from the
// task's own body while it runs.
type Task struct {
	id    int
	name  string
	sched *Scheduler
	fn    TaskFunc

	resume chan bool // true resumes with a cancellation
	state  taskState

	// gen changes every time the task parks or is cancelled, invalidating
	// wakeups queued for an earlier suspension point.
	gen       uint64
	cancelled bool
	err       error
	joiners   []wakeup
}

// Name returns the name given to Start.
func (t *Task) Name() string { return t.name }

// Scheduler returns the scheduler running t.
func (t *Task) Scheduler() *Scheduler { return t.sched }

// Now is a shorthand for t.Scheduler().Now().
func (t *Task) Now() sim.Time { return t.sched.Now() }

// Done reports whether the task has returned.
func (t *Task) Done() bool { return t.state == taskDone }

// Err returns the task's result once it is done.
func (t *Task) Err() error { return t.err }

// Await suspends the task until trig fires.
//
// Registration errors (such as an unknown clock) are returned synchronously
// without suspending. After cancellation every Await returns ErrCancelled.
func (t *Task) Await(trig Trigger) error {
	s := t.sched
	if s.current != t {
		return &Error{Code: CodeMisuse, Message: fmt.Sprintf("task %s awaited %s while not running", t.name, trig)}
	}
	if t.cancelled {
		return ErrCancelled
	}
	t.gen++
	if err := trig.arm(s, wakeup{task: t, gen: t.gen}); err != nil {
		return err
	}
	return t.park()
}

// Cycles waits for n rising edges of clock.
func (t *Task) Cycles(clock string, n int) error {
	for i := 0; i < n; i++ {
		if err := t.Await(RisingEdge(clock)); err != nil {
			return err
		}
	}
	return nil
}

// DrainSamples returns once the read-only phase of the current instant is over. A
// ReadOnly awaited from inside that phase resumes in the next instant's
// phase, after every monitor of this one has sampled.
func (t *Task) DrainSamples() error {
	if err := t.Await(ReadOnly()); err != nil {
		return err
	}
	return t.Await(ReadOnly())
}

// Cancel requests cancellation. A parked task is resumed with ErrCancelled
// at the current instant; a task that has not started yet never runs; a
// running task sees ErrCancelled at its next Await.
func (t *Task) Cancel() {
	if t.state == taskDone || t.cancelled {
		return
	}
	t.cancelled = true
	switch t.state {
	case taskNew:
		t.err = ErrCancelled
		t.state = taskDone
		t.sched.finished(t)
	case taskParked:
		t.gen++
		t.sched.ready.push(wakeup{task: t, gen: t.gen, cancel: true})
	}
}

func (t *Task) park() error {
	t.state = taskParked
	t.sched.yield <- struct{}{}
	cancel := <-t.resume
	t.state = taskRunning
	if cancel {
		return ErrCancelled
	}
	return nil
}

func (t *Task) main() {
	defer func() {
		if r := recover(); r != nil {
			t.sched.logger.Error("task panicked", "task", t.name, "panic", r, "stack", string(debug.Stack()))
			t.err = fmt.Errorf("task %s panicked: %v", t.name, r)
		}
		t.state = taskDone
		t.sched.yield <- struct{}{}
	}()
	t.err = t.fn(t)
}
