package engine

import (
	"container/heap"
	"fmt"

	"github.com/roach88/edgebench/internal/sim"
)

// Trigger is a future event a task can Await.
type Trigger interface {
	// arm registers w to be made ready when the trigger fires.
	arm(s *Scheduler, w wakeup) error
	String() string
}

type edgeTrigger struct {
	clock string
	edge  sim.Edge
}

// RisingEdge fires on the next 0 -> 1 transition of clock.
func RisingEdge(clock string) Trigger { return edgeTrigger{clock, sim.Rising} }

// FallingEdge fires on the next 1 -> 0 transition of clock.
func FallingEdge(clock string) Trigger { return edgeTrigger{clock, sim.Falling} }

// AnyEdge fires on the next transition of clock in either direction.
func AnyEdge(clock string) Trigger { return edgeTrigger{clock, sim.BothEdges} }

func (e edgeTrigger) arm(s *Scheduler, w wakeup) error {
	st, ok := s.streams[e.clock]
	if !ok {
		return newUnknownClockError(e.clock)
	}
	st.waiters = append(st.waiters, edgeWaiter{w: w, edge: e.edge})
	return nil
}

func (e edgeTrigger) String() string { return fmt.Sprintf("%s edge of %s", e.edge, e.clock) }

type timerTrigger struct {
	d   sim.Time
	abs bool
}

// Timer fires d precision steps after the current instant. d must be positive.
func Timer(d sim.Time) Trigger { return timerTrigger{d: d} }

// At fires at absolute simulated time t, which must lie in the future.
func At(t sim.Time) Trigger { return timerTrigger{d: t, abs: true} }

func (tt timerTrigger) arm(s *Scheduler, w wakeup) error {
	at := tt.d
	if !tt.abs {
		at = s.Now() + tt.d
	}
	if at <= s.Now() {
		return &Error{Code: CodeMisuse, Message: fmt.Sprintf("%s is not in the future (now %d)", tt, s.Now())}
	}
	s.timerSeq++
	heap.Push(&s.timers, timer{at: at, seq: s.timerSeq, w: w})
	return nil
}

func (tt timerTrigger) String() string {
	if tt.abs {
		return fmt.Sprintf("time %d", tt.d)
	}
	return fmt.Sprintf("timer %d", tt.d)
}

type readOnlyTrigger struct{}

// ReadOnly fires once every task of the current instant has yielded and the
// kernel has settled. Writes are rejected until the phase ends. Awaiting it
// from inside the phase waits for the read-only phase of the next instant.
func ReadOnly() Trigger { return readOnlyTrigger{} }

func (readOnlyTrigger) arm(s *Scheduler, w wakeup) error {
	if s.phase == phaseReadOnly {
		s.readOnlyNext = append(s.readOnlyNext, w)
	} else {
		s.readOnly = append(s.readOnly, w)
	}
	return nil
}

func (readOnlyTrigger) String() string { return "read-only phase" }

type joinTrigger struct {
	task *Task
}

// Joined fires when task returns. If it already has, the awaiting task is
// requeued behind the tasks that are ready at the current instant.
func Joined(task *Task) Trigger { return joinTrigger{task} }

func (j joinTrigger) arm(s *Scheduler, w wakeup) error {
	if j.task == w.task {
		return &Error{Code: CodeMisuse, Message: fmt.Sprintf("task %s cannot join itself", j.task.name)}
	}
	if j.task.state == taskDone {
		s.ready.push(w)
		return nil
	}
	j.task.joiners = append(j.task.joiners, w)
	return nil
}

func (j joinTrigger) String() string { return "join " + j.task.name }

// timer is a pending Timer/At wakeup, ordered by time then registration.
type timer struct {
	at  sim.Time
	seq uint64
	w   wakeup
}

type timerHeap []timer

func (h timerHeap) Len() int { return len(h) }

func (h timerHeap) Less(i, j int) bool {
	if h[i].at != h[j].at {
		return h[i].at < h[j].at
	}
	return h[i].seq < h[j].seq
}

func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) { *h = append(*h, x.(timer)) }

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = timer{}
	*h = old[:n-1]
	return x
}
