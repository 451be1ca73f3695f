package engine

// wakeup is one entry of the ready queue: resume task, as of registration
// generation gen, optionally with a cancellation.
type wakeup struct {
	task   *Task
	gen    uint64
	cancel bool
}

// stale reports whether the task has moved on since the wakeup was queued
// (it was cancelled, finished, or resumed by another trigger).
func (w wakeup) stale() bool {
	return w.task.state == taskDone || w.task.gen != w.gen
}

// readyQueue is the FIFO of tasks that may run at the current instant.
//
// It is only touched by the scheduler loop and by the task that currently
// runs, which the hand-off protocol serializes, so it needs no lock.
type readyQueue struct {
	items []wakeup
}

func newReadyQueue() *readyQueue {
	return &readyQueue{items: make([]wakeup, 0, 16)}
}

// push appends w to the back of the queue.
func (q *readyQueue) push(w wakeup) {
	q.items = append(q.items, w)
}

// pop removes the front entry. ok is false when the queue is empty.
func (q *readyQueue) pop() (wakeup, bool) {
	if len(q.items) == 0 {
		return wakeup{}, false
	}
	w := q.items[0]

	// Drop the task pointer from the backing array so finished tasks can be
	// collected during long runs.
	q.items[0] = wakeup{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}
	return w, true
}
