package engine

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/edgebench/internal/sim"
)

type phase int

const (
	phaseNormal phase = iota
	phaseReadOnly
)

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithLogger sets the structured logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers an observer for edges, writes, overrides and samples.
// Observers are called synchronously in registration order.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}

// WithTimeLimit aborts Run with CodeTimeLimit once the next pending timer lies
// beyond limit. Zero means no limit.
func WithTimeLimit(limit sim.Time) Option {
	return func(s *Scheduler) { s.timeLimit = limit }
}

// WithMaxActivations bounds task resumptions per simulated instant; zero
// disables the bound. The default is DefaultMaxActivations.
func WithMaxActivations(n int) Option {
	return func(s *Scheduler) { s.quota = newActivationQuota(n) }
}

// WithRunID fixes the run ID stamped on observer events.
func WithRunID(id string) Option {
	return func(s *Scheduler) { s.runID = id }
}

// WithRunIDGenerator sets the generator used when no explicit run ID is given.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(s *Scheduler) { s.idgen = g }
}

// Scheduler runs tasks against a kernel in lock-step with clock edges.
//
// A Scheduler runs one scenario. Its methods must be called either before Run
// or from the task that currently runs; they are not safe for use from other
// goroutines.
type Scheduler struct {
	kernel    sim.Kernel
	logger    *slog.Logger
	observers []Observer
	seq       *LogicalClock
	runID     string
	idgen     RunIDGenerator
	timeLimit sim.Time
	quota     *activationQuota

	streams map[string]*EdgeStream
	handles map[string]*SignalHandle

	ready        *readyQueue
	timers       timerHeap
	timerSeq     uint64
	readOnly     []wakeup
	readOnlyNext []wakeup
	phase        phase

	tasks  []*Task
	nextID int

	yield       chan struct{}
	current     *Task
	root        *Task
	failure     error
	started     bool
	tearingDown bool
}

// New creates a scheduler driving k.
func New(k sim.Kernel, opts ...Option) *Scheduler {
	s := &Scheduler{
		kernel:  k,
		logger:  slog.Default(),
		seq:     NewLogicalClock(),
		idgen:   UUIDv7Generator{},
		quota:   newActivationQuota(DefaultMaxActivations),
		streams: make(map[string]*EdgeStream),
		handles: make(map[string]*SignalHandle),
		ready:   newReadyQueue(),
		yield:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.runID == "" {
		s.runID = s.idgen.Generate()
	}
	s.logger = s.logger.With("run_id", s.runID)
	return s
}

// Kernel returns the driven kernel.
func (s *Scheduler) Kernel() sim.Kernel { return s.kernel }

// Now returns the current simulated time.
func (s *Scheduler) Now() sim.Time { return s.kernel.Now() }

// Precision returns the kernel time unit.
func (s *Scheduler) Precision() sim.Unit { return s.kernel.Precision() }

// RunID identifies this run in observer events.
func (s *Scheduler) RunID() string { return s.runID }

// Logger returns the scheduler's logger.
func (s *Scheduler) Logger() *slog.Logger { return s.logger }

// Stream returns the edge stream of a tracked clock.
func (s *Scheduler) Stream(clock string) (*EdgeStream, bool) {
	st, ok := s.streams[clock]
	return st, ok
}

// Signal returns the handle for a kernel signal. Repeated calls return the
// same handle, so override bookkeeping is shared by every user of a signal.
func (s *Scheduler) Signal(name string) (*SignalHandle, error) {
	if h, ok := s.handles[name]; ok {
		return h, nil
	}
	sig, err := s.kernel.Signal(name)
	if err != nil {
		return nil, err
	}
	h := &SignalHandle{s: s, sig: sig}
	s.handles[name] = h
	return h, nil
}

// TrackClock declares a clock driven by the design itself, such as a divided
// clock, so tasks can wait on its edges. Declaring the same derived clock
// twice is allowed; declaring a clock that has a generator is not.
func (s *Scheduler) TrackClock(name string) (*EdgeStream, error) {
	if st, ok := s.streams[name]; ok {
		if st.driver == DrivenByDesign {
			return st, nil
		}
		return nil, newDuplicateDriverError(name, string(st.driver))
	}
	h, err := s.clockHandle(name)
	if err != nil {
		return nil, err
	}
	return s.track(h, DrivenByDesign)
}

func (s *Scheduler) clockHandle(name string) (*SignalHandle, error) {
	h, err := s.Signal(name)
	if err != nil {
		return nil, err
	}
	if h.Width() != 1 {
		return nil, &Error{
			Code:    CodeInvalidClock,
			Message: fmt.Sprintf("clock must be 1 bit wide, got %d", h.Width()),
			Clock:   name,
		}
	}
	return h, nil
}

// track creates the edge stream for h. The current level becomes the
// baseline; it never counts as an edge.
func (s *Scheduler) track(h *SignalHandle, driver DriverKind) (*EdgeStream, error) {
	v, err := h.Value()
	if err != nil {
		return nil, err
	}
	st := &EdgeStream{name: h.Name(), driver: driver, level: v&1 == 1}
	s.streams[st.name] = st
	s.logger.Debug("clock tracked", "clock", st.name, "driver", driver, "level", st.level)
	return st, nil
}

// Start schedules fn as a new task. It becomes ready at the current instant,
// behind every task that is already ready.
func (s *Scheduler) Start(name string, fn TaskFunc) *Task {
	s.nextID++
	t := &Task{
		id:     s.nextID,
		name:   name,
		sched:  s,
		fn:     fn,
		resume: make(chan bool),
	}
	s.tasks = append(s.tasks, t)
	if s.tearingDown {
		t.cancelled = true
		t.state = taskDone
		t.err = ErrCancelled
		return t
	}
	s.ready.push(wakeup{task: t})
	s.logger.Debug("task started", "task", name, "id", t.id)
	return t
}

// Run runs main and everything it starts until main returns, then cancels the
// remaining tasks. It returns main's error, the first failure of a background
// task, or a scheduling error (CodeStalled, CodeTimeLimit, kernel failures).
//
// A Scheduler can only be run once.
func (s *Scheduler) Run(ctx context.Context, main TaskFunc) error {
	if s.started {
		return &Error{Code: CodeMisuse, Message: "scheduler already ran"}
	}
	s.started = true
	s.logger.Info("run starting", "time", s.formatNow())

	// Values driven before Run, including initial clock levels, are the
	// starting state rather than edges.
	if err := s.settle(); err != nil {
		return err
	}
	s.root = s.Start("main", main)
	err := s.loop(ctx)
	s.teardown()

	if err == nil {
		err = s.root.err
	}
	if err != nil {
		s.logger.Info("run failed", "time", s.formatNow(), "error", err)
		return err
	}
	s.logger.Info("run finished", "time", s.formatNow())
	return nil
}

func (s *Scheduler) loop(ctx context.Context) error {
	for {
		if err := s.drain(); err != nil {
			return err
		}
		if s.root.state == taskDone {
			return nil
		}

		if len(s.readOnly) > 0 {
			s.phase = phaseReadOnly
			for _, w := range s.readOnly {
				s.ready.push(w)
			}
			s.readOnly = nil
			err := s.drain()
			s.phase = phaseNormal
			if err != nil {
				return err
			}
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}

		for s.timers.Len() > 0 && s.timers[0].w.stale() {
			heap.Pop(&s.timers)
		}
		if s.timers.Len() == 0 {
			return &Error{
				Code:    CodeStalled,
				Message: fmt.Sprintf("no pending timers at %s while task %s still waits", s.formatNow(), s.root.name),
			}
		}
		next := s.timers[0].at
		if s.timeLimit > 0 && next > s.timeLimit {
			return &Error{
				Code: CodeTimeLimit,
				Message: fmt.Sprintf("next event at %s exceeds limit %s",
					sim.FormatTime(next, s.Precision()), sim.FormatTime(s.timeLimit, s.Precision())),
			}
		}
		if err := s.kernel.Advance(next); err != nil {
			return fmt.Errorf("advance to %s: %w", sim.FormatTime(next, s.Precision()), err)
		}

		s.quota.reset()
		s.readOnly = append(s.readOnly, s.readOnlyNext...)
		s.readOnlyNext = nil
		for s.timers.Len() > 0 && s.timers[0].at == next {
			tm := heap.Pop(&s.timers).(timer)
			s.ready.push(tm.w)
		}
	}
}

// drain runs ready tasks, settling the kernel after each, until the queue is
// empty.
func (s *Scheduler) drain() error {
	for {
		if s.failure != nil {
			return s.failure
		}
		if s.root.state == taskDone {
			return nil
		}
		w, ok := s.ready.pop()
		if !ok {
			return nil
		}
		if w.stale() {
			continue
		}
		if err := s.quota.check(s.Now(), s.Precision()); err != nil {
			return err
		}
		s.resume(w)
		if err := s.settle(); err != nil {
			return err
		}
	}
}

// resume hands control to w's task and blocks until it yields or returns.
func (s *Scheduler) resume(w wakeup) {
	t := w.task
	s.current = t
	if t.state == taskNew {
		t.state = taskRunning
		go t.main()
	} else {
		t.resume <- w.cancel
	}
	<-s.yield
	s.current = nil
	if t.state == taskDone {
		s.finished(t)
	}
}

func (s *Scheduler) finished(t *Task) {
	for _, w := range t.joiners {
		s.ready.push(w)
	}
	t.joiners = nil
	s.logger.Debug("task finished", "task", t.name, "id", t.id, "error", t.err)

	if t == s.root || t.err == nil || errors.Is(t.err, ErrCancelled) {
		return
	}
	if s.tearingDown {
		s.logger.Warn("task failed during teardown", "task", t.name, "error", t.err)
		return
	}
	if s.failure == nil {
		s.failure = fmt.Errorf("task %s: %w", t.name, t.err)
	}
}

// settle lets the kernel reach quiescence and turns clock changes into edges.
func (s *Scheduler) settle() error {
	changes, err := s.kernel.Settle()
	if err != nil {
		return fmt.Errorf("settle at %s: %w", s.formatNow(), err)
	}
	for _, c := range changes {
		if st, ok := s.streams[c.Signal]; ok {
			s.dispatch(st, c.New)
		}
	}
	return nil
}

func (s *Scheduler) dispatch(st *EdgeStream, v uint64) {
	level := v&1 == 1
	if level == st.level {
		return
	}
	st.level = level
	st.last = s.Now()

	var e sim.Edge
	var index uint64
	if level {
		e = sim.Rising
		st.rising++
		index = st.rising
	} else {
		e = sim.Falling
		st.falling++
		index = st.falling
	}
	s.emit(Event{Kind: EventEdge, Signal: st.name, Clock: st.name, Edge: e, Index: index, Value: v & 1})

	pending := st.waiters
	st.waiters = nil
	for _, ew := range pending {
		switch {
		case ew.w.stale():
		case ew.edge&e != 0:
			s.ready.push(ew.w)
		default:
			st.waiters = append(st.waiters, ew)
		}
	}
}

// teardown cancels every task that has not finished and lets each observe
// its cancellation.
func (s *Scheduler) teardown() {
	s.tearingDown = true
	s.phase = phaseNormal
	for _, t := range s.tasks {
		t.Cancel()
	}
	for {
		w, ok := s.ready.pop()
		if !ok {
			break
		}
		if w.stale() {
			continue
		}
		s.resume(w)
	}
	s.timers = nil
	s.readOnly = nil
	s.readOnlyNext = nil
	for _, st := range s.streams {
		st.waiters = nil
	}
}

func (s *Scheduler) emit(ev Event) {
	if len(s.observers) == 0 {
		return
	}
	ev.Seq = s.seq.Next()
	ev.RunID = s.runID
	ev.Time = s.Now()
	if s.current != nil {
		ev.Task = s.current.name
	}
	for _, o := range s.observers {
		o.Observe(ev)
	}
}

func (s *Scheduler) formatNow() string {
	return sim.FormatTime(s.Now(), s.Precision())
}
