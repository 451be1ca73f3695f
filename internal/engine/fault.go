package engine

import "fmt"

// Fault overrides Signal with Value from rising edge At until rising edge
// Release of Clock, both counted from when the fault is armed. Release zero
// holds the override until the run ends.
type Fault struct {
	Signal  string
	Value   uint64
	Clock   string
	At      int
	Release int
}

func (f Fault) validate(s *Scheduler) (*EdgeStream, *SignalHandle, error) {
	if f.At < 0 {
		return nil, nil, newInvalidSequenceError("fault on %s at negative edge %d", f.Signal, f.At)
	}
	if f.Release != 0 && f.Release <= f.At {
		return nil, nil, newInvalidSequenceError("fault on %s released at edge %d, not after %d", f.Signal, f.Release, f.At)
	}
	st, ok := s.streams[f.Clock]
	if !ok {
		return nil, nil, newUnknownClockError(f.Clock)
	}
	h, err := s.Signal(f.Signal)
	if err != nil {
		return nil, nil, fmt.Errorf("fault: %w", err)
	}
	if err := h.check(f.Value); err != nil {
		return nil, nil, fmt.Errorf("fault: %w", err)
	}
	return st, h, nil
}

// InjectFault runs f from t.
func InjectFault(t *Task, f Fault) error {
	st, h, err := f.validate(t.sched)
	if err != nil {
		return err
	}
	base := st.Rising()
	if err := waitRising(t, st, base+uint64(f.At)); err != nil {
		return err
	}
	if err := h.Override(f.Value); err != nil {
		return err
	}
	t.sched.logger.Info("fault injected", "signal", f.Signal, "value", f.Value, "edge", st.Rising())
	if f.Release == 0 {
		return nil
	}
	if err := waitRising(t, st, base+uint64(f.Release)); err != nil {
		return err
	}
	return h.Release()
}

// StartFault validates f and runs it on a new task of s.
func StartFault(s *Scheduler, f Fault) (*Task, error) {
	if _, _, err := f.validate(s); err != nil {
		return nil, err
	}
	return s.Start("fault:"+f.Signal, func(t *Task) error { return InjectFault(t, f) }), nil
}

func waitRising(t *Task, st *EdgeStream, count uint64) error {
	for st.Rising() < count {
		if err := t.Await(RisingEdge(st.name)); err != nil {
			return err
		}
	}
	return nil
}
