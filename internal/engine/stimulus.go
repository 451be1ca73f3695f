package engine

import "fmt"

// Stimulus assigns Value to Signal Offset rising edges after the driver
// starts.
type Stimulus struct {
	Signal string
	Value  uint64
	Offset int
}

// StimulusDriver applies a list of stimulus entries in list order.
//
// Offsets are counted from the rising-edge count when Apply starts. Entries
// need not be sorted: an entry whose edge has already passed is applied at
// the next rising edge instead.
type StimulusDriver struct {
	clock   string
	stream  *EdgeStream
	entries []Stimulus
	handles []*SignalHandle
}

// NewStimulusDriver validates entries against clock.
func NewStimulusDriver(s *Scheduler, clock string, entries []Stimulus) (*StimulusDriver, error) {
	st, ok := s.streams[clock]
	if !ok {
		return nil, newUnknownClockError(clock)
	}
	d := &StimulusDriver{clock: clock, stream: st}
	for i, e := range entries {
		if e.Offset < 0 {
			return nil, newInvalidSequenceError("stimulus entry %d has negative offset %d", i, e.Offset)
		}
		h, err := s.Signal(e.Signal)
		if err != nil {
			return nil, fmt.Errorf("stimulus entry %d: %w", i, err)
		}
		if err := h.check(e.Value); err != nil {
			return nil, fmt.Errorf("stimulus entry %d: %w", i, err)
		}
		d.entries = append(d.entries, e)
		d.handles = append(d.handles, h)
	}
	return d, nil
}

// Apply runs the entries from t.
func (d *StimulusDriver) Apply(t *Task) error {
	log := t.sched.logger
	base := d.stream.Rising()
	for i, e := range d.entries {
		target := base + uint64(e.Offset)
		if d.stream.Rising() > target {
			log.Warn("stimulus entry late, applying at next edge",
				"signal", e.Signal, "offset", e.Offset, "edge", d.stream.Rising())
			if err := t.Await(RisingEdge(d.clock)); err != nil {
				return err
			}
		}
		for d.stream.Rising() < target {
			if err := t.Await(RisingEdge(d.clock)); err != nil {
				return err
			}
		}
		if err := d.handles[i].Set(e.Value); err != nil {
			return fmt.Errorf("stimulus entry %d: %w", i, err)
		}
	}
	return nil
}

// Start runs Apply on a new task of s.
func (d *StimulusDriver) Start(s *Scheduler) *Task {
	return s.Start("stimulus:"+d.clock, d.Apply)
}
