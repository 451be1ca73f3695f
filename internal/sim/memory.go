package sim

import (
	"github.com/pkg/errors"
)

// DefaultMaxDeltas bounds the number of delta cycles a single Settle may run.
const DefaultMaxDeltas = 64

// A Design is a behavioural model loaded into a Memory kernel.
type Design interface {
	// Name identifies the design (its top-level entity name).
	Name() string

	// Elaborate declares the design's ports and processes.
	Elaborate(b *Builder) error
}

// Port is a signal reference obtained while elaborating a design.
type Port int

// A ProcessFunc is the body of a clocked process.
type ProcessFunc func(f *Frame)

type process struct {
	edge Edge
	fn   ProcessFunc
}

// Builder collects a design's ports and processes. Errors are sticky: the
// first one is kept and reported by NewMemory, so designs can declare ports
// without checking every call.
type Builder struct {
	m   *Memory
	err error
}

// Input declares an input port.
func (b *Builder) Input(name string, width int) Port {
	return b.port(name, width)
}

// Output declares an output port.
func (b *Builder) Output(name string, width int) Port {
	return b.port(name, width)
}

func (b *Builder) port(name string, width int) Port {
	if b.err != nil {
		return -1
	}
	if name == "" {
		b.err = errors.New("empty port name")
		return -1
	}
	if width < 1 || width > 64 {
		b.err = errors.Errorf("port %s: width %d out of range [1, 64]", name, width)
		return -1
	}
	if _, dup := b.m.byName[name]; dup {
		b.err = errors.Errorf("port %s declared twice", name)
		return -1
	}
	s := &memSignal{k: b.m, idx: len(b.m.sigs), name: name, width: width}
	b.m.sigs = append(b.m.sigs, s)
	b.m.byName[name] = s
	return Port(s.idx)
}

// OnEdge registers fn to run whenever clk has the given edge.
func (b *Builder) OnEdge(clk Port, e Edge, fn ProcessFunc) {
	if b.err != nil {
		return
	}
	if clk < 0 || int(clk) >= len(b.m.sigs) {
		b.err = errors.Errorf("process on unknown port %d", clk)
		return
	}
	b.m.sens[clk] = append(b.m.sens[clk], process{edge: e, fn: fn})
}

// Err returns the first elaboration error.
func (b *Builder) Err() error { return b.err }

type write struct {
	p Port
	v uint64
}

// Frame gives a process read access to the settled values of the current
// delta and buffers its writes until the delta ends.
type Frame struct {
	m      *Memory
	writes []write
}

// Get returns the observed value of p.
func (f *Frame) Get(p Port) uint64 {
	return f.m.sigs[p].observed()
}

// Set schedules a driven assignment of v to p. It lands when every process of
// the current delta has run.
func (f *Frame) Set(p Port, v uint64) {
	f.writes = append(f.writes, write{p, v})
}

// Now returns the current simulated time.
func (f *Frame) Now() Time { return f.m.now }

// Memory is an in-process Kernel running a Go behavioural design.
//
// Memory is not safe for concurrent use; the scheduler drives it from one
// task at a time.
type Memory struct {
	design    Design
	precision Unit
	now       Time
	closed    bool
	baseline  bool
	maxDeltas int

	sigs   []*memSignal
	byName map[string]*memSignal
	sens   map[Port][]process

	settled []uint64
	dirty   []int
	inDirty []bool
}

// NewMemory elaborates d into a new kernel with the given time precision.
func NewMemory(precision Unit, d Design) (*Memory, error) {
	if _, ok := unitExponent[precision]; !ok {
		return nil, errors.Wrapf(ErrUnknownUnit, "precision %q", precision)
	}
	m := &Memory{
		design:    d,
		precision: precision,
		maxDeltas: DefaultMaxDeltas,
		byName:    make(map[string]*memSignal),
		sens:      make(map[Port][]process),
	}
	b := &Builder{m: m}
	if err := d.Elaborate(b); err != nil {
		return nil, errors.Wrapf(err, "elaborate %s", d.Name())
	}
	if err := b.Err(); err != nil {
		return nil, errors.Wrapf(err, "elaborate %s", d.Name())
	}
	m.settled = make([]uint64, len(m.sigs))
	m.inDirty = make([]bool, len(m.sigs))
	return m, nil
}

// Now implements Kernel.
func (m *Memory) Now() Time { return m.now }

// Precision implements Kernel.
func (m *Memory) Precision() Unit { return m.precision }

// Signal implements Kernel.
func (m *Memory) Signal(name string) (Signal, error) {
	if m.closed {
		return nil, ErrKernelClosed
	}
	s, ok := m.byName[name]
	if !ok {
		return nil, errors.Wrapf(ErrSignalNotFound, "%s.%s", m.design.Name(), name)
	}
	return s, nil
}

// Signals implements Kernel.
func (m *Memory) Signals() []string {
	names := make([]string, len(m.sigs))
	for i, s := range m.sigs {
		names[i] = s.name
	}
	return names
}

// Advance implements Kernel.
func (m *Memory) Advance(t Time) error {
	if m.closed {
		return ErrKernelClosed
	}
	if t < m.now {
		return errors.Wrapf(ErrTimeReversed, "from %d to %d", m.now, t)
	}
	m.now = t
	return nil
}

// Settle implements Kernel.
func (m *Memory) Settle() ([]Change, error) {
	if m.closed {
		return nil, ErrKernelClosed
	}

	if !m.baseline {
		// Values deposited before the first Settle are the initial state.
		for i, sig := range m.sigs {
			m.settled[i] = sig.observed()
			m.inDirty[i] = false
		}
		m.dirty = nil
		m.baseline = true
		return nil, nil
	}

	var changes []Change
	for delta := 0; len(m.dirty) > 0; delta++ {
		if delta >= m.maxDeltas {
			return changes, errors.Wrapf(ErrDeltaOverflow, "%s after %d deltas at t=%d", m.design.Name(), delta, m.now)
		}

		dirty := m.dirty
		m.dirty = nil
		type edgeAt struct {
			p    Port
			edge Edge
		}
		var edges []edgeAt
		for _, i := range dirty {
			m.inDirty[i] = false
			s := m.sigs[i]
			v := s.observed()
			old := m.settled[i]
			if v == old {
				continue
			}
			m.settled[i] = v
			changes = append(changes, Change{Signal: s.name, Old: old, New: v, Time: m.now})
			if e, ok := EdgeOf(old, v); ok {
				edges = append(edges, edgeAt{Port(i), e})
			}
		}

		// Every process of this delta reads pre-delta values; writes land
		// together afterwards.
		f := &Frame{m: m}
		for _, ea := range edges {
			for _, p := range m.sens[ea.p] {
				if p.edge&ea.edge != 0 {
					p.fn(f)
				}
			}
		}
		for _, w := range f.writes {
			m.sigs[w.p].drive(w.v)
		}
	}
	return changes, nil
}

// Close implements Kernel.
func (m *Memory) Close() error {
	if m.closed {
		return ErrKernelClosed
	}
	m.closed = true
	return nil
}

func (m *Memory) touch(i int) {
	if !m.inDirty[i] {
		m.inDirty[i] = true
		m.dirty = append(m.dirty, i)
	}
}

type memSignal struct {
	k     *Memory
	idx   int
	name  string
	width int

	driven uint64
	forced bool
	force  uint64
}

func (s *memSignal) mask() uint64 {
	if s.width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(s.width) - 1
}

func (s *memSignal) observed() uint64 {
	if s.forced {
		return s.force
	}
	return s.driven
}

func (s *memSignal) drive(v uint64) {
	s.driven = v & s.mask()
	s.k.touch(s.idx)
}

func (s *memSignal) Name() string { return s.name }
func (s *memSignal) Width() int   { return s.width }

func (s *memSignal) Value() (uint64, error) {
	if s.k.closed {
		return 0, ErrKernelClosed
	}
	return s.observed(), nil
}

func (s *memSignal) Deposit(v uint64) error {
	if s.k.closed {
		return ErrKernelClosed
	}
	s.drive(v)
	return nil
}

func (s *memSignal) Force(v uint64) error {
	if s.k.closed {
		return ErrKernelClosed
	}
	s.forced = true
	s.force = v & s.mask()
	s.k.touch(s.idx)
	return nil
}

func (s *memSignal) Release() error {
	if s.k.closed {
		return ErrKernelClosed
	}
	s.forced = false
	s.k.touch(s.idx)
	return nil
}
