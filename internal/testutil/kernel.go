// Package testutil holds kernel fixtures shared by package tests.
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/edgebench/internal/sim"
)

// Port declares one signal of a Wires design.
type Port struct {
	Name  string
	Width int
}

// Wires is a design with ports and no logic. Every value on it is driven by
// the test.
type Wires []Port

// Name implements sim.Design.
func (Wires) Name() string { return "wires" }

// Elaborate implements sim.Design.
func (w Wires) Elaborate(b *sim.Builder) error {
	for _, p := range w {
		b.Input(p.Name, p.Width)
	}
	return b.Err()
}

// Pipe is a two-stage register pipeline on clk: q1 <= d, q2 <= q1, and a
// divide-by-two output clock div that toggles on every rising edge of clk.
// All data ports are 8 bits wide.
type Pipe struct{}

// Name implements sim.Design.
func (Pipe) Name() string { return "pipe" }

// Elaborate implements sim.Design.
func (Pipe) Elaborate(b *sim.Builder) error {
	clk := b.Input("clk", 1)
	d := b.Input("d", 8)
	q1 := b.Output("q1", 8)
	q2 := b.Output("q2", 8)
	div := b.Output("div", 1)
	b.OnEdge(clk, sim.Rising, func(f *sim.Frame) {
		f.Set(q1, f.Get(d))
		f.Set(q2, f.Get(q1))
		f.Set(div, f.Get(div)^1)
	})
	return b.Err()
}

// NewKernel elaborates d on a nanosecond-precision Memory kernel and closes
// it when the test ends.
func NewKernel(t testing.TB, d sim.Design) *sim.Memory {
	t.Helper()
	return NewKernelAt(t, sim.Nanosecond, d)
}

// NewKernelAt is NewKernel with an explicit precision.
func NewKernelAt(t testing.TB, precision sim.Unit, d sim.Design) *sim.Memory {
	t.Helper()
	k, err := sim.NewMemory(precision, d)
	require.NoError(t, err)
	t.Cleanup(func() { _ = k.Close() })
	return k
}

// Value reads a signal from k, failing the test on error.
func Value(t testing.TB, k sim.Kernel, name string) uint64 {
	t.Helper()
	sig, err := k.Signal(name)
	require.NoError(t, err)
	v, err := sig.Value()
	require.NoError(t, err)
	return v
}
