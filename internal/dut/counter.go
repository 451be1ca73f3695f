package dut

import (
	"github.com/pkg/errors"

	"github.com/roach88/edgebench/internal/sim"
)

func init() {
	register(Spec{
		Name:        "counter",
		Description: "free-running counter; p_mod is its 8 most significant bits, cleared by synchronous reset",
		Defaults:    Params{"width": 16},
		build:       newCounter,
	})
}

// Counter counts rising edges of clk_i. rst_i is synchronous and active
// high. Ports: clk_i, rst_i in; count (width bits) and p_mod (8 bits) out.
type Counter struct {
	Width int64
}

func newCounter(p Params) (sim.Design, error) {
	w := p["width"]
	if w < 8 || w > 64 {
		return nil, errors.Errorf("width %d out of range [8, 64]", w)
	}
	return Counter{Width: w}, nil
}

// Name implements sim.Design.
func (Counter) Name() string { return "counter_wrapper" }

// Elaborate implements sim.Design.
func (c Counter) Elaborate(b *sim.Builder) error {
	clk := b.Input("clk_i", 1)
	rst := b.Input("rst_i", 1)
	count := b.Output("count", int(c.Width))
	pmod := b.Output("p_mod", 8)

	m := mask(c.Width)
	shift := uint(c.Width - 8)
	b.OnEdge(clk, sim.Rising, func(f *sim.Frame) {
		if f.Get(rst) == 1 {
			f.Set(count, 0)
			f.Set(pmod, 0)
			return
		}
		n := (f.Get(count) + 1) & m
		f.Set(count, n)
		f.Set(pmod, n>>shift)
	})
	return b.Err()
}
