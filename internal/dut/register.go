package dut

import (
	"github.com/pkg/errors"

	"github.com/roach88/edgebench/internal/sim"
)

func init() {
	register(Spec{
		Name:        "register",
		Description: "d to q register with synchronous reset",
		Defaults:    Params{"width": 8},
		build:       newRegister,
	})
}

// Register captures d into q on every rising edge of clk_i; rst_i clears q
// synchronously. Ports: clk_i, rst_i, d (width bits) in; q out.
type Register struct {
	Width int64
}

func newRegister(p Params) (sim.Design, error) {
	w := p["width"]
	if w < 1 || w > 64 {
		return nil, errors.Errorf("width %d out of range [1, 64]", w)
	}
	return Register{Width: w}, nil
}

// Name implements sim.Design.
func (Register) Name() string { return "register" }

// Elaborate implements sim.Design.
func (r Register) Elaborate(b *sim.Builder) error {
	clk := b.Input("clk_i", 1)
	rst := b.Input("rst_i", 1)
	d := b.Input("d", int(r.Width))
	q := b.Output("q", int(r.Width))
	b.OnEdge(clk, sim.Rising, func(f *sim.Frame) {
		if f.Get(rst) == 1 {
			f.Set(q, 0)
			return
		}
		f.Set(q, f.Get(d))
	})
	return b.Err()
}
