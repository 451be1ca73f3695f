package dut

import (
	"github.com/pkg/errors"

	"github.com/roach88/edgebench/internal/sim"
)

// PWMSteps is the number of clk_pwm ticks in one PWM period.
const PWMSteps = 100

func init() {
	register(Spec{
		Name:        "pwm",
		Description: "PWM generator on a divided clock; pwm_o is held high during reset",
		Defaults:    Params{"divider": 4},
		build:       newPWM,
	})
}

// PWM divides clk_i by Divider into clk_pwm and, on every rising edge of
// clk_pwm, advances a phase counter over 0..99. pwm_o is high while the
// phase is below duty_cycle_in, and forced high while rst_i is asserted.
//
// Ports: clk_i, rst_i, duty_cycle_in (7 bits) in; clk_pwm, pwm_o, phase
// (7 bits) and div_cnt (16 bits) out.
type PWM struct {
	Divider int64
}

func newPWM(p Params) (sim.Design, error) {
	d := p["divider"]
	if d < 2 || d%2 != 0 || d > 1<<16 {
		return nil, errors.Errorf("divider %d must be an even number in [2, 65536]", d)
	}
	return PWM{Divider: d}, nil
}

// Name implements sim.Design.
func (PWM) Name() string { return "pwm" }

// Elaborate implements sim.Design.
func (p PWM) Elaborate(b *sim.Builder) error {
	clk := b.Input("clk_i", 1)
	rst := b.Input("rst_i", 1)
	duty := b.Input("duty_cycle_in", 7)
	clkPWM := b.Output("clk_pwm", 1)
	out := b.Output("pwm_o", 1)
	phase := b.Output("phase", 7)
	divCnt := b.Output("div_cnt", 16)

	half := uint64(p.Divider / 2)
	b.OnEdge(clk, sim.Rising, func(f *sim.Frame) {
		tick := false
		c := f.Get(divCnt) + 1
		if c >= half {
			c = 0
			next := f.Get(clkPWM) ^ 1
			f.Set(clkPWM, next)
			tick = next == 1
		}
		f.Set(divCnt, c)

		if f.Get(rst) == 1 {
			f.Set(phase, 0)
			f.Set(out, 1)
			return
		}
		if tick {
			ph := f.Get(phase) + 1
			if ph >= PWMSteps {
				ph = 0
			}
			f.Set(phase, ph)
			f.Set(out, bit(ph < f.Get(duty)))
		}
	})
	return b.Err()
}
