// Package dut provides behavioural models of the designs exercised by
// edgebench scenarios, for use with the sim.Memory kernel.
//
// Each model mirrors the port list of its RTL counterpart so a scenario
// written against it can be pointed at an HDL simulator unchanged.
package dut

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/roach88/edgebench/internal/sim"
)

// ErrUnknownDesign is returned by New for unregistered design names.
var ErrUnknownDesign = errors.New("unknown design")

// Params are integer design parameters (generics), e.g. a counter width.
type Params map[string]int64

// Spec describes a registered design.
type Spec struct {
	Name        string
	Description string

	// Defaults lists every accepted parameter with its default value.
	Defaults Params

	build func(p Params) (sim.Design, error)
}

var registry = map[string]Spec{}

func register(s Spec) {
	registry[s.Name] = s
}

// New builds the named design. Parameters not given take their defaults;
// unknown parameters are an error.
func New(name string, params Params) (sim.Design, error) {
	s, ok := registry[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownDesign, "%q (known: %v)", name, Names())
	}
	p := make(Params, len(s.Defaults))
	for k, v := range s.Defaults {
		p[k] = v
	}
	for k, v := range params {
		if _, ok := s.Defaults[k]; !ok {
			return nil, errors.Errorf("design %s has no parameter %q", name, k)
		}
		p[k] = v
	}
	d, err := s.build(p)
	if err != nil {
		return nil, errors.Wrapf(err, "design %s", name)
	}
	return d, nil
}

// Lookup returns the spec of a registered design.
func Lookup(name string) (Spec, bool) {
	s, ok := registry[name]
	return s, ok
}

// Names lists registered designs in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func mask(width int64) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(width) - 1
}

func bit(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}
