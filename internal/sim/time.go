package sim

import (
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Time is a point in simulated time, counted in steps of the kernel precision.
// It is unrelated to wall-clock time.
type Time int64

// Unit is a simulated time unit. The empty Unit means "the kernel precision"
// wherever a Unit is optional.
type Unit string

// Supported time units.
const (
	Femtosecond Unit = "fs"
	Picosecond  Unit = "ps"
	Nanosecond  Unit = "ns"
	Microsecond Unit = "us"
	Millisecond Unit = "ms"
	Second      Unit = "s"
)

var unitExponent = map[Unit]int{
	Femtosecond: -15,
	Picosecond:  -12,
	Nanosecond:  -9,
	Microsecond: -6,
	Millisecond: -3,
	Second:      0,
}

// ParseUnit parses a unit name such as "ns".
func ParseUnit(s string) (Unit, error) {
	u := Unit(strings.TrimSpace(s))
	if _, ok := unitExponent[u]; !ok {
		return "", errors.Wrapf(ErrUnknownUnit, "%q", s)
	}
	return u, nil
}

// ParseDuration parses a duration literal such as "10ns" or "10 ns" into its
// magnitude and unit.
func ParseDuration(s string) (int64, Unit, error) {
	s = strings.TrimSpace(s)
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", errors.Errorf("invalid duration %q: missing magnitude", s)
	}
	v, err := strconv.ParseInt(s[:i], 10, 64)
	if err != nil {
		return 0, "", errors.Wrapf(err, "invalid duration %q", s)
	}
	u, err := ParseUnit(s[i:])
	if err != nil {
		return 0, "", errors.Wrapf(err, "invalid duration %q", s)
	}
	return v, u, nil
}

// Convert expresses value (in unit from) as a whole number of precision steps.
// An empty from means value is already in precision steps.
func Convert(value int64, from, precision Unit) (Time, error) {
	if from == "" {
		from = precision
	}
	fe, ok := unitExponent[from]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownUnit, "%q", from)
	}
	pe, ok := unitExponent[precision]
	if !ok {
		return 0, errors.Wrapf(ErrUnknownUnit, "precision %q", precision)
	}

	diff := fe - pe
	if diff >= 0 {
		scale := pow10(diff)
		if value > math.MaxInt64/scale || value < math.MinInt64/scale {
			return 0, errors.Errorf("%d%s overflows at precision %s", value, from, precision)
		}
		return Time(value * scale), nil
	}
	div := pow10(-diff)
	if value%div != 0 {
		return 0, errors.Wrapf(ErrInexactTime, "%d%s at precision %s", value, from, precision)
	}
	return Time(value / div), nil
}

// FormatTime renders t with its precision unit, e.g. "30ns".
func FormatTime(t Time, precision Unit) string {
	return strconv.FormatInt(int64(t), 10) + string(precision)
}

func pow10(n int) int64 {
	p := int64(1)
	for ; n > 0; n-- {
		p *= 10
	}
	return p
}
