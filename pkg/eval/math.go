package eval

import (
	"math"

	"blockexpr/pkg/function"
)

// maxULPs is how far apart, in units in the last place, two values may be
// and still compare near equal with ~=.
const maxULPs = 450359963

// orderedBits maps a float64 to an int64 that orders like the float.
func orderedBits(v float64) int64 {
	bits := int64(math.Float64bits(v))
	if bits < 0 {
		bits = math.MinInt64 - bits
	}
	return bits
}

func near(a, b float64) bool {
	ai, bi := orderedBits(a), orderedBits(b)
	var d uint64
	if ai > bi {
		d = uint64(ai) - uint64(bi)
	} else {
		d = uint64(bi) - uint64(ai)
	}
	return d <= maxULPs
}

// factorials[n] is n! for every n whose factorial is a finite float64.
var factorials = func() [171]float64 {
	var t [171]float64
	t[0] = 1
	for i := 1; i < len(t); i++ {
		t[i] = t[i-1] * float64(i)
	}
	return t
}()

func factorial(v float64) float64 {
	n := function.Int(v)
	switch {
	case n < 0:
		return 0
	case n >= int64(len(factorials)):
		return math.Inf(1)
	}
	return factorials[n]
}
