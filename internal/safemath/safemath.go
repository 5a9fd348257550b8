package safemath

import (
	"errors"
	"math/bits"
)

var ErrOverflow = errors.New("number overflow")

func Add64(a, b uint64) (uint64, bool) {
	v, carry := bits.Add64(a, b, 0)
	return v, carry == 0
}

func Sub64(a, b uint64) (uint64, bool) {
	v, borrow := bits.Sub64(a, b, 0)
	return v, borrow == 0
}

// Sum64 adds all values, reporting false as soon as the running total overflows.
func Sum64(values ...uint64) (uint64, bool) {
	var total uint64
	for _, v := range values {
		var ok bool
		total, ok = Add64(total, v)
		if !ok {
			return 0, false
		}
	}
	return total, true
}

// MulDiv64 computes a*b/c with a 128-bit intermediate product.
// It reports false when c is zero or the quotient does not fit in 64 bits.
func MulDiv64(a, b, c uint64) (uint64, bool) {
	if c == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, false
	}
	q, _ := bits.Div64(hi, lo, c)
	return q, true
}
