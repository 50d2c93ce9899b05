// Package extfloat implements the common 64-bit working domain for the
// reference computation. Every narrow operand is widened exactly into a
// float64, all arithmetic happens there, and only the final result is
// rounded back down to the destination encoding.
package extfloat

import (
	"math"

	"github.com/23skdu/fpstim/internal/format"
)

const (
	f64ExpBits  = 11
	f64MantBits = 52
	f64ExpMask  = (1 << f64ExpBits) - 1
	f64MantMask = (uint64(1) << f64MantBits) - 1
	f64Bias     = 1023
)

// CastUp reinterprets bits as an encoding of d and widens it to float64.
// Widening is exact for every supported narrow format: float64 has strictly
// more exponent range and mantissa precision, so normals, subnormals, zeros,
// infinities and NaN payloads all survive unchanged. NaN payloads land in
// the high bits of the float64 mantissa.
func CastUp(bits uint64, d format.Descriptor) float64 {
	w := d.Width()
	if w == 64 {
		return math.Float64frombits(bits)
	}
	bits &= d.Mask()

	expMask := (uint64(1) << d.ExpBits) - 1
	mant := bits & ((uint64(1) << d.MantBits) - 1)
	exp := (bits >> d.MantBits) & expMask
	sign := bits >> (w - 1)
	shift := f64MantBits - d.MantBits

	var out uint64
	switch {
	case exp == expMask:
		// Inf or NaN; payload keeps its position relative to the MSB.
		out = sign<<63 | f64ExpMask<<f64MantBits | mant<<shift
	case exp == 0:
		if mant == 0 {
			out = sign << 63
			break
		}
		// Subnormal: normalize into the implicit-one form.
		e := 1 - d.Bias()
		for mant&(uint64(1)<<d.MantBits) == 0 {
			mant <<= 1
			e--
		}
		mant &= (uint64(1) << d.MantBits) - 1
		out = sign<<63 | uint64(e+f64Bias)<<f64MantBits | mant<<shift
	default:
		e := int(exp) - d.Bias() + f64Bias
		out = sign<<63 | uint64(e)<<f64MantBits | mant<<shift
	}
	return math.Float64frombits(out)
}

// CastDown rounds v to the encoding of d using round-to-nearest-even and
// returns the d.Width()-bit pattern. Overflow saturates to infinity,
// underflow produces a subnormal or signed zero. A NaN keeps the top bits
// of its payload; if those truncate to zero the quiet bit is forced so the
// result is still a NaN rather than an infinity.
func CastDown(v float64, d format.Descriptor) uint64 {
	w := d.Width()
	if w == 64 {
		return math.Float64bits(v)
	}

	bits := math.Float64bits(v)
	sign := (bits >> 63) << (w - 1)
	exp := int((bits >> f64MantBits) & f64ExpMask)
	mant := bits & f64MantMask

	expMask := (uint64(1) << d.ExpBits) - 1
	mantMask := (uint64(1) << d.MantBits) - 1
	shift := f64MantBits - d.MantBits

	if exp == f64ExpMask {
		if mant == 0 {
			return sign | expMask<<d.MantBits
		}
		payload := mant >> shift
		if payload == 0 {
			payload = uint64(1) << (d.MantBits - 1)
		}
		return sign | expMask<<d.MantBits | payload
	}

	// Significand with the implicit bit explicit, and the unbiased exponent.
	var e int
	var frac uint64
	if exp == 0 {
		if mant == 0 {
			return sign
		}
		e = 1 - f64Bias
		frac = mant
		for frac&(uint64(1)<<f64MantBits) == 0 {
			frac <<= 1
			e--
		}
	} else {
		e = exp - f64Bias
		frac = mant | uint64(1)<<f64MantBits
	}

	te := e + d.Bias()
	if te >= int(expMask) {
		return sign | expMask<<d.MantBits
	}
	if te <= 0 {
		// Subnormal in the target: shift further right before rounding.
		// A round-up carry out of the mantissa lands on the exponent LSB
		// and yields the smallest normal, which is exactly what the
		// encoding needs.
		return sign | roundShift(frac, shift+uint(1-te))
	}

	q := roundShift(frac, shift)
	if q == (mantMask+1)<<1 {
		q >>= 1
		te++
		if te >= int(expMask) {
			return sign | expMask<<d.MantBits
		}
	}
	return sign | uint64(te)<<d.MantBits | q&mantMask
}

// roundShift computes x >> s rounded to nearest, ties to even.
func roundShift(x uint64, s uint) uint64 {
	if s == 0 {
		return x
	}
	if s > 63 {
		return 0
	}
	q := x >> s
	rem := x & (uint64(1)<<s - 1)
	half := uint64(1) << (s - 1)
	if rem > half || (rem == half && q&1 == 1) {
		q++
	}
	return q
}

// Add sums two working values. No narrowing happens here; the single
// rounding to the destination is CastDown's job.
func Add(a, b float64) float64 {
	return a + b
}

// FMA computes a*b+c with one rounding at working precision.
func FMA(a, b, c float64) float64 {
	return math.FMA(a, b, c)
}

// IsNaN reports whether bits encodes a NaN of format d.
func IsNaN(bits uint64, d format.Descriptor) bool {
	expMask := (uint64(1) << d.ExpBits) - 1
	mant := bits & ((uint64(1) << d.MantBits) - 1)
	exp := (bits >> d.MantBits) & expMask
	return exp == expMask && mant != 0
}

// IsInf reports whether bits encodes an infinity of format d.
func IsInf(bits uint64, d format.Descriptor) bool {
	expMask := (uint64(1) << d.ExpBits) - 1
	mant := bits & ((uint64(1) << d.MantBits) - 1)
	exp := (bits >> d.MantBits) & expMask
	return exp == expMask && mant == 0
}

// IsSubnormal reports whether bits encodes a nonzero subnormal of format d.
func IsSubnormal(bits uint64, d format.Descriptor) bool {
	mant := bits & ((uint64(1) << d.MantBits) - 1)
	exp := (bits >> d.MantBits) & ((uint64(1) << d.ExpBits) - 1)
	return exp == 0 && mant != 0
}

// IsZero reports whether bits encodes a positive or negative zero of format d.
func IsZero(bits uint64, d format.Descriptor) bool {
	return bits&(d.Mask()>>1) == 0
}
