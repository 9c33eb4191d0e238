package fixedpoint

import "math"

// U256ToFloat64 converts x to the nearest float64 using round-to-nearest-
// even, entirely at the bit level (spec §4.1). Spot-price reporting
// (V2 and V3 §4.5/§4.6) must be reproducible across platforms, which
// rules out routing through big.Float or a library's own float
// conversion: both are free to pick rounding behavior the spec does not
// pin down. This builds the IEEE-754 bit pattern by hand instead.
//
// x fitting in 53 bits is returned exactly. Otherwise the top 53 bits
// become the mantissa, the bit just below them is the round bit, and
// everything below that is OR'd into a sticky bit; ties round to even
// via the retained mantissa's own LSB.
func U256ToFloat64(x *U256) float64 {
	if x.IsZero() {
		return 0.0
	}
	bitLen := x.BitLen()
	if bitLen <= 53 {
		return float64(x.Uint64())
	}

	shift := bitLen - 53
	mantissa := Rsh(x, uint(shift)).Uint64() // top 53 bits, leading bit = bit 52
	roundBit := Rsh(x, uint(shift-1)).Uint64() & 1
	stickyMask := Lsh(NewU256FromUint64(1), uint(shift-1))
	sticky := !new(U256).Mod(x, stickyMask).IsZero()
	lsb := mantissa & 1

	exp := bitLen - 1
	if roundBit == 1 && (sticky || lsb == 1) {
		mantissa++
		if mantissa == 1<<53 {
			mantissa >>= 1
			exp++
		}
	}

	biasedExp := uint64(1023 + exp)
	fraction := mantissa & ((1 << 52) - 1) // drop the implicit leading bit
	bits := (biasedExp << 52) | fraction
	return math.Float64frombits(bits)
}
