package fixedpoint

import "ammsim/errs"

// I256 is a 256-bit two's-complement signed integer. It is represented
// by the same bit pattern as a U256; the helpers in this file interpret
// that pattern as signed. Swap math (spec §4.4) uses it for the
// "amount_remaining" and "amount_calculated" accumulators, and the tick
// list for per-tick net liquidity; these values stay well under 2^255
// in magnitude, so the checked operations below favor clarity over
// handling every corner of the signed range (e.g. negating MinInt).
type I256 = U256

var signBit = Lsh(NewU256FromUint64(1), 255) // 2^255

// IsNegativeI256 reports whether x's two's-complement bit pattern
// represents a negative value.
func IsNegativeI256(x *I256) bool {
	return x.Cmp(signBit) >= 0
}

// NegateI256 returns -x via two's-complement wraparound (0 - x mod
// 2^256). Negating the minimum representable value overflows back to
// itself, matching two's-complement hardware behavior; callers in this
// package never hit that case because amount_remaining never reaches
// -2^255.
func NegateI256(x *I256) *I256 {
	return new(U256).Sub(ZeroU256(), x)
}

// AbsI256 returns the unsigned magnitude of x as a U256.
func AbsI256(x *I256) *U256 {
	if IsNegativeI256(x) {
		return NegateI256(x)
	}
	return new(U256).Set(x)
}

// FromSignedMagnitude builds an I256 from a sign and a non-negative
// magnitude, failing with errs.ErrOverflow if the magnitude does not fit
// in the signed range (>= 2^255).
func FromSignedMagnitude(neg bool, mag *U256) (*I256, error) {
	if mag.Cmp(signBit) > 0 || (mag.Cmp(signBit) == 0 && !neg) {
		return nil, errs.ErrOverflow
	}
	if !neg {
		return new(U256).Set(mag), nil
	}
	return NegateI256(mag), nil
}

// AddI256Checked returns a+b, failing with errs.ErrOverflow on signed
// overflow (operands share a sign but the result's sign differs).
func AddI256Checked(a, b *I256) (*I256, error) {
	z := new(U256).Add(a, b)
	aNeg, bNeg, zNeg := IsNegativeI256(a), IsNegativeI256(b), IsNegativeI256(z)
	if aNeg == bNeg && zNeg != aNeg {
		return nil, errs.ErrOverflow
	}
	return z, nil
}

// SubI256Checked returns a-b, failing with errs.ErrOverflow on signed
// overflow.
func SubI256Checked(a, b *I256) (*I256, error) {
	return AddI256Checked(a, NegateI256(b))
}

// I256FromBigEndianTwosComplement decodes a wire attribute holding a
// signed, minimal-width, big-endian two's-complement integer (spec §6:
// "net liquidity is 128-bit signed big-endian") into an I256.
func I256FromBigEndianTwosComplement(b []byte) (*I256, error) {
	neg := len(b) > 0 && b[0]&0x80 != 0
	mag := NewU256FromBytes(b)
	if !neg {
		return FromSignedMagnitude(false, mag)
	}
	full := Lsh(NewU256FromUint64(1), uint(8*len(b)))
	full, err := SubChecked(full, mag)
	if err != nil {
		return nil, err
	}
	return FromSignedMagnitude(true, full)
}
