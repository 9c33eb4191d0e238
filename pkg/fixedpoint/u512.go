package fixedpoint

import (
	"encoding/binary"
	"math/bits"

	"ammsim/errs"
)

// u512 is an unsigned 512-bit integer, stored as eight 64-bit words,
// word[0] being the least significant. It exists purely as the
// intermediate of mul_div/mul_div_round_up (spec §4.1): a fixed-width,
// non-allocating 512-bit scratch value, never exposed outside this
// package.
type u512 [8]uint64

// words256 extracts a U256 into four 64-bit words, word[0] least
// significant, via the big-endian byte representation.
func words256(a *U256) [4]uint64 {
	b := a.Bytes32()
	var w [4]uint64
	for i := 0; i < 4; i++ {
		// b is big-endian; word i (0 = LSW) occupies bytes
		// [32-8*(i+1) : 32-8*i).
		w[i] = binary.BigEndian.Uint64(b[32-8*(i+1) : 32-8*i])
	}
	return w
}

// fromWords256 rebuilds a U256 from four 64-bit words (word[0] = LSW).
// Panics (via SetBytes32's precondition) never occur since the buffer is
// always exactly 32 bytes.
func fromWords256(w [4]uint64) *U256 {
	var b [32]byte
	for i := 0; i < 4; i++ {
		binary.BigEndian.PutUint64(b[32-8*(i+1):32-8*i], w[i])
	}
	z := new(U256)
	z.SetBytes32(b[:])
	return z
}

// mul512 computes the full 512-bit product of two 256-bit unsigned
// integers via schoolbook long multiplication over 64-bit words.
func mul512(a, b *U256) u512 {
	aw := words256(a)
	bw := words256(b)
	var prod [8]uint64

	for i := 0; i < 4; i++ {
		if aw[i] == 0 {
			continue
		}
		var carry uint64
		for j := 0; j < 4; j++ {
			hi, lo := bits.Mul64(aw[i], bw[j])
			var c1, c2 uint64
			sum, c1 := bits.Add64(prod[i+j], lo, 0)
			sum, c2 = bits.Add64(sum, carry, 0)
			prod[i+j] = sum
			carry = hi + c1 + c2
		}
		// propagate remaining carry through higher words
		k := i + 4
		for carry != 0 {
			sum, c := bits.Add64(prod[k], carry, 0)
			prod[k] = sum
			carry = c
			k++
		}
	}
	return u512(prod)
}

// isZero reports whether x is the zero 512-bit value.
func (x u512) isZero() bool {
	for _, w := range x {
		if w != 0 {
			return false
		}
	}
	return true
}

// cmp compares x and y as unsigned 512-bit integers: -1, 0, 1.
func (x u512) cmp(y u512) int {
	for i := 7; i >= 0; i-- {
		if x[i] != y[i] {
			if x[i] < y[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// shl1 shifts x left by one bit, returning the shifted value and the bit
// shifted out of the top.
func (x u512) shl1() (u512, uint64) {
	var out u512
	var carry uint64
	for i := 0; i < 8; i++ {
		out[i] = (x[i] << 1) | carry
		carry = x[i] >> 63
	}
	// carry here is the bit shifted out of word 7, i.e. out of the whole
	// 512-bit value.
	return out, x[7] >> 63
}

// sub subtracts y from x in place semantics (returns difference),
// assuming x >= y.
func (x u512) sub(y u512) u512 {
	var out u512
	var borrow uint64
	for i := 0; i < 8; i++ {
		d, b := bits.Sub64(x[i], y[i], borrow)
		out[i] = d
		borrow = b
	}
	return out
}

// setBit sets bit i (0 = LSB) of x.
func (x *u512) setBit(i int) {
	x[i/64] |= 1 << uint(i%64)
}

// divMod512by256 computes floor(dividend/divisor) and the remainder,
// where dividend is a full 512-bit value and divisor is a 256-bit value
// widened to 512 bits. It fails (ok=false) if the quotient does not fit
// in 256 bits — the overflow condition mul_div must report.
//
// Implemented as schoolbook binary long division: one bit of the
// quotient is produced per iteration by shifting a running remainder and
// comparing against the divisor. This is O(bits) rather than O(limbs)
// but touches only fixed-size arrays — no heap allocation, unlike a
// general-purpose bignum division.
func divMod512by256(dividend u512, divisor *U256) (quotient *U256, remainder *U256, ok bool) {
	if divisor.IsZero() {
		return nil, nil, false
	}
	var div512 u512
	dw := words256(divisor)
	copy(div512[:4], dw[:])

	var rem u512
	var quot u512
	for i := 511; i >= 0; i-- {
		var carryOut uint64
		rem, carryOut = rem.shl1()
		// bring down bit i of the dividend into the LSB of rem
		bit := (dividend[i/64] >> uint(i%64)) & 1
		rem[0] |= bit
		_ = carryOut // bits shifted out of a 512-bit remainder can only
		// happen if rem was already >= 2^511, which would imply the
		// quotient is about to overflow; the comparison below catches
		// that via rem staying within 512 bits (carryOut is informational
		// only because rem never needs to exceed 512 bits for a divisor
		// that itself fits in 256 bits).

		if rem.cmp(div512) >= 0 {
			rem = rem.sub(div512)
			quot.setBit(i)
		}
	}

	// quotient must fit in the low 256 bits (words 0..3); words 4..7 must
	// be zero or the true quotient overflowed 256 bits.
	for i := 4; i < 8; i++ {
		if quot[i] != 0 {
			return nil, nil, false
		}
	}
	var qw [4]uint64
	copy(qw[:], quot[:4])
	var rw [4]uint64
	copy(rw[:], rem[:4])
	return fromWords256(qw), fromWords256(rw), true
}

// MulDiv computes floor(a*b/d) using a 512-bit intermediate product,
// failing with errs.ErrOverflow if the result does not fit in 256 bits
// or d is zero (spec §4.1).
func MulDiv(a, b, d *U256) (*U256, error) {
	prod := mul512(a, b)
	q, _, ok := divMod512by256(prod, d)
	if !ok {
		return nil, errs.ErrOverflow
	}
	return q, nil
}

// MulDivRoundUp computes ceil(a*b/d) using a 512-bit intermediate
// product, failing with errs.ErrOverflow under the same conditions as
// MulDiv, including when rounding up would itself overflow 256 bits.
func MulDivRoundUp(a, b, d *U256) (*U256, error) {
	prod := mul512(a, b)
	q, r, ok := divMod512by256(prod, d)
	if !ok {
		return nil, errs.ErrOverflow
	}
	if r.IsZero() {
		return q, nil
	}
	return AddChecked(q, NewU256FromUint64(1))
}
