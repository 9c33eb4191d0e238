// Package fixedpoint implements the checked, fixed-width integer
// arithmetic the rest of the simulation core is built on (spec §4.1,
// component C1): U256, U512 and I256, checked add/sub/mul/div/mod,
// unchecked shifts, mul_div / mul_div_round_up with a 512-bit
// intermediate, and a deterministic, bit-level U256 -> float64
// conversion that does not rely on the platform's double-conversion
// routines.
//
// U256 wraps github.com/holiman/uint256, the fixed-width (non-allocating)
// 256-bit integer used throughout the EVM tooling ecosystem — the same
// role it plays in parsdao-pars/dex's pool manager. Every operation that
// can overflow the 256-bit range returns errs.ErrOverflow rather than
// wrapping, matching the checked-arithmetic contract of spec §4.1.
package fixedpoint

import (
	"github.com/holiman/uint256"

	"ammsim/errs"
)

// U256 is an unsigned 256-bit integer.
type U256 = uint256.Int

// ZeroU256 returns a fresh zero-valued U256.
func ZeroU256() *U256 { return new(U256) }

// NewU256FromUint64 builds a U256 from a uint64.
func NewU256FromUint64(v uint64) *U256 { return new(U256).SetUint64(v) }

// NewU256FromBytes interprets b as a big-endian unsigned integer. If b
// is longer than 32 bytes, only its last 32 bytes are used; no error is
// reported.
func NewU256FromBytes(b []byte) *U256 {
	return new(U256).SetBytes(b)
}

// AddChecked returns a+b, or errs.ErrOverflow if the sum does not fit in
// 256 bits.
func AddChecked(a, b *U256) (*U256, error) {
	z := new(U256)
	_, overflow := z.AddOverflow(a, b)
	if overflow {
		return nil, errs.ErrOverflow
	}
	return z, nil
}

// SubChecked returns a-b, or errs.ErrOverflow if b > a (the result would
// be negative, which U256 cannot represent).
func SubChecked(a, b *U256) (*U256, error) {
	z := new(U256)
	_, overflow := z.SubOverflow(a, b)
	if overflow {
		return nil, errs.ErrOverflow
	}
	return z, nil
}

// MulChecked returns a*b, or errs.ErrOverflow if the product does not fit
// in 256 bits.
func MulChecked(a, b *U256) (*U256, error) {
	z := new(U256)
	_, overflow := z.MulOverflow(a, b)
	if overflow {
		return nil, errs.ErrOverflow
	}
	return z, nil
}

// DivChecked returns floor(a/b), or errs.ErrOverflow if b is zero.
func DivChecked(a, b *U256) (*U256, error) {
	if b.IsZero() {
		return nil, errs.ErrOverflow
	}
	return new(U256).Div(a, b), nil
}

// ModChecked returns a mod b, or errs.ErrOverflow if b is zero.
func ModChecked(a, b *U256) (*U256, error) {
	if b.IsZero() {
		return nil, errs.ErrOverflow
	}
	return new(U256).Mod(a, b), nil
}

// Lsh is an unchecked left shift (bits shifted out past bit 255 are
// silently dropped, matching on-chain SHL semantics).
func Lsh(a *U256, n uint) *U256 { return new(U256).Lsh(a, n) }

// Rsh is an unchecked logical right shift.
func Rsh(a *U256, n uint) *U256 { return new(U256).Rsh(a, n) }
