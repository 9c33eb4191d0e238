package fixedpoint

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/errs"
)

func TestCheckedAddOverflow(t *testing.T) {
	maxU256 := new(U256).Not(ZeroU256())
	_, err := AddChecked(maxU256, NewU256FromUint64(1))
	require.ErrorIs(t, err, errs.ErrOverflow)

	sum, err := AddChecked(NewU256FromUint64(2), NewU256FromUint64(3))
	require.NoError(t, err)
	require.Equal(t, uint64(5), sum.Uint64())
}

func TestCheckedSubUnderflow(t *testing.T) {
	_, err := SubChecked(NewU256FromUint64(1), NewU256FromUint64(2))
	require.ErrorIs(t, err, errs.ErrOverflow)

	diff, err := SubChecked(NewU256FromUint64(5), NewU256FromUint64(2))
	require.NoError(t, err)
	require.Equal(t, uint64(3), diff.Uint64())
}

func TestDivByZero(t *testing.T) {
	_, err := DivChecked(NewU256FromUint64(1), ZeroU256())
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestMulDivExact(t *testing.T) {
	a := NewU256FromUint64(1_000_000)
	b := NewU256FromUint64(3)
	d := NewU256FromUint64(4)
	got, err := MulDiv(a, b, d)
	require.NoError(t, err)
	require.Equal(t, uint64(750_000), got.Uint64())
}

func TestMulDivLargeIntermediate(t *testing.T) {
	// a*b overflows 256 bits on its own if computed without a wide
	// intermediate; mul_div must still produce the correct floor.
	maxU256 := new(U256).Not(ZeroU256())
	got, err := MulDiv(maxU256, maxU256, maxU256)
	require.NoError(t, err)
	require.Equal(t, maxU256.String(), got.String())
}

func TestMulDivOverflow(t *testing.T) {
	maxU256 := new(U256).Not(ZeroU256())
	_, err := MulDiv(maxU256, maxU256, NewU256FromUint64(1))
	require.ErrorIs(t, err, errs.ErrOverflow)
}

func TestMulDivRoundUp(t *testing.T) {
	a := NewU256FromUint64(7)
	b := NewU256FromUint64(1)
	d := NewU256FromUint64(3)
	down, err := MulDiv(a, b, d)
	require.NoError(t, err)
	require.Equal(t, uint64(2), down.Uint64())

	up, err := MulDivRoundUp(a, b, d)
	require.NoError(t, err)
	require.Equal(t, uint64(3), up.Uint64())
}

func TestMulDivRoundUpExactNoBump(t *testing.T) {
	got, err := MulDivRoundUp(NewU256FromUint64(6), NewU256FromUint64(1), NewU256FromUint64(3))
	require.NoError(t, err)
	require.Equal(t, uint64(2), got.Uint64())
}

func TestI256SignAndAbs(t *testing.T) {
	neg, err := FromSignedMagnitude(true, NewU256FromUint64(42))
	require.NoError(t, err)
	require.True(t, IsNegativeI256(neg))
	require.Equal(t, uint64(42), AbsI256(neg).Uint64())

	pos, err := FromSignedMagnitude(false, NewU256FromUint64(42))
	require.NoError(t, err)
	require.False(t, IsNegativeI256(pos))
	require.Equal(t, uint64(42), AbsI256(pos).Uint64())
}

func TestI256AddSub(t *testing.T) {
	five, _ := FromSignedMagnitude(false, NewU256FromUint64(5))
	three, _ := FromSignedMagnitude(true, NewU256FromUint64(3))

	sum, err := AddI256Checked(five, three)
	require.NoError(t, err)
	require.False(t, IsNegativeI256(sum))
	require.Equal(t, uint64(2), AbsI256(sum).Uint64())

	diff, err := SubI256Checked(three, five)
	require.NoError(t, err)
	require.True(t, IsNegativeI256(diff))
	require.Equal(t, uint64(8), AbsI256(diff).Uint64())
}

func TestI256FromBigEndianTwosComplementPositive(t *testing.T) {
	v, err := I256FromBigEndianTwosComplement([]byte{0x01, 0x00})
	require.NoError(t, err)
	require.False(t, IsNegativeI256(v))
	require.Equal(t, uint64(256), AbsI256(v).Uint64())
}

func TestI256FromBigEndianTwosComplementNegative(t *testing.T) {
	// 16-bit two's-complement -1 is 0xFFFF.
	v, err := I256FromBigEndianTwosComplement([]byte{0xFF, 0xFF})
	require.NoError(t, err)
	require.True(t, IsNegativeI256(v))
	require.Equal(t, uint64(1), AbsI256(v).Uint64())
}

func TestU256ToFloat64Zero(t *testing.T) {
	require.Equal(t, 0.0, U256ToFloat64(ZeroU256()))
}

func TestU256ToFloat64SmallExact(t *testing.T) {
	require.Equal(t, 1.0, U256ToFloat64(NewU256FromUint64(1)))
	require.Equal(t, 1234.0, U256ToFloat64(NewU256FromUint64(1234)))
}

func TestU256ToFloat64MaxSafeInteger(t *testing.T) {
	maxSafe := uint64(1)<<53 - 1
	require.Equal(t, float64(maxSafe), U256ToFloat64(NewU256FromUint64(maxSafe)))
}

func TestU256ToFloat64RoundsNearestEven(t *testing.T) {
	// 2^60 + 2^6 has a nonzero sticky region below the retained 53 bits;
	// the result must match the standard library's own uint64->float64
	// conversion, which already performs round-to-nearest-even.
	v := (uint64(1) << 60) + (uint64(1) << 6)
	require.Equal(t, float64(v), U256ToFloat64(NewU256FromUint64(v)))
}

func TestU256ToFloat64LargerThan64Bits(t *testing.T) {
	// 2^200: exact power of two, well beyond 64 bits, must round-trip
	// exactly since it has only one significant bit.
	x := Lsh(NewU256FromUint64(1), 200)
	got := U256ToFloat64(x)
	require.Equal(t, math_Pow2(200), got)
}

// math_Pow2 avoids importing math/big just for a reference power of two
// in the test: 2^n for small n fits a float64 exactly via repeated
// doubling.
func math_Pow2(n int) float64 {
	v := 1.0
	for i := 0; i < n; i++ {
		v *= 2
	}
	return v
}
