package tickmath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/pkg/fixedpoint"
)

func TestGetSqrtRatioAtTickZero(t *testing.T) {
	got, err := GetSqrtRatioAtTick(0)
	require.NoError(t, err)
	want := fixedpoint.Lsh(fixedpoint.NewU256FromUint64(1), 96)
	require.Equal(t, want.String(), got.String())
}

func TestGetSqrtRatioAtTickBounds(t *testing.T) {
	lo, err := GetSqrtRatioAtTick(MinTick)
	require.NoError(t, err)
	require.Equal(t, MinSqrtRatio.String(), lo.String())

	hi, err := GetSqrtRatioAtTick(MaxTick)
	require.NoError(t, err)
	require.Equal(t, MaxSqrtRatio.String(), hi.String())
}

func TestGetSqrtRatioAtTickOutOfRange(t *testing.T) {
	_, err := GetSqrtRatioAtTick(MaxTick + 1)
	require.Error(t, err)
	_, err = GetSqrtRatioAtTick(MinTick - 1)
	require.Error(t, err)
}

func TestGetTickAtSqrtRatioOutOfRange(t *testing.T) {
	belowMin, err := fixedpoint.SubChecked(MinSqrtRatio, fixedpoint.NewU256FromUint64(1))
	require.NoError(t, err)
	_, err = GetTickAtSqrtRatio(belowMin)
	require.Error(t, err)
	_, err = GetTickAtSqrtRatio(MaxSqrtRatio)
	require.Error(t, err)
}

func TestRoundTripAcrossRange(t *testing.T) {
	samples := []int32{
		MinTick, MinTick + 1, -500000, -200000, -100, -1, 0, 1, 100,
		200000, 500000, MaxTick - 1,
	}
	for _, tick := range samples {
		sqrtP, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		got, err := GetTickAtSqrtRatio(sqrtP)
		require.NoError(t, err)
		require.Equalf(t, tick, got, "round trip failed for tick %d (sqrtP=%s)", tick, sqrtP.String())
	}
}

func TestRoundTripDenseSmallRange(t *testing.T) {
	for tick := int32(-1000); tick <= 1000; tick++ {
		sqrtP, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		got, err := GetTickAtSqrtRatio(sqrtP)
		require.NoError(t, err)
		require.Equal(t, tick, got)
	}
}

func TestSqrtRatioMonotonic(t *testing.T) {
	prev, err := GetSqrtRatioAtTick(-10)
	require.NoError(t, err)
	for tick := int32(-9); tick <= 10; tick++ {
		cur, err := GetSqrtRatioAtTick(tick)
		require.NoError(t, err)
		require.Equal(t, -1, prev.Cmp(cur), "sqrt ratio must strictly increase with tick")
		prev = cur
	}
}
