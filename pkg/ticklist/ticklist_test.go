package ticklist

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
)

func liq(v int64) *fixedpoint.I256 {
	if v >= 0 {
		n, _ := fixedpoint.FromSignedMagnitude(false, fixedpoint.NewU256FromUint64(uint64(v)))
		return n
	}
	n, _ := fixedpoint.FromSignedMagnitude(true, fixedpoint.NewU256FromUint64(uint64(-v)))
	return n
}

func TestSetGetRemove(t *testing.T) {
	l := New(60)
	l.SetLiquidity(120, liq(100))
	l.SetLiquidity(-60, liq(50))

	info, ok := l.Get(120)
	require.True(t, ok)
	require.Equal(t, uint64(100), info.NetLiquidity.Uint64())

	require.Equal(t, 2, l.Len())
	l.SetLiquidity(120, liq(0))
	_, ok = l.Get(120)
	require.False(t, ok)
	require.Equal(t, 1, l.Len())
}

func TestNextInitializedTickFalling(t *testing.T) {
	l := New(60)
	l.SetLiquidity(-120, liq(10))
	l.SetLiquidity(0, liq(10))
	l.SetLiquidity(60, liq(10))

	tick, initialized, err := l.NextInitializedTickWithinOneWord(100, true)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, int32(60), tick)

	tick, initialized, err = l.NextInitializedTickWithinOneWord(60, true)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, int32(60), tick)

	tick, initialized, err = l.NextInitializedTickWithinOneWord(-5, true)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, int32(-120), tick)
}

func TestNextInitializedTickRising(t *testing.T) {
	l := New(60)
	l.SetLiquidity(-120, liq(10))
	l.SetLiquidity(0, liq(10))
	l.SetLiquidity(60, liq(10))

	tick, initialized, err := l.NextInitializedTickWithinOneWord(-121, false)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, int32(-120), tick)

	tick, initialized, err = l.NextInitializedTickWithinOneWord(0, false)
	require.NoError(t, err)
	require.True(t, initialized)
	require.Equal(t, int32(60), tick)
}

func TestNextInitializedTickEmptyWordReturnsBoundary(t *testing.T) {
	l := New(60)
	tick, initialized, err := l.NextInitializedTickWithinOneWord(100, true)
	require.NoError(t, err)
	require.False(t, initialized)
	require.LessOrEqual(t, tick, int32(100))
}

func TestNextInitializedTickExhaustsRange(t *testing.T) {
	l := New(60)
	_, _, err := l.NextInitializedTickWithinOneWord(MinTick, true)
	require.ErrorIs(t, err, errs.ErrTicksExceeded)
}

func TestCloneIndependence(t *testing.T) {
	l := New(60)
	l.SetLiquidity(0, liq(10))
	c := l.Clone()
	require.True(t, l.Equals(c))

	c.SetLiquidity(60, liq(5))
	require.False(t, l.Equals(c))
	_, ok := l.Get(60)
	require.False(t, ok)
}
