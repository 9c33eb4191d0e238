package vm

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/wire"
)

type fakeAdapter struct {
	priceResult []float64
	received    *fixedpoint.U256
	gas         uint64
	updates     map[string][]byte
	swapErr     error
}

func (f *fakeAdapter) Price(pairID string, sell, buy [20]byte, amounts []*fixedpoint.U256, block uint64, overwrites map[string][]byte) ([]float64, error) {
	return f.priceResult, nil
}

func (f *fakeAdapter) Swap(pairID string, sell, buy [20]byte, isBuy bool, amount *fixedpoint.U256, block uint64, overwrites map[string][]byte) (*fixedpoint.U256, uint64, float64, map[string][]byte, error) {
	if f.swapErr != nil {
		return nil, 0, 0, nil, f.swapErr
	}
	return f.received, f.gas, 1.0, f.updates, nil
}

func (f *fakeAdapter) GetLimits(pairID string, sell, buy [20]byte, block uint64, overwrites map[string][]byte) (*fixedpoint.U256, *fixedpoint.U256, error) {
	return fixedpoint.NewU256FromUint64(1000), fixedpoint.NewU256FromUint64(1000), nil
}

func (f *fakeAdapter) GetCapabilities(pairID string, sell, buy [20]byte) (map[Capability]struct{}, error) {
	return map[Capability]struct{}{"price_function": {}}, nil
}

func (f *fakeAdapter) MinGasUsage() uint64 { return 21000 }

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func TestVMSpotPrice(t *testing.T) {
	a := &fakeAdapter{priceResult: []float64{2.5}}
	s := New("pair-1", "BalancerV2", addr(1), addr(2), 100, a)

	p, err := s.SpotPrice(addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, 2.5, p)
}

func TestVMSpotPriceWrongToken(t *testing.T) {
	a := &fakeAdapter{}
	s := New("pair-2", "BalancerV2", addr(1), addr(2), 100, a)
	_, err := s.SpotPrice(addr(3), addr(2))
	require.ErrorIs(t, err, errs.ErrTokenNotInPool)
}

func TestVMGetAmountOutCarriesOverwritesForward(t *testing.T) {
	a := &fakeAdapter{received: fixedpoint.NewU256FromUint64(42), gas: 150_000, updates: map[string][]byte{"slot0": {0x01}}}
	s := New("pair-3", "BalancerV2", addr(1), addr(2), 100, a)

	q, err := s.GetAmountOut(fixedpoint.NewU256FromUint64(10), addr(1), addr(2))
	require.NoError(t, err)
	require.Equal(t, uint64(42), q.AmountOut.Uint64())
	require.Equal(t, uint64(150_000), q.GasEstimate)

	next := q.NewState.(*State)
	require.Equal(t, []byte{0x01}, next.overwrites["slot0"])
	require.Empty(t, s.overwrites) // receiver untouched by quoting
}

func TestVMZeroAmountInvalid(t *testing.T) {
	a := &fakeAdapter{}
	s := New("pair-4", "BalancerV2", addr(1), addr(2), 100, a)
	_, err := s.GetAmountOut(fixedpoint.ZeroU256(), addr(1), addr(2))
	require.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestVMDeltaTransitionMergesOverwrites(t *testing.T) {
	a := &fakeAdapter{}
	s := New("pair-5", "BalancerV2", addr(1), addr(2), 100, a)

	err := s.DeltaTransition(wire.Delta{UpdatedAttributes: map[string][]byte{"slot1": {0xAB}}}, nil)
	require.NoError(t, err)
	require.Equal(t, []byte{0xAB}, s.overwrites["slot1"])

	err = s.DeltaTransition(wire.Delta{DeletedAttributes: map[string]struct{}{"slot1": {}}}, nil)
	require.NoError(t, err)
	_, ok := s.overwrites["slot1"]
	require.False(t, ok)
}

func TestVMCloneIndependent(t *testing.T) {
	a := &fakeAdapter{}
	s := New("pair-6", "BalancerV2", addr(1), addr(2), 100, a)
	s.overwrites["k"] = []byte{1}

	c := s.Clone().(*State)
	require.True(t, s.Equals(c))
	c.overwrites["k"] = []byte{2}
	require.False(t, s.Equals(c))
	require.Equal(t, []byte{1}, s.overwrites["k"])
}
