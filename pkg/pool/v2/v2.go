// Package v2 implements component C5: the Uniswap-V2-style
// constant-product pool (spec §4.5). Grounded on
// guidebee-SolRoute/pkg/pool/orca's reserve-pair Decode/Quote shape —
// the closest SolRoute analogue to a two-reserve constant-product AMM —
// generalized from Orca's fixed 0.3% fee pool to the exact 997/1000
// formula and big-endian attribute decoding the spec requires.
package v2

import (
	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// LogPos is the indexer position a snapshot or delta was produced at,
// carried for idempotence of out-of-band replays (spec §4.5).
type LogPos struct {
	Block    uint64
	TxIndex  uint32
	LogIndex uint32
}

const gasEstimate = 120_000

// feeNum/feeDen encode the fixed 0.3% (30bps) fee as the 997/1000
// factor spec §4.5 specifies directly, rather than a fee_pips field.
const (
	feeNum = 997
	feeDen = 1000
)

// State is a V2 pool's state: two reserves and the static token
// metadata needed for spot-price decimal adjustment.
type State struct {
	id       string
	token0   [20]byte
	token1   [20]byte
	dec0     uint8
	dec1     uint8
	reserve0 *fixedpoint.U256
	reserve1 *fixedpoint.U256
	logPos   LogPos
}

// New builds a V2 pool state from its two reserves and token metadata.
func New(id string, token0, token1 token.Token, reserve0, reserve1 *fixedpoint.U256, logPos LogPos) *State {
	return &State{
		id:       id,
		token0:   token0.Address,
		token1:   token1.Address,
		dec0:     token0.Decimals,
		dec1:     token1.Decimals,
		reserve0: new(fixedpoint.U256).Set(reserve0),
		reserve1: new(fixedpoint.U256).Set(reserve1),
		logPos:   logPos,
	}
}

func (s *State) ID() string           { return s.id }
func (s *State) Variant() pool.Variant { return pool.VariantV2 }
func (s *State) Tokens() [2][20]byte  { return [2][20]byte{s.token0, s.token1} }

// Fee returns the fixed 0.3% pool fee (spec §4.5).
func (s *State) Fee() (float64, error) {
	return 1 - float64(feeNum)/float64(feeDen), nil
}

func (s *State) direction(base, quote [20]byte) (baseIsToken0 bool, err error) {
	switch {
	case base == s.token0 && quote == s.token1:
		return true, nil
	case base == s.token1 && quote == s.token0:
		return false, nil
	default:
		return false, errs.ErrTokenNotInPool
	}
}

// SpotPrice returns the price of base in terms of quote (spec §4.5).
func (s *State) SpotPrice(base, quote [20]byte) (float64, error) {
	baseIsToken0, err := s.direction(base, quote)
	if err != nil {
		return 0, err
	}
	r0 := fixedpoint.U256ToFloat64(s.reserve0)
	r1 := fixedpoint.U256ToFloat64(s.reserve1)
	if baseIsToken0 {
		// base < quote (token0 < token1): (reserve1/reserve0) * 10^(dec0-dec1)
		return (r1 / r0) * pow10(int(s.dec0)-int(s.dec1)), nil
	}
	return (r0 / r1) * pow10(int(s.dec1)-int(s.dec0)), nil
}

func pow10(exp int) float64 {
	v := 1.0
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			v *= 10
		}
		return v
	}
	for i := 0; i < -exp; i++ {
		v /= 10
	}
	return v
}

// GetAmountOut quotes a trade without mutating the receiver (spec
// §4.5).
func (s *State) GetAmountOut(amountIn *fixedpoint.U256, tokenIn, tokenOut [20]byte) (pool.Quote, error) {
	if amountIn.IsZero() {
		return pool.Quote{}, errs.ErrInvalidInput
	}
	sellIsToken0, err := s.direction(tokenIn, tokenOut)
	if err != nil {
		return pool.Quote{}, err
	}
	reserveSell, reserveBuy := s.reserve1, s.reserve0
	if sellIsToken0 {
		reserveSell, reserveBuy = s.reserve0, s.reserve1
	}
	if reserveSell.IsZero() || reserveBuy.IsZero() {
		return pool.Quote{}, errs.ErrNoLiquidity
	}

	amountInWithFee, err := fixedpoint.MulChecked(amountIn, fixedpoint.NewU256FromUint64(feeNum))
	if err != nil {
		return pool.Quote{}, err
	}
	numerator, err := fixedpoint.MulChecked(amountInWithFee, reserveBuy)
	if err != nil {
		return pool.Quote{}, err
	}
	scaledReserveSell, err := fixedpoint.MulChecked(reserveSell, fixedpoint.NewU256FromUint64(feeDen))
	if err != nil {
		return pool.Quote{}, err
	}
	denominator, err := fixedpoint.AddChecked(scaledReserveSell, amountInWithFee)
	if err != nil {
		return pool.Quote{}, err
	}
	amountOut, err := fixedpoint.DivChecked(numerator, denominator)
	if err != nil {
		return pool.Quote{}, err
	}

	newReserveSell, err := fixedpoint.AddChecked(reserveSell, amountIn)
	if err != nil {
		return pool.Quote{}, err
	}
	newReserveBuy, err := fixedpoint.SubChecked(reserveBuy, amountOut)
	if err != nil {
		return pool.Quote{}, err
	}

	next := &State{id: s.id, token0: s.token0, token1: s.token1, dec0: s.dec0, dec1: s.dec1, logPos: s.logPos}
	if sellIsToken0 {
		next.reserve0, next.reserve1 = newReserveSell, newReserveBuy
	} else {
		next.reserve1, next.reserve0 = newReserveSell, newReserveBuy
	}

	return pool.Quote{AmountOut: amountOut, GasEstimate: gasEstimate, NewState: next}, nil
}

// DeltaTransition reads reserve0/reserve1 from the delta's updated
// attributes, big-endian encoded (spec §4.5). A missing attribute is a
// fatal decode error for this component.
func (s *State) DeltaTransition(delta wire.Delta, _ *token.Registry) error {
	r0, ok := delta.UpdatedAttributes["reserve0"]
	if !ok {
		return errs.ErrMissingAttribute
	}
	r1, ok := delta.UpdatedAttributes["reserve1"]
	if !ok {
		return errs.ErrMissingAttribute
	}
	s.reserve0 = fixedpoint.NewU256FromBytes(r0)
	s.reserve1 = fixedpoint.NewU256FromBytes(r1)
	return nil
}

// Equals reports deep equality with another V2 state.
func (s *State) Equals(other pool.Pool) bool {
	o, ok := other.(*State)
	if !ok {
		return false
	}
	return s.id == o.id && s.token0 == o.token0 && s.token1 == o.token1 &&
		s.reserve0.Cmp(o.reserve0) == 0 && s.reserve1.Cmp(o.reserve1) == 0
}

// Clone returns an independent deep copy (spec §3 "clone is required
// for snapshotting").
func (s *State) Clone() pool.Pool {
	return &State{
		id:       s.id,
		token0:   s.token0,
		token1:   s.token1,
		dec0:     s.dec0,
		dec1:     s.dec1,
		reserve0: new(fixedpoint.U256).Set(s.reserve0),
		reserve1: new(fixedpoint.U256).Set(s.reserve1),
		logPos:   s.logPos,
	}
}
