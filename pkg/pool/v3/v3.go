// Package v3 implements component C6: the Uniswap-V3-style
// concentrated-liquidity pool, including the iterative tick-crossing
// swap loop (spec §4.6). The loop's state machine shape — a running
// {amount_remaining, amount_calculated, sqrt_price, tick, liquidity,
// gas_used} struct stepped by repeated compute_swap_step calls until
// the remaining amount or a price limit is hit — is grounded on
// other_examples' hoanguyenkh-uniswap-v3-simulator CorePool.HandleSwap,
// reimplemented over this module's bit-exact fixedpoint/tickmath/
// ticklist/swapmath packages instead of that example's decimal.Decimal
// plus daoleno/uniswapv3-sdk.
package v3

import (
	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/swapmath"
	"ammsim/pkg/tickmath"
	"ammsim/pkg/ticklist"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

const initialGas = 130_000
const perStepGas = 2_000

// State is a V3 pool's state: current liquidity, current √price and
// tick, the fixed fee tier, and the sparse tick list.
type State struct {
	id          string
	token0      [20]byte
	token1      [20]byte
	dec0        uint8
	dec1        uint8
	liquidity   *fixedpoint.U256
	sqrtPrice   *fixedpoint.U256
	tick        int32
	feePips     uint32
	tickSpacing int32
	ticks       *ticklist.TickList
}

// New builds a V3 pool state.
func New(id string, token0, token1 token.Token, liquidity, sqrtPrice *fixedpoint.U256, feePips uint32, tick, tickSpacing int32, ticks *ticklist.TickList) *State {
	return &State{
		id:          id,
		token0:      token0.Address,
		token1:      token1.Address,
		dec0:        token0.Decimals,
		dec1:        token1.Decimals,
		liquidity:   new(fixedpoint.U256).Set(liquidity),
		sqrtPrice:   new(fixedpoint.U256).Set(sqrtPrice),
		tick:        tick,
		feePips:     feePips,
		tickSpacing: tickSpacing,
		ticks:       ticks,
	}
}

func (s *State) ID() string            { return s.id }
func (s *State) Variant() pool.Variant { return pool.VariantV3 }
func (s *State) Tokens() [2][20]byte   { return [2][20]byte{s.token0, s.token1} }

// Fee returns fee_pips / 1e6 (spec §4.6).
func (s *State) Fee() (float64, error) {
	return float64(s.feePips) / 1_000_000, nil
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

// SpotPrice returns (sqrt_price/2^96)^2 * 10^(dec_base-dec_quote),
// inverted when base/quote is given in the non-canonical order (spec
// §4.6).
func (s *State) SpotPrice(base, quote [20]byte) (float64, error) {
	baseIsToken0, err := s.direction(base, quote)
	if err != nil {
		return 0, err
	}
	ratio := fixedpoint.U256ToFloat64(s.sqrtPrice) / q96Float
	price0in1 := ratio * ratio * pow10(int(s.dec0)-int(s.dec1))
	if baseIsToken0 {
		return price0in1, nil
	}
	return 1 / price0in1, nil
}

var q96Float = func() float64 {
	v := 1.0
	for i := 0; i < 96; i++ {
		v *= 2
	}
	return v
}()

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

func clampSqrtTarget(sqrtPriceNext, priceLimit *fixedpoint.U256, zeroForOne bool) *fixedpoint.U256 {
	overshoots := zeroForOne && sqrtPriceNext.Cmp(priceLimit) < 0
	undershoots := !zeroForOne && sqrtPriceNext.Cmp(priceLimit) > 0
	if overshoots || undershoots {
		return priceLimit
	}
	return sqrtPriceNext
}

func clampTick(t int32) int32 {
	if t < tickmath.MinTick {
		return tickmath.MinTick
	}
	if t > tickmath.MaxTick {
		return tickmath.MaxTick
	}
	return t
}

// GetAmountOut runs the iterative tick-crossing swap loop (spec §4.6).
// On errs.ErrTicksExceeded, the returned error is an
// *errs.TicksExceededError carrying the partial Quote computed before
// ticks ran out.
func (s *State) GetAmountOut(amountIn *fixedpoint.U256, tokenIn, tokenOut [20]byte) (pool.Quote, error) {
	if amountIn.IsZero() {
		return pool.Quote{}, errs.ErrInvalidInput
	}
	zeroForOne, err := s.sellDirection(tokenIn, tokenOut)
	if err != nil {
		return pool.Quote{}, err
	}
	if s.liquidity.IsZero() {
		return pool.Quote{}, errs.ErrNoLiquidity
	}

	priceLimit := tickmath.MaxSqrtRatio
	if zeroForOne {
		var err error
		priceLimit, err = fixedpoint.AddChecked(tickmath.MinSqrtRatio, fixedpoint.NewU256FromUint64(1))
		if err != nil {
			return pool.Quote{}, err
		}
	} else {
		var err error
		priceLimit, err = fixedpoint.SubChecked(tickmath.MaxSqrtRatio, fixedpoint.NewU256FromUint64(1))
		if err != nil {
			return pool.Quote{}, err
		}
	}

	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, amountIn)
	if err != nil {
		return pool.Quote{}, err
	}
	amountCalculated, _ := fixedpoint.FromSignedMagnitude(false, fixedpoint.ZeroU256())

	curSqrtPrice := new(fixedpoint.U256).Set(s.sqrtPrice)
	curTick := s.tick
	curLiquidity := new(fixedpoint.U256).Set(s.liquidity)
	gasUsed := uint64(initialGas)

	for !amountRemaining.IsZero() && curSqrtPrice.Cmp(priceLimit) != 0 {
		nextTick, initialized, err := s.ticks.NextInitializedTickWithinOneWord(curTick, zeroForOne)
		if err != nil {
			partialQuote := pool.Quote{
				AmountOut:   fixedpoint.AbsI256(amountCalculated),
				GasEstimate: gasUsed,
				NewState:    s.snapshot(curSqrtPrice, curTick, curLiquidity),
			}
			return pool.Quote{}, errs.NewTicksExceeded(partialQuote, gasUsed)
		}
		nextTick = clampTick(nextTick)

		sqrtPriceNext, err := tickmath.GetSqrtRatioAtTick(nextTick)
		if err != nil {
			return pool.Quote{}, err
		}
		target := clampSqrtTarget(sqrtPriceNext, priceLimit, zeroForOne)

		iterStart := new(fixedpoint.U256).Set(curSqrtPrice)
		step, err := swapmath.ComputeSwapStep(curSqrtPrice, target, curLiquidity, amountRemaining, s.feePips)
		if err != nil {
			return pool.Quote{}, err
		}

		consumed, err := fixedpoint.AddChecked(step.AmountIn, step.Fee)
		if err != nil {
			return pool.Quote{}, err
		}
		amountRemaining, err = fixedpoint.SubI256Checked(amountRemaining, consumed)
		if err != nil {
			return pool.Quote{}, err
		}
		amountCalculated, err = fixedpoint.SubI256Checked(amountCalculated, step.AmountOut)
		if err != nil {
			return pool.Quote{}, err
		}

		if step.SqrtPriceNext.Cmp(sqrtPriceNext) == 0 {
			// price reached the queried tick exactly: the tick is
			// crossed regardless of whether it is initialized (only an
			// initialized tick carries a liquidity delta to apply).
			if initialized {
				info, _ := s.ticks.Get(nextTick)
				netLiquidity := info.NetLiquidity
				if zeroForOne {
					netLiquidity = fixedpoint.NegateI256(netLiquidity)
				}
				newLiquidity, err := fixedpoint.AddI256Checked(curLiquidity, netLiquidity)
				if err != nil {
					return pool.Quote{}, err
				}
				curLiquidity = newLiquidity
			}
			if zeroForOne {
				curTick = nextTick - 1
			} else {
				curTick = nextTick
			}
		} else if step.SqrtPriceNext.Cmp(iterStart) != 0 {
			curTick, err = tickmath.GetTickAtSqrtRatio(step.SqrtPriceNext)
			if err != nil {
				return pool.Quote{}, err
			}
		}

		curSqrtPrice = step.SqrtPriceNext
		gasUsed += perStepGas
	}

	return pool.Quote{
		AmountOut:   fixedpoint.AbsI256(amountCalculated),
		GasEstimate: gasUsed,
		NewState:    s.snapshot(curSqrtPrice, curTick, curLiquidity),
	}, nil
}

// sellDirection derives zero_for_one from address ordering (spec
// §4.6: "zero_for_one = (token_in < token_out)").
func (s *State) sellDirection(tokenIn, tokenOut [20]byte) (bool, error) {
	switch {
	case tokenIn == s.token0 && tokenOut == s.token1:
		return true, nil
	case tokenIn == s.token1 && tokenOut == s.token0:
		return false, nil
	default:
		return false, errs.ErrTokenNotInPool
	}
}

func (s *State) snapshot(sqrtPrice *fixedpoint.U256, tick int32, liquidity *fixedpoint.U256) *State {
	return &State{
		id:          s.id,
		token0:      s.token0,
		token1:      s.token1,
		dec0:        s.dec0,
		dec1:        s.dec1,
		liquidity:   liquidity,
		sqrtPrice:   sqrtPrice,
		tick:        tick,
		feePips:     s.feePips,
		tickSpacing: s.tickSpacing,
		ticks:       s.ticks.Clone(),
	}
}

// DeltaTransition applies liquidity/sqrt_price/tick/per-tick
// net_liquidity updates, the same attribute vocabulary V4 uses minus
// its protocol-fee fields and 32-byte-zero hotfix (spec §4.7, applied
// here to the shared loop structure of §4.6).
func (s *State) DeltaTransition(delta wire.Delta, _ *token.Registry) error {
	if b, ok := delta.UpdatedAttributes["liquidity"]; ok {
		s.liquidity = fixedpoint.NewU256FromBytes(b)
	}
	if b, ok := delta.UpdatedAttributes["sqrt_price_x96"]; ok {
		s.sqrtPrice = fixedpoint.NewU256FromBytes(b)
	}
	if b, ok := delta.UpdatedAttributes["tick"]; ok {
		s.tick = decodeTickAttr(b)
	}
	for name, b := range delta.UpdatedAttributes {
		idx, ok := parseTickAttrKey(name)
		if !ok {
			continue
		}
		net, err := fixedpoint.I256FromBigEndianTwosComplement(b)
		if err != nil {
			return err
		}
		s.ticks.SetLiquidity(idx, net)
	}
	for name := range delta.DeletedAttributes {
		if idx, ok := parseTickAttrKey(name); ok {
			s.ticks.SetLiquidity(idx, fixedpoint.ZeroU256())
		}
	}
	return nil
}

// decodeTickAttr parses a big-endian signed 32-bit tick index.
func decodeTickAttr(b []byte) int32 {
	var v int32
	for _, by := range b {
		v = v<<8 | int32(by)
	}
	// sign-extend from the attribute's natural width (spec §6: ticks
	// are signed 32-bit big-endian).
	if len(b) > 0 && len(b) < 4 && b[0]&0x80 != 0 {
		shift := uint(32 - 8*len(b))
		v = (v << shift) >> shift
	}
	return v
}

// parseTickAttrKey extracts the tick index from a "ticks/{i32}/net_liquidity"
// attribute name (spec §4.7).
func parseTickAttrKey(name string) (int32, bool) {
	const prefix = "ticks/"
	const suffix = "/net_liquidity"
	if len(name) <= len(prefix)+len(suffix) || name[:len(prefix)] != prefix || name[len(name)-len(suffix):] != suffix {
		return 0, false
	}
	mid := name[len(prefix) : len(name)-len(suffix)]
	var v int32
	neg := false
	for i, c := range mid {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int32(c-'0')
	}
	if neg {
		v = -v
	}
	return v, true
}

// Equals reports deep equality with another V3 state.
func (s *State) Equals(other pool.Pool) bool {
	o, ok := other.(*State)
	if !ok {
		return false
	}
	return s.id == o.id && s.tick == o.tick && s.feePips == o.feePips &&
		s.liquidity.Cmp(o.liquidity) == 0 && s.sqrtPrice.Cmp(o.sqrtPrice) == 0 &&
		s.ticks.Equals(o.ticks)
}

// Clone returns an independent deep copy.
func (s *State) Clone() pool.Pool {
	return &State{
		id:          s.id,
		token0:      s.token0,
		token1:      s.token1,
		dec0:        s.dec0,
		dec1:        s.dec1,
		liquidity:   new(fixedpoint.U256).Set(s.liquidity),
		sqrtPrice:   new(fixedpoint.U256).Set(s.sqrtPrice),
		tick:        s.tick,
		feePips:     s.feePips,
		tickSpacing: s.tickSpacing,
		ticks:       s.ticks.Clone(),
	}
}
