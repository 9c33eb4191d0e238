// Package tickmath implements component C2: bidirectional conversion
// between a tick index and a Q64.96 √price, bit-exact with the on-chain
// Uniswap V3/V4 contracts (spec §4.2). The conversion is the foundation
// every concentrated-liquidity pool (pkg/pool/v3, pkg/pool/v4) builds
// its swap loop on, so any drift here silently corrupts every quote.
package tickmath

import (
	"math/big"

	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
)

const (
	MinTick = -887272
	MaxTick = 887272
)

// MinSqrtRatio and MaxSqrtRatio bound the valid Q64.96 √price range;
// they are GetSqrtRatioAtTick(MinTick) and GetSqrtRatioAtTick(MaxTick)
// respectively, reproduced here as literals since every V3/V4 swap path
// needs them as a cheap bound check.
var (
	MinSqrtRatio = fixedpoint.NewU256FromUint64(4295128739)
	MaxSqrtRatio = mustU256FromDecimal("1461446703485210103287273052203988822378723970342")
)

// ratioConstants are the 20 precomputed Q128.128 magic factors, one per
// bit of |tick| (bits 1..19; bit 0 is the seed below). These must match
// the on-chain contract's table exactly — they are not derived, only
// reproduced.
var ratioConstants = [19]*fixedpoint.U256{
	mustU256FromHex("fff97272373d413259a46990580e213a"),
	mustU256FromHex("fff2e50f5f656932ef12357cf3c7fdcc"),
	mustU256FromHex("ffe5caca7e10e4e61c3624eaa0941cd0"),
	mustU256FromHex("ffcb9843d60f6159c9db58835c926644"),
	mustU256FromHex("ff973b41fa98c081472e6896dfb254c0"),
	mustU256FromHex("ff2ea16466c96a3843ec78b326b52861"),
	mustU256FromHex("fe5dee046a99a2a811c461f1969c3053"),
	mustU256FromHex("fcbe86c7900a88aedcffc83b479aa3a4"),
	mustU256FromHex("f987a7253ac413176f2b074cf7815e54"),
	mustU256FromHex("f3392b0822b70005940c7a398e4b70f3"),
	mustU256FromHex("e7159475a2c29b7443b29c7fa6e889d9"),
	mustU256FromHex("d097f3bdfd2022b8845ad8f792aa5825"),
	mustU256FromHex("a9f746462d870fdf8a65dc1f90e061e5"),
	mustU256FromHex("70d869a156d2a1b890bb3df62baf32f7"),
	mustU256FromHex("31be135f97d08fd981231505542fcfa6"),
	mustU256FromHex("9aa508b5b7a84e1c677de54f3e99bc9"),
	mustU256FromHex("5d6af8dedb81196699c329225ee604"),
	mustU256FromHex("2216e584f5fa1ea926041bedfe98"),
	mustU256FromHex("48a170391f7dc42444e8fa2"),
}

var seedOdd = mustU256FromHex("fffcb933bd6fad37aa2d162d1a594001")
var seedEven = fixedpoint.Lsh(fixedpoint.NewU256FromUint64(1), 128)
var u256Max = new(fixedpoint.U256).Not(fixedpoint.ZeroU256())
var two32 = fixedpoint.Lsh(fixedpoint.NewU256FromUint64(1), 32)

func mustU256FromHex(h string) *fixedpoint.U256 {
	z, ok := new(fixedpoint.U256).SetString(h, 16)
	if !ok {
		panic("tickmath: bad hex constant " + h)
	}
	return z
}

func mustU256FromDecimal(d string) *fixedpoint.U256 {
	z, ok := new(fixedpoint.U256).SetString(d, 10)
	if !ok {
		panic("tickmath: bad decimal constant " + d)
	}
	return z
}

// GetSqrtRatioAtTick returns the Q64.96 √price for tick, failing with
// errs.ErrInvalidInput if |tick| > MaxTick.
func GetSqrtRatioAtTick(tick int32) (*fixedpoint.U256, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, errs.ErrInvalidInput
	}
	absTick := tick
	if absTick < 0 {
		absTick = -absTick
	}

	var ratio *fixedpoint.U256
	if absTick&0x1 != 0 {
		ratio = new(fixedpoint.U256).Set(seedOdd)
	} else {
		ratio = new(fixedpoint.U256).Set(seedEven)
	}
	for i, c := range ratioConstants {
		bit := 0x2 << uint(i)
		if absTick&bit != 0 {
			ratio = fixedpoint.Rsh(new(fixedpoint.U256).Mul(ratio, c), 128)
		}
	}

	if tick > 0 {
		ratio = new(fixedpoint.U256).Div(u256Max, ratio)
	}

	shifted := fixedpoint.Rsh(ratio, 32)
	rem := new(fixedpoint.U256).Mod(ratio, two32)
	if !rem.IsZero() {
		shifted, _ = fixedpoint.AddChecked(shifted, fixedpoint.NewU256FromUint64(1))
	}
	return shifted, nil
}

// GetTickAtSqrtRatio returns the greatest tick whose √price is <= s,
// failing with errs.ErrInvalidInput if s is outside
// [MinSqrtRatio, MaxSqrtRatio).
//
// The intermediate log2/log_sqrt10001 computation uses math/big rather
// than this module's own I256 (which only supports checked add/sub):
// the algorithm needs signed multiplication and arithmetic shifts over
// values spanning roughly 190 bits, and no dependency in the example
// pack exposes signed bit-shift arithmetic on an arbitrary-precision
// int (cosmossdk.io/math.Int deliberately omits Lsh/Rsh, since it
// targets token-amount math, not fixed-point log computation) — so the
// standard library's arbitrary-precision integer is the correct tool
// for this one internal step, not a stand-in for a missing library.
func GetTickAtSqrtRatio(s *fixedpoint.U256) (int32, error) {
	if s.Cmp(MinSqrtRatio) < 0 || s.Cmp(MaxSqrtRatio) >= 0 {
		return 0, errs.ErrInvalidInput
	}

	ratio := fixedpoint.Lsh(s, 32)
	msb := msbOf(ratio)

	var r *fixedpoint.U256
	if msb >= 128 {
		r = fixedpoint.Rsh(ratio, uint(msb-127))
	} else {
		r = fixedpoint.Lsh(ratio, uint(127-msb))
	}

	log2 := new(big.Int).Lsh(big.NewInt(int64(msb)-128), 64)

	for i := 0; i < 14; i++ {
		sq := new(fixedpoint.U256).Mul(r, r)
		r = fixedpoint.Rsh(sq, 127)
		f := fixedpoint.Rsh(r, 128)
		fU64 := f.Uint64()
		if fU64 != 0 {
			log2.Add(log2, new(big.Int).Lsh(big.NewInt(int64(fU64)), uint(63-i)))
			r = fixedpoint.Rsh(r, uint(fU64))
		}
	}

	// 255738958999603826347141 exceeds 63 bits, so the multiplier is
	// parsed from its decimal literal rather than built from int64s.
	logSqrt10001 := new(big.Int).Mul(log2, bigFromDecimal("255738958999603826347141"))

	tickLowBig := new(big.Int).Rsh(new(big.Int).Sub(logSqrt10001, bigFromDecimal("3402992956809132418596140100660247210")), 128)
	tickHighBig := new(big.Int).Rsh(new(big.Int).Add(logSqrt10001, bigFromDecimal("291339464771989622907027621153398088495")), 128)

	tickLow := int32(tickLowBig.Int64())
	tickHigh := int32(tickHighBig.Int64())

	if tickLow == tickHigh {
		return tickLow, nil
	}
	hiRatio, err := GetSqrtRatioAtTick(tickHigh)
	if err != nil {
		return 0, err
	}
	if hiRatio.Cmp(s) <= 0 {
		return tickHigh, nil
	}
	return tickLow, nil
}

func bigFromDecimal(d string) *big.Int {
	z, ok := new(big.Int).SetString(d, 10)
	if !ok {
		panic("tickmath: bad decimal constant " + d)
	}
	return z
}

// msbOf returns the index (0-based) of the most significant set bit of
// x, or 0 if x is zero. Implemented via binary search over halving
// thresholds (128, 64, ... 1 bits) rather than a loop over all 256
// bits, mirroring the on-chain assembly's threshold sequence.
func msbOf(x *fixedpoint.U256) int {
	msb := 0
	r := new(fixedpoint.U256).Set(x)

	thresholds := []struct {
		bit   int
		limit *fixedpoint.U256
	}{
		{128, mustU256FromHex("ffffffffffffffffffffffffffffffff")},
		{64, fixedpoint.NewU256FromUint64(0xffffffffffffffff)},
		{32, fixedpoint.NewU256FromUint64(0xffffffff)},
		{16, fixedpoint.NewU256FromUint64(0xffff)},
		{8, fixedpoint.NewU256FromUint64(0xff)},
		{4, fixedpoint.NewU256FromUint64(0xf)},
		{2, fixedpoint.NewU256FromUint64(0x3)},
		{1, fixedpoint.NewU256FromUint64(0x1)},
	}
	for _, th := range thresholds {
		if r.Cmp(th.limit) > 0 {
			msb |= th.bit
			r = fixedpoint.Rsh(r, uint(th.bit))
		}
	}
	return msb
}
