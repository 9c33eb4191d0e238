// Package swapmath implements component C4: one step of the V3/V4
// swap loop, computing how far price moves within a single tick range
// and how much is paid in, received out, and taken as fee (spec §4.4).
// Grounded on other_examples' hoanguyenkh-uniswap-v3-simulator's
// CorePool.HandleSwap call graph (the same reference pkg/pool/v3's
// iterative loop is grounded on), reimplemented over this module's
// checked fixedpoint.U256/I256 arithmetic instead of that example's
// decimal.Decimal.
package swapmath

import (
	"ammsim/pkg/fixedpoint"
)

// FeeBase is the fixed-point denominator fee_pips is expressed against
// (spec §4.4: "10⁶ − fee_pips").
const FeeBase = 1_000_000

var q96 = fixedpoint.Lsh(fixedpoint.NewU256FromUint64(1), 96)

// Step is one swap step's result: the √price it landed on, and the
// amounts paid in, received out, and taken as fee.
type Step struct {
	SqrtPriceNext *fixedpoint.U256
	AmountIn      *fixedpoint.U256
	AmountOut     *fixedpoint.U256
	Fee           *fixedpoint.U256
}

// amount0Delta computes Δx = ceil|liquidity·2⁹⁶·(√B−√A)/(√A·√B)⌉ (or the
// floor variant), ordering its two price arguments itself so callers
// don't have to.
func amount0Delta(sqrtA, sqrtB, liquidity *fixedpoint.U256, roundUp bool) (*fixedpoint.U256, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	numerator1 := fixedpoint.Lsh(liquidity, 96)
	numerator2, err := fixedpoint.SubChecked(sqrtB, sqrtA)
	if err != nil {
		return nil, err
	}
	if roundUp {
		num, err := fixedpoint.MulDivRoundUp(numerator1, numerator2, sqrtB)
		if err != nil {
			return nil, err
		}
		return divRoundUp(num, sqrtA)
	}
	num, err := fixedpoint.MulDiv(numerator1, numerator2, sqrtB)
	if err != nil {
		return nil, err
	}
	return fixedpoint.DivChecked(num, sqrtA)
}

// amount1Delta computes Δy = ceil(or floor)(liquidity·(√B−√A)/2⁹⁶).
func amount1Delta(sqrtA, sqrtB, liquidity *fixedpoint.U256, roundUp bool) (*fixedpoint.U256, error) {
	if sqrtA.Cmp(sqrtB) > 0 {
		sqrtA, sqrtB = sqrtB, sqrtA
	}
	diff, err := fixedpoint.SubChecked(sqrtB, sqrtA)
	if err != nil {
		return nil, err
	}
	if roundUp {
		return fixedpoint.MulDivRoundUp(liquidity, diff, q96)
	}
	return fixedpoint.MulDiv(liquidity, diff, q96)
}

func divRoundUp(a, b *fixedpoint.U256) (*fixedpoint.U256, error) {
	q, err := fixedpoint.DivChecked(a, b)
	if err != nil {
		return nil, err
	}
	r, err := fixedpoint.ModChecked(a, b)
	if err != nil {
		return nil, err
	}
	if r.IsZero() {
		return q, nil
	}
	return fixedpoint.AddChecked(q, fixedpoint.NewU256FromUint64(1))
}

// nextSqrtPriceFromAmount0 inverts amount0Delta to find the price that
// consuming amount of token0 (added to or removed from the pool) would
// produce, rounding up (token0 moves price down, so rounding up is
// conservative toward the pool).
func nextSqrtPriceFromAmount0(sqrtP, liquidity, amount *fixedpoint.U256, add bool) (*fixedpoint.U256, error) {
	if amount.IsZero() {
		return new(fixedpoint.U256).Set(sqrtP), nil
	}
	numerator1 := fixedpoint.Lsh(liquidity, 96)
	product, err := fixedpoint.MulChecked(amount, sqrtP)
	if err != nil {
		return nil, err
	}
	var denominator *fixedpoint.U256
	if add {
		denominator, err = fixedpoint.AddChecked(numerator1, product)
	} else {
		denominator, err = fixedpoint.SubChecked(numerator1, product)
	}
	if err != nil {
		return nil, err
	}
	return fixedpoint.MulDivRoundUp(numerator1, sqrtP, denominator)
}

// nextSqrtPriceFromAmount1 inverts amount1Delta, rounding down (token1
// moves price up, so rounding down is conservative toward the pool).
func nextSqrtPriceFromAmount1(sqrtP, liquidity, amount *fixedpoint.U256, add bool) (*fixedpoint.U256, error) {
	if add {
		quotient, err := fixedpoint.MulDiv(amount, q96, liquidity)
		if err != nil {
			return nil, err
		}
		return fixedpoint.AddChecked(sqrtP, quotient)
	}
	quotient, err := fixedpoint.MulDivRoundUp(amount, q96, liquidity)
	if err != nil {
		return nil, err
	}
	return fixedpoint.SubChecked(sqrtP, quotient)
}

func nextSqrtPriceFromInput(sqrtP, liquidity, amountIn *fixedpoint.U256, zeroForOne bool) (*fixedpoint.U256, error) {
	if zeroForOne {
		return nextSqrtPriceFromAmount0(sqrtP, liquidity, amountIn, true)
	}
	return nextSqrtPriceFromAmount1(sqrtP, liquidity, amountIn, true)
}

func nextSqrtPriceFromOutput(sqrtP, liquidity, amountOut *fixedpoint.U256, zeroForOne bool) (*fixedpoint.U256, error) {
	if zeroForOne {
		return nextSqrtPriceFromAmount1(sqrtP, liquidity, amountOut, false)
	}
	return nextSqrtPriceFromAmount0(sqrtP, liquidity, amountOut, false)
}

// ComputeSwapStep runs one swap step from sqrtCurrent toward sqrtTarget
// (spec §4.4). amountRemaining's sign selects exact-in (≥0) vs
// exact-out (<0) mode; its magnitude is the amount still to trade this
// swap. feePips is out of FeeBase.
func ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity *fixedpoint.U256, amountRemaining *fixedpoint.I256, feePips uint32) (Step, error) {
	zeroForOne := sqrtCurrent.Cmp(sqrtTarget) >= 0
	exactIn := !fixedpoint.IsNegativeI256(amountRemaining)

	feeBaseU := fixedpoint.NewU256FromUint64(FeeBase)
	feePipsU := fixedpoint.NewU256FromUint64(uint64(feePips))
	feeComplement, err := fixedpoint.SubChecked(feeBaseU, feePipsU)
	if err != nil {
		return Step{}, err
	}

	var sqrtNext, amountIn, amountOut *fixedpoint.U256

	if exactIn {
		amountRemainingLessFee, err := fixedpoint.MulDiv(amountRemaining, feeComplement, feeBaseU)
		if err != nil {
			return Step{}, err
		}
		if zeroForOne {
			amountIn, err = amount0Delta(sqrtTarget, sqrtCurrent, liquidity, true)
		} else {
			amountIn, err = amount1Delta(sqrtCurrent, sqrtTarget, liquidity, true)
		}
		if err != nil {
			return Step{}, err
		}
		if amountRemainingLessFee.Cmp(amountIn) >= 0 {
			sqrtNext = new(fixedpoint.U256).Set(sqrtTarget)
		} else if sqrtNext, err = nextSqrtPriceFromInput(sqrtCurrent, liquidity, amountRemainingLessFee, zeroForOne); err != nil {
			return Step{}, err
		}
	} else {
		magnitude := fixedpoint.AbsI256(amountRemaining)
		var err error
		if zeroForOne {
			amountOut, err = amount1Delta(sqrtTarget, sqrtCurrent, liquidity, false)
		} else {
			amountOut, err = amount0Delta(sqrtCurrent, sqrtTarget, liquidity, false)
		}
		if err != nil {
			return Step{}, err
		}
		if magnitude.Cmp(amountOut) >= 0 {
			sqrtNext = new(fixedpoint.U256).Set(sqrtTarget)
		} else if sqrtNext, err = nextSqrtPriceFromOutput(sqrtCurrent, liquidity, magnitude, zeroForOne); err != nil {
			return Step{}, err
		}
	}

	reachedTarget := sqrtNext.Cmp(sqrtTarget) == 0

	if zeroForOne {
		if !(reachedTarget && exactIn) {
			if amountIn, err = amount0Delta(sqrtNext, sqrtCurrent, liquidity, true); err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if amountOut, err = amount1Delta(sqrtNext, sqrtCurrent, liquidity, false); err != nil {
				return Step{}, err
			}
		}
	} else {
		if !(reachedTarget && exactIn) {
			if amountIn, err = amount1Delta(sqrtCurrent, sqrtNext, liquidity, true); err != nil {
				return Step{}, err
			}
		}
		if !(reachedTarget && !exactIn) {
			if amountOut, err = amount0Delta(sqrtCurrent, sqrtNext, liquidity, false); err != nil {
				return Step{}, err
			}
		}
	}

	if !exactIn {
		magnitude := fixedpoint.AbsI256(amountRemaining)
		if amountOut.Cmp(magnitude) > 0 {
			amountOut = magnitude
		}
	}

	var fee *fixedpoint.U256
	if exactIn && reachedTarget {
		magnitude := fixedpoint.AbsI256(amountRemaining)
		fee, err = fixedpoint.SubChecked(magnitude, amountIn)
		if err != nil {
			return Step{}, err
		}
	} else {
		fee, err = fixedpoint.MulDivRoundUp(amountIn, feePipsU, feeComplement)
		if err != nil {
			return Step{}, err
		}
	}

	return Step{SqrtPriceNext: sqrtNext, AmountIn: amountIn, AmountOut: amountOut, Fee: fee}, nil
}
