package swapmath

import (
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/pkg/fixedpoint"
)

func u64(v uint64) *fixedpoint.U256 { return fixedpoint.NewU256FromUint64(v) }

func TestComputeSwapStepExactInCapByTarget(t *testing.T) {
	// A huge amount_remaining means price reaches the target exactly;
	// fee is the leftover after paying the exact amount_in for that move.
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000))
	require.NoError(t, err)
	liquidity := u64(1_000_000_000)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, u64(1_000_000_000_000))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.Equal(t, 0, step.SqrtPriceNext.Cmp(sqrtTarget))
	require.False(t, step.AmountIn.IsZero())
	require.False(t, step.Fee.IsZero())
}

func TestComputeSwapStepExactInCapByAmount(t *testing.T) {
	// A tiny amount_remaining means price moves only part way to target.
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000_000))
	require.NoError(t, err)
	liquidity := fixedpoint.Lsh(u64(1), 96)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, u64(100))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.NotEqual(t, 0, step.SqrtPriceNext.Cmp(sqrtTarget))
	require.True(t, step.SqrtPriceNext.Cmp(sqrtCurrent) > 0)

	consumed, err := fixedpoint.AddChecked(step.AmountIn, step.Fee)
	require.NoError(t, err)
	require.True(t, consumed.Cmp(u64(100)) <= 0)
}

func TestComputeSwapStepExactOutCapByTarget(t *testing.T) {
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000))
	require.NoError(t, err)
	liquidity := fixedpoint.Lsh(u64(1), 96)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(true, u64(1_000_000_000_000))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.Equal(t, 0, step.SqrtPriceNext.Cmp(sqrtTarget))
	require.False(t, step.AmountOut.IsZero())
}

func TestComputeSwapStepExactOutClampedToRemaining(t *testing.T) {
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000_000))
	require.NoError(t, err)
	liquidity := u64(1_000_000_000)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(true, u64(10))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.True(t, step.AmountOut.Cmp(u64(10)) <= 0)
}

func TestComputeSwapStepZeroForOneDirection(t *testing.T) {
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.SubChecked(sqrtCurrent, u64(1_000_000))
	require.NoError(t, err)
	liquidity := u64(1_000_000_000)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, u64(1_000_000_000_000))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 3000)
	require.NoError(t, err)
	require.True(t, step.SqrtPriceNext.Cmp(sqrtCurrent) <= 0)
}

func TestAmountDeltasOrderIndependent(t *testing.T) {
	a := fixedpoint.Lsh(u64(1), 96)
	b, err := fixedpoint.AddChecked(a, u64(1_000_000))
	require.NoError(t, err)
	liquidity := u64(1_000_000_000)

	d1, err := amount0Delta(a, b, liquidity, true)
	require.NoError(t, err)
	d2, err := amount0Delta(b, a, liquidity, true)
	require.NoError(t, err)
	require.Equal(t, 0, d1.Cmp(d2))
}

func TestComputeSwapStepZeroFeeWhenAmountLimited(t *testing.T) {
	// A step capped by amount_remaining (not by sqrt_target) takes the
	// proportional fee formula (spec §4.4 step 5's "else" branch), which
	// is zero at fee_pips=0 regardless of amount_in.
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000_000))
	require.NoError(t, err)
	liquidity := fixedpoint.Lsh(u64(1), 96)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, u64(100))
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 0)
	require.NoError(t, err)
	require.NotEqual(t, 0, step.SqrtPriceNext.Cmp(sqrtTarget))
	require.True(t, step.Fee.IsZero())
}

func TestComputeSwapStepReachedTargetFeeIsRemainder(t *testing.T) {
	// Spec §4.4 step 5's first branch: when the step reaches sqrt_target
	// under exact_in, fee is the leftover of the original amount_remaining
	// after amount_in, not the proportional formula.
	sqrtCurrent := fixedpoint.Lsh(u64(1), 96)
	sqrtTarget, err := fixedpoint.AddChecked(sqrtCurrent, u64(1_000_000))
	require.NoError(t, err)
	liquidity := u64(1_000_000_000)
	remainingMag := u64(1_000_000_000_000)
	amountRemaining, err := fixedpoint.FromSignedMagnitude(false, remainingMag)
	require.NoError(t, err)

	step, err := ComputeSwapStep(sqrtCurrent, sqrtTarget, liquidity, amountRemaining, 0)
	require.NoError(t, err)
	require.Equal(t, 0, step.SqrtPriceNext.Cmp(sqrtTarget))
	want, err := fixedpoint.SubChecked(remainingMag, step.AmountIn)
	require.NoError(t, err)
	require.Equal(t, 0, step.Fee.Cmp(want))
}
