// Package pool declares the polymorphic pool contract (component C8,
// SPEC_FULL.md §4.8.1): a closed Variant enum and the Pool interface
// every concrete AMM family (pkg/pool/v2, v3, v4, vm, pmm) implements.
// This mirrors guidebee-SolRoute's pkg.Pool/pkg.Protocol split — one
// interface, many per-protocol structs, dispatched on by callers — but
// trades SolRoute's network-fetching Protocol.FetchPoolsByPair for
// snapshot/delta decoding (C9): there is no live RPC here, only
// streamed state.
package pool

import (
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// Variant is the closed set of pool families the core understands
// (spec §4.8).
type Variant int

const (
	VariantV2 Variant = iota
	VariantV3
	VariantV4
	VariantVM
	// VariantPMM identifies a Dodo-style proactive-market-maker pool
	// (SPEC_FULL.md §2.1). Its math is not closed-form, so PoolState is
	// a pkg/pool/pmm stub delegating to the same adapter surface as
	// VariantVM rather than a fifth closed-form curve.
	VariantPMM
)

func (v Variant) String() string {
	switch v {
	case VariantV2:
		return "v2"
	case VariantV3:
		return "v3"
	case VariantV4:
		return "v4"
	case VariantVM:
		return "vm"
	case VariantPMM:
		return "pmm"
	default:
		return "unknown"
	}
}

// Quote is the result of a successful (or partial) GetAmountOut call:
// the output amount, a gas estimate, and a freshly owned post-trade
// state. The live state is never mutated by quoting (spec §3
// "Ownership").
type Quote struct {
	AmountOut   *fixedpoint.U256
	GasEstimate uint64
	NewState    Pool
}

// Pool is the single polymorphic contract every AMM state implements
// (spec §4.8).
type Pool interface {
	// ID returns the pool's opaque identity (spec §3 "Pool identity").
	ID() string

	// Variant reports which closed-form family (or VM-backed family)
	// this state belongs to.
	Variant() Variant

	// Tokens returns the pool's two traded token addresses, ordered
	// token0 < token1 (spec §3).
	Tokens() [2][20]byte

	// Fee returns the pool's swap fee as a fraction in [0, 1). Returns
	// errs.ErrUnsupported where fee is direction-dependent and no
	// single scalar applies without more context.
	Fee() (float64, error)

	// SpotPrice returns the price of base in terms of quote. Both must
	// be one of the pool's two tokens (errs.ErrTokenNotInPool
	// otherwise).
	SpotPrice(base, quote [20]byte) (float64, error)

	// GetAmountOut quotes a trade without mutating the receiver. On
	// success, Quote.NewState is a new owned post-trade state. On
	// errs.ErrTicksExceeded, the returned error is an
	// *errs.TicksExceededError whose Partial field holds a Quote with
	// the amount/state computed before ticks ran out.
	GetAmountOut(amountIn *fixedpoint.U256, tokenIn, tokenOut [20]byte) (Quote, error)

	// DeltaTransition mutates the receiver in place to reflect delta,
	// resolving any new or changed attributes against tokens.
	DeltaTransition(delta wire.Delta, tokens *token.Registry) error

	// Equals reports deep equality; always false across variants.
	Equals(other Pool) bool

	// Clone returns an independent, deep copy.
	Clone() Pool
}
