// Package pmm is the stub PoolState for Dodo-style proactive
// market-maker pools (SPEC_FULL.md §2.1, supplementing a family the
// spec.md distillation dropped). PMM math is not closed-form and is
// explicitly out of the core's closed-form scope (spec §1(a)), so
// rather than inventing a fifth curve this package wraps the exact same
// pkg/pool/vm.Adapter surface as component C11 — a PMM pool is, to this
// core, just another VM-backed pool tagged with a different Variant so
// callers can still tell the families apart.
package pmm

import (
	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/pool/vm"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// State wraps a vm.State, overriding only the identity the rest of the
// core uses to distinguish a PMM pool from a generic VM-backed one.
type State struct {
	inner *vm.State
}

// New builds a PMM-tagged pool wrapper bound to a live adapter, the
// same adapter interface VM-backed pools use (spec §4.11).
func New(id, adapterTag string, token0, token1 [20]byte, block uint64, adapter vm.Adapter) *State {
	return &State{inner: vm.New(id, adapterTag, token0, token1, block, adapter)}
}

func (s *State) ID() string            { return s.inner.ID() }
func (s *State) Variant() pool.Variant { return pool.VariantPMM }
func (s *State) Tokens() [2][20]byte   { return s.inner.Tokens() }

func (s *State) Fee() (float64, error) {
	return s.inner.Fee()
}

func (s *State) SpotPrice(base, quote [20]byte) (float64, error) {
	return s.inner.SpotPrice(base, quote)
}

func (s *State) GetAmountOut(amountIn *fixedpoint.U256, tokenIn, tokenOut [20]byte) (pool.Quote, error) {
	quote, err := s.inner.GetAmountOut(amountIn, tokenIn, tokenOut)
	if err != nil {
		return pool.Quote{}, err
	}
	nextInner, ok := quote.NewState.(*vm.State)
	if !ok {
		return pool.Quote{}, errs.ErrDecode
	}
	quote.NewState = &State{inner: nextInner}
	return quote, nil
}

func (s *State) GetLimits(sell, buy [20]byte) (sellLimit, buyLimit *fixedpoint.U256, err error) {
	return s.inner.GetLimits(sell, buy)
}

func (s *State) GetCapabilities(sell, buy [20]byte) (map[vm.Capability]struct{}, error) {
	return s.inner.GetCapabilities(sell, buy)
}

func (s *State) MinGasUsage() uint64 {
	return s.inner.MinGasUsage()
}

func (s *State) DeltaTransition(delta wire.Delta, tokens *token.Registry) error {
	return s.inner.DeltaTransition(delta, tokens)
}

func (s *State) Equals(other pool.Pool) bool {
	o, ok := other.(*State)
	if !ok {
		return false
	}
	return s.inner.Equals(o.inner)
}

func (s *State) Clone() pool.Pool {
	return &State{inner: s.inner.Clone().(*vm.State)}
}
