// Package vm implements component C11: the external-VM pool wrapper
// for protocols whose math is not closed-form (spec §4.11). The core
// never runs that math itself — it delegates to an Adapter executed
// against an in-memory EVM state and only consumes the five-method
// surface this package wraps in a pool.Pool. Grounded on
// guidebee-SolRoute's pkg.Protocol interface (a thin per-protocol
// façade the router calls through without caring how quotes are
// produced internally) generalized from SolRoute's direct on-chain RPC
// calls to this spec's deterministic, block+overwrites-addressed
// adapter calls.
package vm

import (
	"bytes"

	"ammsim/errs"
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// Capability is an open tag the adapter reports support for (e.g.
// "price_function", "sell_limit", "buy_limit") — left as a string
// rather than a closed enum since the set is protocol-adapter defined
// and not enumerated by the spec.
type Capability string

// Adapter is the only surface the core consumes for VM-backed pools
// (spec §4.11). All methods must be deterministic given the same
// inputs, block, and overwrites.
type Adapter interface {
	// Price quotes the marginal price of sell in terms of buy at each
	// requested amount.
	Price(pairID string, sell, buy [20]byte, amounts []*fixedpoint.U256, block uint64, overwrites map[string][]byte) ([]float64, error)

	// Swap executes a trade and returns the amount received, the gas
	// used, the resulting price, and any storage overwrites the trade
	// produced (to be merged into subsequent calls' overwrites).
	Swap(pairID string, sell, buy [20]byte, isBuy bool, amount *fixedpoint.U256, block uint64, overwrites map[string][]byte) (received *fixedpoint.U256, gas uint64, price float64, stateUpdates map[string][]byte, err error)

	// GetLimits returns the maximum sell and buy amounts the pool can
	// currently absorb.
	GetLimits(pairID string, sell, buy [20]byte, block uint64, overwrites map[string][]byte) (sellLimit, buyLimit *fixedpoint.U256, err error)

	// GetCapabilities reports which optional behaviors this pair
	// supports.
	GetCapabilities(pairID string, sell, buy [20]byte) (map[Capability]struct{}, error)

	// MinGasUsage is a lower bound on gas any swap against this adapter
	// will consume.
	MinGasUsage() uint64
}

// State wraps an Adapter as a pool.Pool: the pairID/tokens identify
// which pair to query, and overwrites accumulate the storage diffs
// produced by prior simulated swaps (spec §4.11: "given the same
// inputs, block, and overwrites").
type State struct {
	id         string
	adapterTag string
	token0     [20]byte
	token1     [20]byte
	block      uint64
	overwrites map[string][]byte
	adapter    Adapter
}

// New builds a VM-backed pool wrapper bound to a live adapter.
func New(id, adapterTag string, token0, token1 [20]byte, block uint64, adapter Adapter) *State {
	return &State{
		id:         id,
		adapterTag: adapterTag,
		token0:     token0,
		token1:     token1,
		block:      block,
		overwrites: map[string][]byte{},
		adapter:    adapter,
	}
}

func (s *State) ID() string            { return s.id }
func (s *State) Variant() pool.Variant { return pool.VariantVM }
func (s *State) Tokens() [2][20]byte   { return [2][20]byte{s.token0, s.token1} }

// AdapterTag returns the resolved adapter identifier (e.g.
// "BalancerV2") this wrapper was built with.
func (s *State) AdapterTag() string { return s.adapterTag }

// Fee is not closed-form for adapter-backed pools.
func (s *State) Fee() (float64, error) {
	return 0, errs.ErrUnsupported
}

func (s *State) direction(base, quote [20]byte) error {
	if (base == s.token0 && quote == s.token1) || (base == s.token1 && quote == s.token0) {
		return nil
	}
	return errs.ErrTokenNotInPool
}

// SpotPrice quotes the adapter's marginal price at a single unit
// amount (spec §4.11's price() call, collapsed to one amount).
func (s *State) SpotPrice(base, quote [20]byte) (float64, error) {
	if err := s.direction(base, quote); err != nil {
		return 0, err
	}
	prices, err := s.adapter.Price(s.id, base, quote, []*fixedpoint.U256{fixedpoint.NewU256FromUint64(1)}, s.block, s.overwrites)
	if err != nil {
		return 0, err
	}
	if len(prices) == 0 {
		return 0, errs.ErrDecode
	}
	return prices[0], nil
}

// GetAmountOut delegates to the adapter's swap() call; the returned
// NewState carries forward the adapter's reported storage overwrites
// so a subsequent quote against the new state observes this trade's
// effect (spec §4.11).
func (s *State) GetAmountOut(amountIn *fixedpoint.U256, tokenIn, tokenOut [20]byte) (pool.Quote, error) {
	if amountIn.IsZero() {
		return pool.Quote{}, errs.ErrInvalidInput
	}
	if err := s.direction(tokenIn, tokenOut); err != nil {
		return pool.Quote{}, err
	}

	received, gas, _, updates, err := s.adapter.Swap(s.id, tokenIn, tokenOut, false, amountIn, s.block, s.overwrites)
	if err != nil {
		return pool.Quote{}, err
	}

	next := s.Clone().(*State)
	for k, v := range updates {
		next.overwrites[k] = append([]byte(nil), v...)
	}

	return pool.Quote{AmountOut: received, GasEstimate: gas, NewState: next}, nil
}

// GetLimits exposes the adapter's sell/buy limit query; not part of
// pool.Pool, available to callers holding a concrete *State (spec
// §4.11).
func (s *State) GetLimits(sell, buy [20]byte) (sellLimit, buyLimit *fixedpoint.U256, err error) {
	return s.adapter.GetLimits(s.id, sell, buy, s.block, s.overwrites)
}

// GetCapabilities exposes the adapter's capability set.
func (s *State) GetCapabilities(sell, buy [20]byte) (map[Capability]struct{}, error) {
	return s.adapter.GetCapabilities(s.id, sell, buy)
}

// MinGasUsage exposes the adapter's gas floor.
func (s *State) MinGasUsage() uint64 {
	return s.adapter.MinGasUsage()
}

// DeltaTransition for a VM-backed pool is a direct storage overwrite
// merge: each updated attribute is itself a raw EVM storage diff the
// adapter will read back on the next call.
func (s *State) DeltaTransition(delta wire.Delta, _ *token.Registry) error {
	for k, v := range delta.UpdatedAttributes {
		s.overwrites[k] = append([]byte(nil), v...)
	}
	for k := range delta.DeletedAttributes {
		delete(s.overwrites, k)
	}
	return nil
}

// Equals reports deep equality with another VM state.
func (s *State) Equals(other pool.Pool) bool {
	o, ok := other.(*State)
	if !ok {
		return false
	}
	if s.id != o.id || s.adapterTag != o.adapterTag || s.block != o.block || len(s.overwrites) != len(o.overwrites) {
		return false
	}
	for k, v := range s.overwrites {
		ov, ok := o.overwrites[k]
		if !ok || !bytes.Equal(v, ov) {
			return false
		}
	}
	return true
}

// Clone returns an independent deep copy.
func (s *State) Clone() pool.Pool {
	overwrites := make(map[string][]byte, len(s.overwrites))
	for k, v := range s.overwrites {
		overwrites[k] = append([]byte(nil), v...)
	}
	return &State{
		id:         s.id,
		adapterTag: s.adapterTag,
		token0:     s.token0,
		token1:     s.token1,
		block:      s.block,
		overwrites: overwrites,
		adapter:    s.adapter,
	}
}
