// Package errs defines the error taxonomy shared by every AMM simulation
// component (spec §7): which errors are returned to the caller for retry,
// which cause a pool to be dropped for a block, and which are fatal and
// must abort the stream.
package errs

import (
	"errors"
	"fmt"
)

// Sentinel errors. Wrap these with fmt.Errorf("...: %w", Err) at call
// sites so callers can still errors.Is against the sentinel.
var (
	// ErrInvalidInput covers bad arguments to a quote: zero amount,
	// unknown token, malformed address.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoLiquidity is returned when a pool cannot quote at all (zero
	// reserve, zero liquidity).
	ErrNoLiquidity = errors.New("no liquidity")

	// ErrTicksExceeded is returned when a V3/V4 swap loop runs out of
	// loaded ticks before satisfying the requested amount. The V3/V4
	// swap loops return it inside a *TicksExceededError.
	ErrTicksExceeded = errors.New("ticks exceeded")

	// ErrMissingAttribute is returned by decoders when a required
	// snapshot or delta attribute is absent.
	ErrMissingAttribute = errors.New("missing attribute")

	// ErrDecode covers malformed attribute bytes (wrong width, not a
	// valid address, etc).
	ErrDecode = errors.New("decode error")

	// ErrUnsupportedProtocol is returned when no decoder is registered
	// for a protocol tag.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrTokenNotInPool is returned by spot-price/quote operations when
	// an argument token is not one of the pool's two tokens.
	ErrTokenNotInPool = errors.New("token not in pool")

	// ErrOverflow marks a checked arithmetic invariant violation. Fatal:
	// the caller must abort rather than continue with a corrupted state.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrOutOfOrderDelta marks a liveness violation: a message arrived
	// for a block too far ahead of the exchange's last seen block. Fatal.
	ErrOutOfOrderDelta = errors.New("delta applied out of order")

	// ErrUnsupported is returned by operations that are not meaningful
	// for a given pool variant (e.g. Fee() on a pool with direction
	// dependent fees, queried without a direction).
	ErrUnsupported = errors.New("unsupported operation")
)

// fatal is the set of sentinels that IsFatal reports true for.
var fatal = map[error]bool{
	ErrOverflow:        true,
	ErrOutOfOrderDelta: true,
}

// IsFatal reports whether err (or anything it wraps) represents a fatal
// condition per spec §7: arithmetic overflow or an out-of-order delta.
// Fatal errors must never be swallowed — the stream pipeline aborts on
// them instead of logging and continuing.
func IsFatal(err error) bool {
	for sentinel, f := range fatal {
		if f && errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// TicksExceededError wraps ErrTicksExceeded with the recoverable partial
// result (spec §4.6, §9 "Partial-result error"): the core's only error
// with a side payload, modeled as a structured type rather than an
// out-of-band channel. The V3/V4 pools store a pool.Quote in Partial,
// holding the amount_out computed before ticks ran out.
type TicksExceededError struct {
	Partial any
	GasUsed uint64
}

func (e *TicksExceededError) Error() string {
	return fmt.Sprintf("%v (gas_used=%d)", ErrTicksExceeded, e.GasUsed)
}

func (e *TicksExceededError) Unwrap() error { return ErrTicksExceeded }

// NewTicksExceeded builds a TicksExceededError carrying the partial
// amount calculated so far and the gas spent reaching it.
func NewTicksExceeded(partial any, gasUsed uint64) *TicksExceededError {
	return &TicksExceededError{Partial: partial, GasUsed: gasUsed}
}
