// Package decode implements component C9: per-exchange snapshot
// decoders that turn an opaque wire.ComponentWithState into a typed
// pool.Pool. Grounded on guidebee-SolRoute's per-protocol
// Decode(data []byte) (*Pool, error) constructors (one decoder per
// pkg/pool/<protocol> subpackage, dispatched by a registry keyed on a
// string tag) — generalized from SolRoute's raw on-chain account bytes
// to this spec's named, big-endian wire attributes.
package decode

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"ammsim/errs"
	"ammsim/pkg/pool"
	"ammsim/pkg/pool/vm"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// Decoder decodes one exchange's snapshot shape into a typed pool.
type Decoder func(cws wire.ComponentWithState, header wire.Header, tokens *token.Registry) (pool.Pool, error)

var registry = map[string]Decoder{
	"uniswap_v2": decodeV2Snapshot,
	"uniswap_v3": decodeV3Snapshot,
	"uniswap_v4": decodeV4Snapshot,
}

// AdapterRegistry resolves a canonical adapter identifier (e.g.
// "BalancerV2") to a live vm.Adapter instance. The concrete in-memory
// EVM execution backend behind an adapter is outside this module's
// scope (spec §4.11 specifies only the interface the core consumes);
// the pipeline supplies its own registry when wiring vm:-tagged
// exchanges.
type AdapterRegistry interface {
	Resolve(adapterID string) (vm.Adapter, bool)
}

// Decode resolves and runs the decoder registered for tag (spec §4.9).
// Tags prefixed "vm:" are dispatched to the external-VM adapter wrapper
// instead of a closed-form decoder (spec §4.9, §6); adapters may be nil
// when no vm:-tagged exchange is configured.
func Decode(tag string, cws wire.ComponentWithState, header wire.Header, tokens *token.Registry, adapters AdapterRegistry) (pool.Pool, error) {
	if suffix, ok := strings.CutPrefix(tag, "vm:"); ok {
		return decodeVMSnapshot(suffix, cws, header, tokens, adapters)
	}
	d, ok := registry[tag]
	if !ok {
		return nil, errs.ErrUnsupportedProtocol
	}
	return d(cws, header, tokens)
}

func missingAttribute(name string) error {
	return fmt.Errorf("%w: %s", errs.ErrMissingAttribute, name)
}

func valueError(detail string) error {
	return fmt.Errorf("%w: %s", errs.ErrDecode, detail)
}

func hexToAddress(s string) ([20]byte, error) {
	var out [20]byte
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return out, valueError("bad address " + s)
	}
	copy(out[:], b)
	return out, nil
}

func resolveTwoTokens(cws wire.ComponentWithState, tokens *token.Registry) (token.Token, token.Token, error) {
	if len(cws.Component.Tokens) != 2 {
		return token.Token{}, token.Token{}, valueError("expected exactly two tokens")
	}
	a, err := hexToAddress(cws.Component.Tokens[0])
	if err != nil {
		return token.Token{}, token.Token{}, err
	}
	b, err := hexToAddress(cws.Component.Tokens[1])
	if err != nil {
		return token.Token{}, token.Token{}, err
	}
	return tokens.Resolve(a, b)
}

func requireAttr(m map[string][]byte, name string) ([]byte, error) {
	b, ok := m[name]
	if !ok {
		return nil, missingAttribute(name)
	}
	return b, nil
}

func decodeBEUint32(b []byte) (uint32, error) {
	if len(b) == 0 || len(b) > 4 {
		return 0, valueError("bad uint32 width")
	}
	var v uint32
	for _, by := range b {
		v = v<<8 | uint32(by)
	}
	return v, nil
}

func decodeBEInt32(b []byte) (int32, error) {
	if len(b) == 0 || len(b) > 4 {
		return 0, valueError("bad int32 width")
	}
	var v int32
	for _, by := range b {
		v = v<<8 | int32(by)
	}
	if len(b) < 4 && b[0]&0x80 != 0 {
		shift := uint(32 - 8*len(b))
		v = (v << shift) >> shift
	}
	return v, nil
}

const tickAttrPrefix = "ticks/"
const tickAttrSuffix = "/net_liquidity"

func parseTickAttrKey(name string) (int32, bool) {
	if !strings.HasPrefix(name, tickAttrPrefix) || !strings.HasSuffix(name, tickAttrSuffix) {
		return 0, false
	}
	mid := name[len(tickAttrPrefix) : len(name)-len(tickAttrSuffix)]
	idx, err := strconv.ParseInt(mid, 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(idx), true
}
