package decode

import (
	"strings"

	"ammsim/errs"
	"ammsim/pkg/pool"
	"ammsim/pkg/pool/vm"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// canonicalAdapterID maps a "vm:" tag suffix to the adapter identifier
// the registry is keyed by (spec §4.9: "vm:balancer_v2 → BalancerV2
// adapter"): each underscore-separated segment is title-cased and
// joined without separators.
func canonicalAdapterID(suffix string) string {
	var b strings.Builder
	for _, word := range strings.Split(suffix, "_") {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}

func decodeVMSnapshot(suffix string, cws wire.ComponentWithState, header wire.Header, tokens *token.Registry, adapters AdapterRegistry) (pool.Pool, error) {
	token0, token1, err := resolveTwoTokens(cws, tokens)
	if err != nil {
		return nil, err
	}
	if adapters == nil {
		return nil, errs.ErrUnsupportedProtocol
	}
	adapterID := canonicalAdapterID(suffix)
	adapter, ok := adapters.Resolve(adapterID)
	if !ok {
		return nil, errs.ErrUnsupportedProtocol
	}
	return vm.New(cws.Component.ID, adapterID, token0.Address, token1.Address, header.Number, adapter), nil
}
