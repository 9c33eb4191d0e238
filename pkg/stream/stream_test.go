package stream

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"ammsim/pkg/pool"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

func addr(b byte) [20]byte {
	var a [20]byte
	a[19] = b
	return a
}

func addrHex(b byte) string {
	a := addr(b)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, 0, 42)
	out = append(out, '0', 'x')
	for _, by := range a {
		out = append(out, hexDigits[by>>4], hexDigits[by&0xf])
	}
	return string(out)
}

func newTestRegistry() *token.Registry {
	return token.NewRegistry(map[[20]byte]token.Token{
		addr(1): {Address: addr(1), Decimals: 18, Symbol: "TOKA"},
		addr(2): {Address: addr(2), Decimals: 18, Symbol: "TOKB"},
	})
}

func v2Snapshot(id string) wire.ComponentWithState {
	return wire.ComponentWithState{
		Component: wire.Component{ID: id, ProtocolSystem: "uniswap_v2", Tokens: []string{addrHex(1), addrHex(2)}},
		State: wire.State{
			ComponentID: id,
			Attributes: map[string][]byte{
				"reserve0": {0x03, 0xe8},
				"reserve1": {0x07, 0xd0},
			},
		},
	}
}

func TestProcessDecodesNewSnapshot(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	msg := wire.SyncMessage{
		Header: wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{
			{Tag: "uniswap_v2", Snapshots: map[string]wire.ComponentWithState{"pool-1": v2Snapshot("pool-1")}},
		},
	}

	update, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Contains(t, update.NewPairs, "pool-1")
	require.Equal(t, pool.VariantV2, update.States["pool-1"].Variant())
	require.Empty(t, update.RemovedPairs)
}

func TestProcessDropsSnapshotWithUnknownToken(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	snap := v2Snapshot("pool-2")
	snap.Component.Tokens = []string{addrHex(1), addrHex(9)}
	msg := wire.SyncMessage{
		Header:    wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2", Snapshots: map[string]wire.ComponentWithState{"pool-2": snap}}},
	}

	update, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	require.NotContains(t, update.NewPairs, "pool-2")
}

func TestProcessAppliesFilter(t *testing.T) {
	p := New(newTestRegistry(), nil, map[string]Filter{
		"uniswap_v2": func(wire.ComponentWithState) bool { return false },
	})
	msg := wire.SyncMessage{
		Header:    wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2", Snapshots: map[string]wire.ComponentWithState{"pool-3": v2Snapshot("pool-3")}}},
	}

	update, err := p.Process(context.Background(), msg)
	require.NoError(t, err)
	require.Empty(t, update.NewPairs)
}

func TestProcessClonesStoredStateOnDelta(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	ctx := context.Background()

	_, err := p.Process(ctx, wire.SyncMessage{
		Header:    wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2", Snapshots: map[string]wire.ComponentWithState{"pool-4": v2Snapshot("pool-4")}}},
	})
	require.NoError(t, err)

	delta := wire.Delta{
		ComponentID:       "pool-4",
		UpdatedAttributes: map[string][]byte{"reserve0": {0x04, 0xb0}, "reserve1": {0x07, 0xd0}},
	}
	update, err := p.Process(ctx, wire.SyncMessage{
		Header: wire.Header{Number: 2},
		Exchanges: []wire.ExchangeMessage{
			{Tag: "uniswap_v2", Deltas: wire.ExchangeDeltas{StateUpdates: map[string]wire.Delta{"pool-4": delta}}},
		},
	})
	require.NoError(t, err)
	require.Contains(t, update.States, "pool-4")
	require.NotContains(t, update.NewPairs, "pool-4")

	p.mu.Lock()
	stored := p.pools["pool-4"]
	p.mu.Unlock()
	require.True(t, stored.Equals(update.States["pool-4"]))
}

func TestProcessDropsDeltaForUnknownPool(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	delta := wire.Delta{ComponentID: "ghost", UpdatedAttributes: map[string][]byte{"reserve0": {0x01}}}
	update, err := p.Process(context.Background(), wire.SyncMessage{
		Header:    wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2", Deltas: wire.ExchangeDeltas{StateUpdates: map[string]wire.Delta{"ghost": delta}}}},
	})
	require.NoError(t, err)
	require.Empty(t, update.States)
}

func TestProcessRemovesComponent(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	ctx := context.Background()
	_, err := p.Process(ctx, wire.SyncMessage{
		Header:    wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2", Snapshots: map[string]wire.ComponentWithState{"pool-5": v2Snapshot("pool-5")}}},
	})
	require.NoError(t, err)

	update, err := p.Process(ctx, wire.SyncMessage{
		Header: wire.Header{Number: 2},
		Exchanges: []wire.ExchangeMessage{
			{Tag: "uniswap_v2", Deltas: wire.ExchangeDeltas{RemovedComponents: map[string]wire.Component{"pool-5": {ID: "pool-5"}}}},
		},
	})
	require.NoError(t, err)
	require.Contains(t, update.RemovedPairs, "pool-5")

	p.mu.Lock()
	_, stillPresent := p.pools["pool-5"]
	p.mu.Unlock()
	require.False(t, stillPresent)
}

func TestProcessMergesQualifiedNewToken(t *testing.T) {
	tokens := newTestRegistry()
	p := New(tokens, nil, nil)
	_, err := p.Process(context.Background(), wire.SyncMessage{
		Header: wire.Header{Number: 1},
		Exchanges: []wire.ExchangeMessage{
			{Tag: "uniswap_v2", Deltas: wire.ExchangeDeltas{NewTokens: map[string]wire.TokenMeta{
				addrHex(3): {Address: addrHex(3), Decimals: 6, Symbol: "TOKC", Quality: 80},
				addrHex(4): {Address: addrHex(4), Decimals: 6, Symbol: "TOKD", Quality: 10},
			}}},
		},
	})
	require.NoError(t, err)
	require.True(t, tokens.Has(addr(3)))
	require.False(t, tokens.Has(addr(4)))
}

func TestProcessLivenessFatalWhenFarBehind(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	ctx := context.Background()
	_, err := p.Process(ctx, wire.SyncMessage{Header: wire.Header{Number: 1}, Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2"}}})
	require.NoError(t, err)

	_, err = p.Process(ctx, wire.SyncMessage{Header: wire.Header{Number: 20}, Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2"}}})
	require.Error(t, err)
}

func TestProcessAllowsBlockRegression(t *testing.T) {
	p := New(newTestRegistry(), nil, nil)
	ctx := context.Background()
	_, err := p.Process(ctx, wire.SyncMessage{Header: wire.Header{Number: 10}, Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2"}}})
	require.NoError(t, err)

	_, err = p.Process(ctx, wire.SyncMessage{Header: wire.Header{Number: 5}, Exchanges: []wire.ExchangeMessage{{Tag: "uniswap_v2"}}})
	require.NoError(t, err)
}
