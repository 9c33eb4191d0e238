package decode

import (
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/pool/v3"
	"ammsim/pkg/ticklist"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

func decodeV3Snapshot(cws wire.ComponentWithState, header wire.Header, tokens *token.Registry) (pool.Pool, error) {
	token0, token1, err := resolveTwoTokens(cws, tokens)
	if err != nil {
		return nil, err
	}

	feePipsBytes, err := requireAttr(cws.Component.StaticAttributes, "fee_pips")
	if err != nil {
		return nil, err
	}
	feePips, err := decodeBEUint32(feePipsBytes)
	if err != nil {
		return nil, err
	}
	spacingBytes, err := requireAttr(cws.Component.StaticAttributes, "tick_spacing")
	if err != nil {
		return nil, err
	}
	tickSpacing, err := decodeBEInt32(spacingBytes)
	if err != nil {
		return nil, err
	}

	liquidityBytes, err := requireAttr(cws.State.Attributes, "liquidity")
	if err != nil {
		return nil, err
	}
	sqrtPriceBytes, err := requireAttr(cws.State.Attributes, "sqrt_price_x96")
	if err != nil {
		return nil, err
	}
	tickBytes, err := requireAttr(cws.State.Attributes, "tick")
	if err != nil {
		return nil, err
	}
	tick, err := decodeBEInt32(tickBytes)
	if err != nil {
		return nil, err
	}

	ticks := ticklist.New(tickSpacing)
	for name, b := range cws.State.Attributes {
		idx, ok := parseTickAttrKey(name)
		if !ok {
			continue
		}
		net, err := fixedpoint.I256FromBigEndianTwosComplement(b)
		if err != nil {
			return nil, err
		}
		ticks.SetLiquidity(idx, net)
	}

	return v3.New(
		cws.Component.ID, token0, token1,
		fixedpoint.NewU256FromBytes(liquidityBytes), fixedpoint.NewU256FromBytes(sqrtPriceBytes),
		feePips, tick, tickSpacing, ticks,
	), nil
}
