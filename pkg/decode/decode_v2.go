package decode

import (
	"ammsim/pkg/fixedpoint"
	"ammsim/pkg/pool"
	"ammsim/pkg/pool/v2"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

func decodeV2Snapshot(cws wire.ComponentWithState, header wire.Header, tokens *token.Registry) (pool.Pool, error) {
	token0, token1, err := resolveTwoTokens(cws, tokens)
	if err != nil {
		return nil, err
	}
	reserve0, err := requireAttr(cws.State.Attributes, "reserve0")
	if err != nil {
		return nil, err
	}
	reserve1, err := requireAttr(cws.State.Attributes, "reserve1")
	if err != nil {
		return nil, err
	}

	return v2.New(
		cws.Component.ID, token0, token1,
		fixedpoint.NewU256FromBytes(reserve0), fixedpoint.NewU256FromBytes(reserve1),
		v2.LogPos{Block: header.Number},
	), nil
}
