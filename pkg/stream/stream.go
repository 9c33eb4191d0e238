// Package stream implements component C10: the block-synchronous
// pipeline that turns upstream sync-messages (pkg/wire) into decoded,
// registry-committed pool state (spec §4.10). Grounded on
// guidebee-SolRoute/pkg/router.SimpleRouter's orchestration shape — one
// driver holding the live pool set, fanning work out per protocol and
// folding results back in — generalized from SolRoute's on-demand RPC
// fetch to this spec's streamed snapshot/delta model, with the
// registry commit kept as a single atomic step (spec §5).
//
// BlockUpdate lives here rather than in pkg/wire so it can reference
// pool.Pool without pkg/wire importing pkg/pool (pkg/pool already
// imports pkg/wire for DeltaTransition).
package stream

import (
	"context"
	"encoding/hex"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ammsim/errs"
	"ammsim/internal/obs"
	"ammsim/pkg/decode"
	"ammsim/pkg/pool"
	"ammsim/pkg/token"
	"ammsim/pkg/wire"
)

// BlockUpdate is the pipeline's sole output unit (spec §3, §4.10 step
// 4): one block's worth of newly created pools, the full post-commit
// state of every pool touched this block, and the pools removed.
type BlockUpdate struct {
	Header       wire.Header
	NewPairs     map[string]pool.Pool
	States       map[string]pool.Pool
	RemovedPairs map[string]struct{}
}

// Filter decides whether a decoded snapshot is worth tracking (spec
// §4.10 step 1, "registered filter predicate"); e.g. a minimum-TVL
// check. A nil Filter admits everything.
type Filter func(wire.ComponentWithState) bool

// livenessSlack is how many blocks an exchange may lag behind the
// pipeline's newest observed block before the stream is considered
// stalled (spec §4.10 "Liveness check").
const livenessSlack = 10

// Pipeline owns the live pool registry and drives one sync-message at
// a time through decode, delta-application, and commit (spec §5
// "single-threaded cooperative pipeline" at the registry-mutation
// boundary; decoding may run in parallel ahead of it).
type Pipeline struct {
	tokens        *token.Registry
	adapters      decode.AdapterRegistry
	filters       map[string]Filter
	correlationID uuid.UUID

	mu        sync.Mutex
	pools     map[string]pool.Pool
	lastBlock map[string]uint64
}

// New builds a pipeline seeded with tokens, an optional adapter
// registry for vm:-tagged exchanges, and a per-exchange filter map
// (spec §6 "exchanges: [(tag, filter)]").
func New(tokens *token.Registry, adapters decode.AdapterRegistry, filters map[string]Filter) *Pipeline {
	return &Pipeline{
		tokens:        tokens,
		adapters:      adapters,
		filters:       filters,
		correlationID: uuid.New(),
		pools:         make(map[string]pool.Pool),
		lastBlock:     make(map[string]uint64),
	}
}

// CorrelationID identifies this pipeline instance in logs, so an
// operator running several pipelines can separate them.
func (p *Pipeline) CorrelationID() uuid.UUID { return p.correlationID }

type snapshotResult struct {
	id string
	p  pool.Pool
}

// Process runs one sync-message through the full per-block procedure
// (spec §4.10 steps 1-4) and returns the BlockUpdate to emit. A fatal
// error (errs.IsFatal, e.g. the liveness check tripped) means the
// caller must abort the stream; any other error (e.g. ctx cancelled
// while decoding snapshots) means this message was rejected wholesale
// before any registry mutation occurred.
func (p *Pipeline) Process(ctx context.Context, msg wire.SyncMessage) (BlockUpdate, error) {
	log := obs.L().With("correlation_id", p.correlationID, "block", msg.Header.Number)

	if err := p.checkLiveness(msg); err != nil {
		return BlockUpdate{}, err
	}

	newPairs := make(map[string]pool.Pool)
	updatedStates := make(map[string]pool.Pool)
	removedPairs := make(map[string]struct{})

	for _, ex := range msg.Exchanges {
		exLog := log.With("exchange", ex.Tag)

		decoded, err := p.decodeSnapshots(ctx, ex, msg.Header, exLog)
		if err != nil {
			return BlockUpdate{}, err
		}
		for id, pl := range decoded {
			newPairs[id] = pl
		}

		for id, delta := range ex.Deltas.StateUpdates {
			if fresh, ok := newPairs[id]; ok {
				if err := fresh.DeltaTransition(delta, p.tokens); err != nil {
					if errs.IsFatal(err) {
						return BlockUpdate{}, err
					}
					exLog.Warnw("dropping delta applied to a snapshot decoded this block", "pool_id", id, "error", err)
				}
				continue
			}

			p.mu.Lock()
			stored, ok := p.pools[id]
			p.mu.Unlock()
			if !ok {
				exLog.Warnw("dropping delta for unknown pool", "pool_id", id)
				continue
			}
			clone := stored.Clone()
			if err := clone.DeltaTransition(delta, p.tokens); err != nil {
				if errs.IsFatal(err) {
					return BlockUpdate{}, err
				}
				exLog.Warnw("dropping delta that failed to apply", "pool_id", id, "error", err)
				continue
			}
			updatedStates[id] = clone
		}

		for id := range ex.Deltas.RemovedComponents {
			removedPairs[id] = struct{}{}
		}

		for addr, meta := range ex.Deltas.NewTokens {
			a, err := hexToAddress(addr)
			if err != nil {
				exLog.Warnw("dropping malformed new-token address", "address", addr, "error", err)
				continue
			}
			p.tokens.MergeIfQualified(token.Token{Address: a, Decimals: meta.Decimals, Symbol: meta.Symbol, Gas: meta.Gas}, meta.Quality)
		}
	}

	p.mu.Lock()
	for id, pl := range newPairs {
		p.pools[id] = pl
	}
	for id, pl := range updatedStates {
		p.pools[id] = pl
	}
	for id := range removedPairs {
		delete(p.pools, id)
	}
	p.mu.Unlock()

	states := make(map[string]pool.Pool, len(newPairs)+len(updatedStates))
	for id, pl := range newPairs {
		states[id] = pl
	}
	for id, pl := range updatedStates {
		states[id] = pl
	}

	return BlockUpdate{
		Header:       msg.Header,
		NewPairs:     newPairs,
		States:       states,
		RemovedPairs: removedPairs,
	}, nil
}

// decodeSnapshots decodes every admitted snapshot of one exchange in
// parallel, bounded to GOMAXPROCS (spec §5 "Parallelism opportunity"),
// returning only what survived the token-registry and filter checks.
func (p *Pipeline) decodeSnapshots(ctx context.Context, ex wire.ExchangeMessage, header wire.Header, log *zap.SugaredLogger) (map[string]pool.Pool, error) {
	filter := p.filters[ex.Tag]

	results := make([]snapshotResult, 0, len(ex.Snapshots))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for id, cws := range ex.Snapshots {
		id, cws := id, cws
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			if !tokensKnown(cws, p.tokens) {
				log.Infow("dropping snapshot with unknown token", "pool_id", id)
				return nil
			}
			if filter != nil && !filter(cws) {
				log.Debugw("dropping snapshot excluded by filter", "pool_id", id)
				return nil
			}

			pl, err := decode.Decode(cws.Component.ProtocolSystem, cws, header, p.tokens, p.adapters)
			if err != nil {
				if errs.IsFatal(err) {
					return err
				}
				log.Warnw("dropping snapshot that failed to decode", "pool_id", id, "error", err)
				return nil
			}

			mu.Lock()
			results = append(results, snapshotResult{id: id, p: pl})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]pool.Pool, len(results))
	for _, r := range results {
		out[r.id] = r.p
	}
	return out, nil
}

// checkLiveness enforces spec §4.10's liveness rule: a block more than
// livenessSlack ahead of any active exchange's last-seen block is
// fatal. Block regressions (the upstream resending snapshots after a
// restart) are logged, not rejected — the registry replaces state
// cleanly via the normal decode path.
func (p *Pipeline) checkLiveness(msg wire.SyncMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, ex := range msg.Exchanges {
		last, ok := p.lastBlock[ex.Tag]
		if ok {
			if msg.Header.Number > last+livenessSlack {
				return fmt.Errorf("%w: exchange %s last seen at block %d, got %d", errs.ErrOutOfOrderDelta, ex.Tag, last, msg.Header.Number)
			}
			if msg.Header.Number < last {
				obs.L().Warnw("block regression", "correlation_id", p.correlationID, "block", msg.Header.Number, "exchange", ex.Tag, "last_block", last)
			}
		}
		p.lastBlock[ex.Tag] = msg.Header.Number
	}
	return nil
}

func tokensKnown(cws wire.ComponentWithState, tokens *token.Registry) bool {
	for _, s := range cws.Component.Tokens {
		a, err := hexToAddress(s)
		if err != nil || !tokens.Has(a) {
			return false
		}
	}
	return true
}

// hexToAddress mirrors pkg/decode's own helper; duplicated rather than
// exported cross-package since it is three lines of stdlib parsing, not
// shared domain logic.
func hexToAddress(s string) ([20]byte, error) {
	var out [20]byte
	s = strings.TrimPrefix(s, "0x")
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return out, fmt.Errorf("%w: bad address %s", errs.ErrDecode, s)
	}
	copy(out[:], b)
	return out, nil
}
