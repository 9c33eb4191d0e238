// Package wire defines the upstream wire protocol types the simulation
// core consumes (spec §6): headers, components, states, and deltas.
// These are plain data — decoding lives in pkg/decode, pool semantics
// in pkg/pool/*, and the consumer-facing BlockUpdate in pkg/stream
// (which can import both wire and pool without a cycle).
package wire

// Header identifies a block in the upstream chain of sync-messages.
type Header struct {
	Number     uint64
	Hash       [32]byte
	ParentHash [32]byte
	Revert     bool
}

// Component is the static metadata of a pool: identity, the tokens it
// trades, any on-chain contracts behind it, and protocol-specific
// static attributes (e.g. tick_spacing, fee_pips) that never change
// across deltas.
type Component struct {
	ID               string
	ProtocolSystem   string
	Tokens           []string
	ContractIDs      []string
	StaticAttributes map[string][]byte
}

// State is a pool's mutable attribute set and per-token balances as of
// a snapshot.
type State struct {
	ComponentID string
	Attributes  map[string][]byte
	Balances    map[string][]byte
}

// ComponentWithState pairs a component's static metadata with its
// current state, the unit a snapshot decodes.
type ComponentWithState struct {
	Component Component
	State     State
}

// Delta is an incremental update to one component's state: attribute
// upserts, attribute deletions, and balance changes.
type Delta struct {
	ComponentID        string
	UpdatedAttributes  map[string][]byte
	DeletedAttributes  map[string]struct{}
	BalanceChanges     map[string][]byte
}

// ExchangeDeltas groups the deltas carried by one sync-message for a
// single exchange tag.
type ExchangeDeltas struct {
	StateUpdates      map[string]Delta
	NewTokens         map[string]TokenMeta
	RemovedComponents map[string]Component
}

// TokenMeta is the wire shape of a token the upstream introduces via a
// delta (as opposed to the initial, caller-supplied token registry).
type TokenMeta struct {
	Address  string
	Decimals uint8
	Symbol   string
	Gas      uint64
	Quality  uint32
}

// ExchangeMessage is one exchange's contribution to a sync-message:
// fresh snapshots plus incremental deltas.
type ExchangeMessage struct {
	Tag       string
	Snapshots map[string]ComponentWithState
	Deltas    ExchangeDeltas
}

// SyncMessage is one block's worth of upstream updates, grouped by
// exchange (spec §4.10).
type SyncMessage struct {
	Header    Header
	Exchanges []ExchangeMessage
}
