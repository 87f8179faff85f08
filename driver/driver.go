// Package driver implements the NodeDriver contract the executor and engine
// use to push transactions into, and observe, a real Ethereum node's
// transaction pool over JSON-RPC.
//
// Grounded on eth_txpool_fuzzer_core/clients/base_client.py's IEthereumClient
// interface and clients/anvil_client.py's RPC call shapes, with the
// JSON-RPC transport itself adapted from utils/rpc/json.go (SendJSONRequest)
// — that file's Option/NewOptions dependency was never part of this
// retrieval, so the transport is inlined here without it rather than
// fabricated.
package driver

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// FeeSnapshot is a point-in-time read of the node's suggested fees, the
// basis every mutation strategy prices new intents from (spec.md §4.5).
type FeeSnapshot struct {
	GasPrice             uint64
	MaxFeePerGas         uint64
	MaxPriorityFeePerGas uint64
	MaxFeePerBlobGas     uint64
}

// SendResult reports the outcome of one intent send: either a transaction
// hash, or an error that the executor logs and skips past (spec.md §4.6 —
// per-intent failures never abort an execution).
type SendResult struct {
	Intent txintent.Intent
	Hash    common.Hash
	Err     error
}

// NodeDriver is the capability contract the executor and mutation
// strategies depend on, implemented by a concrete JSON-RPC client per node
// flavor (Anvil, Geth, Reth, ...). Method names are generic; a concrete
// driver resolves them to client-specific RPC names via its alias table.
type NodeDriver interface {
	// ResetState returns the node's chain state to a clean starting point
	// (e.g. anvil_reset / debug_setHead to genesis).
	ResetState(ctx context.Context) error

	// FundAccounts credits each address with amount wei. Nothing in this
	// module calls it; campaign startup does not fund accounts.
	FundAccounts(ctx context.Context, addresses []common.Address, amount uint64) error

	// FeeSnapshot reads the node's current suggested gas/blob-gas fees.
	FeeSnapshot(ctx context.Context) (FeeSnapshot, error)

	// SendIntent signs in with the private key for in.AccountIndex and
	// submits it as a raw transaction, returning its hash.
	SendIntent(ctx context.Context, in txintent.Intent, privateKeyHex string) (common.Hash, error)

	// PoolContent retrieves and decodes the node's current txpool_content
	// snapshot.
	PoolContent(ctx context.Context) (pool.RawPool, error)

	// Snapshot creates a point-in-time EVM snapshot and returns its id.
	Snapshot(ctx context.Context) (string, error)

	// Revert restores the EVM to a previously created snapshot.
	Revert(ctx context.Context, snapshotID string) error

	// CustomRPC calls an arbitrary method with params, decoding the result
	// into reply — the escape hatch for client-specific functionality not
	// covered by the rest of the interface.
	CustomRPC(ctx context.Context, method string, params, reply interface{}) error
}

// MethodAliases maps the generic method names this package calls
// internally ("reset_state", "fund_accounts", "snapshot", "revert") to a
// specific client's RPC method name, mirroring
// IEthereumClient.rpc_method_aliases.
type MethodAliases map[string]string

// AnvilAliases are the default aliases for an Anvil/Foundry node.
func AnvilAliases() MethodAliases {
	return MethodAliases{
		"reset_state":   "anvil_reset",
		"fund_accounts": "anvil_setBalance",
		"snapshot":      "evm_snapshot",
		"revert":        "evm_revert",
	}
}

func (a MethodAliases) resolve(generic string) string {
	if m, ok := a[generic]; ok {
		return m
	}
	return generic
}
