// Package pool models the raw transaction-pool snapshot returned by a node's
// txpool_content RPC, and the pure abstraction functions (fingerprint and
// energy) that turn a snapshot into a search-guiding summary.
//
// Grounded on eth_txpool_fuzzer_core/state.py, with the hex-string decoding
// that script leaves to ad-hoc int(x, 16) calls replaced by hexutil's JSON
// field decoding.
package pool

import (
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// TxRecord is one transaction as reported by txpool_content: every numeric
// field arrives hex-encoded and is decoded by hexutil when the snapshot is
// unmarshaled. A field that fails to decode fails the whole snapshot decode;
// it does not produce a record flagged as malformed.
type TxRecord struct {
	GasPrice             hexutil.Big
	MaxFeePerGas         hexutil.Big
	MaxPriorityFeePerGas hexutil.Big
	MaxFeePerBlobGas     hexutil.Big
	Value                hexutil.Big
	Type                 hexutil.Uint64
	BlobVersionedHashes  []common.Hash

	// malformed marks a record that abstraction logs and classifies
	// conservatively (spec.md §4.2/§7). It is set only by MarkMalformed;
	// JSON unmarshaling never sets it.
	malformed bool
}

// Malformed reports whether any field of this record failed to decode.
func (r TxRecord) Malformed() bool { return r.malformed }

// MarkMalformed flags the record as malformed. The driver's pool decoding
// does not call it.
func (r *TxRecord) MarkMalformed() { r.malformed = true }

// HeadPrice returns the price used for ordering/classification: gasPrice for
// legacy/access-list transactions (type 0/1), maxFeePerGas for EIP-1559/4844
// (type 2/3), per spec.md §4.2 step 2.
func (r TxRecord) HeadPrice() uint64 {
	if uint64(r.Type) >= 2 {
		return r.MaxFeePerGas.ToInt().Uint64()
	}
	return r.GasPrice.ToInt().Uint64()
}

// NonceChain is one sender's pending (or queued) records, keyed by nonce.
type NonceChain map[uint64]TxRecord

// SenderMap is sender -> NonceChain, the shape of both the "pending" and
// "queued" fields of txpool_content.
type SenderMap map[common.Address]NonceChain

// RawPool is the two-part snapshot spec.md §3 defines: pending (executable)
// and queued (nonce-gapped / future) transactions, keyed by sender then
// nonce. It is captured once per execution and flows through abstraction
// and detection by value — no back-reference to the driver that produced
// it (design note §9).
type RawPool struct {
	Pending SenderMap
	Queued  SenderMap
}

// Empty returns a RawPool with no pending or queued records — distinct from
// the Go zero value only in that its maps are non-nil, so callers can range
// over it unconditionally.
func Empty() RawPool {
	return RawPool{Pending: SenderMap{}, Queued: SenderMap{}}
}

// TotalPending returns the total count of pending records across all
// senders, used directly by the PendingEmpty detector.
func (p RawPool) TotalPending() int {
	n := 0
	for _, chain := range p.Pending {
		n += len(chain)
	}
	return n
}

// SortedNonces returns the nonces of chain in ascending numeric order.
func SortedNonces(chain NonceChain) []uint64 {
	out := make([]uint64, 0, len(chain))
	for n := range chain {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
