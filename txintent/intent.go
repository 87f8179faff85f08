// Package txintent defines the typed description of a single transaction the
// fuzzer wants sent, and the ordered sequence of such intents (an Input)
// that constitutes one fuzzing test case.
//
// Grounded on eth_txpool_fuzzer_core/tx.py's Tx/Input dataclasses, reshaped
// into idiomatic Go value types with explicit field validation.
package txintent

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Type mirrors the EIP-2718 typed-transaction envelope types this fuzzer
// can construct.
type Type uint8

const (
	Legacy  Type = 0
	AccessL Type = 1
	Dynamic Type = 2
	Blob    Type = 3
)

// FutureNonce and FutureValue are the sentinel nonce/value pair that marks an
// intent as a "future" transaction: it exists only to occupy a queued slot,
// never to become pending (spec.md §4.1).
const (
	FutureNonce = 10_000
	FutureValue = 2
)

// GasLimit is fixed at the simple-transfer cost throughout the fuzzer
// (spec.md §4.1, §6).
const GasLimit = 21_000

// Intent is one transaction the fuzzer wants signed and sent. It is
// immutable once constructed; mutation strategies build a fresh Intent
// rather than editing one in place.
type Intent struct {
	AccountIndex int            // logical slot into the account table
	Sender       common.Address // must equal the address at AccountIndex
	Nonce        uint64
	Type         Type

	// Price is the legacy gasPrice for Type 0/1, or maxFeePerGas for Type 2/3.
	Price uint64

	Value uint64

	MaxPriorityFee   *uint64 // set for Type 2/3
	MaxFeePerBlobGas *uint64 // set for Type 3
	BlobHashes       []common.Hash
}

// IsFuture reports whether this intent is the future-slot sentinel.
func (in Intent) IsFuture() bool {
	return in.Nonce == FutureNonce && in.Value == FutureValue
}

// Validate enforces the Type=3 invariant from spec.md §3: a blob intent must
// carry at least one blob hash and a blob-gas fee.
func (in Intent) Validate() error {
	if in.Type == Blob {
		if len(in.BlobHashes) == 0 {
			return fmt.Errorf("blob intent for %s has no blob hashes", in.Sender)
		}
		if in.MaxFeePerBlobGas == nil {
			return fmt.Errorf("blob intent for %s has no max fee per blob gas", in.Sender)
		}
	}
	return nil
}

// NormalValue computes the "normal priced" value heuristic from spec.md
// §4.1: value = gas_limit * (12000 - price). Per design note §9, prices at
// or above 12000 are clamped to zero rather than allowed to go negative;
// neither this function nor its callers log the clamp.
func NormalValue(price uint64) uint64 {
	const ladderCeiling = 12_000
	if price >= ladderCeiling {
		return 0
	}
	return GasLimit * (ladderCeiling - price)
}

// Key identifies an intent by the four fields the mutation strategies use to
// test "is this still present in the observed pool": sender, nonce, value,
// and type (spec.md §4.5).
type Key struct {
	Sender common.Address
	Nonce  uint64
	Value  uint64
	Type   Type
}

// KeyOf extracts the matching key from an Intent.
func KeyOf(in Intent) Key {
	return Key{Sender: in.Sender, Nonce: in.Nonce, Value: in.Value, Type: in.Type}
}
