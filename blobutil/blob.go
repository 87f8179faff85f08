// Package blobutil generates dummy EIP-4844 blob payloads and computes
// their versioned hashes, for constructing type-3 transaction intents.
//
// Grounded on eth_txpool_fuzzer_core/blob_utils.py, with web3.py's
// to_blob_versioned_hash (backed by its own KZG library) replaced by
// go-ethereum's crypto/kzg4844 package — the real Go ecosystem analogue.
package blobutil

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto/kzg4844"
)

// GenerateDummyBlobs returns n freshly randomized blobs, one full
// kzg4844.Blob (128KB) each. The first byte of every 32-byte field element
// is zeroed so each element stays below the BLS12-381 scalar modulus and the
// blob can be committed by VersionedHashes. n<=0 returns nil.
func GenerateDummyBlobs(n int) ([]*kzg4844.Blob, error) {
	if n <= 0 {
		return nil, nil
	}
	blobs := make([]*kzg4844.Blob, 0, n)
	for i := 0; i < n; i++ {
		var b kzg4844.Blob
		if _, err := rand.Read(b[:]); err != nil {
			return nil, fmt.Errorf("blobutil: generating dummy blob %d: %w", i, err)
		}
		for j := 0; j < len(b); j += 32 {
			b[j] = 0
		}
		blobs = append(blobs, &b)
	}
	return blobs, nil
}

// VersionedHashes computes the EIP-4844 versioned hash of each blob by
// committing it and hashing the commitment. A failure on any one blob
// aborts the whole batch and returns an error, mirroring the original's
// fail-fast behavior.
func VersionedHashes(blobs []*kzg4844.Blob) ([]common.Hash, error) {
	if len(blobs) == 0 {
		return nil, nil
	}
	hashes := make([]common.Hash, 0, len(blobs))
	for i, blob := range blobs {
		commitment, err := kzg4844.BlobToCommitment(blob)
		if err != nil {
			return nil, fmt.Errorf("blobutil: committing blob %d: %w", i, err)
		}
		hashes = append(hashes, kzg4844.CalcBlobHashV1(sha256.New(), &commitment))
	}
	return hashes, nil
}

// DuplicateFirstHash appends a copy of hashes[0] to hashes, producing the
// "invalid blob variant" the mutation strategies use: hash list length =
// blob count + 1 via a duplicated first hash (spec.md §4.5).
func DuplicateFirstHash(hashes []common.Hash) []common.Hash {
	if len(hashes) == 0 {
		return hashes
	}
	out := make([]common.Hash, len(hashes), len(hashes)+1)
	copy(out, hashes)
	return append(out, hashes[0])
}
