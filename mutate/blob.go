package mutate

import (
	"context"
	"math/rand"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/blobutil"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// BlobConfig binds the blob-gas-price bounds the Blob strategy randomizes
// within, mirroring BlobTxMutationStrategy's constructor arguments.
type BlobConfig struct {
	MaxBlobsPerTx   int
	MinBlobGasPrice uint64
	MaxBlobGasPrice uint64
}

// DefaultBlobConfig matches BlobTxMutationStrategy's defaults.
func DefaultBlobConfig() BlobConfig {
	return BlobConfig{MaxBlobsPerTx: 2, MinBlobGasPrice: 1, MaxBlobGasPrice: 1000}
}

// Blob emits valid, low-blob-gas, and invalid-hash-count blob transaction
// candidates (spec.md §4.5).
type Blob struct {
	Accounts *accounts.Table
	Driver   driver.NodeDriver
	Cfg      BlobConfig
}

func (b Blob) Mutate(base txintent.Input, observed pool.RawPool, nextFreeAccount int) []txintent.Input {
	acc, ok := b.Accounts.ByIndex(nextFreeAccount + 1)
	if !ok {
		return nil
	}

	snap, err := b.Driver.FeeSnapshot(context.Background())
	if err != nil {
		snap = driver.FeeSnapshot{}
	}

	numBlobs := 1
	if b.Cfg.MaxBlobsPerTx > 1 {
		numBlobs = 1 + rand.Intn(b.Cfg.MaxBlobsPerTx)
	}
	blobs, err := blobutil.GenerateDummyBlobs(numBlobs)
	if err != nil {
		return nil
	}
	hashes, err := blobutil.VersionedHashes(blobs)
	if err != nil || len(hashes) == 0 {
		return nil
	}

	maxFee := snap.MaxFeePerGas
	if maxFee == 0 {
		maxFee = uint64(1 + rand.Intn(100))
	}
	tip := snap.MaxPriorityFeePerGas
	if tip == 0 {
		tip = uint64(1 + rand.Intn(50))
	}
	nonce := b.Accounts.Nonce(acc.Address)

	var out []txintent.Input

	feeCeiling := snap.MaxFeePerBlobGas
	if feeCeiling > b.Cfg.MaxBlobGasPrice {
		feeCeiling = b.Cfg.MaxBlobGasPrice
	}
	validFee := randomInRange(b.Cfg.MinBlobGasPrice, feeCeiling)
	out = append(out, appended(base, observed, txintent.Intent{
		AccountIndex:     acc.Index,
		Sender:           acc.Address,
		Nonce:            nonce,
		Type:             txintent.Blob,
		Price:            maxFee,
		Value:            0,
		MaxPriorityFee:   &tip,
		MaxFeePerBlobGas: &validFee,
		BlobHashes:       hashes,
	}))

	lowFee := b.Cfg.MinBlobGasPrice
	out = append(out, appended(base, observed, txintent.Intent{
		AccountIndex:     acc.Index,
		Sender:           acc.Address,
		Nonce:            nonce,
		Type:             txintent.Blob,
		Price:            maxFee,
		Value:            0,
		MaxPriorityFee:   &tip,
		MaxFeePerBlobGas: &lowFee,
		BlobHashes:       hashes,
	}))

	invalidHashes := blobutil.DuplicateFirstHash(hashes)
	out = append(out, appended(base, observed, txintent.Intent{
		AccountIndex:     acc.Index,
		Sender:           acc.Address,
		Nonce:            nonce,
		Type:             txintent.Blob,
		Price:            maxFee,
		Value:            0,
		MaxPriorityFee:   &tip,
		MaxFeePerBlobGas: &validFee,
		BlobHashes:       invalidHashes,
	}))

	return out
}

func randomInRange(min, max uint64) uint64 {
	if max <= min {
		return min
	}
	return min + uint64(rand.Int63n(int64(max-min+1)))
}
