package pool

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"
)

// AbstractConfig binds the scenario-specific constants the abstraction and
// energy functions are parameterized over (spec.md §4.2).
type AbstractConfig struct {
	NormalPrice               uint64 // default 3
	ReplacementPriceThreshold uint64 // default 12_000
	ChildValueThreshold       uint64 // default 10_000
	PoolSize                  int    // scenario-specific
}

// DefaultAbstractConfig matches the constants used throughout spec.md §8's
// worked scenarios.
func DefaultAbstractConfig(poolSize int) AbstractConfig {
	return AbstractConfig{
		NormalPrice:               3,
		ReplacementPriceThreshold: 12_000,
		ChildValueThreshold:       10_000,
		PoolSize:                  poolSize,
	}
}

type nonNormalSender struct {
	headPrice uint64
	chain     NonceChain
	nonces    []uint64
}

// Abstract turns a RawPool into its canonical fingerprint string over the
// alphabet {E,F,N,P,R,C,O,B,I} (spec.md §4.2, §4.3). It never returns an
// error: malformed records are logged and conservatively classified as
// non-normal (for heads) or 'O' (for children), per spec.md §7.
func Abstract(p RawPool, cfg AbstractConfig) string {
	// Step 1: future-queue holders.
	futureCount := 0
	for sender, chain := range p.Queued {
		for nonce, rec := range chain {
			if nonce == FutureNonceValue && uint64(rec.Type) != 3 {
				futureCount++
			}
			_ = sender
		}
	}

	// Step 2: classify each pending sender's head record.
	var blobCount, invalidBlobCount, normalCount int
	var nonNormal []nonNormalSender

	for sender, chain := range p.Pending {
		if len(chain) == 0 {
			continue
		}
		nonces := SortedNonces(chain)
		head := chain[nonces[0]]
		if head.Malformed() {
			log.Warn("pool: malformed head record, treating sender as non-normal", "sender", sender)
			nonNormal = append(nonNormal, nonNormalSender{headPrice: cfg.NormalPrice + 1, chain: chain, nonces: nonces})
			continue
		}

		if uint64(head.Type) == 3 {
			if len(head.BlobVersionedHashes) > 0 {
				blobCount += len(chain)
			} else {
				invalidBlobCount += len(chain)
			}
			continue
		}

		if head.HeadPrice() == cfg.NormalPrice {
			normalCount += len(chain)
			continue
		}

		nonNormal = append(nonNormal, nonNormalSender{headPrice: head.HeadPrice(), chain: chain, nonces: nonces})
	}

	// Step 3: ascending head-price order, one symbol per record.
	sort.Slice(nonNormal, func(i, j int) bool { return nonNormal[i].headPrice < nonNormal[j].headPrice })

	var rest strings.Builder
	for _, sender := range nonNormal {
		isReplacement := false
		for i, nonce := range sender.nonces {
			rec := sender.chain[nonce]
			if i == 0 {
				if sender.headPrice >= cfg.ReplacementPriceThreshold {
					rest.WriteByte('R')
					isReplacement = true
				} else {
					rest.WriteByte('P')
				}
				continue
			}
			if rec.Malformed() {
				log.Warn("pool: malformed child record, symbolizing as override")
				rest.WriteByte('O')
				continue
			}
			if isReplacement || rec.Value.ToInt().Uint64() > cfg.ChildValueThreshold {
				rest.WriteByte('O')
			} else {
				rest.WriteByte('C')
			}
		}
	}

	totalCounted := futureCount + blobCount + invalidBlobCount + normalCount + nonNormalRecordCount(nonNormal)
	emptyCount := cfg.PoolSize - totalCounted
	if emptyCount < 0 {
		emptyCount = 0
	}

	var out strings.Builder
	out.WriteString(strings.Repeat("E", emptyCount))
	out.WriteString(strings.Repeat("F", futureCount))
	out.WriteString(strings.Repeat("B", blobCount))
	out.WriteString(strings.Repeat("I", invalidBlobCount))
	out.WriteString(strings.Repeat("N", normalCount))
	out.WriteString(rest.String())
	return out.String()
}

func nonNormalRecordCount(senders []nonNormalSender) int {
	n := 0
	for _, s := range senders {
		n += len(s.chain)
	}
	return n
}

// FutureNonceValue is the sentinel nonce (10_000) identifying a future
// queued transaction. Duplicated from txintent to avoid an import cycle
// (pool must not depend on txintent; txintent already depends on common
// types pool also uses).
const FutureNonceValue = 10_000
