// Package detect implements the exploit detectors of spec.md §4.7: pure
// predicates over a pool.RawPool snapshot that flag suspicious pool states
// during fuzzing. All but BlobPoolStall are pure functions of a single
// snapshot; BlobPoolStall is the one detector permitted to hold
// observation-to-observation state.
//
// Grounded on eth_txpool_fuzzer_core/detectors.py, recast as a closed set of
// Go types implementing a common Detector interface plus a Composite
// variant, per design note §9 ("closed variants over base classes").
package detect

import (
	"fmt"

	"github.com/luxfi/txpool-fuzz/pool"
)

// Detector is a predicate over a raw pool snapshot. Fires reports whether
// the detector's condition holds for p, and a human-readable reason when it
// does.
type Detector interface {
	Name() string
	Fires(p pool.RawPool, cfg pool.AbstractConfig) (bool, string)
}

// PendingEmpty fires when the pool's pending set has been fully evicted.
type PendingEmpty struct{}

func (PendingEmpty) Name() string { return "PendingEmpty" }

func (PendingEmpty) Fires(p pool.RawPool, _ pool.AbstractConfig) (bool, string) {
	if p.TotalPending() == 0 {
		return true, "pending pool fully evicted"
	}
	return false, ""
}

// LowCostState fires when the fingerprint's non-normal (P/R/C/O) occupancy
// has displaced baseline traffic at a total cost cheaper than pool_size
// normal-priced transactions would cost, i.e. the attacker bought pool
// occupancy below the fair baseline price.
type LowCostState struct{}

func (LowCostState) Name() string { return "LowCostState" }

func (LowCostState) Fires(p pool.RawPool, cfg pool.AbstractConfig) (bool, string) {
	return epsilonCostFires(p, cfg, 1.0)
}

// EpsilonCost is LowCostState scaled by a near-miss factor Epsilon in (0,1].
type EpsilonCost struct {
	Epsilon float64
}

func (d EpsilonCost) Name() string { return "EpsilonCost" }

func (d EpsilonCost) Fires(p pool.RawPool, cfg pool.AbstractConfig) (bool, string) {
	eps := d.Epsilon
	if eps <= 0 || eps > 1 {
		eps = 1
	}
	return epsilonCostFires(p, cfg, eps)
}

func epsilonCostFires(p pool.RawPool, cfg pool.AbstractConfig, eps float64) (bool, string) {
	nonNormalCount := 0
	nonNormalCost := uint64(0)

	for _, chain := range p.Pending {
		if len(chain) == 0 {
			continue
		}
		nonces := pool.SortedNonces(chain)
		head := chain[nonces[0]]
		if uint64(head.Type) == 3 {
			continue
		}
		if !head.Malformed() && head.HeadPrice() == cfg.NormalPrice {
			continue
		}
		nonNormalCount += len(chain)
		nonNormalCost += head.HeadPrice() * uint64(len(chain))
	}

	if nonNormalCount == 0 {
		return false, ""
	}

	baseline := float64(cfg.PoolSize) * float64(cfg.NormalPrice) * eps
	if float64(nonNormalCost) < baseline {
		return true, fmt.Sprintf("non-normal occupancy cost %d below baseline %.2f (count=%d)", nonNormalCost, baseline, nonNormalCount)
	}
	return false, ""
}

// BlobPoolStall fires when a blob (B) or malformed-blob (I) record has been
// observed pending across more than one consecutive call without the pool
// making progress on it (same sender+nonce still present). This is the
// single detector in this package permitted to carry state between calls.
type BlobPoolStall struct {
	seen map[blobKey]int
}

type blobKey struct {
	sender string
	nonce  uint64
}

// NewBlobPoolStall returns a fresh, zero-state stall detector.
func NewBlobPoolStall() *BlobPoolStall {
	return &BlobPoolStall{seen: map[blobKey]int{}}
}

func (d *BlobPoolStall) Name() string { return "BlobPoolStall" }

func (d *BlobPoolStall) Fires(p pool.RawPool, _ pool.AbstractConfig) (bool, string) {
	current := map[blobKey]bool{}
	fired := false
	var reason string

	for sender, chain := range p.Pending {
		for nonce, rec := range chain {
			if uint64(rec.Type) != 3 {
				continue
			}
			key := blobKey{sender: sender.Hex(), nonce: nonce}
			current[key] = true
			d.seen[key]++
			if d.seen[key] > 1 && !fired {
				fired = true
				reason = fmt.Sprintf("blob record sender=%s nonce=%d stalled for %d observations", sender.Hex(), nonce, d.seen[key])
			}
		}
	}

	for key := range d.seen {
		if !current[key] {
			delete(d.seen, key)
		}
	}

	return fired, reason
}

// BlobGasPriceManipulation fires when a pending type-3 record's
// maxFeePerBlobGas falls outside [Min, Max].
type BlobGasPriceManipulation struct {
	Min, Max uint64
}

func (BlobGasPriceManipulation) Name() string { return "BlobGasPriceManipulation" }

func (d BlobGasPriceManipulation) Fires(p pool.RawPool, _ pool.AbstractConfig) (bool, string) {
	for sender, chain := range p.Pending {
		for nonce, rec := range chain {
			if uint64(rec.Type) != 3 || rec.Malformed() {
				continue
			}
			fee := rec.MaxFeePerBlobGas.ToInt().Uint64()
			if fee < d.Min || fee > d.Max {
				return true, fmt.Sprintf("sender=%s nonce=%d maxFeePerBlobGas=%d outside [%d,%d]", sender.Hex(), nonce, fee, d.Min, d.Max)
			}
		}
	}
	return false, ""
}

// InvalidBlobAcceptance fires when a pending type-3 record would fingerprint
// as 'I' (no blob versioned hashes).
type InvalidBlobAcceptance struct{}

func (InvalidBlobAcceptance) Name() string { return "InvalidBlobAcceptance" }

func (InvalidBlobAcceptance) Fires(p pool.RawPool, _ pool.AbstractConfig) (bool, string) {
	for sender, chain := range p.Pending {
		for nonce, rec := range chain {
			if uint64(rec.Type) == 3 && len(rec.BlobVersionedHashes) == 0 {
				return true, fmt.Sprintf("sender=%s nonce=%d accepted with no blob versioned hashes", sender.Hex(), nonce)
			}
		}
	}
	return false, ""
}

// Composite is the logical OR of its children. Fires and Evaluate both run
// every child; Evaluate records every child that fired so callers can
// report which detector(s) tripped (spec.md §4.7), and Fires reports the
// reason of the first child that fired.
type Composite struct {
	Children []Detector
}

// Fired pairs a child detector's name with its firing reason.
type Fired struct {
	Name   string
	Reason string
}

func (c Composite) Name() string { return "Composite" }

func (c Composite) Fires(p pool.RawPool, cfg pool.AbstractConfig) (bool, string) {
	fired, _ := c.Evaluate(p, cfg)
	if len(fired) == 0 {
		return false, ""
	}
	return true, fired[0].Reason
}

// Evaluate runs every child against p and returns all that fired, in
// Children order.
func (c Composite) Evaluate(p pool.RawPool, cfg pool.AbstractConfig) ([]Fired, bool) {
	var out []Fired
	for _, child := range c.Children {
		if ok, reason := child.Fires(p, cfg); ok {
			out = append(out, Fired{Name: child.Name(), Reason: reason})
		}
	}
	return out, len(out) > 0
}
