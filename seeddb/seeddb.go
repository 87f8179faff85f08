// Package seeddb implements the fuzzer's search frontier: a priority queue
// of Seeds ordered by energy (ties broken by generation), plus the set of
// fingerprints already covered.
//
// Grounded on eth_txpool_fuzzer_core/fuzz_engine.py's Seed and
// SeedDatabase classes, with the hand-rolled sorted-list-and-resort
// re-prioritization replaced by go-ethereum's common/prque generic
// priority queue.
package seeddb

import (
	"math"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/ethereum/go-ethereum/common/prque"

	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// InitialStateFingerprint is the sentinel fingerprint the fuzzer's
// zero-input starting seed is admitted under.
const InitialStateFingerprint = "<INITIAL_STATE>"

// Seed is one point in the search frontier: the input that produced it, the
// raw pool it was observed to leave behind, its fingerprint and energy, and
// how many times it has been dequeued.
type Seed struct {
	Input        txintent.Input
	ObservedPool pool.RawPool
	Fingerprint  string
	Energy       int
	Generation   int
}

// DB owns every admitted seed. Once added, a seed changes only in Next,
// which increments its Generation; Add rejects any seed whose fingerprint is
// already covered, so a seed cannot be re-added under a new priority.
type DB struct {
	queue   *prque.Prque[int64, *Seed]
	covered mapset.Set[string]
	count   int
}

// New returns an empty seed database.
func New() *DB {
	return &DB{
		queue:   prque.New[int64, *Seed](nil),
		covered: mapset.NewThreadUnsafeSet[string](),
	}
}

// InitializeWithEmptyInput admits the fuzzer's zero-input starting seed at
// energy 0, guaranteeing it is dequeued first.
func (db *DB) InitializeWithEmptyInput() {
	db.Add(&Seed{
		Input:       txintent.Empty(),
		Fingerprint: InitialStateFingerprint,
		Energy:      0,
	})
}

// Add admits seed if its fingerprint is not already covered. Returns false
// if the fingerprint was already known (the seed was not added).
func (db *DB) Add(seed *Seed) bool {
	if db.covered.Contains(seed.Fingerprint) {
		return false
	}
	db.covered.Add(seed.Fingerprint)
	db.queue.Push(seed, priorityOf(seed))
	db.count++
	return true
}

// Next pops the highest-priority seed (lowest energy, then lowest
// generation), increments its generation, re-admits it (seeds are retained
// forever once admitted), and returns it. Returns nil if the database is
// empty.
func (db *DB) Next() *Seed {
	if db.queue.Empty() {
		return nil
	}
	seed, _ := db.queue.Pop()
	seed.Generation++
	db.queue.Push(seed, priorityOf(seed))
	return seed
}

// IsEmpty reports whether the database holds no seeds.
func (db *DB) IsEmpty() bool { return db.queue.Empty() }

// Covers reports whether fingerprint has already been admitted.
func (db *DB) Covers(fingerprint string) bool { return db.covered.Contains(fingerprint) }

// Count returns the number of seeds currently tracked.
func (db *DB) Count() int { return db.count }

// priorityOf packs (energy, generation) into a single prque priority: lower
// energy wins, ties broken by lower generation. common/prque is a max-heap,
// so both components are negated.
func priorityOf(seed *Seed) int64 {
	const generationScale = 1_000_000
	energy := int64(seed.Energy)
	if energy > math.MaxInt64/generationScale {
		energy = math.MaxInt64 / generationScale
	}
	return -(energy*generationScale + int64(seed.Generation))
}
