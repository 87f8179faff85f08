// Package mutate implements the mutation strategies that turn one seed
// Input into a batch of candidate child Inputs (spec.md §4.5).
//
// Grounded on eth_txpool_fuzzer_core/mutation.py's DefaultTxPoolMutation and
// CompositeMutationStrategy, and mutation_strategies/blob_mutation.py's
// BlobTxMutationStrategy, recast as a closed MutationStrategy interface plus
// a Composite variant (design note §9).
package mutate

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// Config binds the scenario constants the Default strategy needs, mirroring
// DefaultTxPoolMutation's constructor arguments.
type Config struct {
	NormalPrice               uint64
	ReplacementPriceThreshold uint64
	ChildValueThreshold       uint64
	PriceLadderStep           uint64
}

// DefaultConfig matches DefaultTxPoolMutation's defaults.
func DefaultConfig() Config {
	return Config{
		NormalPrice:               3,
		ReplacementPriceThreshold: 12_000,
		ChildValueThreshold:       10_000,
		PriceLadderStep:           1,
	}
}

// MutationStrategy produces candidate child Inputs from a base Input and
// the raw pool observed after executing it.
type MutationStrategy interface {
	Mutate(base txintent.Input, observed pool.RawPool, nextFreeAccount int) []txintent.Input
}

// Composite concatenates the candidates produced by each child strategy.
type Composite struct {
	Children []MutationStrategy
}

func (c Composite) Mutate(base txintent.Input, observed pool.RawPool, nextFreeAccount int) []txintent.Input {
	var out []txintent.Input
	for _, child := range c.Children {
		out = append(out, child.Mutate(base, observed, nextFreeAccount)...)
	}
	return out
}

// Default implements DefaultTxPoolMutation's seven generation rules.
type Default struct {
	Accounts *accounts.Table
	Driver   driver.NodeDriver
	Cfg      Config
}

type nonNormalParent struct {
	sender    common.Address
	chain     pool.NonceChain
	nextNonce uint64
	price     uint64
}

func nonNormalParents(p pool.RawPool, cfg Config) []nonNormalParent {
	var out []nonNormalParent
	for sender, chain := range p.Pending {
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
		out = append(out, nonNormalParent{
			sender:    sender,
			chain:     chain,
			nextNonce: uint64(len(chain)),
			price:     head.HeadPrice(),
		})
	}
	return out
}

func recordKey(sender common.Address, nonce uint64, rec pool.TxRecord) txintent.Key {
	return txintent.Key{
		Sender: sender,
		Nonce:  nonce,
		Value:  rec.Value.ToInt().Uint64(),
		Type:   txintent.Type(rec.Type),
	}
}

// resendIndices returns the positions in base.Sequence whose (sender, nonce,
// value, type) key is still present in observed — the set of intents the
// next execution must re-send to recreate this state (spec.md §4.5).
func resendIndices(base txintent.Input, observed pool.RawPool) mapset.Set[int] {
	present := mapset.NewThreadUnsafeSet[txintent.Key]()
	for sender, chain := range observed.Pending {
		for nonce, rec := range chain {
			present.Add(recordKey(sender, nonce, rec))
		}
	}
	for sender, chain := range observed.Queued {
		for nonce, rec := range chain {
			if nonce == txintent.FutureNonce {
				continue
			}
			present.Add(recordKey(sender, nonce, rec))
		}
	}

	idx := mapset.NewThreadUnsafeSet[int]()
	for i, in := range base.Sequence {
		if present.Contains(txintent.KeyOf(in)) {
			idx.Add(i)
		}
	}
	return idx
}

func appended(base txintent.Input, observed pool.RawPool, extra ...txintent.Intent) txintent.Input {
	seq := base.Clone()
	seq = append(seq, extra...)
	return txintent.New(seq, resendIndices(base, observed))
}

func fee(snap driver.FeeSnapshot, cfg Config) uint64 {
	if snap.MaxFeePerGas > cfg.ReplacementPriceThreshold {
		return snap.MaxFeePerGas
	}
	return cfg.ReplacementPriceThreshold
}

// Mutate implements rules 1-7 of spec.md §4.5.
func (d Default) Mutate(base txintent.Input, observed pool.RawPool, nextFreeAccount int) []txintent.Input {
	parents := nonNormalParents(observed, d.Cfg)

	snap, err := d.Driver.FeeSnapshot(context.Background())
	if err != nil {
		snap = driver.FeeSnapshot{}
	}
	price := fee(snap, d.Cfg)
	tip := snap.MaxPriorityFeePerGas

	var out []txintent.Input

	// Rule 1/2: override child and low-value child, one pair per non-normal parent.
	for _, parent := range parents {
		idx := d.Accounts.IndexOf(parent.sender)

		override := txintent.Intent{
			AccountIndex:   idx,
			Sender:         parent.sender,
			Nonce:          parent.nextNonce,
			Type:           txintent.Dynamic,
			Price:          price,
			Value:          overrideValue(price),
			MaxPriorityFee: &tip,
		}
		out = append(out, appended(base, observed, override))

		child := override
		child.Value = d.Cfg.ChildValueThreshold
		out = append(out, appended(base, observed, child))
	}

	// Rule 3: replacement, nonce 0, same sender.
	for _, parent := range parents {
		idx := d.Accounts.IndexOf(parent.sender)
		replacement := txintent.Intent{
			AccountIndex:   idx,
			Sender:         parent.sender,
			Nonce:          0,
			Type:           txintent.Dynamic,
			Price:          price,
			Value:          overrideValue(price),
			MaxPriorityFee: &tip,
		}
		out = append(out, appended(base, observed, replacement))
	}

	// Rule 4: new parent, only if no non-normal heads exist.
	if len(parents) == 0 {
		acc, ok := d.Accounts.ByIndex(nextFreeAccount + 1)
		if ok {
			newParent := txintent.Intent{
				AccountIndex: acc.Index,
				Sender:       acc.Address,
				Nonce:        d.Accounts.Nonce(acc.Address),
				Type:         txintent.Legacy,
				Price:        snap.GasPrice,
				Value:        txintent.NormalValue(snap.GasPrice),
			}
			out = append(out, appended(base, observed, newParent))
		}
	}

	// Rule 5/6: price-ladder insertion and max-ladder extension.
	ladder := basePriceLadder(base)
	if len(parents) > 0 {
		for _, parent := range parents {
			k := ladderPosition(ladder, parent.price)
			if k < 0 {
				continue
			}
			options := ladderOptions(price, d.Cfg, len(ladder)+1)
			repriced := repriceLadder(base, ladder, options, k)
			acc, ok := d.Accounts.ByIndex(nextFreeAccount + 1)
			if !ok {
				continue
			}
			newLadderParent := txintent.Intent{
				AccountIndex:   acc.Index,
				Sender:         acc.Address,
				Nonce:          d.Accounts.Nonce(acc.Address),
				Type:           txintent.Dynamic,
				Price:          options[k],
				Value:          txintent.NormalValue(options[k]),
				MaxPriorityFee: &tip,
			}
			seq := append(repriced, newLadderParent)
			out = append(out, txintent.New(seq, resendIndices(base, observed)))
		}
	}

	if len(ladder) > 0 {
		maxPrice := ladder[len(ladder)-1]
		maxIdx := ladderPosition(ladder, maxPrice)
		options := ladderOptions(price, d.Cfg, len(ladder)+2)
		newPrice := options[maxIdx+1]
		repriced := repriceLadder(base, ladder, options, -1)
		acc, ok := d.Accounts.ByIndex(nextFreeAccount + 1)
		if ok {
			newMaxParent := txintent.Intent{
				AccountIndex:   acc.Index,
				Sender:         acc.Address,
				Nonce:          d.Accounts.Nonce(acc.Address),
				Type:           txintent.Dynamic,
				Price:          newPrice,
				Value:          txintent.NormalValue(newPrice),
				MaxPriorityFee: &tip,
			}
			seq := append(repriced, newMaxParent)
			out = append(out, txintent.New(seq, resendIndices(base, observed)))
		}
	}

	// Rule 7: fallback parent if neither pool nor base input has one.
	if len(parents) == 0 && len(ladder) == 0 {
		acc, ok := d.Accounts.ByIndex(nextFreeAccount + 1)
		if ok {
			fallback := txintent.Intent{
				AccountIndex: acc.Index,
				Sender:       acc.Address,
				Nonce:        d.Accounts.Nonce(acc.Address),
				Type:         txintent.Legacy,
				Price:        snap.GasPrice,
				Value:        txintent.NormalValue(snap.GasPrice),
			}
			out = append(out, txintent.New([]txintent.Intent{fallback}, resendIndices(base, observed)))
		}
	}

	return out
}

func overrideValue(price uint64) uint64 {
	const ceiling = uint64(1_000_000_000_000_000) // 10^15
	cost := txintent.GasLimit * price
	if cost+100 >= ceiling {
		return 0
	}
	return ceiling - cost - 100
}

func basePriceLadder(base txintent.Input) []uint64 {
	var prices []uint64
	for _, in := range base.NonceZeroIntents() {
		prices = append(prices, in.Price)
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i] < prices[j] })
	return prices
}

func ladderPosition(ladder []uint64, price uint64) int {
	for i, p := range ladder {
		if p == price {
			return i
		}
	}
	return -1
}

func ladderOptions(floor uint64, cfg Config, n int) []uint64 {
	base := floor
	if cfg.NormalPrice+1 > base {
		base = cfg.NormalPrice + 1
	}
	out := make([]uint64, n)
	for j := 0; j < n; j++ {
		out[j] = base + uint64(j)*cfg.PriceLadderStep
	}
	return out
}

func repriceLadder(base txintent.Input, ladder []uint64, options []uint64, skip int) []txintent.Intent {
	seq := base.Clone()
	opts := make([]uint64, 0, len(options))
	for j, o := range options {
		if j == skip {
			continue
		}
		opts = append(opts, o)
	}
	for i, in := range seq {
		if in.Nonce != 0 {
			continue
		}
		pos := ladderPosition(ladder, in.Price)
		if pos < 0 || pos >= len(opts) {
			continue
		}
		seq[i].Price = opts[pos]
		seq[i].Type = txintent.Dynamic
	}
	return seq
}
