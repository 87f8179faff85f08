// Package executor implements the state-recreation executor: the component
// that takes a target Input and reliably reproduces "parent state + target"
// against a live node, via cold or warm paths (spec.md §4.6).
//
// Grounded on eth_txpool_fuzzer_core/fuzz_engine.py's
// _reset_and_initial_pool_setup and _execute_input_sequence.
package executor

import (
	"context"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// Config binds the scenario constants the executor needs to reconstruct
// baseline pool occupancy.
type Config struct {
	PoolSize             int
	InitialNormalTxCount int
	FutureSlotsEnabled   bool
	FutureSlots          int
	NormalPrice          uint64
}

// Executor drives a NodeDriver through the cold/warm recreation algorithm.
type Executor struct {
	Driver   driver.NodeDriver
	Accounts *accounts.Table
	Cfg      Config
}

// NewExecutor returns an Executor.
func NewExecutor(d driver.NodeDriver, accts *accounts.Table, cfg Config) *Executor {
	return &Executor{Driver: d, Accounts: accts, Cfg: cfg}
}

// Execute recreates parentPool (by baseline + parentInput.resend_indices)
// then sends target.Sequence, returning the resulting pool.
//
// isInitialSeed selects the cold path: it must be true only for the
// sentinel "no pool yet" seed (seeddb.InitialStateFingerprint), never
// inferred from parentPool's contents — an actually-observed, fully-empty
// pool (e.g. after a PendingEmpty exploit) still takes the warm path, which
// simply re-derives zero baseline/future resends from its own empty
// fingerprint (spec.md §9).
func (e *Executor) Execute(ctx context.Context, target txintent.Input, parentPool pool.RawPool, parentInput txintent.Input, isInitialSeed bool) (pool.RawPool, error) {
	if err := e.Driver.ResetState(ctx); err != nil {
		return pool.Empty(), err
	}
	e.Accounts.ResetNonces(0)

	snap, err := e.Driver.FeeSnapshot(ctx)
	if err != nil {
		return pool.Empty(), err
	}

	normalCount := e.Cfg.InitialNormalTxCount
	futureCount := 0
	if e.Cfg.FutureSlotsEnabled {
		futureCount = e.Cfg.FutureSlots
	}

	if !isInitialSeed {
		cfg := pool.DefaultAbstractConfig(e.Cfg.PoolSize)
		cfg.NormalPrice = e.Cfg.NormalPrice
		fp := pool.Abstract(parentPool, cfg)
		normalCount = strings.Count(fp, "N")
		futureCount = strings.Count(fp, "F")
	}

	e.sendBaseline(ctx, normalCount, snap)
	e.sendFuture(ctx, futureCount, snap)

	for _, in := range resendIntentsByAscendingNonce(parentInput) {
		e.sendWithoutCounting(ctx, in)
	}

	for _, in := range target.Sequence {
		e.sendAndCount(ctx, in)
	}

	finalPool, err := e.Driver.PoolContent(ctx)
	if err != nil {
		return pool.Empty(), err
	}
	return finalPool, nil
}

func (e *Executor) sendBaseline(ctx context.Context, count int, snap driver.FeeSnapshot) {
	for i := 0; i < count; i++ {
		acc, ok := e.Accounts.ByIndex(i)
		if !ok {
			break
		}
		in := txintent.Intent{
			AccountIndex: acc.Index,
			Sender:       acc.Address,
			Nonce:        e.Accounts.Nonce(acc.Address),
			Type:         txintent.Dynamic,
			Price:        snap.MaxFeePerGas,
			Value:        txintent.NormalValue(e.Cfg.NormalPrice),
		}
		e.sendAndCount(ctx, in)
	}
}

// sendFuture replays count future-slot intents from a fresh, execute-local
// account cursor starting at 0 — both cold and warm paths reconstruct the
// pool from a just-reset node, so this cursor is scoped to one Execute call
// and is unrelated to the Engine-owned next_free_account cursor (spec.md
// §5: only the Engine mutates next_free_account).
func (e *Executor) sendFuture(ctx context.Context, count int, snap driver.FeeSnapshot) {
	idx := 0
	for i := 0; i < count; i++ {
		acc, ok := e.Accounts.ByIndex(idx)
		if !ok {
			break
		}
		in := txintent.Intent{
			AccountIndex: acc.Index,
			Sender:       acc.Address,
			Nonce:        txintent.FutureNonce,
			Type:         txintent.Dynamic,
			Price:        snap.MaxFeePerGas,
			Value:        txintent.FutureValue,
		}
		_, err := e.Driver.SendIntent(ctx, in, e.privateKeyFor(acc.Index))
		if err != nil {
			log.Warn("executor: future intent send failed, skipping", "sender", acc.Address, "err", err)
			continue
		}
		idx++
	}
}

func (e *Executor) sendWithoutCounting(ctx context.Context, in txintent.Intent) {
	if _, err := e.Driver.SendIntent(ctx, in, e.privateKeyFor(in.AccountIndex)); err != nil {
		log.Warn("executor: resend intent failed, skipping", "sender", in.Sender, "nonce", in.Nonce, "err", err)
	}
}

func (e *Executor) sendAndCount(ctx context.Context, in txintent.Intent) {
	_, err := e.Driver.SendIntent(ctx, in, e.privateKeyFor(in.AccountIndex))
	if err != nil {
		log.Warn("executor: intent send failed, skipping", "sender", in.Sender, "nonce", in.Nonce, "err", err)
		return
	}
	if in.Nonce != txintent.FutureNonce {
		e.Accounts.IncrementNonce(in.Sender)
	}
}

func (e *Executor) privateKeyFor(accountIndex int) string {
	acc, ok := e.Accounts.ByIndex(accountIndex)
	if !ok {
		return ""
	}
	return acc.PrivateKey
}

// resendIntentsByAscendingNonce returns the intents at in.ResendIndices, in
// ascending nonce order (spec.md §4.6).
func resendIntentsByAscendingNonce(in txintent.Input) []txintent.Intent {
	out := make([]txintent.Intent, 0, in.ResendIndices.Cardinality())
	for _, idx := range in.ResendIndices.ToSlice() {
		if idx >= 0 && idx < len(in.Sequence) {
			out = append(out, in.Sequence[idx])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nonce < out[j].Nonce })
	return out
}
