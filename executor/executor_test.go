package executor

import (
	"context"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

type fakeDriver struct {
	resetCalls int
	sent       []txintent.Intent
	pool       pool.RawPool
}

func (f *fakeDriver) ResetState(ctx context.Context) error {
	f.resetCalls++
	return nil
}
func (f *fakeDriver) FundAccounts(ctx context.Context, addresses []common.Address, amount uint64) error {
	return nil
}
func (f *fakeDriver) FeeSnapshot(ctx context.Context) (driver.FeeSnapshot, error) {
	return driver.FeeSnapshot{GasPrice: 3, MaxFeePerGas: 3, MaxPriorityFeePerGas: 1}, nil
}
func (f *fakeDriver) SendIntent(ctx context.Context, in txintent.Intent, key string) (common.Hash, error) {
	f.sent = append(f.sent, in)
	return common.Hash{0x1}, nil
}
func (f *fakeDriver) PoolContent(ctx context.Context) (pool.RawPool, error) { return f.pool, nil }
func (f *fakeDriver) Snapshot(ctx context.Context) (string, error)          { return "1", nil }
func (f *fakeDriver) Revert(ctx context.Context, id string) error           { return nil }
func (f *fakeDriver) CustomRPC(ctx context.Context, method string, params, reply interface{}) error {
	return nil
}

func testAccounts(t *testing.T, n int) *accounts.Table {
	t.Helper()
	keys := []string{
		"4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		"012345678901234567890123456789012345678901234567890123456789012a",
		"012345678901234567890123456789012345678901234567890123456789012b",
	}
	addrs := []string{
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000002",
		"0x0000000000000000000000000000000000000003",
	}
	body := "pub_key,priv_key\n"
	for i := 0; i < n; i++ {
		body += addrs[i] + "," + keys[i] + "\n"
	}
	path := filepath.Join(t.TempDir(), "keys.csv")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))

	table, err := accounts.Load([]string{path}, 10)
	require.NoError(t, err)
	return table
}

func TestExecuteColdPathSendsBaselineThenTarget(t *testing.T) {
	accts := testAccounts(t, 3)
	fd := &fakeDriver{pool: pool.Empty()}
	e := NewExecutor(fd, accts, Config{PoolSize: 2, InitialNormalTxCount: 2, NormalPrice: 3})

	target := txintent.New([]txintent.Intent{{AccountIndex: 0, Sender: addrFor(accts, 0), Nonce: 5, Type: txintent.Legacy, Price: 99}}, nil)

	// isInitialSeed = true is the only thing that should trigger the cold
	// path (the sentinel "no pool yet" seed) — not an empty parentPool.
	result, err := e.Execute(context.Background(), target, pool.Empty(), txintent.Empty(), true)
	require.NoError(t, err)
	require.Equal(t, pool.Empty(), result)
	require.Equal(t, 1, fd.resetCalls)
	require.GreaterOrEqual(t, len(fd.sent), 3) // 2 baseline + 1 target
	last := fd.sent[len(fd.sent)-1]
	require.Equal(t, uint64(99), last.Price)
}

func TestExecuteWarmPathOnActuallyObservedEmptyPoolSendsNoBaseline(t *testing.T) {
	accts := testAccounts(t, 3)
	fd := &fakeDriver{pool: pool.Empty()}
	// InitialNormalTxCount/FutureSlots are nonzero cold-path defaults; an
	// actually-observed empty pool (isInitialSeed = false) must still take
	// the warm path and re-derive zero baseline/future sends from its own
	// empty fingerprint (spec.md §9), not fall back to these defaults.
	e := NewExecutor(fd, accts, Config{PoolSize: 2, InitialNormalTxCount: 2, FutureSlotsEnabled: true, FutureSlots: 2, NormalPrice: 3})

	target := txintent.New([]txintent.Intent{{AccountIndex: 0, Sender: addrFor(accts, 0), Nonce: 0, Type: txintent.Legacy, Price: 99}}, nil)

	result, err := e.Execute(context.Background(), target, pool.Empty(), txintent.Empty(), false)
	require.NoError(t, err)
	require.Equal(t, pool.Empty(), result)
	require.Equal(t, 1, fd.resetCalls)
	require.Len(t, fd.sent, 1) // target only: zero baseline, zero future
	require.Equal(t, uint64(99), fd.sent[0].Price)
}

func TestExecuteResendsParentIndicesWithoutIncrementingNonce(t *testing.T) {
	accts := testAccounts(t, 3)
	sender := addrFor(accts, 0)
	fd := &fakeDriver{pool: pool.Empty()}
	e := NewExecutor(fd, accts, Config{PoolSize: 1, InitialNormalTxCount: 0, NormalPrice: 3})

	parentInput := txintent.New(
		[]txintent.Intent{{AccountIndex: 0, Sender: sender, Nonce: 0, Type: txintent.Legacy, Price: 5}},
		mapset.NewThreadUnsafeSet[int](0),
	)

	before := accts.Nonce(sender)
	_, err := e.Execute(context.Background(), txintent.Empty(), pool.Empty(), parentInput, false)
	require.NoError(t, err)
	require.Equal(t, before, accts.Nonce(sender))
	require.Len(t, fd.sent, 1)
	require.Equal(t, uint64(0), fd.sent[0].Nonce)
}

// TestWarmPathResendCountsMatchParentFingerprint is the determinism
// invariant of spec.md §8/§9: a warm-path run re-derives its baseline and
// future resend counts from the parent fingerprint's N and F tallies, not
// from the executor's own Config defaults (those apply only to the cold
// path) — so re-running the same non-empty parent_pool always reconstructs
// the same number of baseline/future/resend sends regardless of what
// InitialNormalTxCount/FutureSlots happen to be configured to.
func TestWarmPathResendCountsMatchParentFingerprint(t *testing.T) {
	accts := testAccounts(t, 3)
	sender := addrFor(accts, 0)
	price3 := hexutil.Big(*big.NewInt(3))
	zero := hexutil.Big(*big.NewInt(0))
	legacyType := hexutil.Uint64(0)

	// One normal-priced pending record (head price == NormalPrice, so it
	// fingerprints as a single 'N') and one future-queued record ('F').
	parentPool := pool.RawPool{
		Pending: pool.SenderMap{sender: {0: pool.TxRecord{GasPrice: price3, Value: zero, Type: legacyType}}},
		Queued:  pool.SenderMap{sender: {pool.FutureNonceValue: pool.TxRecord{GasPrice: price3, Value: zero, Type: legacyType}}},
	}
	parentInput := txintent.New(
		[]txintent.Intent{{AccountIndex: 0, Sender: sender, Nonce: 0, Type: txintent.Legacy, Price: 3}},
		mapset.NewThreadUnsafeSet[int](0),
	)

	abstractCfg := pool.DefaultAbstractConfig(3)
	abstractCfg.NormalPrice = 3
	fp := pool.Abstract(parentPool, abstractCfg)
	wantNormal := strings.Count(fp, "N")
	wantFuture := strings.Count(fp, "F")
	require.Equal(t, 1, wantNormal)
	require.Equal(t, 1, wantFuture)

	// Config defaults deliberately mismatch the fingerprint-derived counts,
	// so the test fails if the warm path falls back to them instead of
	// re-deriving from parentPool.
	fd := &fakeDriver{pool: pool.Empty()}
	e := NewExecutor(fd, accts, Config{PoolSize: 3, InitialNormalTxCount: 5, FutureSlotsEnabled: true, FutureSlots: 5, NormalPrice: 3})

	_, err := e.Execute(context.Background(), txintent.Empty(), parentPool, parentInput, false)
	require.NoError(t, err)

	// wantNormal baseline + wantFuture future + 1 resend (the nonce-0
	// parent intent) + 0 target sends.
	require.Len(t, fd.sent, wantNormal+wantFuture+1)
}

func addrFor(t *accounts.Table, idx int) common.Address {
	acc, _ := t.ByIndex(idx)
	return acc.Address
}
