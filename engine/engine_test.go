package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/detect"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/executor"
	"github.com/luxfi/txpool-fuzz/fuzzmetrics"
	"github.com/luxfi/txpool-fuzz/mutate"
	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

type stubDriver struct {
	content pool.RawPool
}

func (s *stubDriver) ResetState(ctx context.Context) error { return nil }
func (s *stubDriver) FundAccounts(ctx context.Context, addresses []common.Address, amount uint64) error {
	return nil
}
func (s *stubDriver) FeeSnapshot(ctx context.Context) (driver.FeeSnapshot, error) {
	return driver.FeeSnapshot{GasPrice: 3, MaxFeePerGas: 3, MaxPriorityFeePerGas: 1}, nil
}
func (s *stubDriver) SendIntent(ctx context.Context, in txintent.Intent, key string) (common.Hash, error) {
	return common.Hash{0x1}, nil
}
func (s *stubDriver) PoolContent(ctx context.Context) (pool.RawPool, error) { return s.content, nil }
func (s *stubDriver) Snapshot(ctx context.Context) (string, error)          { return "1", nil }
func (s *stubDriver) Revert(ctx context.Context, id string) error           { return nil }
func (s *stubDriver) CustomRPC(ctx context.Context, method string, params, reply interface{}) error {
	return nil
}

func testAccounts(t *testing.T, n int) *accounts.Table {
	t.Helper()
	keys := []string{
		"4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		"012345678901234567890123456789012345678901234567890123456789012a",
	}
	addrs := []string{
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000002",
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

func TestRunStopsAtMaxIterationsWithoutCandidates(t *testing.T) {
	accts := testAccounts(t, 2)
	d := &stubDriver{content: pool.Empty()}
	exec := executor.NewExecutor(d, accts, executor.Config{PoolSize: 2, InitialNormalTxCount: 0, NormalPrice: 3})
	mutator := mutate.Composite{} // no children: no candidates; the initial seed is re-admitted on every pop, so the run ends at MaxIterations
	detector := detect.PendingEmpty{}

	e := New(exec, mutator, detector, Config{
		AbstractConfig: pool.DefaultAbstractConfig(2),
		MaxIterations:  50,
		GlobalTimeout:  time.Second,
	}, nil)

	exploits := e.Run(context.Background())
	require.Empty(t, exploits)
}

func TestRunDetectsPendingEmptyExploit(t *testing.T) {
	accts := testAccounts(t, 2)
	d := &stubDriver{content: pool.Empty()}
	exec := executor.NewExecutor(d, accts, executor.Config{PoolSize: 2, InitialNormalTxCount: 0, NormalPrice: 3})

	acc, _ := accts.ByIndex(0)
	input := txintent.New([]txintent.Intent{{AccountIndex: 0, Sender: acc.Address, Nonce: 0, Type: txintent.Legacy, Price: 5, Value: 1}}, mapset.NewThreadUnsafeSet[int]())
	mutator := stubMutator{out: []txintent.Input{input}}
	detector := detect.PendingEmpty{}

	m := fuzzmetrics.NewCampaign("txpoolfuzz_test/")
	e := New(exec, mutator, detector, Config{
		AbstractConfig: pool.DefaultAbstractConfig(2),
		MaxIterations:  1,
		GlobalTimeout:  time.Second,
	}, m)

	exploits := e.Run(context.Background())
	require.Len(t, exploits, 1)
	require.Equal(t, "PendingEmpty", exploits[0].DetectorName)
	require.NotEmpty(t, exploits[0].InputConcrete)
	require.EqualValues(t, 1, m.ExploitsFound.Snapshot().Count())
}

type stubMutator struct {
	out []txintent.Input
}

func (s stubMutator) Mutate(base txintent.Input, observed pool.RawPool, nextFreeAccount int) []txintent.Input {
	return s.out
}

func TestParseInputToSymbolClassifiesParentAndChild(t *testing.T) {
	cfg := pool.DefaultAbstractConfig(10)
	sender := common.HexToAddress("0x01")
	input := txintent.New([]txintent.Intent{
		{Sender: sender, Nonce: 0, Price: 5},
		{Sender: sender, Nonce: 1, Value: 1},
	}, nil)

	require.Equal(t, "PC", ParseInputToSymbol(input, cfg))
}

func TestConcreteInputToStringRendersEachIntent(t *testing.T) {
	sender := common.HexToAddress("0x01")
	recipient := common.HexToAddress("0x02")
	input := txintent.New([]txintent.Intent{{Sender: sender, Nonce: 0, Price: 3, Value: 1}}, nil)

	lines := ConcreteInputToString(input, recipient)
	require.Len(t, lines, 1)
	require.Contains(t, lines[0], "nonce: 0")
}
