// Command fuzzd runs a coverage-guided transaction-pool fuzzing campaign
// against a live JSON-RPC node and prints any exploits it finds.
//
// Grounded on cmd/simulator/main/main.go's flag/viper/config wiring
// (that package's own config/load sub-packages were never part of this
// retrieval, so the flag-building and campaign-assembly logic below is
// freshly written in the same shape, not copied).
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/pflag"

	"github.com/luxfi/txpool-fuzz/accounts"
	"github.com/luxfi/txpool-fuzz/config"
	"github.com/luxfi/txpool-fuzz/detect"
	"github.com/luxfi/txpool-fuzz/driver"
	"github.com/luxfi/txpool-fuzz/engine"
	"github.com/luxfi/txpool-fuzz/executor"
	"github.com/luxfi/txpool-fuzz/ferrors"
	"github.com/luxfi/txpool-fuzz/fuzzmetrics"
	"github.com/luxfi/txpool-fuzz/logging"
	"github.com/luxfi/txpool-fuzz/mutate"
	"github.com/luxfi/txpool-fuzz/pool"
)

func main() {
	fs := config.BuildFlagSet()
	v, err := config.BuildViper(fs, os.Args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		fmt.Printf("couldn't build viper: %s\n", err)
		os.Exit(1)
	}

	if v.GetBool(config.VersionKey) {
		fmt.Printf("%s\n", config.Version)
		os.Exit(0)
	}

	cfg, err := config.BuildConfig(v)
	if err != nil {
		fmt.Printf("%s\n", fmt.Errorf("%w: %s", ferrors.ConfigInvalid, err))
		os.Exit(ferrors.ExitCode(ferrors.ConfigInvalid))
	}

	if _, err := logging.Setup(logging.Options{Level: cfg.LogLevel}); err != nil {
		fmt.Printf("%s\n", err)
		os.Exit(1)
	}

	if err := run(cfg); err != nil {
		log.Error("fuzzd: campaign failed", "err", err)
		os.Exit(ferrors.ExitCode(err))
	}
}

func run(cfg config.Config) error {
	accts, err := accounts.Load(cfg.AccountsFiles, cfg.MaxAccounts)
	if err != nil {
		return fmt.Errorf("%w: %s", ferrors.AccountLoad, err)
	}

	recipient := cfg.DefaultRecipient
	if recipient == (accounts.Account{}).Address {
		if acc, ok := accts.ByIndex(0); ok {
			recipient = acc.Address
		}
	}

	d := driver.NewJSONRPCDriver(cfg.RPCURL, new(big.Int).SetUint64(cfg.ChainID))

	exec := executor.NewExecutor(d, accts, executor.Config{
		PoolSize:             cfg.PoolSize,
		InitialNormalTxCount: cfg.InitialNormalTxCount,
		FutureSlotsEnabled:   cfg.FutureSlotsEnabled,
		FutureSlots:          cfg.FutureSlots,
		NormalPrice:          cfg.NormalPrice,
	})

	mutator := mutate.Composite{
		Children: []mutate.MutationStrategy{
			mutate.Default{Accounts: accts, Driver: d, Cfg: mutate.DefaultConfig()},
			mutate.Blob{Accounts: accts, Driver: d, Cfg: mutate.DefaultBlobConfig()},
		},
	}

	detector := detect.Composite{
		Children: []detect.Detector{
			detect.PendingEmpty{},
			detect.LowCostState{},
			detect.NewBlobPoolStall(),
			detect.BlobGasPriceManipulation{Min: 1, Max: 1_000_000},
			detect.InvalidBlobAcceptance{},
		},
	}

	abstractCfg := pool.DefaultAbstractConfig(cfg.PoolSize)
	abstractCfg.NormalPrice = cfg.NormalPrice

	metrics := fuzzmetrics.NewCampaign("txpoolfuzz/")
	go serveMetrics(metrics)

	e := engine.New(exec, mutator, detector, engine.Config{
		AbstractConfig:   abstractCfg,
		MaxIterations:    cfg.MaxIterations,
		GlobalTimeout:    cfg.GlobalTimeout,
		DefaultRecipient: recipient,
	}, metrics)

	exploits := e.Run(context.Background())
	return printExploits(exploits)
}

func serveMetrics(m *fuzzmetrics.Campaign) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	if err := http.ListenAndServe("127.0.0.1:9900", mux); err != nil {
		log.Warn("fuzzd: metrics server stopped", "err", err)
	}
}

func printExploits(exploits []engine.ExploitRecord) error {
	if len(exploits) == 0 {
		fmt.Println("no exploits found")
		return nil
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, e := range exploits {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
