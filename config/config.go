// Package config binds campaign parameters to CLI flags and environment
// variables (no config file is read), the way cmd/simulator/config
// wires pflag and viper together in the teacher repo (that package's
// source was never part of this retrieval — only its go.mod requires — so
// this is a fresh implementation of the same BuildFlagSet/BuildViper/
// BuildConfig shape rather than an adaptation of missing code).
package config

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Flag keys, also used as viper lookup keys and environment variable names
// (upper-cased and prefixed with TXPOOL_FUZZ_; no env-key replacer is set,
// so hyphens are kept, e.g. TXPOOL_FUZZ_RPC-URL).
const (
	RPCURLKey           = "rpc-url"
	ChainIDKey          = "chain-id"
	AccountsFileKey     = "accounts-file"
	MaxAccountsKey      = "max-accounts"
	PoolSizeKey         = "pool-size"
	FutureSlotsKey      = "future-slots"
	FutureSlotsEnabled  = "future-slots-enabled"
	InitialNormalTxKey  = "initial-normal-tx-count"
	NormalPriceKey      = "normal-price"
	MaxIterationsKey    = "max-iterations"
	GlobalTimeoutKey    = "global-timeout-seconds"
	DefaultRecipientKey = "default-recipient"
	LogLevelKey         = "log-level"
	VersionKey          = "version"
)

// Version is stamped at build time via -ldflags; "dev" otherwise.
var Version = "dev"

// Config is the fully resolved, typed campaign configuration — the
// counterpart of engine.Config plus the driver/account wiring the engine
// itself doesn't own.
type Config struct {
	RPCURL               string
	ChainID              uint64
	AccountsFiles        []string
	MaxAccounts          int
	PoolSize             int
	FutureSlots          int
	FutureSlotsEnabled   bool
	InitialNormalTxCount int
	NormalPrice          uint64
	MaxIterations        int
	GlobalTimeout        time.Duration
	DefaultRecipient     common.Address
	LogLevel             string
}

// BuildFlagSet declares every flag this binary accepts, mirroring
// cmd/simulator's BuildFlagSet.
func BuildFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("txpool-fuzz", pflag.ContinueOnError)
	fs.String(RPCURLKey, "http://127.0.0.1:8545", "JSON-RPC endpoint of the node under test")
	fs.Uint64(ChainIDKey, 31337, "chain id to sign transactions for")
	fs.StringSlice(AccountsFileKey, nil, "CSV file(s) of pub_key,priv_key account rows")
	fs.Int(MaxAccountsKey, 200, "maximum number of accounts to load")
	fs.Int(PoolSizeKey, 10, "assumed transaction pool capacity")
	fs.Int(FutureSlotsKey, 0, "number of future-nonce queue slots to seed")
	fs.Bool(FutureSlotsEnabled, false, "seed future-nonce queue slots at campaign start")
	fs.Int(InitialNormalTxKey, 10, "number of baseline normal-priced transactions to seed")
	fs.Uint64(NormalPriceKey, 3, "gas price treated as baseline 'normal' traffic")
	fs.Int(MaxIterationsKey, 10_000, "maximum fuzzing iterations before stopping")
	fs.Float64(GlobalTimeoutKey, 300, "maximum campaign wall-clock time, in seconds")
	fs.String(DefaultRecipientKey, "", "recipient address shown in exploit reports; defaults to account 0 (transactions are sent to their own sender)")
	fs.String(LogLevelKey, "info", "log level (trace, debug, info, warn, error)")
	fs.Bool(VersionKey, false, "print version and exit")
	return fs
}

// BuildViper parses args against fs and layers in TXPOOL_FUZZ_-prefixed
// environment variables, mirroring cmd/simulator's BuildViper.
func BuildViper(fs *pflag.FlagSet, args []string) (*viper.Viper, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetEnvPrefix("TXPOOL_FUZZ")
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return nil, err
	}
	return v, nil
}

// BuildConfig resolves a bound viper instance into a typed Config,
// validating the fields the engine cannot safely default.
func BuildConfig(v *viper.Viper) (Config, error) {
	cfg := Config{
		RPCURL:               v.GetString(RPCURLKey),
		ChainID:              v.GetUint64(ChainIDKey),
		AccountsFiles:        v.GetStringSlice(AccountsFileKey),
		MaxAccounts:          v.GetInt(MaxAccountsKey),
		PoolSize:             v.GetInt(PoolSizeKey),
		FutureSlots:          v.GetInt(FutureSlotsKey),
		FutureSlotsEnabled:   v.GetBool(FutureSlotsEnabled),
		InitialNormalTxCount: v.GetInt(InitialNormalTxKey),
		NormalPrice:          v.GetUint64(NormalPriceKey),
		MaxIterations:        v.GetInt(MaxIterationsKey),
		GlobalTimeout:        time.Duration(v.GetFloat64(GlobalTimeoutKey) * float64(time.Second)),
		LogLevel:             v.GetString(LogLevelKey),
	}

	if len(cfg.AccountsFiles) == 0 {
		return Config{}, fmt.Errorf("config: %s must name at least one accounts CSV file", AccountsFileKey)
	}
	if cfg.PoolSize <= 0 {
		return Config{}, fmt.Errorf("config: %s must be positive", PoolSizeKey)
	}

	if recipient := v.GetString(DefaultRecipientKey); recipient != "" {
		if !common.IsHexAddress(recipient) {
			return Config{}, fmt.Errorf("config: %s is not a valid address: %q", DefaultRecipientKey, recipient)
		}
		cfg.DefaultRecipient = common.HexToAddress(recipient)
	}

	return cfg, nil
}
