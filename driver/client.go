package driver

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"

	"github.com/luxfi/txpool-fuzz/pool"
	"github.com/luxfi/txpool-fuzz/txintent"
)

// JSONRPCDriver is a NodeDriver backed by a single JSON-RPC endpoint,
// grounded on eth_txpool_fuzzer_core/clients/anvil_client.py's method
// shapes but generalized behind MethodAliases so a Geth/Reth endpoint can
// be driven the same way.
type JSONRPCDriver struct {
	URI        string
	ChainID    *big.Int
	Aliases    MethodAliases
	HTTPClient *http.Client
}

// NewJSONRPCDriver returns a driver against uri with Anvil's default method
// aliases and a plain http.Client.
func NewJSONRPCDriver(uri string, chainID *big.Int) *JSONRPCDriver {
	return &JSONRPCDriver{
		URI:        uri,
		ChainID:    chainID,
		Aliases:    AnvilAliases(),
		HTTPClient: http.DefaultClient,
	}
}

func (d *JSONRPCDriver) call(ctx context.Context, method string, params, reply interface{}) error {
	return call(ctx, d.HTTPClient, d.URI, d.Aliases.resolve(method), params, reply)
}

func (d *JSONRPCDriver) ResetState(ctx context.Context) error {
	var reply interface{}
	return d.call(ctx, "reset_state", []interface{}{}, &reply)
}

func (d *JSONRPCDriver) FundAccounts(ctx context.Context, addresses []common.Address, amount uint64) error {
	balance := hexutil.EncodeUint64(amount)
	for _, addr := range addresses {
		var reply interface{}
		if err := d.call(ctx, "fund_accounts", []interface{}{addr.Hex(), balance}, &reply); err != nil {
			return fmt.Errorf("driver: funding %s: %w", addr, err)
		}
	}
	return nil
}

func (d *JSONRPCDriver) FeeSnapshot(ctx context.Context) (FeeSnapshot, error) {
	var gasPriceHex hexutil.Uint64
	if err := d.call(ctx, "eth_gasPrice", []interface{}{}, &gasPriceHex); err != nil {
		return FeeSnapshot{}, fmt.Errorf("driver: eth_gasPrice: %w", err)
	}

	var maxPriorityHex hexutil.Uint64
	if err := d.call(ctx, "eth_maxPriorityFeePerGas", []interface{}{}, &maxPriorityHex); err != nil {
		log.Warn("driver: eth_maxPriorityFeePerGas unavailable, defaulting to 0", "err", err)
		maxPriorityHex = 0
	}

	gasPrice := uint64(gasPriceHex)
	maxPriority := uint64(maxPriorityHex)
	maxFee := gasPrice*2 + maxPriority

	return FeeSnapshot{
		GasPrice:             gasPrice,
		MaxFeePerGas:         maxFee,
		MaxPriorityFeePerGas: maxPriority,
		MaxFeePerBlobGas:     1,
	}, nil
}

// SendIntent builds the right typed transaction envelope for in.Type, signs
// it with privateKeyHex, and submits it via eth_sendRawTransaction.
func (d *JSONRPCDriver) SendIntent(ctx context.Context, in txintent.Intent, privateKeyHex string) (common.Hash, error) {
	if err := in.Validate(); err != nil {
		return common.Hash{}, err
	}

	key, err := crypto.HexToECDSA(privateKeyHex)
	if err != nil {
		return common.Hash{}, fmt.Errorf("driver: parsing private key: %w", err)
	}

	tx, err := buildTx(in, d.ChainID)
	if err != nil {
		return common.Hash{}, err
	}

	signer := types.LatestSignerForChainID(d.ChainID)
	signedTx, err := types.SignTx(tx, signer, key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("driver: signing tx: %w", err)
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return common.Hash{}, fmt.Errorf("driver: encoding signed tx: %w", err)
	}

	var hash common.Hash
	if err := d.call(ctx, "eth_sendRawTransaction", []interface{}{hexutil.Encode(raw)}, &hash); err != nil {
		return common.Hash{}, err
	}
	return hash, nil
}

func buildTx(in txintent.Intent, chainID *big.Int) (*types.Transaction, error) {
	to := in.Sender // self-transfers: the fuzzer only cares about pool occupancy, not recipients
	value := new(big.Int).SetUint64(in.Value)

	switch in.Type {
	case txintent.Legacy:
		return types.NewTx(&types.LegacyTx{
			Nonce:    in.Nonce,
			To:       &to,
			Value:    value,
			Gas:      txintent.GasLimit,
			GasPrice: new(big.Int).SetUint64(in.Price),
		}), nil

	case txintent.AccessL:
		return types.NewTx(&types.AccessListTx{
			ChainID:  chainID,
			Nonce:    in.Nonce,
			To:       &to,
			Value:    value,
			Gas:      txintent.GasLimit,
			GasPrice: new(big.Int).SetUint64(in.Price),
		}), nil

	case txintent.Dynamic:
		tip := in.Price
		if in.MaxPriorityFee != nil {
			tip = *in.MaxPriorityFee
		}
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     in.Nonce,
			To:        &to,
			Value:     value,
			Gas:       txintent.GasLimit,
			GasFeeCap: new(big.Int).SetUint64(in.Price),
			GasTipCap: new(big.Int).SetUint64(tip),
		}), nil

	case txintent.Blob:
		if in.MaxFeePerBlobGas == nil {
			return nil, fmt.Errorf("driver: blob intent missing max fee per blob gas")
		}
		tip := in.Price
		if in.MaxPriorityFee != nil {
			tip = *in.MaxPriorityFee
		}
		hashes := make([]common.Hash, len(in.BlobHashes))
		copy(hashes, in.BlobHashes)
		return types.NewTx(&types.BlobTx{
			ChainID:    uint256FromBig(chainID),
			Nonce:      in.Nonce,
			To:         to,
			Value:      uint256FromBig(value),
			Gas:        txintent.GasLimit,
			GasFeeCap:  uint256FromUint64(in.Price),
			GasTipCap:  uint256FromUint64(tip),
			BlobFeeCap: uint256FromUint64(*in.MaxFeePerBlobGas),
			BlobHashes: hashes,
		}), nil

	default:
		return nil, fmt.Errorf("driver: unknown intent type %d", in.Type)
	}
}

func (d *JSONRPCDriver) PoolContent(ctx context.Context) (pool.RawPool, error) {
	var raw struct {
		Pending pool.SenderMap `json:"pending"`
		Queued  pool.SenderMap `json:"queued"`
	}
	if err := d.call(ctx, "txpool_content", []interface{}{}, &raw); err != nil {
		return pool.Empty(), fmt.Errorf("driver: txpool_content: %w", err)
	}
	if raw.Pending == nil {
		raw.Pending = pool.SenderMap{}
	}
	if raw.Queued == nil {
		raw.Queued = pool.SenderMap{}
	}
	return pool.RawPool{Pending: raw.Pending, Queued: raw.Queued}, nil
}

func (d *JSONRPCDriver) Snapshot(ctx context.Context) (string, error) {
	var id string
	if err := d.call(ctx, "snapshot", []interface{}{}, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (d *JSONRPCDriver) Revert(ctx context.Context, snapshotID string) error {
	var ok bool
	return d.call(ctx, "revert", []interface{}{snapshotID}, &ok)
}

func (d *JSONRPCDriver) CustomRPC(ctx context.Context, method string, params, reply interface{}) error {
	return d.call(ctx, method, params, reply)
}
