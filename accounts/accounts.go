// Package accounts loads the fuzzer's fixed account table — ordered
// (address, private key) pairs read from CSV key files — and tracks the
// per-address fuzzer nonce counter the engine advances independently of
// on-chain nonces.
//
// Grounded on eth_txpool_fuzzer_core/accounts.py's AccountManager, with the
// CSV decode reshaped around encoding/csv and per-row go-ethereum key
// validation in place of pandas' implicit, exception-driven parsing.
package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/log"
)

// DefaultMaxAccounts caps the account table size, mirroring
// core_config.MAX_ACCOUNTS_TO_LOAD.
const DefaultMaxAccounts = 200

// DefaultInitialNonce is the fuzzer nonce every account starts (and resets)
// at.
const DefaultInitialNonce = 0

// Account is one immutable (address, private key) pair plus its load-order
// index, the stable "account slot" the rest of the fuzzer addresses accounts
// by.
type Account struct {
	Index      int
	Address    common.Address
	PrivateKey string // hex, no 0x prefix
}

// Table is the fixed-size ordered account list plus the mutable per-address
// fuzzer nonce counters. Accounts themselves are immutable after Load;
// counters are reset at the start of every execution via ResetNonces.
type Table struct {
	accounts  []Account
	byAddress map[common.Address]int
	nonces    map[common.Address]uint64
}

// Load reads accounts from one or more CSV files (columns "pub_key",
// "priv_key"), stopping once max accounts have been accepted. Malformed or
// duplicate rows are skipped and logged, not fatal — mirroring the
// original's skip-and-warn behavior row by row.
func Load(paths []string, max int) (*Table, error) {
	if max <= 0 {
		max = DefaultMaxAccounts
	}

	t := &Table{
		byAddress: map[common.Address]int{},
		nonces:    map[common.Address]uint64{},
	}

	for _, path := range paths {
		if len(t.accounts) >= max {
			break
		}
		if err := t.loadFile(path, max); err != nil {
			log.Warn("accounts: failed to load key file", "path", path, "err", err)
		}
	}

	if len(t.accounts) == 0 {
		return nil, fmt.Errorf("accounts: no accounts loaded from %d key file(s)", len(paths))
	}

	t.ResetNonces(DefaultInitialNonce)
	log.Info("accounts: loaded account table", "count", len(t.accounts))
	return t, nil
}

func (t *Table) loadFile(path string, max int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err == io.EOF {
		return fmt.Errorf("empty key file")
	}
	if err != nil {
		return err
	}

	pubCol, privCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(h) {
		case "pub_key":
			pubCol = i
		case "priv_key":
			privCol = i
		}
	}
	if pubCol < 0 || privCol < 0 {
		return fmt.Errorf("missing pub_key/priv_key columns")
	}

	for {
		if len(t.accounts) >= max {
			return nil
		}
		row, err := r.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			log.Warn("accounts: skipping unparsable row", "path", path, "err", err)
			continue
		}
		if pubCol >= len(row) || privCol >= len(row) {
			log.Warn("accounts: skipping short row", "path", path)
			continue
		}
		t.addRow(row[pubCol], row[privCol], path)
	}
}

func (t *Table) addRow(pub, priv, path string) {
	pub = strings.TrimSpace(pub)
	priv = strings.TrimSpace(priv)

	if !common.IsHexAddress(pub) {
		log.Warn("accounts: skipping row with invalid address", "path", path, "pub_key", pub)
		return
	}
	addr := common.HexToAddress(pub)

	trimmedPriv := strings.TrimPrefix(priv, "0x")
	if len(trimmedPriv) != 64 {
		log.Warn("accounts: skipping row with invalid private key length", "path", path, "address", addr)
		return
	}
	if _, err := crypto.HexToECDSA(trimmedPriv); err != nil {
		log.Warn("accounts: skipping row with unparsable private key", "path", path, "address", addr, "err", err)
		return
	}

	if _, exists := t.byAddress[addr]; exists {
		log.Warn("accounts: skipping duplicate account", "address", addr)
		return
	}

	idx := len(t.accounts)
	t.accounts = append(t.accounts, Account{Index: idx, Address: addr, PrivateKey: trimmedPriv})
	t.byAddress[addr] = idx
}

// Len returns the number of loaded accounts.
func (t *Table) Len() int { return len(t.accounts) }

// ByIndex returns the account at a load-order index, and whether it exists.
func (t *Table) ByIndex(index int) (Account, bool) {
	if index < 0 || index >= len(t.accounts) {
		return Account{}, false
	}
	return t.accounts[index], true
}

// IndexOf returns the load-order index of addr, defaulting to 0 if addr is
// not in the table (a malformed-execution fallback per design note §9,
// rather than propagating an error into intent construction).
func (t *Table) IndexOf(addr common.Address) int {
	if idx, ok := t.byAddress[addr]; ok {
		return idx
	}
	log.Warn("accounts: address not in account table, falling back to index 0", "address", addr)
	return 0
}

// NextFreeIndex returns the lowest index not yet used by any account,
// i.e. Len() — the next slot the mutation strategies can hand a "fresh
// account" request.
func (t *Table) NextFreeIndex() int { return len(t.accounts) }

// Nonce returns the current fuzzer nonce counter for addr.
func (t *Table) Nonce(addr common.Address) uint64 { return t.nonces[addr] }

// IncrementNonce advances addr's fuzzer nonce counter by one and returns the
// new value.
func (t *Table) IncrementNonce(addr common.Address) uint64 {
	t.nonces[addr]++
	return t.nonces[addr]
}

// ResetNonces sets every account's fuzzer nonce counter to value, called at
// the start of every execution.
func (t *Table) ResetNonces(value uint64) {
	for _, a := range t.accounts {
		t.nonces[a.Address] = value
	}
}
