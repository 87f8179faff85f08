package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func bigRec(price uint64) TxRecord {
	return TxRecord{GasPrice: hexutil.Big(*new(big.Int).SetUint64(price))}
}

func TestAbstractEmptyPool(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	got := Abstract(Empty(), cfg)
	require.Equal(t, "EEEE", got)
}

func TestAbstractNormalAndNonNormal(t *testing.T) {
	cfg := DefaultAbstractConfig(3)
	p := RawPool{
		Pending: SenderMap{
			addr(1): {0: bigRec(3)},  // normal
			addr(2): {0: bigRec(5)},  // non-normal, low parent -> P
		},
		Queued: SenderMap{},
	}
	got := Abstract(p, cfg)
	require.Equal(t, "ENP", got)
}

func TestAbstractReplacementAndOverride(t *testing.T) {
	cfg := DefaultAbstractConfig(2)
	p := RawPool{
		Pending: SenderMap{
			addr(1): {
				0: bigRec(12_000),
				1: bigRec(0),
			},
		},
		Queued: SenderMap{},
	}
	got := Abstract(p, cfg)
	require.Equal(t, "RO", got)
}

func TestAbstractFutureHolder(t *testing.T) {
	cfg := DefaultAbstractConfig(1)
	p := RawPool{
		Pending: SenderMap{},
		Queued: SenderMap{
			addr(9): {FutureNonceValue: bigRec(3)},
		},
	}
	got := Abstract(p, cfg)
	require.Equal(t, "F", got)
}

func TestAbstractMalformedHeadIsNonNormal(t *testing.T) {
	cfg := DefaultAbstractConfig(1)
	rec := bigRec(3)
	rec.MarkMalformed()
	p := RawPool{
		Pending: SenderMap{addr(1): {0: rec}},
		Queued:  SenderMap{},
	}
	got := Abstract(p, cfg)
	require.Equal(t, "P", got)
}
