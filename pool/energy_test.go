package pool

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"
)

func TestEnergyEmptyPoolIsZero(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	require.Equal(t, 0, Energy(Empty(), cfg))
}

func TestEnergyNormalSenderContributesThreePerRecord(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	p := RawPool{
		Pending: SenderMap{
			addr(1): {0: bigRec(3), 1: bigRec(3)},
		},
		Queued: SenderMap{},
	}
	require.Equal(t, 6, Energy(p, cfg))
}

func TestEnergyNonNormalAttackParentsAccumulate(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	low := bigRec(9)
	p := RawPool{
		Pending: SenderMap{
			addr(1): {0: low},
			addr(2): {0: low},
		},
		Queued: SenderMap{},
	}
	// two attack parents: base 4 + 5 = 9, plus 1 for each parent's own
	// low-value (value 0) record = 11.
	require.Equal(t, 11, Energy(p, cfg))
}

func TestEnergyBlobHeadPenalizesOutOfRangeFee(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	rec := TxRecord{
		Type:                3,
		MaxFeePerGas:        hexutil.Big(*new(big.Int).SetUint64(100)),
		MaxFeePerBlobGas:    hexutil.Big(*new(big.Int).SetUint64(5)),
		BlobVersionedHashes: []common.Hash{{0x1}},
	}
	p := RawPool{
		Pending: SenderMap{addr(1): {0: rec}},
		Queued:  SenderMap{},
	}
	// one blob record: 2*1 + 5 (fee below min) = 7.
	require.Equal(t, 7, Energy(p, cfg))
}

func TestEnergyMalformedBlobHeadIsPenalizedHeavily(t *testing.T) {
	cfg := DefaultAbstractConfig(4)
	rec := TxRecord{Type: 3}
	p := RawPool{
		Pending: SenderMap{addr(1): {0: rec}},
		Queued:  SenderMap{},
	}
	require.Equal(t, 15, Energy(p, cfg))
}
