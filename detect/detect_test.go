package detect

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/txpool-fuzz/pool"
)

func bigRec(price uint64) pool.TxRecord {
	return pool.TxRecord{GasPrice: hexutil.Big(*new(big.Int).SetUint64(price))}
}

func addr(b byte) common.Address {
	var a common.Address
	a[19] = b
	return a
}

func TestPendingEmptyFiresOnEmptyPending(t *testing.T) {
	d := PendingEmpty{}
	fired, _ := d.Fires(pool.Empty(), pool.DefaultAbstractConfig(4))
	require.True(t, fired)
}

func TestPendingEmptyDoesNotFireWhenOccupied(t *testing.T) {
	d := PendingEmpty{}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: bigRec(3)}}, Queued: pool.SenderMap{}}
	fired, _ := d.Fires(p, pool.DefaultAbstractConfig(4))
	require.False(t, fired)
}

func TestLowCostStateFiresOnCheapOccupancy(t *testing.T) {
	cfg := pool.DefaultAbstractConfig(4)
	p := pool.RawPool{
		Pending: pool.SenderMap{addr(1): {0: bigRec(1)}},
		Queued:  pool.SenderMap{},
	}
	fired, reason := LowCostState{}.Fires(p, cfg)
	require.True(t, fired)
	require.NotEmpty(t, reason)
}

func TestLowCostStateDoesNotFireWhenOnlyNormal(t *testing.T) {
	cfg := pool.DefaultAbstractConfig(4)
	p := pool.RawPool{
		Pending: pool.SenderMap{addr(1): {0: bigRec(3)}},
		Queued:  pool.SenderMap{},
	}
	fired, _ := LowCostState{}.Fires(p, cfg)
	require.False(t, fired)
}

func TestEpsilonCostIsStricterThanLowCostState(t *testing.T) {
	cfg := pool.DefaultAbstractConfig(4)
	p := pool.RawPool{
		Pending: pool.SenderMap{addr(1): {0: bigRec(2)}},
		Queued:  pool.SenderMap{},
	}
	lowFired, _ := LowCostState{}.Fires(p, cfg)
	epsFired, _ := EpsilonCost{Epsilon: 0.1}.Fires(p, cfg)
	require.True(t, lowFired)
	require.False(t, epsFired)
}

func TestBlobPoolStallRequiresTwoObservations(t *testing.T) {
	d := NewBlobPoolStall()
	rec := pool.TxRecord{Type: 3, BlobVersionedHashes: []common.Hash{{0x1}}}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: rec}}, Queued: pool.SenderMap{}}

	fired, _ := d.Fires(p, pool.AbstractConfig{})
	require.False(t, fired, "first observation should not stall")

	fired, reason := d.Fires(p, pool.AbstractConfig{})
	require.True(t, fired, "second consecutive observation should stall")
	require.NotEmpty(t, reason)
}

func TestBlobPoolStallResetsWhenRecordLeaves(t *testing.T) {
	d := NewBlobPoolStall()
	rec := pool.TxRecord{Type: 3, BlobVersionedHashes: []common.Hash{{0x1}}}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: rec}}, Queued: pool.SenderMap{}}
	d.Fires(p, pool.AbstractConfig{})

	fired, _ := d.Fires(pool.Empty(), pool.AbstractConfig{})
	require.False(t, fired)

	fired, _ = d.Fires(p, pool.AbstractConfig{})
	require.False(t, fired, "state should have been cleared once record left the pool")
}

func TestBlobGasPriceManipulationFiresOutsideRange(t *testing.T) {
	rec := pool.TxRecord{Type: 3, MaxFeePerBlobGas: hexutil.Big(*new(big.Int).SetUint64(5))}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: rec}}, Queued: pool.SenderMap{}}
	fired, _ := BlobGasPriceManipulation{Min: 10, Max: 1000}.Fires(p, pool.AbstractConfig{})
	require.True(t, fired)
}

func TestInvalidBlobAcceptanceFiresWithoutHashes(t *testing.T) {
	rec := pool.TxRecord{Type: 3}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: rec}}, Queued: pool.SenderMap{}}
	fired, _ := InvalidBlobAcceptance{}.Fires(p, pool.AbstractConfig{})
	require.True(t, fired)
}

func TestCompositeRecordsAllFiredChildren(t *testing.T) {
	rec := pool.TxRecord{Type: 3}
	p := pool.RawPool{Pending: pool.SenderMap{addr(1): {0: rec}}, Queued: pool.SenderMap{}}
	c := Composite{Children: []Detector{InvalidBlobAcceptance{}, BlobGasPriceManipulation{Min: 10, Max: 1000}, PendingEmpty{}}}

	fired, ok := c.Evaluate(p, pool.AbstractConfig{})
	require.True(t, ok)
	require.Len(t, fired, 2)
	names := []string{fired[0].Name, fired[1].Name}
	require.Contains(t, names, "InvalidBlobAcceptance")
	require.Contains(t, names, "BlobGasPriceManipulation")
}
