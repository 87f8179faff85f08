package driver

import (
	"math/big"

	"github.com/holiman/uint256"
)

func uint256FromBig(v *big.Int) *uint256.Int {
	out, _ := uint256.FromBig(v)
	return out
}

func uint256FromUint64(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}
