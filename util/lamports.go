package util

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// lamportsExp is the decimal exponent between lamports and SOL.
const lamportsExp = -9

// LamportsToSOL formats a lamport amount as SOL.
func LamportsToSOL(lamports uint64) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), lamportsExp).String()
}

// SOLToLamports parses a SOL amount such as "1.5" into lamports.
// ok is false for negative, fractional-lamport or out of range amounts.
func SOLToLamports(sol string) (uint64, bool) {
	d, err := decimal.NewFromString(sol)
	if err != nil || d.Sign() < 0 {
		return 0, false
	}

	shifted := d.Shift(-lamportsExp)
	if !shifted.Equal(shifted.Truncate(0)) {
		return 0, false
	}

	v := shifted.BigInt()
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}
