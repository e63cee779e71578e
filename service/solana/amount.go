package solana

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// lamportExponent is the number of decimal places between SOL and
// lamports: 1 SOL = 10^9 lamports.
const lamportExponent = 9

// SOLToLamports converts a display-unit decimal string to lamports using
// fixed-point arithmetic. The amount is shifted by the lamport exponent
// and rounded half-up to the nearest integer, so "1.5" is exactly
// 1_500_000_000 and "0.000000001" is exactly 1. Binary floating point is
// never involved; amounts near unit boundaries do not drift.
//
// Returns ErrValidation for amounts that are empty, not a decimal,
// non-positive, or so small they round to zero lamports.
func SOLToLamports(amount string) (uint64, error) {
	if amount == "" {
		return 0, fmt.Errorf("%w: amount is required", ErrValidation)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %q is not a decimal", ErrValidation, amount)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("%w: amount must be positive, got %s", ErrValidation, amount)
	}

	lamports := d.Shift(lamportExponent).Round(0)
	if lamports.IsZero() {
		return 0, fmt.Errorf("%w: amount %s rounds to zero lamports", ErrValidation, amount)
	}

	bi := lamports.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: amount %s overflows lamports", ErrValidation, amount)
	}
	return bi.Uint64(), nil
}

// LamportsToSOL converts a lamport balance to its display-unit decimal
// string, again via fixed-point shifting rather than float division.
func LamportsToSOL(lamports uint64) string {
	return decimal.NewFromUint64(lamports).Shift(-lamportExponent).String()
}
