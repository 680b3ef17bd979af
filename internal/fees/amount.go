// internal/fees/amount.go
package fees

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid SOL amount")

var lamportsPerSOL = decimal.NewFromInt(int64(solana.LAMPORTS_PER_SOL))

// LamportsToSOL конвертирует lamports в SOL
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Div(lamportsPerSOL)
}

// SOLToLamports rejects negative amounts and amounts finer than one lamport.
func SOLToLamports(sol decimal.Decimal) (uint64, error) {
	if sol.IsNegative() {
		return 0, fmt.Errorf("%w: %s is negative", ErrInvalidAmount, sol)
	}
	lamports := sol.Mul(lamportsPerSOL)
	if !lamports.IsInteger() {
		return 0, fmt.Errorf("%w: %s is finer than one lamport", ErrInvalidAmount, sol)
	}
	if !lamports.BigInt().IsUint64() {
		return 0, fmt.Errorf("%w: %s is too large", ErrInvalidAmount, sol)
	}
	return lamports.BigInt().Uint64(), nil
}

// ParseSOL parses a decimal string such as "0.1".
func ParseSOL(s string) (uint64, error) {
	sol, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return SOLToLamports(sol)
}
