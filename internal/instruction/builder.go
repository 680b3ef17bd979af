// internal/instruction/builder.go
package instruction

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
)

var ErrInvalidCall = errors.New("invalid program call")

// ComputeBudgetProgramID is the native program that reads unit limit and price
// instructions.
var ComputeBudgetProgramID = solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111")

// ProgramCall describes one call into an on-chain program.
type ProgramCall struct {
	ProgramID solana.PublicKey
	Accounts  []*solana.AccountMeta
	Data      []byte
	// RequiresPayer marks calls that need at least one account, typically the payer.
	RequiresPayer bool
}

// ComputeBudget sets the per-transaction unit limit and the price paid per
// unit, in micro-lamports.
type ComputeBudget struct {
	UnitLimit              uint32
	UnitPriceMicroLamports uint64
}

// Build turns call into an ordered instruction sequence. With a budget, the
// unit limit and unit price instructions come first, in that order, once each.
func Build(call ProgramCall, budget *ComputeBudget) ([]Descriptor, error) {
	if err := call.validate(budget); err != nil {
		return nil, err
	}

	out := make([]Descriptor, 0, 3)
	if budget != nil {
		ixs, err := budget.Instructions()
		if err != nil {
			return nil, err
		}
		out = append(out, ixs...)
	}
	return append(out, New(call.ProgramID, call.Accounts, call.Data)), nil
}

func (c ProgramCall) validate(budget *ComputeBudget) error {
	if c.ProgramID.IsZero() {
		return fmt.Errorf("%w: program id is empty", ErrInvalidCall)
	}
	if c.RequiresPayer && len(c.Accounts) == 0 {
		return fmt.Errorf("%w: call requires a payer but has no accounts", ErrInvalidCall)
	}
	for i, a := range c.Accounts {
		if a == nil {
			return fmt.Errorf("%w: account %d is nil", ErrInvalidCall, i)
		}
	}
	if budget != nil && c.ProgramID.Equals(ComputeBudgetProgramID) {
		return fmt.Errorf("%w: compute budget is set twice", ErrInvalidCall)
	}
	return nil
}

// Instructions returns the unit-limit and unit-price instructions.
func (b ComputeBudget) Instructions() ([]Descriptor, error) {
	limit, err := FromInstruction(computebudget.NewSetComputeUnitLimitInstruction(b.UnitLimit).Build())
	if err != nil {
		return nil, fmt.Errorf("build unit limit instruction: %w", err)
	}
	price, err := FromInstruction(computebudget.NewSetComputeUnitPriceInstruction(b.UnitPriceMicroLamports).Build())
	if err != nil {
		return nil, fmt.Errorf("build unit price instruction: %w", err)
	}
	return []Descriptor{limit, price}, nil
}

// Join concatenates instruction sequences as SDK instructions, keeping order.
func Join(groups ...[]Descriptor) []solana.Instruction {
	var out []solana.Instruction
	for _, g := range groups {
		for _, d := range g {
			out = append(out, d)
		}
	}
	return out
}
