// internal/counter/program.go
package counter

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-counter/internal/account"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

// DefaultProgramID is the devnet deployment of the counter program.
var DefaultProgramID = solana.MustPublicKeyFromBase58("74QZ1uTUKCPsao19wAtRRxxQ441PeejhkAZBH7nw9EEN")

const (
	InitializeMethod = "initialize"
	// DefaultIncrementMethod is spelled the way the deployed program spells it.
	DefaultIncrementMethod = "incerment"
	// AccountSpace is the discriminator plus the i64 count.
	AccountSpace = 8 + 8
)

// Counter is the on-chain state.
type Counter struct {
	Count int64
}

// Schema returns the layout of Counter accounts without an owner check.
func Schema() account.Schema {
	return account.AnchorSchema("Counter", account.Field{Name: "count", Size: 8})
}

// Program builds calls into one counter deployment.
type Program struct {
	ID              solana.PublicKey
	IncrementMethod string
}

func NewProgram(id solana.PublicKey, incrementMethod string) Program {
	if id.IsZero() {
		id = DefaultProgramID
	}
	if incrementMethod == "" {
		incrementMethod = DefaultIncrementMethod
	}
	return Program{ID: id, IncrementMethod: incrementMethod}
}

// Schema is the Counter layout owned by this deployment.
func (p Program) Schema() account.Schema {
	return Schema().WithOwner(p.ID)
}

// Initialize creates counterAccount funded by user. Both must sign.
func (p Program) Initialize(counterAccount, user solana.PublicKey, budget *instruction.ComputeBudget) ([]instruction.Descriptor, error) {
	data, err := instruction.AnchorData(InitializeMethod)
	if err != nil {
		return nil, err
	}
	ixs, err := instruction.Build(instruction.ProgramCall{
		ProgramID: p.ID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(counterAccount).WRITE().SIGNER(),
			solana.Meta(user).WRITE().SIGNER(),
			solana.Meta(solana.SystemProgramID),
		},
		Data:          data,
		RequiresPayer: true,
	}, budget)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", InitializeMethod, err)
	}
	return ixs, nil
}

// Increment adds one to counterAccount.
func (p Program) Increment(counterAccount solana.PublicKey, budget *instruction.ComputeBudget) ([]instruction.Descriptor, error) {
	data, err := instruction.AnchorData(p.IncrementMethod)
	if err != nil {
		return nil, err
	}
	ixs, err := instruction.Build(instruction.ProgramCall{
		ProgramID: p.ID,
		Accounts: []*solana.AccountMeta{
			solana.Meta(counterAccount).WRITE(),
		},
		Data: data,
	}, budget)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", p.IncrementMethod, err)
	}
	return ixs, nil
}
