// internal/wallet/transfer.go
package wallet

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"

	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

// TransferInstructions builds a System program transfer of lamports from w to
// recipient, preceded by budget instructions when budget is set.
func (w *Wallet) TransferInstructions(recipient solana.PublicKey, lamports uint64, budget *instruction.ComputeBudget) ([]instruction.Descriptor, error) {
	if lamports == 0 {
		return nil, fmt.Errorf("%w: transfer amount is zero", instruction.ErrInvalidCall)
	}
	if recipient.Equals(w.PublicKey) {
		return nil, fmt.Errorf("%w: sender and recipient are the same", instruction.ErrInvalidCall)
	}

	transfer := system.NewTransferInstruction(lamports, w.PublicKey, recipient).Build()
	data, err := transfer.Data()
	if err != nil {
		return nil, fmt.Errorf("encode transfer: %w", err)
	}
	return instruction.Build(instruction.ProgramCall{
		ProgramID:     transfer.ProgramID(),
		Accounts:      transfer.Accounts(),
		Data:          data,
		RequiresPayer: true,
	}, budget)
}
