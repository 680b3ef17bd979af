// internal/instruction/descriptor.go
package instruction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Descriptor is an immutable instruction: the constructor copies its inputs
// and every accessor hands out copies.
type Descriptor struct {
	programID solana.PublicKey
	accounts  []solana.AccountMeta
	data      []byte
}

var _ solana.Instruction = Descriptor{}

// New builds a descriptor from a program id, account roles and payload.
func New(programID solana.PublicKey, accounts []*solana.AccountMeta, data []byte) Descriptor {
	metas := make([]solana.AccountMeta, 0, len(accounts))
	for _, a := range accounts {
		if a == nil {
			continue
		}
		metas = append(metas, *a)
	}
	return Descriptor{
		programID: programID,
		accounts:  metas,
		data:      append([]byte(nil), data...),
	}
}

// FromInstruction snapshots any SDK instruction into a descriptor.
func FromInstruction(ix solana.Instruction) (Descriptor, error) {
	data, err := ix.Data()
	if err != nil {
		return Descriptor{}, fmt.Errorf("encode instruction data: %w", err)
	}
	return New(ix.ProgramID(), ix.Accounts(), data), nil
}

func (d Descriptor) ProgramID() solana.PublicKey {
	return d.programID
}

func (d Descriptor) Accounts() []*solana.AccountMeta {
	out := make([]*solana.AccountMeta, len(d.accounts))
	for i := range d.accounts {
		meta := d.accounts[i]
		out[i] = &meta
	}
	return out
}

func (d Descriptor) Data() ([]byte, error) {
	return append([]byte(nil), d.data...), nil
}

// Signers lists accounts marked as signers, in order of appearance.
func (d Descriptor) Signers() []solana.PublicKey {
	var out []solana.PublicKey
	for _, a := range d.accounts {
		if a.IsSigner {
			out = append(out, a.PublicKey)
		}
	}
	return out
}
