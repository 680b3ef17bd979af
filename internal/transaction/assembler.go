// internal/transaction/assembler.go
package transaction

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

// Envelope is an assembled, unsigned transaction.
type Envelope struct {
	instructions []instruction.Descriptor
	ref          blockchain.BlockReference
	payer        solana.PublicKey
	signers      []solana.PublicKey
	tx           *solana.Transaction
}

// Assemble compiles ixs against ref with payer paying fees. Instruction order
// is kept as given.
func Assemble(ixs []instruction.Descriptor, payer solana.PublicKey, ref blockchain.BlockReference) (*Envelope, error) {
	if len(ixs) == 0 {
		return nil, ErrNoInstructions
	}
	if payer.IsZero() {
		return nil, fmt.Errorf("%w: fee payer is empty", ErrInvalidCall)
	}

	tx, err := solana.NewTransaction(instruction.Join(ixs), ref.Blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("compile transaction: %w", err)
	}

	return &Envelope{
		instructions: append([]instruction.Descriptor(nil), ixs...),
		ref:          ref,
		payer:        payer,
		signers:      requiredSigners(ixs, payer),
		tx:           tx,
	}, nil
}

// requiredSigners is the payer followed by every signer account, first
// occurrence wins.
func requiredSigners(ixs []instruction.Descriptor, payer solana.PublicKey) []solana.PublicKey {
	seen := map[solana.PublicKey]bool{payer: true}
	out := []solana.PublicKey{payer}
	for _, ix := range ixs {
		for _, key := range ix.Signers() {
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, key)
		}
	}
	return out
}

func (e *Envelope) Instructions() []instruction.Descriptor {
	return append([]instruction.Descriptor(nil), e.instructions...)
}

func (e *Envelope) BlockReference() blockchain.BlockReference {
	return e.ref
}

func (e *Envelope) Payer() solana.PublicKey {
	return e.payer
}

// RequiredSigners lists every identity that must sign before broadcast.
func (e *Envelope) RequiredSigners() []solana.PublicKey {
	return append([]solana.PublicKey(nil), e.signers...)
}

// Message returns the serialized message signatures are computed over.
func (e *Envelope) Message() ([]byte, error) {
	return e.tx.Message.MarshalBinary()
}

// simulationTransaction carries zeroed signatures so it serializes without
// being signed. Nodes simulate it with signature verification off.
func (e *Envelope) simulationTransaction() *solana.Transaction {
	return &solana.Transaction{
		Signatures: make([]solana.Signature, e.tx.Message.Header.NumRequiredSignatures),
		Message:    e.tx.Message,
	}
}
