package instruction

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var counterProgram = solana.MustPublicKeyFromBase58("74QZ1uTUKCPsao19wAtRRxxQ441PeejhkAZBH7nw9EEN")

func sampleCall() ProgramCall {
	payer := solana.NewWallet().PublicKey()
	return ProgramCall{
		ProgramID: counterProgram,
		Accounts: []*solana.AccountMeta{
			solana.Meta(solana.NewWallet().PublicKey()).WRITE(),
			solana.Meta(payer).WRITE().SIGNER(),
		},
		Data:          []byte{1, 2, 3},
		RequiresPayer: true,
	}
}

func data(t *testing.T, d Descriptor) []byte {
	t.Helper()
	b, err := d.Data()
	require.NoError(t, err)
	return b
}

func TestBuildWithoutBudget(t *testing.T) {
	call := sampleCall()
	ixs, err := Build(call, nil)
	require.NoError(t, err)
	require.Len(t, ixs, 1)
	assert.Equal(t, counterProgram, ixs[0].ProgramID())
	assert.Equal(t, []byte{1, 2, 3}, data(t, ixs[0]))
	assert.Len(t, ixs[0].Accounts(), 2)
}

func TestBuildBudgetComesFirst(t *testing.T) {
	ixs, err := Build(sampleCall(), &ComputeBudget{UnitLimit: 200_000, UnitPriceMicroLamports: 5000})
	require.NoError(t, err)
	require.Len(t, ixs, 3)

	assert.Equal(t, ComputeBudgetProgramID, ixs[0].ProgramID())
	limit := data(t, ixs[0])
	assert.Equal(t, byte(2), limit[0])
	assert.Equal(t, uint32(200_000), binary.LittleEndian.Uint32(limit[1:]))

	assert.Equal(t, ComputeBudgetProgramID, ixs[1].ProgramID())
	price := data(t, ixs[1])
	assert.Equal(t, byte(3), price[0])
	assert.Equal(t, uint64(5000), binary.LittleEndian.Uint64(price[1:]))

	assert.Equal(t, counterProgram, ixs[2].ProgramID())
}

func TestBuildBudgetOrderingHoldsForArbitraryInputs(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		call := sampleCall()
		call.Data = make([]byte, rng.Intn(64))
		rng.Read(call.Data)
		budget := &ComputeBudget{UnitLimit: rng.Uint32(), UnitPriceMicroLamports: rng.Uint64()}

		ixs, err := Build(call, budget)
		require.NoError(t, err)

		budgetCount := 0
		for _, ix := range ixs {
			if ix.ProgramID().Equals(ComputeBudgetProgramID) {
				budgetCount++
			}
		}
		require.Equal(t, 2, budgetCount)
		require.Equal(t, byte(2), data(t, ixs[0])[0])
		require.Equal(t, byte(3), data(t, ixs[1])[0])
		require.Equal(t, call.Data, data(t, ixs[2]))
	}
}

func TestBuildInvalidCall(t *testing.T) {
	tests := []struct {
		name   string
		call   ProgramCall
		budget *ComputeBudget
	}{
		{
			name: "payer required without accounts",
			call: ProgramCall{ProgramID: counterProgram, RequiresPayer: true},
		},
		{
			name: "zero program id",
			call: ProgramCall{Accounts: []*solana.AccountMeta{solana.Meta(counterProgram)}},
		},
		{
			name: "nil account",
			call: ProgramCall{ProgramID: counterProgram, Accounts: []*solana.AccountMeta{nil}},
		},
		{
			name:   "budget call with budget",
			call:   ProgramCall{ProgramID: ComputeBudgetProgramID, Data: []byte{2, 0, 0, 0, 0}},
			budget: &ComputeBudget{UnitLimit: 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ixs, err := Build(tt.call, tt.budget)
			assert.ErrorIs(t, err, ErrInvalidCall)
			assert.Nil(t, ixs)
		})
	}
}

func TestBuildAllowsAccountlessCallWithoutPayer(t *testing.T) {
	ixs, err := Build(ProgramCall{ProgramID: counterProgram, Data: []byte{9}}, nil)
	require.NoError(t, err)
	assert.Len(t, ixs, 1)
	assert.Empty(t, ixs[0].Accounts())
}

func TestDescriptorIsImmutable(t *testing.T) {
	payload := []byte{1, 2, 3}
	meta := solana.Meta(counterProgram).WRITE()
	d := New(counterProgram, []*solana.AccountMeta{meta}, payload)

	payload[0] = 99
	meta.IsWritable = false
	assert.Equal(t, []byte{1, 2, 3}, data(t, d))
	assert.True(t, d.Accounts()[0].IsWritable)

	out := d.Accounts()
	out[0].IsSigner = true
	b := data(t, d)
	b[1] = 42
	assert.False(t, d.Accounts()[0].IsSigner)
	assert.Equal(t, []byte{1, 2, 3}, data(t, d))
}

func TestDescriptorSigners(t *testing.T) {
	a := solana.NewWallet().PublicKey()
	b := solana.NewWallet().PublicKey()
	d := New(counterProgram, []*solana.AccountMeta{
		solana.Meta(a).SIGNER(),
		solana.Meta(counterProgram),
		solana.Meta(b).WRITE().SIGNER(),
	}, nil)
	assert.Equal(t, []solana.PublicKey{a, b}, d.Signers())
}

func TestJoinKeepsOrder(t *testing.T) {
	first := New(counterProgram, nil, []byte{1})
	second := New(ComputeBudgetProgramID, nil, []byte{2})
	third := New(solana.SystemProgramID, nil, []byte{3})

	joined := Join([]Descriptor{first, second}, []Descriptor{third})
	require.Len(t, joined, 3)
	assert.Equal(t, counterProgram, joined[0].ProgramID())
	assert.Equal(t, ComputeBudgetProgramID, joined[1].ProgramID())
	assert.Equal(t, solana.SystemProgramID, joined[2].ProgramID())
}
