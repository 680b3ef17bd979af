package transaction

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

var counterProgram = solana.MustPublicKeyFromBase58("74QZ1uTUKCPsao19wAtRRxxQ441PeejhkAZBH7nw9EEN")

// MockClient реализует интерфейс blockchain.Client
type MockClient struct {
	mock.Mock
}

func (m *MockClient) GetRecentBlockReference(ctx context.Context) (blockchain.BlockReference, error) {
	args := m.Called(ctx)
	return args.Get(0).(blockchain.BlockReference), args.Error(1)
}

func (m *MockClient) GetBlockHeight(ctx context.Context) (uint64, error) {
	args := m.Called(ctx)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockClient) Simulate(ctx context.Context, tx *solana.Transaction, watch ...solana.PublicKey) (*blockchain.SimulationOutcome, error) {
	args := m.Called(ctx, tx, watch)
	out, _ := args.Get(0).(*blockchain.SimulationOutcome)
	return out, args.Error(1)
}

func (m *MockClient) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	args := m.Called(ctx, tx)
	return args.Get(0).(solana.Signature), args.Error(1)
}

func (m *MockClient) Confirm(ctx context.Context, sig solana.Signature, commitment rpc.CommitmentType) (blockchain.SignatureStatus, error) {
	args := m.Called(ctx, sig, commitment)
	return args.Get(0).(blockchain.SignatureStatus), args.Error(1)
}

func (m *MockClient) GetAccount(ctx context.Context, address solana.PublicKey) (*blockchain.AccountData, error) {
	args := m.Called(ctx, address)
	acc, _ := args.Get(0).(*blockchain.AccountData)
	return acc, args.Error(1)
}

// recorder collects stage events.
type recorder struct {
	mu     sync.Mutex
	events []StageEvent
}

func (r *recorder) OnStage(ev StageEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) stages() []Stage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Stage, len(r.events))
	for i, ev := range r.events {
		out[i] = ev.Stage
	}
	return out
}

func testConfig() Config {
	return Config{
		Commitment:          rpc.CommitmentConfirmed,
		SendAttempts:        3,
		SendInitialInterval: time.Millisecond,
		PollInitialInterval: time.Millisecond,
		PollMaxInterval:     2 * time.Millisecond,
		PollMultiplier:      1.5,
		PollAttempts:        10,
		PollTimeout:         5 * time.Second,
	}
}

func testRef() blockchain.BlockReference {
	return blockchain.BlockReference{Blockhash: solana.Hash{7}, LastValidBlockHeight: 200, Slot: 150}
}

func newKey(t *testing.T) solana.PrivateKey {
	t.Helper()
	key, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return key
}

// counterCall builds a call shaped like an Anchor increment: one writable
// account plus the paying user as signer.
func counterCall(payer solana.PublicKey, extra ...*solana.AccountMeta) []instruction.Descriptor {
	accounts := append([]*solana.AccountMeta{
		solana.Meta(solana.NewWallet().PublicKey()).WRITE(),
		solana.Meta(payer).WRITE().SIGNER(),
	}, extra...)
	ixs, _ := instruction.Build(instruction.ProgramCall{
		ProgramID:     counterProgram,
		Accounts:      accounts,
		Data:          []byte{1, 2, 3, 4, 5, 6, 7, 8},
		RequiresPayer: true,
	}, nil)
	return ixs
}

func signedFixture(t *testing.T, ref blockchain.BlockReference) *SignedEnvelope {
	t.Helper()
	payer := newKey(t)
	env, err := Assemble(counterCall(payer.PublicKey()), payer.PublicKey(), ref)
	require.NoError(t, err)
	signed, err := Sign(env, NewKeypairSigner(payer))
	require.NoError(t, err)
	return signed
}
