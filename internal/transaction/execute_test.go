package transaction

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
)

func TestExecuteHappyPath(t *testing.T) {
	payer := newKey(t)
	counter := newKey(t).PublicKey()
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("Simulate", mock.Anything, mock.Anything, []solana.PublicKey{counter}).
		Return(&blockchain.SimulationOutcome{UnitsConsumed: 2950, Logs: []string{"ok"}}, nil)
	client.On("GetBlockHeight", mock.Anything).Return(uint64(150), nil)
	client.On("Send", mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	client.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(confirmed, nil)
	client.On("GetAccount", mock.Anything, counter).
		Return(&blockchain.AccountData{Address: counter, Owner: solana.SystemProgramID, Data: []byte{1, 2, 3}}, nil)

	rec := &recorder{}
	res, err := newTestEngine(client, WithObserver(rec)).Execute(context.Background(), Request{
		Instructions: counterCall(payer.PublicKey()),
		Payer:        payer.PublicKey(),
		Signers:      []Signer{NewKeypairSigner(payer)},
		Watch:        []solana.PublicKey{counter},
	})
	require.NoError(t, err)

	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	assert.Equal(t, uint64(2950), res.UnitsConsumed)
	assert.Equal(t, []byte{1, 2, 3}, res.Accounts[counter])
	assert.Equal(t, solana.SystemProgramID, res.Owners[counter])
	assert.NotEqual(t, solana.Signature{}, res.Signature)
	assert.Equal(t, []Stage{StageBuilt, StageSimulated, StageSigned, StageSent, StageConfirmed}, rec.stages())

	runID := rec.events[0].RunID
	assert.NotEmpty(t, runID)
	for _, ev := range rec.events {
		assert.Equal(t, runID, ev.RunID)
	}
}

func TestExecuteSimulationRejectedNeverSigns(t *testing.T) {
	payer := newKey(t)
	client := new(MockClient)
	logs := []string{
		"Program 74QZ1uTUKCPsao19wAtRRxxQ441PeejhkAZBH7nw9EEN invoke [1]",
		"Program log: AnchorError caused by account: counter_account. Error Code: AccountNotInitialized. Error Number: 3012.",
	}
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("Simulate", mock.Anything, mock.Anything, mock.Anything).Return(&blockchain.SimulationOutcome{
		Err:  map[string]interface{}{"InstructionError": []interface{}{float64(0), map[string]interface{}{"Custom": float64(3012)}}},
		Logs: logs,
	}, nil)

	rec := &recorder{}
	// No signers: the run has to stop before Sign.
	res, err := newTestEngine(client, WithObserver(rec)).Execute(context.Background(), Request{
		Instructions: counterCall(payer.PublicKey()),
		Payer:        payer.PublicKey(),
	})

	assert.ErrorIs(t, err, ErrSimulationRejected)
	assert.NotErrorIs(t, err, ErrMissingSigner)
	assert.Equal(t, OutcomeSimulationRejected, res.Outcome)
	assert.Equal(t, logs, res.Logs)
	assert.JSONEq(t, `{"InstructionError":[0,{"Custom":3012}]}`, res.Message)
	assert.Equal(t, []Stage{StageBuilt, StageFailed}, rec.stages())
	client.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	client.AssertNotCalled(t, "GetBlockHeight", mock.Anything)
}

func TestExecuteSkipSimulation(t *testing.T) {
	payer := newKey(t)
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("GetBlockHeight", mock.Anything).Return(uint64(150), nil)
	client.On("Send", mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	client.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(confirmed, nil)

	res, err := newTestEngine(client).Execute(context.Background(), Request{
		Instructions:   counterCall(payer.PublicKey()),
		Payer:          payer.PublicKey(),
		Signers:        []Signer{NewKeypairSigner(payer)},
		SkipSimulation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	client.AssertNotCalled(t, "Simulate", mock.Anything, mock.Anything, mock.Anything)
}

func TestExecuteMissingSigner(t *testing.T) {
	payer := newKey(t)
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)

	_, err := newTestEngine(client).Execute(context.Background(), Request{
		Instructions:   counterCall(payer.PublicKey()),
		Payer:          payer.PublicKey(),
		SkipSimulation: true,
	})
	assert.ErrorIs(t, err, ErrMissingSigner)
	client.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestExecuteNoInstructions(t *testing.T) {
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)

	_, err := newTestEngine(client).Execute(context.Background(), Request{Payer: newKey(t).PublicKey()})
	assert.ErrorIs(t, err, ErrNoInstructions)
}

func TestExecuteExpiredIsNotRetriedByDefault(t *testing.T) {
	payer := newKey(t)
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("GetBlockHeight", mock.Anything).Return(uint64(201), nil)

	res, err := newTestEngine(client).Execute(context.Background(), Request{
		Instructions:   counterCall(payer.PublicKey()),
		Payer:          payer.PublicKey(),
		Signers:        []Signer{NewKeypairSigner(payer)},
		SkipSimulation: true,
	})
	assert.ErrorIs(t, err, ErrExpired)
	assert.Equal(t, OutcomeExpired, res.Outcome)
	client.AssertNumberOfCalls(t, "GetRecentBlockReference", 1)
}

func TestExecuteReassemblesOnceWhenEnabled(t *testing.T) {
	payer := newKey(t)
	fresh := blockchain.BlockReference{Blockhash: solana.Hash{8}, LastValidBlockHeight: 400}
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil).Once()
	client.On("GetRecentBlockReference", mock.Anything).Return(fresh, nil).Once()
	client.On("GetBlockHeight", mock.Anything).Return(uint64(250), nil)
	client.On("Send", mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	client.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(confirmed, nil)

	cfg := testConfig()
	cfg.ReassembleOnExpiry = true
	res, err := NewEngine(client, zap.NewNop(), cfg).Execute(context.Background(), Request{
		Instructions:   counterCall(payer.PublicKey()),
		Payer:          payer.PublicKey(),
		Signers:        []Signer{NewKeypairSigner(payer)},
		SkipSimulation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
	client.AssertNumberOfCalls(t, "GetRecentBlockReference", 2)
	client.AssertNumberOfCalls(t, "Send", 1)
}

func TestExecutePostFetchFailureKeepsConfirmedResult(t *testing.T) {
	payer := newKey(t)
	counter := newKey(t).PublicKey()
	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("GetBlockHeight", mock.Anything).Return(uint64(150), nil)
	client.On("Send", mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	client.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(confirmed, nil)
	client.On("GetAccount", mock.Anything, counter).
		Return(nil, fmt.Errorf("%w: %s", blockchain.ErrAccountNotFound, counter))

	res, err := newTestEngine(client).Execute(context.Background(), Request{
		Instructions:   counterCall(payer.PublicKey()),
		Payer:          payer.PublicKey(),
		Signers:        []Signer{NewKeypairSigner(payer)},
		SkipSimulation: true,
		Watch:          []solana.PublicKey{counter},
	})
	assert.ErrorIs(t, err, blockchain.ErrAccountNotFound)
	assert.Equal(t, OutcomeConfirmed, res.Outcome)
}

// fakeLedger is a concurrency-safe client that lands every sent transaction
// one poll after it arrives.
type fakeLedger struct {
	mu    sync.Mutex
	polls map[solana.Signature]int
}

func (f *fakeLedger) GetRecentBlockReference(context.Context) (blockchain.BlockReference, error) {
	return testRef(), nil
}

func (f *fakeLedger) GetBlockHeight(context.Context) (uint64, error) { return 150, nil }

func (f *fakeLedger) Simulate(context.Context, *solana.Transaction, ...solana.PublicKey) (*blockchain.SimulationOutcome, error) {
	return &blockchain.SimulationOutcome{UnitsConsumed: 100}, nil
}

func (f *fakeLedger) Send(_ context.Context, tx *solana.Transaction) (solana.Signature, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.polls[tx.Signatures[0]] = 0
	return tx.Signatures[0], nil
}

func (f *fakeLedger) Confirm(_ context.Context, sig solana.Signature, _ rpc.CommitmentType) (blockchain.SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n, ok := f.polls[sig]
	if !ok {
		return blockchain.SignatureStatus{}, nil
	}
	f.polls[sig] = n + 1
	if n == 0 {
		return processed, nil
	}
	return confirmed, nil
}

func (f *fakeLedger) GetAccount(_ context.Context, address solana.PublicKey) (*blockchain.AccountData, error) {
	return &blockchain.AccountData{Address: address, Data: address[:]}, nil
}

func TestConcurrentSubmissionsDoNotInterfere(t *testing.T) {
	ledger := &fakeLedger{polls: map[solana.Signature]int{}}
	engine := newTestEngine(ledger)

	const n = 8
	results := make([]Result, n)
	payers := make([]solana.PrivateKey, n)
	watched := make([]solana.PublicKey, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		payers[i] = newKey(t)
		watched[i] = newKey(t).PublicKey()
	}
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := engine.Execute(context.Background(), Request{
				Instructions: counterCall(payers[i].PublicKey()),
				Payer:        payers[i].PublicKey(),
				Signers:      []Signer{NewKeypairSigner(payers[i])},
				Watch:        []solana.PublicKey{watched[i]},
			})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()

	seen := map[solana.Signature]bool{}
	for i, res := range results {
		require.Equal(t, OutcomeConfirmed, res.Outcome)
		assert.False(t, seen[res.Signature], "signatures are distinct")
		seen[res.Signature] = true
		assert.Equal(t, watched[i][:], res.Accounts[watched[i]])
		assert.Len(t, res.Accounts, 1)
	}
}
