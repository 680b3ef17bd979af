package transaction

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		OutcomeUnknown:            "unknown",
		OutcomeConfirmed:          "confirmed",
		OutcomeSimulationRejected: "simulation_rejected",
		OutcomeExpired:            "expired",
		OutcomeRemoteError:        "remote_error",
		OutcomeTimeout:            "timeout",
	}
	for o, want := range tests {
		assert.Equal(t, want, o.String())
	}
}

func TestResultErr(t *testing.T) {
	assert.NoError(t, Result{Outcome: OutcomeConfirmed}.Err())

	cause := errors.New("connection reset")
	sig := solana.Signature{1}
	err := Result{
		Outcome:   OutcomeTimeout,
		Signature: sig,
		Message:   "last seen at processed commitment",
		Cause:     cause,
	}.Err()

	assert.ErrorIs(t, err, ErrTimeout)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrExpired)
	assert.Contains(t, err.Error(), sig.String())
	assert.Contains(t, err.Error(), "last seen at processed commitment")

	var subErr *SubmissionError
	assert.True(t, errors.As(err, &subErr))
	assert.Equal(t, OutcomeTimeout, subErr.Outcome)
}

func TestSubmissionErrorSentinels(t *testing.T) {
	for o, sentinel := range map[Outcome]error{
		OutcomeSimulationRejected: ErrSimulationRejected,
		OutcomeExpired:            ErrExpired,
		OutcomeRemoteError:        ErrRemote,
		OutcomeTimeout:            ErrTimeout,
	} {
		assert.ErrorIs(t, Result{Outcome: o}.Err(), sentinel, o.String())
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "", describe(nil))
	assert.Equal(t, "BlockhashNotFound", describe("BlockhashNotFound"))
	assert.JSONEq(t, `{"InstructionError":[1,"InvalidAccountData"]}`,
		describe(map[string]interface{}{"InstructionError": []interface{}{1, "InvalidAccountData"}}))
}

func TestMetricsTrackOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	payer := newKey(t)

	client := new(MockClient)
	client.On("GetRecentBlockReference", mock.Anything).Return(testRef(), nil)
	client.On("GetBlockHeight", mock.Anything).Return(uint64(150), nil)
	client.On("Send", mock.Anything, mock.Anything).Return(solana.Signature{}, nil)
	client.On("Confirm", mock.Anything, mock.Anything, mock.Anything).Return(confirmed, nil)

	engine := NewEngine(client, zap.NewNop(), testConfig(), WithMetrics(metrics))
	for i := 0; i < 2; i++ {
		_, err := engine.Execute(context.Background(), Request{
			Instructions:   counterCall(payer.PublicKey()),
			Payer:          payer.PublicKey(),
			Signers:        []Signer{NewKeypairSigner(payer)},
			SkipSimulation: true,
		})
		assert.NoError(t, err)
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.outcomes.WithLabelValues("confirmed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.polls))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.trackPoll()
		m.trackSendRetry()
	})
}
