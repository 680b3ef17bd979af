package fees

import (
	"context"
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
)

type sampler struct {
	fees []blockchain.PrioritizationFee
	err  error
	seen []solana.PublicKey
}

func (s *sampler) GetRecentPrioritizationFees(_ context.Context, accounts ...solana.PublicKey) ([]blockchain.PrioritizationFee, error) {
	s.seen = accounts
	return s.fees, s.err
}

func samples(fees ...uint64) []blockchain.PrioritizationFee {
	out := make([]blockchain.PrioritizationFee, len(fees))
	for i, f := range fees {
		out[i] = blockchain.PrioritizationFee{Slot: uint64(100 + i), Fee: f}
	}
	return out
}

func TestEstimatorStrategies(t *testing.T) {
	tests := []struct {
		strategy Strategy
		fees     []uint64
		want     uint64
	}{
		{StrategyMedian, []uint64{300, 100, 200}, 200},
		{StrategyMedian, []uint64{400, 100, 200, 300}, 250},
		{"", []uint64{0, 7, 0, 9, 8}, 8},
		{StrategyMax, []uint64{5, 50, 20}, 50},
		{StrategyAverage, []uint64{10, 20, 0, 33}, 21},
	}
	for _, tt := range tests {
		e, err := NewEstimator(&sampler{fees: samples(tt.fees...)}, tt.strategy, 0, zap.NewNop())
		require.NoError(t, err)

		price, err := e.UnitPrice(context.Background())
		require.NoError(t, err)
		assert.Equal(t, tt.want, price, "%s %v", tt.strategy, tt.fees)
	}
}

func TestEstimatorFallbackAndCap(t *testing.T) {
	e, err := NewEstimator(&sampler{fees: samples(0, 0)}, StrategyMedian, 0, zap.NewNop())
	require.NoError(t, err)
	price, err := e.UnitPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultUnitPrice, price)

	e, err = NewEstimator(&sampler{fees: samples(90_000)}, StrategyMax, 10_000, zap.NewNop())
	require.NoError(t, err)
	price, err = e.UnitPrice(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), price)
}

func TestEstimatorBudgetPassesAccounts(t *testing.T) {
	s := &sampler{fees: samples(3_000)}
	e, err := NewEstimator(s, StrategyMedian, 0, zap.NewNop())
	require.NoError(t, err)

	counter := solana.NewWallet().PublicKey()
	budget, err := e.Budget(context.Background(), 50_000, counter)
	require.NoError(t, err)
	assert.Equal(t, uint32(50_000), budget.UnitLimit)
	assert.Equal(t, uint64(3_000), budget.UnitPriceMicroLamports)
	assert.Equal(t, []solana.PublicKey{counter}, s.seen)
}

func TestEstimatorErrors(t *testing.T) {
	_, err := NewEstimator(&sampler{}, "p99", 0, zap.NewNop())
	assert.Error(t, err)

	boom := errors.New("node down")
	e, err := NewEstimator(&sampler{err: boom}, StrategyMedian, 0, zap.NewNop())
	require.NoError(t, err)
	_, err = e.UnitPrice(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestUnitsFromSimulation(t *testing.T) {
	assert.Equal(t, uint32(3540), UnitsFromSimulation(2950))
	assert.Equal(t, uint32(2402), UnitsFromSimulation(2001))
	assert.Equal(t, MinUnitLimit, UnitsFromSimulation(0))
	assert.Equal(t, MaxUnitLimit, UnitsFromSimulation(1_300_000))
}

func TestProfile(t *testing.T) {
	budget, err := Profile(PriorityMedium)
	require.NoError(t, err)
	assert.Equal(t, uint32(200_000), budget.UnitLimit)
	assert.Equal(t, uint64(5_000), budget.UnitPriceMicroLamports)

	budget, err = Profile(PriorityNone)
	assert.NoError(t, err)
	assert.Nil(t, budget)

	_, err = Profile("turbo")
	assert.Error(t, err)

	level, err := ParseLevel("auto")
	require.NoError(t, err)
	assert.Equal(t, PriorityAuto, level)
	_, err = ParseLevel("turbo")
	assert.Error(t, err)
}

func TestSOLConversions(t *testing.T) {
	lamports, err := ParseSOL("0.1")
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000_000), lamports)

	lamports, err = ParseSOL("2")
	require.NoError(t, err)
	assert.Equal(t, 2*solana.LAMPORTS_PER_SOL, lamports)

	for _, bad := range []string{"-1", "0.0000000001", "abc"} {
		_, err := ParseSOL(bad)
		assert.ErrorIs(t, err, ErrInvalidAmount, bad)
	}

	assert.True(t, decimal.RequireFromString("0.01").Equal(LamportsToSOL(10_000_000)))
}
