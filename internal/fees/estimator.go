// internal/fees/estimator.go
package fees

import (
	"context"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

type Strategy string

const (
	StrategyMedian  Strategy = "median"
	StrategyMax     Strategy = "max"
	StrategyAverage Strategy = "average"
)

// DefaultUnitPrice is used when the cluster reports no non-zero fees.
const DefaultUnitPrice uint64 = 1_000

// Estimator prices compute units from recently paid prioritization fees.
type Estimator struct {
	sampler  blockchain.FeeSampler
	strategy Strategy
	fallback uint64
	maxPrice uint64
	logger   *zap.Logger
}

// NewEstimator creates an estimator. A zero maxPrice leaves the price unbounded.
func NewEstimator(sampler blockchain.FeeSampler, strategy Strategy, maxPrice uint64, logger *zap.Logger) (*Estimator, error) {
	switch strategy {
	case StrategyMedian, StrategyMax, StrategyAverage:
	case "":
		strategy = StrategyMedian
	default:
		return nil, fmt.Errorf("unknown fee strategy: %s", strategy)
	}
	return &Estimator{
		sampler:  sampler,
		strategy: strategy,
		fallback: DefaultUnitPrice,
		maxPrice: maxPrice,
		logger:   logger.Named("fees"),
	}, nil
}

// UnitPrice returns a price in micro-lamports per compute unit for
// transactions writing the given accounts.
func (e *Estimator) UnitPrice(ctx context.Context, writable ...solana.PublicKey) (uint64, error) {
	samples, err := e.sampler.GetRecentPrioritizationFees(ctx, writable...)
	if err != nil {
		return 0, fmt.Errorf("failed to get recent prioritization fees: %w", err)
	}

	var paid []uint64
	for _, s := range samples {
		if s.Fee > 0 {
			paid = append(paid, s.Fee)
		}
	}
	if len(paid) == 0 {
		e.logger.Info("No recent prioritization fees, using default",
			zap.Uint64("unit_price", e.fallback),
			zap.Int("samples", len(samples)))
		return e.fallback, nil
	}

	price := reduce(e.strategy, paid)
	if e.maxPrice > 0 && price > e.maxPrice {
		e.logger.Debug("Unit price capped", zap.Uint64("estimated", price), zap.Uint64("max_price", e.maxPrice))
		price = e.maxPrice
	}
	e.logger.Debug("Estimated unit price",
		zap.String("strategy", string(e.strategy)),
		zap.Uint64("unit_price", price),
		zap.Int("samples", len(paid)))
	return price, nil
}

// Budget combines an estimated price with limit.
func (e *Estimator) Budget(ctx context.Context, limit uint32, writable ...solana.PublicKey) (*instruction.ComputeBudget, error) {
	price, err := e.UnitPrice(ctx, writable...)
	if err != nil {
		return nil, err
	}
	return &instruction.ComputeBudget{UnitLimit: limit, UnitPriceMicroLamports: price}, nil
}

func reduce(strategy Strategy, fees []uint64) uint64 {
	switch strategy {
	case StrategyMax:
		var highest uint64
		for _, f := range fees {
			if f > highest {
				highest = f
			}
		}
		return highest
	case StrategyAverage:
		var sum uint64
		for _, f := range fees {
			sum += f
		}
		return sum / uint64(len(fees))
	default:
		return median(fees)
	}
}

func median(fees []uint64) uint64 {
	sorted := append([]uint64(nil), fees...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2
	}
	return sorted[n/2]
}
