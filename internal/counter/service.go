// internal/counter/service.go
package counter

import (
	"context"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/account"
	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/fees"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
)

var ErrInsufficientBalance = errors.New("insufficient balance")

// Service runs counter operations through the submission engine.
type Service struct {
	engine     *transaction.Engine
	client     blockchain.Client
	program    Program
	logger     *zap.Logger
	balance    blockchain.BalanceReader
	minBalance uint64
}

type ServiceOption func(*Service)

// WithBalanceCheck makes Initialize refuse payers holding less than minLamports.
func WithBalanceCheck(reader blockchain.BalanceReader, minLamports uint64) ServiceOption {
	return func(s *Service) {
		s.balance = reader
		s.minBalance = minLamports
	}
}

func NewService(engine *transaction.Engine, client blockchain.Client, program Program, logger *zap.Logger, opts ...ServiceOption) *Service {
	s := &Service{
		engine:  engine,
		client:  client,
		program: program,
		logger:  logger.Named("counter"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Program() Program {
	return s.program
}

// InitializeResult holds the new counter address and its state after creation.
type InitializeResult struct {
	Counter solana.PublicKey
	Result  transaction.Result
	State   *account.View[Counter]
}

// Initialize creates a counter under a freshly generated keypair, which
// co-signs with payer.
func (s *Service) Initialize(ctx context.Context, payer transaction.Signer, budget *instruction.ComputeBudget) (*InitializeResult, error) {
	if err := s.checkBalance(ctx, payer.PublicKey()); err != nil {
		return nil, err
	}

	counterKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate counter keypair: %w", err)
	}
	addr := counterKey.PublicKey()
	log := s.logger.With(zap.Stringer("counter", addr))

	ixs, err := s.program.Initialize(addr, payer.PublicKey(), budget)
	if err != nil {
		return nil, err
	}
	log.Info("Initializing counter",
		zap.Stringer("payer", payer.PublicKey()),
		zap.Uint64("estimated_fee", instruction.EstimateFee(2, budget)))

	res, err := s.engine.Execute(ctx, transaction.Request{
		Instructions: ixs,
		Payer:        payer.PublicKey(),
		Signers:      []transaction.Signer{payer, transaction.NewKeypairSigner(counterKey)},
		Watch:        []solana.PublicKey{addr},
	})
	out := &InitializeResult{Counter: addr, Result: res}
	if err != nil {
		return out, err
	}
	out.State, err = s.decode(addr, res)
	return out, err
}

type IncrementOptions struct {
	Budget *instruction.ComputeBudget
	// AutoUnits sizes the unit limit from a simulation at the maximum limit.
	AutoUnits bool
}

type IncrementResult struct {
	Result       transaction.Result
	Count        int64
	UnitLimit    uint32
	EstimatedFee uint64
}

// Increment adds one to counterAddr and returns the confirmed count.
func (s *Service) Increment(ctx context.Context, payer transaction.Signer, counterAddr solana.PublicKey, opts IncrementOptions) (*IncrementResult, error) {
	log := s.logger.With(zap.Stringer("counter", counterAddr))
	budget := opts.Budget

	if opts.AutoUnits {
		var price uint64
		if budget != nil {
			price = budget.UnitPriceMicroLamports
		}
		units, err := s.sizeUnits(ctx, payer.PublicKey(), counterAddr, price)
		if err != nil {
			return nil, err
		}
		budget = &instruction.ComputeBudget{UnitLimit: units, UnitPriceMicroLamports: price}
	}

	ixs, err := s.program.Increment(counterAddr, budget)
	if err != nil {
		return nil, err
	}
	out := &IncrementResult{EstimatedFee: instruction.EstimateFee(1, budget)}
	if budget != nil {
		out.UnitLimit = budget.UnitLimit
	}
	log.Info("Incrementing counter",
		zap.Uint32("unit_limit", out.UnitLimit),
		zap.Uint64("estimated_fee", out.EstimatedFee))

	res, err := s.engine.Execute(ctx, transaction.Request{
		Instructions: ixs,
		Payer:        payer.PublicKey(),
		Signers:      []transaction.Signer{payer},
		Watch:        []solana.PublicKey{counterAddr},
	})
	out.Result = res
	if err != nil {
		return out, err
	}

	view, err := s.decode(counterAddr, res)
	if err != nil {
		return out, err
	}
	out.Count = view.Value.Count
	log.Info("Counter incremented", zap.Int64("count", out.Count), zap.Stringer("signature", res.Signature))
	return out, nil
}

// Fetch reads the current counter state.
func (s *Service) Fetch(ctx context.Context, counterAddr solana.PublicKey) (*account.View[Counter], error) {
	return account.Fetch[Counter](ctx, s.client, counterAddr, s.program.Schema())
}

func (s *Service) sizeUnits(ctx context.Context, payer, counterAddr solana.PublicKey, price uint64) (uint32, error) {
	ixs, err := s.program.Increment(counterAddr, &instruction.ComputeBudget{
		UnitLimit:              fees.MaxUnitLimit,
		UnitPriceMicroLamports: price,
	})
	if err != nil {
		return 0, err
	}
	ref, err := s.client.GetRecentBlockReference(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get recent block reference: %w", err)
	}
	env, err := transaction.Assemble(ixs, payer, ref)
	if err != nil {
		return 0, err
	}
	sim, err := s.engine.Simulate(ctx, env)
	if err != nil {
		return 0, fmt.Errorf("size compute units: %w", err)
	}
	units := fees.UnitsFromSimulation(sim.UnitsConsumed)
	s.logger.Debug("Sized compute units",
		zap.Uint64("consumed", sim.UnitsConsumed),
		zap.Uint32("unit_limit", units))
	return units, nil
}

func (s *Service) decode(addr solana.PublicKey, res transaction.Result) (*account.View[Counter], error) {
	raw, ok := res.Accounts[addr]
	if !ok {
		return nil, fmt.Errorf("counter %s was not fetched after confirmation", addr)
	}
	schema := s.program.Schema()
	if err := schema.CheckOwner(addr, res.Owners[addr]); err != nil {
		return nil, err
	}
	view, err := account.Decode[Counter](schema, raw)
	if err != nil {
		return nil, err
	}
	view.Address = addr
	view.Slot = res.Slot
	return view, nil
}

func (s *Service) checkBalance(ctx context.Context, owner solana.PublicKey) error {
	if s.balance == nil || s.minBalance == 0 {
		return nil
	}
	lamports, err := s.balance.GetBalance(ctx, owner)
	if err != nil {
		return fmt.Errorf("failed to get balance: %w", err)
	}
	s.logger.Debug("Payer balance", zap.String("sol", fees.LamportsToSOL(lamports).String()))
	if lamports < s.minBalance {
		return fmt.Errorf("%w: %s SOL, need at least %s SOL", ErrInsufficientBalance,
			fees.LamportsToSOL(lamports), fees.LamportsToSOL(s.minBalance))
	}
	return nil
}
