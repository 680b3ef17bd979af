// internal/runner/runner.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/account"
	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/blockchain/solbc"
	"github.com/rovshanmuradov/solana-counter/internal/config"
	"github.com/rovshanmuradov/solana-counter/internal/counter"
	"github.com/rovshanmuradov/solana-counter/internal/export"
	"github.com/rovshanmuradov/solana-counter/internal/fees"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
	"github.com/rovshanmuradov/solana-counter/internal/logger"
	"github.com/rovshanmuradov/solana-counter/internal/storage"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
	"github.com/rovshanmuradov/solana-counter/internal/wallet"
)

// Cluster is everything the runner needs from a node.
type Cluster interface {
	blockchain.Client
	blockchain.Faucet
	blockchain.BalanceReader
	blockchain.FeeSampler
}

// Runner wires config into the engine and runs the toolkit's operations.
type Runner struct {
	logger     *zap.Logger
	config     *config.Config
	cluster    Cluster
	program    counter.Program
	metrics    *transaction.Metrics
	estimator  *fees.Estimator
	history    storage.Storage
	minBalance uint64
}

type Option func(*Runner)

// WithHistory records every finished submission in s.
func WithHistory(s storage.Storage) Option {
	return func(r *Runner) { r.history = s }
}

// NewRunner: принимает cfg, logger и кластер. reg may be nil.
func NewRunner(cfg *config.Config, logger *zap.Logger, cluster Cluster, reg prometheus.Registerer, opts ...Option) (*Runner, error) {
	programID := counter.DefaultProgramID
	if cfg.ProgramID != "" {
		id, err := solana.PublicKeyFromBase58(cfg.ProgramID)
		if err != nil {
			return nil, fmt.Errorf("invalid program_id: %w", err)
		}
		programID = id
	}

	minBalance, err := fees.ParseSOL(cfg.MinBalanceSOL)
	if err != nil {
		return nil, fmt.Errorf("invalid min_balance_sol: %w", err)
	}

	estimator, err := fees.NewEstimator(cluster, fees.Strategy(cfg.ComputeBudget.FeeStrategy), cfg.ComputeBudget.MaxUnitPrice, logger)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		logger:     logger.Named("runner"),
		config:     cfg,
		cluster:    cluster,
		program:    counter.NewProgram(programID, cfg.Counter.IncrementMethod),
		estimator:  estimator,
		minBalance: minBalance,
	}
	if reg != nil {
		r.metrics = transaction.NewMetrics(reg)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Dial builds a runner on top of the configured RPC endpoints.
func Dial(cfg *config.Config, logger *zap.Logger, reg prometheus.Registerer, opts ...Option) (*Runner, error) {
	client, err := solbc.NewClient(cfg.RPCList, solbc.Options{
		Commitment:     rpc.CommitmentType(cfg.Commitment),
		SkipPreflight:  cfg.Submission.SkipPreflight,
		RateLimit:      cfg.RPCRateLimit,
		Attempts:       cfg.RPCAttempts,
		RequestTimeout: cfg.RPCTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}
	return NewRunner(cfg, logger, client, reg, opts...)
}

// TxConfig maps submission settings onto the engine.
func TxConfig(cfg *config.Config) transaction.Config {
	s := cfg.Submission
	return transaction.Config{
		Commitment:          rpc.CommitmentType(cfg.Commitment),
		SkipSimulation:      s.SkipSimulation,
		ReassembleOnExpiry:  s.ReassembleOnExpiry,
		SendAttempts:        s.SendAttempts,
		SendInitialInterval: s.SendInterval,
		PollInitialInterval: s.PollInterval,
		PollMaxInterval:     s.PollMaxInterval,
		PollMultiplier:      s.PollMultiplier,
		PollAttempts:        s.PollAttempts,
		PollTimeout:         s.Timeout,
	}
}

// engine returns an engine reporting stages to observer. Metrics are shared.
func (r *Runner) engine(observer transaction.Observer) *transaction.Engine {
	opts := []transaction.Option{transaction.WithMetrics(r.metrics)}
	if observer != nil {
		opts = append(opts, transaction.WithObserver(observer))
	}
	return transaction.NewEngine(r.cluster, r.logger, TxConfig(r.config), opts...)
}

func (r *Runner) service(observer transaction.Observer) *counter.Service {
	return counter.NewService(r.engine(observer), r.cluster, r.program, r.logger,
		counter.WithBalanceCheck(r.cluster, r.minBalance))
}

// Program returns the bound counter program.
func (r *Runner) Program() counter.Program {
	return r.program
}

// Budget resolves a priority level into a compute budget. Auto prices units
// from recent fees on the given accounts.
func (r *Runner) Budget(ctx context.Context, level fees.PriorityLevel, writable ...solana.PublicKey) (*instruction.ComputeBudget, error) {
	switch level {
	case fees.PriorityAuto:
		limit := r.config.ComputeBudget.UnitLimit
		if limit == 0 {
			limit = 200_000
		}
		return r.estimator.Budget(ctx, limit, writable...)
	case fees.PriorityNone:
		cb := r.config.ComputeBudget
		if cb.UnitLimit == 0 && cb.UnitPrice == 0 {
			return nil, nil
		}
		return &instruction.ComputeBudget{UnitLimit: cb.UnitLimit, UnitPriceMicroLamports: cb.UnitPrice}, nil
	default:
		return fees.Profile(level)
	}
}

// UnitPrice returns the current estimate for the given accounts.
func (r *Runner) UnitPrice(ctx context.Context, writable ...solana.PublicKey) (uint64, error) {
	return r.estimator.UnitPrice(ctx, writable...)
}

// Balance returns owner's balance in lamports.
func (r *Runner) Balance(ctx context.Context, owner solana.PublicKey) (uint64, error) {
	return r.cluster.GetBalance(ctx, owner)
}

// Airdrop requests lamports from the faucet and waits until the airdrop is
// confirmed. It returns the balance afterwards.
func (r *Runner) Airdrop(ctx context.Context, to solana.PublicKey, lamports uint64, observer transaction.Observer) (transaction.Result, uint64, error) {
	if lamports == 0 {
		amount, err := fees.ParseSOL(r.config.AirdropSOL)
		if err != nil {
			return transaction.Result{}, 0, fmt.Errorf("invalid airdrop_sol: %w", err)
		}
		lamports = amount
	}
	r.logger.Info("Requesting airdrop",
		zap.Stringer("to", to),
		zap.String("sol", fees.LamportsToSOL(lamports).String()))

	started := time.Now()
	sig, err := r.cluster.RequestAirdrop(ctx, to, lamports)
	if err != nil {
		return transaction.Result{}, 0, fmt.Errorf("airdrop request failed: %w", err)
	}
	res := r.engine(observer).Await(ctx, sig, blockchain.BlockReference{})
	r.remember(ctx, to, export.FromResult("faucet", "airdrop", res, started, time.Since(started)))
	if err := res.Err(); err != nil {
		return res, 0, err
	}
	balance, err := r.cluster.GetBalance(ctx, to)
	return res, balance, err
}

// Initialize creates a counter owned by payer.
func (r *Runner) Initialize(ctx context.Context, payer *wallet.Wallet, level fees.PriorityLevel, observer transaction.Observer) (*counter.InitializeResult, error) {
	budget, err := r.Budget(ctx, level, payer.PublicKey)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	created, err := r.service(observer).Initialize(ctx, payer.Signer(), budget)
	if created != nil {
		rec := export.FromResult(created.Counter.String(), "initialize", created.Result, started, time.Since(started))
		if created.State != nil {
			rec = rec.WithCount(created.State.Value.Count)
		}
		r.remember(ctx, payer.PublicKey, rec)
	}
	return created, err
}

// Increment bumps the counter at addr.
func (r *Runner) Increment(ctx context.Context, payer *wallet.Wallet, addr solana.PublicKey, level fees.PriorityLevel, autoUnits bool, observer transaction.Observer) (*counter.IncrementResult, error) {
	budget, err := r.Budget(ctx, level, addr)
	if err != nil {
		return nil, err
	}
	started := time.Now()
	res, err := r.increment(ctx, r.service(observer), payer, addr, budget, autoUnits)
	if res != nil {
		r.remember(ctx, payer.PublicKey, record(BatchJob{Label: addr.String(), Payer: payer, Target: addr}, res, err, started))
	}
	return res, err
}

func (r *Runner) increment(ctx context.Context, svc *counter.Service, payer *wallet.Wallet, addr solana.PublicKey, budget *instruction.ComputeBudget, autoUnits bool) (*counter.IncrementResult, error) {
	return svc.Increment(ctx, payer.Signer(), addr, counter.IncrementOptions{
		Budget:    budget,
		AutoUnits: autoUnits,
	})
}

// Transfer sends lamports from sender to recipient through the engine.
func (r *Runner) Transfer(ctx context.Context, sender *wallet.Wallet, recipient solana.PublicKey, lamports uint64, level fees.PriorityLevel, observer transaction.Observer) (transaction.Result, error) {
	budget, err := r.Budget(ctx, level, sender.PublicKey, recipient)
	if err != nil {
		return transaction.Result{}, err
	}
	ixs, err := sender.TransferInstructions(recipient, lamports, budget)
	if err != nil {
		return transaction.Result{}, err
	}
	r.logger.Info("Transferring SOL",
		zap.Stringer("from", sender.PublicKey),
		zap.Stringer("to", recipient),
		zap.String("sol", fees.LamportsToSOL(lamports).String()))

	started := time.Now()
	res, err := r.engine(observer).Execute(ctx, transaction.Request{
		Instructions: ixs,
		Payer:        sender.PublicKey,
		Signers:      []transaction.Signer{sender.Signer()},
	})
	r.remember(ctx, sender.PublicKey, export.FromResult(recipient.String(), "transfer", res, started, time.Since(started)))
	return res, err
}

// Fetch decodes the counter at addr.
func (r *Runner) Fetch(ctx context.Context, addr solana.PublicKey) (*account.View[counter.Counter], error) {
	return r.service(nil).Fetch(ctx, addr)
}

// CounterAddress resolves arg or falls back to the configured counter.
func (r *Runner) CounterAddress(arg string) (solana.PublicKey, error) {
	if arg == "" {
		arg = r.config.Counter.Address
	}
	if arg == "" {
		return solana.PublicKey{}, errors.New("counter address is required")
	}
	addr, err := solana.PublicKeyFromBase58(arg)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid counter address: %w", err)
	}
	return addr, nil
}

// ServeMetrics exposes gatherer on addr until ctx is done.
func ServeMetrics(ctx context.Context, addr string, gatherer prometheus.Gatherer, logger *zap.Logger) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	go func() {
		logger.Info("Serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("Metrics server stopped", zap.Error(err))
		}
	}()
}

// Shutdown flushes the logger.
func Shutdown(log *logger.Logger) {
	log.Debug("Shutting down")
	if err := log.Sync(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "failed to sync logger during shutdown: %v\n", err)
	}
}
