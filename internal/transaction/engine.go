// internal/transaction/engine.go
package transaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
)

// Engine drives transactions through simulate, sign, send and confirm. It
// holds no per-submission state, so one engine serves concurrent submissions.
type Engine struct {
	client   blockchain.Client
	logger   *zap.Logger
	cfg      Config
	observer Observer
	metrics  *Metrics
}

type Option func(*Engine)

func WithObserver(o Observer) Option {
	return func(e *Engine) { e.observer = o }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(client blockchain.Client, logger *zap.Logger, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		client: client,
		logger: logger.Named("tx-engine"),
		cfg:    cfg.withDefaults(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Request is one pipeline run.
type Request struct {
	Instructions   []instruction.Descriptor
	Payer          solana.PublicKey
	Signers        []Signer
	SkipSimulation bool
	// Watch lists accounts whose post-state is captured by simulation and
	// fetched again once the transaction is confirmed.
	Watch []solana.PublicKey
}

// Execute runs the full pipeline from a fresh block reference. The returned
// error is nil only for a confirmed result with every watched account fetched.
func (e *Engine) Execute(ctx context.Context, req Request) (Result, error) {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("correlation_id", runID))
	start := time.Now()

	res, err := e.run(ctx, log, runID, req)
	if err == nil && res.Outcome == OutcomeExpired && e.cfg.ReassembleOnExpiry && ctx.Err() == nil {
		log.Info("Block reference expired, reassembling once",
			zap.Stringer("signature", res.Signature))
		res, err = e.run(ctx, log, runID, req)
	}
	if err != nil {
		return res, err
	}

	e.metrics.trackOutcome(res.Outcome, start)
	if res.Outcome != OutcomeConfirmed {
		return res, res.Err()
	}
	if len(req.Watch) > 0 {
		accounts, owners, err := e.fetch(ctx, req.Watch)
		res.Accounts = accounts
		res.Owners = owners
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

func (e *Engine) run(ctx context.Context, log *zap.Logger, runID string, req Request) (Result, error) {
	ref, err := e.client.GetRecentBlockReference(ctx)
	if err != nil {
		e.emit(runID, StageFailed, solana.Signature{}, OutcomeUnknown, err.Error())
		return Result{}, fmt.Errorf("failed to get recent block reference: %w", err)
	}

	env, err := Assemble(req.Instructions, req.Payer, ref)
	if err != nil {
		e.emit(runID, StageFailed, solana.Signature{}, OutcomeUnknown, err.Error())
		return Result{}, err
	}
	e.emit(runID, StageBuilt, solana.Signature{}, OutcomeUnknown,
		fmt.Sprintf("%d instructions, %d signers", len(req.Instructions), len(env.signers)))

	var units uint64
	if !req.SkipSimulation && !e.cfg.SkipSimulation {
		out, err := e.Simulate(ctx, env, req.Watch...)
		var subErr *SubmissionError
		if errors.As(err, &subErr) && subErr.Outcome == OutcomeSimulationRejected {
			log.Warn("Simulation rejected",
				zap.String("error", subErr.Message),
				zap.Strings("logs", subErr.Logs))
			res := Result{
				Outcome:       OutcomeSimulationRejected,
				Message:       subErr.Message,
				Logs:          subErr.Logs,
				UnitsConsumed: out.UnitsConsumed,
			}
			e.emit(runID, StageFailed, solana.Signature{}, res.Outcome, res.Message)
			return res, nil
		}
		if err != nil {
			e.emit(runID, StageFailed, solana.Signature{}, OutcomeUnknown, err.Error())
			return Result{}, err
		}
		units = out.UnitsConsumed
		e.emit(runID, StageSimulated, solana.Signature{}, OutcomeUnknown,
			fmt.Sprintf("%d compute units", units))
	}

	signed, err := Sign(env, req.Signers...)
	if err != nil {
		e.emit(runID, StageFailed, solana.Signature{}, OutcomeUnknown, err.Error())
		return Result{}, err
	}
	e.emit(runID, StageSigned, signed.Signature(), OutcomeUnknown, "")

	res := e.submit(ctx, log, runID, signed)
	res.UnitsConsumed = units
	return res, nil
}

// Simulate dry-runs env without signatures. A node-side rejection is returned
// as a *SubmissionError with outcome OutcomeSimulationRejected alongside the
// outcome itself.
func (e *Engine) Simulate(ctx context.Context, env *Envelope, watch ...solana.PublicKey) (*blockchain.SimulationOutcome, error) {
	out, err := e.client.Simulate(ctx, env.simulationTransaction(), watch...)
	if err != nil {
		return nil, fmt.Errorf("simulate transaction: %w", err)
	}
	if out.Failed() {
		return out, &SubmissionError{
			Outcome: OutcomeSimulationRejected,
			Message: describe(out.Err),
			Logs:    out.Logs,
		}
	}
	return out, nil
}

// Sign is Sign bound to the engine for callers driving stages one at a time.
func (e *Engine) Sign(env *Envelope, signers ...Signer) (*SignedEnvelope, error) {
	return Sign(env, signers...)
}

// Submit broadcasts signed and waits for a terminal outcome. It never
// re-signs: an Expired result must be rebuilt from a fresh block reference.
func (e *Engine) Submit(ctx context.Context, signed *SignedEnvelope) Result {
	runID := uuid.NewString()
	return e.submit(ctx, e.logger.With(zap.String("correlation_id", runID)), runID, signed)
}

func (e *Engine) submit(ctx context.Context, log *zap.Logger, runID string, signed *SignedEnvelope) Result {
	sig := signed.Signature()
	ref := signed.Envelope().BlockReference()
	log = log.With(zap.Stringer("signature", sig))

	if height, err := e.client.GetBlockHeight(ctx); err != nil {
		log.Debug("Block height unavailable before send", zap.Error(err))
	} else if ref.Expired(height) {
		return e.finish(log, runID, Result{
			Outcome:   OutcomeExpired,
			Signature: sig,
			Message:   fmt.Sprintf("block height %d is past last valid height %d", height, ref.LastValidBlockHeight),
		})
	}

	if res, ok := e.send(ctx, log, signed); !ok {
		return e.finish(log, runID, res)
	}
	e.emit(runID, StageSent, sig, OutcomeUnknown, "")
	log.Debug("Transaction sent")

	return e.finish(log, runID, e.await(ctx, log, sig, ref))
}

// send broadcasts the signed bytes, retrying only transient failures. Sending
// identical bytes again cannot double-apply the transaction, and a node that
// reports them as already processed counts as a successful broadcast.
func (e *Engine) send(ctx context.Context, log *zap.Logger, signed *SignedEnvelope) (Result, bool) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.SendInitialInterval

	op := func() (solana.Signature, error) {
		sig, err := e.client.Send(ctx, signed.Transaction())
		if err == nil {
			return sig, nil
		}
		if errors.Is(err, blockchain.ErrAlreadyProcessed) {
			// an earlier attempt landed; confirmation decides the outcome
			log.Info("Transaction already processed by node", zap.Error(err))
			return signed.Signature(), nil
		}
		if blockchain.IsTransient(err) {
			return sig, err
		}
		return sig, backoff.Permanent(err)
	}
	_, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(e.cfg.SendAttempts)),
		backoff.WithMaxElapsedTime(e.cfg.PollTimeout),
		backoff.WithNotify(func(err error, next time.Duration) {
			e.metrics.trackSendRetry()
			log.Warn("Retrying transaction send", zap.Duration("next", next), zap.Error(err))
		}),
	)
	if err == nil {
		return Result{}, true
	}
	return classifySendError(ctx, signed.Signature(), err), false
}

func classifySendError(ctx context.Context, sig solana.Signature, err error) Result {
	res := Result{Signature: sig, Cause: err}
	var remote *blockchain.RemoteError
	if errors.As(err, &remote) {
		res.Code = remote.Code
		res.Message = remote.Message
		res.Logs = remote.Logs
	}

	switch {
	case ctx.Err() != nil:
		// The request may have reached a node before cancellation.
		res.Outcome = OutcomeTimeout
		res.Cause = context.Cause(ctx)
	case errors.Is(err, blockchain.ErrBlockhashNotFound):
		res.Outcome = OutcomeExpired
	case blockchain.IsTransient(err):
		res.Outcome = OutcomeTimeout
	default:
		res.Outcome = OutcomeRemoteError
		if res.Message == "" {
			res.Message = err.Error()
		}
	}
	return res
}

// Await polls for sig alone, for transactions submitted elsewhere such as
// faucet airdrops. A zero LastValidBlockHeight in ref disables expiry.
func (e *Engine) Await(ctx context.Context, sig solana.Signature, ref blockchain.BlockReference) Result {
	runID := uuid.NewString()
	log := e.logger.With(zap.String("correlation_id", runID), zap.Stringer("signature", sig))
	return e.finish(log, runID, e.await(ctx, log, sig, ref))
}

func (e *Engine) finish(log *zap.Logger, runID string, res Result) Result {
	if res.Outcome == OutcomeConfirmed {
		log.Info("Transaction confirmed", zap.Uint64("slot", res.Slot))
		e.emit(runID, StageConfirmed, res.Signature, res.Outcome, fmt.Sprintf("slot %d", res.Slot))
		return res
	}
	log.Warn("Transaction not confirmed",
		zap.Stringer("outcome", res.Outcome),
		zap.Int("code", res.Code),
		zap.String("message", res.Message),
		zap.Strings("logs", res.Logs),
		zap.NamedError("cause", res.Cause))
	e.emit(runID, StageFailed, res.Signature, res.Outcome, res.Message)
	return res
}

func (e *Engine) fetch(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey][]byte, map[solana.PublicKey]solana.PublicKey, error) {
	data := make(map[solana.PublicKey][]byte, len(addresses))
	owners := make(map[solana.PublicKey]solana.PublicKey, len(addresses))
	for _, addr := range addresses {
		acc, err := e.client.GetAccount(ctx, addr)
		if err != nil {
			return data, owners, fmt.Errorf("fetch %s after confirmation: %w", addr, err)
		}
		data[addr] = acc.Data
		owners[addr] = acc.Owner
	}
	return data, owners, nil
}

func (e *Engine) emit(runID string, stage Stage, sig solana.Signature, outcome Outcome, detail string) {
	if e.observer == nil {
		return
	}
	e.observer.OnStage(StageEvent{
		RunID:     runID,
		Stage:     stage,
		Signature: sig,
		Outcome:   outcome,
		Detail:    detail,
		At:        time.Now(),
	})
}
