// internal/transaction/confirm.go
package transaction

import (
	"context"
	"errors"
	"fmt"

	"github.com/cenkalti/backoff/v5"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/blockchain"
)

var errPending = errors.New("transaction not yet confirmed")

func (e *Engine) pollBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.cfg.PollInitialInterval
	b.MaxInterval = e.cfg.PollMaxInterval
	b.Multiplier = e.cfg.PollMultiplier
	return b
}

// await polls the signature status until it reaches the configured commitment,
// fails on chain, outlives its block reference, or the poll budget runs out.
// Every wait selects on ctx.
func (e *Engine) await(ctx context.Context, log *zap.Logger, sig solana.Signature, ref blockchain.BlockReference) Result {
	var (
		final *Result
		last  blockchain.SignatureStatus
	)

	poll := func() (struct{}, error) {
		e.metrics.trackPoll()
		status, err := e.client.Confirm(ctx, sig, e.cfg.Commitment)
		if err != nil {
			if ctx.Err() != nil {
				return struct{}{}, backoff.Permanent(ctx.Err())
			}
			log.Warn("Confirmation check failed", zap.Error(err))
			return struct{}{}, errPending
		}
		last = status

		switch {
		case status.Found && status.Err != nil:
			final = &Result{
				Outcome:   OutcomeRemoteError,
				Signature: sig,
				Slot:      status.Slot,
				Message:   describe(status.Err),
				Logs:      e.transactionLogs(ctx, log, sig),
			}
			return struct{}{}, backoff.Permanent(ErrRemote)
		case status.Satisfies(e.cfg.Commitment):
			final = &Result{Outcome: OutcomeConfirmed, Signature: sig, Slot: status.Slot}
			return struct{}{}, nil
		case !status.Found:
			if height, expired := e.pastValidity(ctx, sig, ref); expired {
				final = &Result{
					Outcome:   OutcomeExpired,
					Signature: sig,
					Message:   fmt.Sprintf("block height %d is past last valid height %d", height, ref.LastValidBlockHeight),
				}
				return struct{}{}, backoff.Permanent(ErrExpired)
			}
		}
		return struct{}{}, errPending
	}

	_, err := backoff.Retry(ctx, poll,
		backoff.WithBackOff(e.pollBackOff()),
		backoff.WithMaxTries(uint(e.cfg.PollAttempts)),
		backoff.WithMaxElapsedTime(e.cfg.PollTimeout),
	)
	if final != nil {
		return *final
	}

	res := Result{Outcome: OutcomeTimeout, Signature: sig, Slot: last.Slot, Cause: err}
	if ctx.Err() != nil {
		res.Cause = context.Cause(ctx)
	}
	if last.Found {
		res.Message = fmt.Sprintf("last seen at %s commitment", last.Level)
	}
	return res
}

// transactionLogs fetches the node's execution logs for a failed transaction,
// if the client can read them.
func (e *Engine) transactionLogs(ctx context.Context, log *zap.Logger, sig solana.Signature) []string {
	reader, ok := e.client.(blockchain.LogReader)
	if !ok {
		return nil
	}
	logs, err := reader.GetTransactionLogs(ctx, sig)
	if err != nil {
		log.Debug("Transaction logs unavailable", zap.Error(err))
		return nil
	}
	return logs
}

// pastValidity reports whether the chain has moved past ref while sig is still
// unknown. The status is probed once more after the height check since the
// transaction may have landed in the last valid block.
func (e *Engine) pastValidity(ctx context.Context, sig solana.Signature, ref blockchain.BlockReference) (uint64, bool) {
	if ref.LastValidBlockHeight == 0 {
		return 0, false
	}
	height, err := e.client.GetBlockHeight(ctx)
	if err != nil || !ref.Expired(height) {
		return height, false
	}
	status, err := e.client.Confirm(ctx, sig, e.cfg.Commitment)
	return height, err == nil && !status.Found
}
