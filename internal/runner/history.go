// internal/runner/history.go
package runner

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/solana-counter/internal/export"
	"github.com/rovshanmuradov/solana-counter/internal/storage"
)

const historyWriteTimeout = 5 * time.Second

// remember stores rec when history is enabled. Runs that ended through
// cancellation are stored too.
func (r *Runner) remember(ctx context.Context, payer solana.PublicKey, rec export.Record) {
	if r.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), historyWriteTimeout)
	defer cancel()
	if err := r.history.SaveSubmission(ctx, storage.FromRecord(payer.String(), rec)); err != nil {
		r.logger.Warn("Failed to record submission",
			zap.String("operation", rec.Operation),
			zap.String("signature", rec.Signature),
			zap.Error(err))
	}
}

// History returns recorded submissions, newest first. An empty payer lists
// every payer.
func (r *Runner) History(ctx context.Context, payer string, limit int) ([]export.Record, error) {
	if r.history == nil {
		return nil, nil
	}
	subs, err := r.history.ListSubmissions(ctx, payer, limit, 0)
	if err != nil {
		return nil, err
	}
	records := make([]export.Record, len(subs))
	for i, s := range subs {
		records[i] = storage.ToRecord(s)
	}
	return records, nil
}
