// internal/runner/batch.go
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rovshanmuradov/solana-counter/internal/counter"
	"github.com/rovshanmuradov/solana-counter/internal/export"
	"github.com/rovshanmuradov/solana-counter/internal/fees"
	"github.com/rovshanmuradov/solana-counter/internal/instruction"
	"github.com/rovshanmuradov/solana-counter/internal/transaction"
	"github.com/rovshanmuradov/solana-counter/internal/wallet"
)

// BatchJob is one increment of a batch.
type BatchJob struct {
	Label  string
	Payer  *wallet.Wallet
	Target solana.PublicKey
}

// BatchOptions controls a batch run.
type BatchOptions struct {
	Priority  fees.PriorityLevel
	AutoUnits bool
	// Workers bounds in-flight submissions; zero uses counter.batch_workers.
	Workers int
}

// Jobs spreads n increments of target over payers, round-robin.
func Jobs(n int, target solana.PublicKey, payers map[string]*wallet.Wallet) []BatchJob {
	names := sortedNames(payers)
	jobs := make([]BatchJob, 0, n)
	for i := 0; i < n && len(names) > 0; i++ {
		name := names[i%len(names)]
		jobs = append(jobs, BatchJob{
			Label:  fmt.Sprintf("%s#%d", name, i+1),
			Payer:  payers[name],
			Target: target,
		})
	}
	return jobs
}

// Batch runs jobs concurrently. A failed job is recorded and does not stop
// the others; the error is non-nil only if the batch could not start or ctx
// was cancelled.
func (r *Runner) Batch(ctx context.Context, jobs []BatchJob, opts BatchOptions, observer transaction.Observer) ([]export.Record, error) {
	if len(jobs) == 0 {
		return nil, errors.New("batch has no jobs")
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = r.config.Counter.BatchWorkers
	}
	if workers <= 0 {
		workers = 1
	}

	base, err := r.Budget(ctx, opts.Priority, jobs[0].Target)
	if err != nil {
		return nil, err
	}

	r.logger.Info(fmt.Sprintf("🚀 Starting batch of %d increments with %d workers", len(jobs), workers))

	svc := r.service(observer)
	records := make([]export.Record, len(jobs))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		g.Go(func() error {
			log := r.logger.With(zap.String("job", job.Label), zap.Stringer("payer", job.Payer.PublicKey))
			started := time.Now()

			res, err := r.increment(gCtx, svc, job.Payer, job.Target, distinctBudget(base, i), opts.AutoUnits)
			records[i] = record(job, res, err, started)
			r.remember(gCtx, job.Payer.PublicKey, records[i])
			if err != nil {
				log.Warn("Batch increment failed", zap.Error(err))
			}
			// отмена контекста останавливает весь батч
			return ctx.Err()
		})
	}
	waitErr := g.Wait()

	summary := export.Summarize(records)
	r.logger.Info("✅ Batch finished",
		zap.Int("total", summary.Total),
		zap.Int("confirmed", summary.Confirmed),
		zap.Float64("success_rate", summary.SuccessRate))
	return records, waitErr
}

// distinctBudget nudges the unit price per job so identical increments from
// one payer under one block reference still get distinct signatures.
func distinctBudget(base *instruction.ComputeBudget, i int) *instruction.ComputeBudget {
	b := instruction.ComputeBudget{UnitLimit: 200_000}
	if base != nil {
		b = *base
	}
	b.UnitPriceMicroLamports += uint64(i) + 1
	return &b
}

func record(job BatchJob, res *counter.IncrementResult, err error, started time.Time) export.Record {
	var result transaction.Result
	if res != nil {
		result = res.Result
	}
	rec := export.FromResult(job.Label, "increment", result, started, time.Since(started))
	if err != nil && rec.Message == "" {
		rec.Message = err.Error()
	}
	if err == nil && res != nil {
		rec = rec.WithCount(res.Count)
	}
	return rec
}

func sortedNames(payers map[string]*wallet.Wallet) []string {
	names := make([]string, 0, len(payers))
	for name := range payers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
