package task

import (
	"context"
	"time"

	"marketplace-payments/internal/infra/commitlock"
	"marketplace-payments/internal/logger"

	"github.com/go-co-op/gocron/v2"
)

// LockSweepJob drops expired entries from the in-process commit lock registry.
type LockSweepJob struct {
	sweeper  commitlock.Sweeper
	interval time.Duration
}

func NewLockSweepJob(sweeper commitlock.Sweeper, interval time.Duration) *LockSweepJob {
	return &LockSweepJob{sweeper: sweeper, interval: interval}
}

func (j *LockSweepJob) GetName() string { return "commit_lock_sweep" }

func (j *LockSweepJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *LockSweepJob) Execute() {
	if n := j.sweeper.Sweep(); n > 0 {
		logger.Debug("commit lock sweep removed %d expired entries", n)
	}
}

type staleExpirer interface {
	ExpireStale(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleTransactionJob moves transactions stuck in PROCESSING to ERROR. A
// commit that crashed between the gateway call and the settlement leaves such
// a row behind.
type StaleTransactionJob struct {
	expirer  staleExpirer
	after    time.Duration
	interval time.Duration
	now      func() time.Time
}

func NewStaleTransactionJob(expirer staleExpirer, after, interval time.Duration) *StaleTransactionJob {
	return &StaleTransactionJob{expirer: expirer, after: after, interval: interval, now: time.Now}
}

func (j *StaleTransactionJob) GetName() string { return "stale_transaction_reconciler" }

func (j *StaleTransactionJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *StaleTransactionJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	n, err := j.expirer.ExpireStale(ctx, j.now().Add(-j.after))
	if err != nil {
		logger.Error("stale transaction reconciler: %v", err)
		return
	}
	if n > 0 {
		logger.Warn("stale transaction reconciler moved %d transactions to ERROR", n)
	}
}

type backfiller interface {
	Backfill(ctx context.Context, limit int) (int, error)
}

// DocumentBackfillJob retries document generation for payouts and invoices
// whose first attempt failed.
type DocumentBackfillJob struct {
	docs     backfiller
	interval time.Duration
	batch    int
}

func NewDocumentBackfillJob(docs backfiller, interval time.Duration) *DocumentBackfillJob {
	return &DocumentBackfillJob{docs: docs, interval: interval, batch: 50}
}

func (j *DocumentBackfillJob) GetName() string { return "document_backfill" }

func (j *DocumentBackfillJob) GetSchedule() gocron.JobDefinition {
	return gocron.DurationJob(j.interval)
}

func (j *DocumentBackfillJob) Execute() {
	ctx, cancel := context.WithTimeout(context.Background(), j.interval)
	defer cancel()

	n, err := j.docs.Backfill(ctx, j.batch)
	if err != nil {
		logger.Error("document backfill: %v", err)
		return
	}
	if n > 0 {
		logger.Info("document backfill issued %d documents", n)
	}
}
