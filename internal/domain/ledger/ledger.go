// Package ledger serializes balance mutations per account.
//
// Every code path that writes an account balance runs inside
// Coordinator.WithAccount. The coordinator holds the account's lock for the
// whole read-modify-write, so two mutations of the same account never
// interleave while mutations of different accounts run in parallel.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var ErrLockTimeout = errors.New("timed out waiting for account lock")

// Locker grants exclusive access to a key. The returned release function
// must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

var (
	ledgerMeter        = otel.Meter("saldo/ledger")
	lockWaitSeconds, _ = ledgerMeter.Float64Histogram("ledger.lock.wait",
		metric.WithDescription("Time spent waiting for an account lock"),
		metric.WithUnit("s"),
	)
	mutationsTotal, _ = ledgerMeter.Int64Counter("ledger.mutations",
		metric.WithDescription("Balance mutations by operation and outcome"),
	)
)

// Coordinator runs balance mutations under the per-account lock.
type Coordinator struct {
	locker      Locker
	lockTimeout time.Duration
}

// NewCoordinator creates a coordinator. A zero lockTimeout waits as long as
// the caller's context allows.
func NewCoordinator(locker Locker, lockTimeout time.Duration) *Coordinator {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &Coordinator{locker: locker, lockTimeout: lockTimeout}
}

// WithAccount acquires the lock for accountID, runs fn and releases the
// lock. op names the operation for metrics.
func (c *Coordinator) WithAccount(ctx context.Context, op, accountID string, fn func(ctx context.Context) error) error {
	lockCtx := ctx
	if c.lockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, c.lockTimeout)
		defer cancel()
	}

	start := time.Now()
	release, err := c.locker.Lock(lockCtx, accountKey(accountID))
	lockWaitSeconds.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("op", op)))
	if err != nil {
		c.record(ctx, op, "lock_error")
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("account %s: %w", accountID, ErrLockTimeout)
		}
		return fmt.Errorf("failed to lock account %s: %w", accountID, err)
	}
	defer release()

	if err := fn(ctx); err != nil {
		c.record(ctx, op, "rejected")
		return err
	}
	c.record(ctx, op, "ok")
	return nil
}

func (c *Coordinator) record(ctx context.Context, op, outcome string) {
	mutationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("op", op),
		attribute.String("outcome", outcome),
	))
}

func accountKey(accountID string) string {
	return "account:" + accountID
}
