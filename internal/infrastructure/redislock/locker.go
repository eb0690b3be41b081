// Package redislock implements ledger.Locker on Redis so several API
// instances serialize mutations of the same account.
package redislock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const releaseTimeout = 2 * time.Second

// Options tune the underlying redsync mutex.
type Options struct {
	// Expiry bounds how long a lock survives a crashed holder.
	Expiry     time.Duration
	Tries      int
	RetryDelay time.Duration
	// Prefix namespaces keys in a shared Redis.
	Prefix string
}

func DefaultOptions() Options {
	return Options{
		Expiry:     8 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
		Prefix:     "saldo:lock:",
	}
}

type Locker struct {
	rs     *redsync.Redsync
	opts   Options
	logger zerolog.Logger
}

func New(client redis.UniversalClient, opts Options, logger zerolog.Logger) *Locker {
	def := DefaultOptions()
	if opts.Expiry <= 0 {
		opts.Expiry = def.Expiry
	}
	if opts.Tries <= 0 {
		opts.Tries = def.Tries
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = def.RetryDelay
	}
	if opts.Prefix == "" {
		opts.Prefix = def.Prefix
	}
	return &Locker{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

// Lock blocks until key is held, ctx is done or the retry budget runs out.
// Running out of retries is reported as context.DeadlineExceeded.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(
		l.opts.Prefix+key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if isContention(err) {
			return nil, fmt.Errorf("lock %s: retries exhausted: %w", key, context.DeadlineExceeded)
		}
		return nil, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// The caller's context may already be cancelled.
			ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
			defer cancel()
			if ok, err := mutex.UnlockContext(ctx); !ok || err != nil {
				l.logger.Warn().Err(err).Str("key", key).Bool("unlock_ok", ok).Msg("failed to release lock")
			}
		})
	}, nil
}

// isContention reports whether err means another holder kept the key for
// the whole retry budget.
func isContention(err error) bool {
	if errors.Is(err, redsync.ErrFailed) {
		return true
	}
	var takenPtr *redsync.ErrTaken
	if errors.As(err, &takenPtr) {
		return true
	}
	var taken redsync.ErrTaken
	return errors.As(err, &taken)
}
