package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	"github.com/redis/go-redis/v9"
)

const lockPrefix = "chitfund:lock:"

// LockOptions configures the distributed lock.
type LockOptions struct {
	// Expiry bounds how long a crashed holder keeps the lock.
	Expiry time.Duration
	// Tries is how many acquisition attempts are made before giving up.
	Tries int
	// RetryDelay is the pause between attempts.
	RetryDelay time.Duration
}

// DefaultLockOptions suits allocations, which hold the lock for one
// read-modify-write of a single chit.
func DefaultLockOptions() LockOptions {
	return LockOptions{
		Expiry:     8 * time.Second,
		Tries:      32,
		RetryDelay: 50 * time.Millisecond,
	}
}

// Locker serializes work on a key across processes using redsync.
type Locker struct {
	rs   *redsync.Redsync
	opts LockOptions
}

// NewLocker creates a distributed Locker over client.
func NewLocker(client *redis.Client, opts LockOptions) *Locker {
	return &Locker{
		rs:   redsync.New(goredis.NewPool(client)),
		opts: opts,
	}
}

// WithLock runs fn while holding the lock for key. fn's error is returned
// unchanged; a failure to acquire the lock is wrapped.
func (l *Locker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	mutex := l.rs.NewMutex(
		lockPrefix+key,
		redsync.WithExpiry(l.opts.Expiry),
		redsync.WithTries(l.opts.Tries),
		redsync.WithRetryDelay(l.opts.RetryDelay),
	)

	if err := mutex.LockContext(ctx); err != nil {
		return fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	defer func() {
		// Unlock must run even when ctx is already done.
		unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
		defer cancel()
		if ok, err := mutex.UnlockContext(unlockCtx); !ok || err != nil {
			slog.Warn("Failed to release lock", "lock_key", key, "unlock_ok", ok, "error", err)
		}
	}()

	return fn(ctx)
}
