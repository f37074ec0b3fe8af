package ledger

import (
	"context"
	"sync"
)

// Locker serializes work on a key. Allocation holds the lock for a chit for the
// whole read-modify-write, so writers in the same process never race on it.
type Locker interface {
	WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error
}

// KeyedLocker is an in-process Locker with one lock per key. Waiting for a
// lock gives up when ctx is done. Idle keys are dropped.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyedLock
}

type keyedLock struct {
	ch   chan struct{}
	refs int
}

// NewKeyedLocker creates an empty KeyedLocker.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyedLock)}
}

// WithLock runs fn while holding the lock for key.
func (l *KeyedLocker) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	kl := l.ref(key)
	defer l.unref(key, kl)

	select {
	case kl.ch <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-kl.ch }()

	return fn(ctx)
}

func (l *KeyedLocker) ref(key string) *keyedLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyedLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *KeyedLocker) unref(key string, kl *keyedLock) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl.refs--
	if kl.refs == 0 {
		delete(l.locks, key)
	}
}

// size reports how many keys are currently tracked.
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func lockKey(chitName string) string {
	return "chit:" + chitName
}
