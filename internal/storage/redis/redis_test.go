package redis

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := Connect(context.Background(), mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestNextSequence(t *testing.T) {
	mr, client := setupTestRedis(t)
	seq := NewSequences(client)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := seq.NextSequence(ctx, "chit")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.NextSequence(ctx, "user")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	stored, err := mr.Get(sequencePrefix + "chit")
	require.NoError(t, err)
	assert.Equal(t, "3", stored)
}

func TestNextSequenceConcurrent(t *testing.T) {
	_, client := setupTestRedis(t)
	seq := NewSequences(client)

	const callers = 50
	values := make(chan int64, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := seq.NextSequence(context.Background(), "chit")
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		assert.False(t, seen[v], "value %d issued twice", v)
		seen[v] = true
	}
	for v := int64(1); v <= callers; v++ {
		assert.True(t, seen[v], "value %d never issued", v)
	}
}

func TestEnsureAtLeast(t *testing.T) {
	_, client := setupTestRedis(t)
	seq := NewSequences(client)
	ctx := context.Background()

	got, err := seq.EnsureAtLeast(ctx, "chit", 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got)

	next, err := seq.NextSequence(ctx, "chit")
	require.NoError(t, err)
	assert.Equal(t, int64(8), next, "issued ids continue above the floor")

	got, err = seq.EnsureAtLeast(ctx, "chit", 3)
	require.NoError(t, err)
	assert.Equal(t, int64(8), got, "a lower floor never winds the counter back")

	next, err = seq.NextSequence(ctx, "chit")
	require.NoError(t, err)
	assert.Equal(t, int64(9), next)
}

func TestNextSequenceServerDown(t *testing.T) {
	mr, client := setupTestRedis(t)
	mr.Close()

	_, err := NewSequences(client).NextSequence(context.Background(), "chit")
	assert.Error(t, err)
}

func TestConnectFails(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := Connect(ctx, "127.0.0.1:1")
	assert.Error(t, err)
}

func TestLockerSerializes(t *testing.T) {
	_, client := setupTestRedis(t)
	opts := LockOptions{Expiry: 2 * time.Second, Tries: 200, RetryDelay: 5 * time.Millisecond}
	// Two lockers stand in for two server instances.
	lockers := []*Locker{NewLocker(client, opts), NewLocker(client, opts)}

	var inFlight, maxInFlight, runs atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(l *Locker) {
			defer wg.Done()
			err := l.WithLock(context.Background(), "chit:january", func(context.Context) error {
				n := inFlight.Add(1)
				if n > maxInFlight.Load() {
					maxInFlight.Store(n)
				}
				time.Sleep(2 * time.Millisecond)
				inFlight.Add(-1)
				runs.Add(1)
				return nil
			})
			assert.NoError(t, err)
		}(lockers[i%2])
	}
	wg.Wait()

	assert.Equal(t, int32(10), runs.Load())
	assert.Equal(t, int32(1), maxInFlight.Load())
}

func TestLockerReleasesAndPassesErrorThrough(t *testing.T) {
	mr, client := setupTestRedis(t)
	l := NewLocker(client, DefaultLockOptions())
	ctx := context.Background()
	errBoom := errors.New("boom")

	err := l.WithLock(ctx, "chit:a", func(context.Context) error { return errBoom })
	assert.Same(t, errBoom, err)
	assert.False(t, mr.Exists(lockPrefix+"chit:a"))

	// Released, so it can be taken again immediately.
	require.NoError(t, l.WithLock(ctx, "chit:a", func(context.Context) error { return nil }))
}

func TestLockerGivesUpWhenHeld(t *testing.T) {
	mr, client := setupTestRedis(t)
	require.NoError(t, mr.Set(lockPrefix+"chit:a", "someone-else"))

	l := NewLocker(client, LockOptions{Expiry: time.Second, Tries: 2, RetryDelay: time.Millisecond})
	called := false
	err := l.WithLock(context.Background(), "chit:a", func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}
