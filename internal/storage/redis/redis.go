// Package redis provides Redis-backed sequence counters and a distributed
// per-key lock, for running several server instances against one store.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mmynk/chitfund/internal/storage"
)

const sequencePrefix = "chitfund:seq:"

// Ensure Sequences implements storage.SequenceStore
var _ storage.SequenceStore = (*Sequences)(nil)

// Connect opens a client for addr and checks that the server answers.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

// Sequences keeps named counters as Redis integers. INCR is atomic on the
// server, so values are unique across every client.
type Sequences struct {
	client *redis.Client
}

// NewSequences creates a counter store over client.
func NewSequences(client *redis.Client) *Sequences {
	return &Sequences{client: client}
}

// NextSequence increments the named counter. A missing key counts from zero,
// so the first value is 1.
func (s *Sequences) NextSequence(ctx context.Context, name string) (int64, error) {
	value, err := s.client.Incr(ctx, sequencePrefix+name).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment sequence %q: %w", name, err)
	}
	return value, nil
}

// raiseScript sets the counter to ARGV[1] when it is missing or lower.
var raiseScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
local floor = tonumber(ARGV[1])
if current < floor then
	redis.call('SET', KEYS[1], floor)
	return floor
end
return current
`)

// EnsureAtLeast raises the named counter to floor if it is lower, so the next
// value handed out is above every ID already stored. It never lowers a counter.
func (s *Sequences) EnsureAtLeast(ctx context.Context, name string, floor int64) (int64, error) {
	value, err := raiseScript.Run(ctx, s.client, []string{sequencePrefix + name}, floor).Int64()
	if err != nil {
		return 0, fmt.Errorf("failed to raise sequence %q: %w", name, err)
	}
	return value, nil
}
