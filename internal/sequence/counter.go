// Package sequence issues identifiers from named, atomically incremented
// counters. The counter value lives in the store; nothing is generated in
// process memory, so any number of server instances can share a counter.
package sequence

import (
	"context"
	"log/slog"
	"strings"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/storage"
)

// Counter names used by the server.
const (
	ChitSequence = "chit"
	UserSequence = "user"
)

// Counter hands out values from named counters.
type Counter struct {
	store   storage.SequenceStore
	metrics *metrics.Metrics
}

// NewCounter creates a Counter backed by store. m may be nil.
func NewCounter(store storage.SequenceStore, m *metrics.Metrics) *Counter {
	return &Counter{store: store, metrics: m}
}

// Next increments the named counter and returns the new value. The first
// value of a new counter is 1. Values are never handed out twice, but a value
// whose caller later fails is simply skipped.
func (c *Counter) Next(ctx context.Context, name string) (int64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return 0, apperr.InvalidArgument(apperr.CodeCounterNameRequired)
	}

	value, err := c.store.NextSequence(ctx, name)
	if err != nil {
		slog.Error("Sequence increment failed", "counter", name, "error", err)
		return 0, apperr.StorageFailure(err)
	}

	c.metrics.SequenceIssued(name)
	slog.Debug("Sequence value issued", "counter", name, "value", value)
	return value, nil
}
