// Package metrics holds the Prometheus collectors for the chit ledger.
// All methods are safe to call on a nil *Metrics, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "chitfund"

// Allocation outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics groups every collector the server exports.
type Metrics struct {
	allocations  *prometheus.CounterVec
	conflicts    prometheus.Counter
	sequence     *prometheus.CounterVec
	chitsCreated prometheus.Counter
	rpcRequests  *prometheus.CounterVec
	rpcDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slot_allocations_total",
			Help:      "Slot allocation attempts by mode (whole, split) and outcome.",
		}, []string{"mode", "outcome"}),
		conflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chit_version_conflicts_total",
			Help:      "Chit saves rejected because another writer got there first.",
		}),
		sequence: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sequence_values_issued_total",
			Help:      "Values issued by each named sequence counter.",
		}, []string{"counter"}),
		chitsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chits_created_total",
			Help:      "Chits created.",
		}),
		rpcRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_requests_total",
			Help:      "RPC calls by procedure and result code.",
		}, []string{"procedure", "code"}),
		rpcDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rpc_duration_seconds",
			Help:      "RPC latency by procedure.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"procedure"}),
	}

	reg.MustRegister(m.allocations, m.conflicts, m.sequence, m.chitsCreated, m.rpcRequests, m.rpcDuration)
	return m
}

// Allocation records one allocation attempt.
func (m *Metrics) Allocation(split bool, outcome string) {
	if m == nil {
		return
	}
	mode := "whole"
	if split {
		mode = "split"
	}
	m.allocations.WithLabelValues(mode, outcome).Inc()
}

// VersionConflict records a rejected optimistic save.
func (m *Metrics) VersionConflict() {
	if m == nil {
		return
	}
	m.conflicts.Inc()
}

// SequenceIssued records a value handed out by the named counter.
func (m *Metrics) SequenceIssued(counter string) {
	if m == nil {
		return
	}
	m.sequence.WithLabelValues(counter).Inc()
}

// ChitCreated records a new chit.
func (m *Metrics) ChitCreated() {
	if m == nil {
		return
	}
	m.chitsCreated.Inc()
}

// RPC records a finished RPC.
func (m *Metrics) RPC(procedure, code string, seconds float64) {
	if m == nil {
		return
	}
	m.rpcRequests.WithLabelValues(procedure, code).Inc()
	m.rpcDuration.WithLabelValues(procedure).Observe(seconds)
}
