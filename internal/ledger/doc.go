// Package ledger implements the chit slot ledger: creating chits with their
// slot layout (Chits) and linking users to slots while keeping the chit's
// balance consistent (Engine).
//
// Allocation is a read-modify-write over the whole chit. Two mechanisms keep
// concurrent allocations against one chit from losing updates:
//
//  1. a per-chit Locker held for the duration of the read-modify-write
//     (in-process by default, Redis-backed across instances), and
//  2. an optimistic version check on save, retried with exponential backoff.
//
// The lock prevents most conflicts; the version check catches the rest
// (lock expiry, writers that bypass the lock).
package ledger

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/mmynk/chitfund/internal/ledger"

// endSpan records err on span and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
