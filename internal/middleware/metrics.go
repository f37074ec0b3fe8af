package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/metrics"
)

// MetricsInterceptor counts RPCs by procedure and result code and records
// their latency.
func MetricsInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			resp, err := next(ctx, req)

			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
			}
			m.RPC(req.Spec().Procedure, code, time.Since(start).Seconds())
			return resp, err
		}
	}
}
