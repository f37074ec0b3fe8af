package middleware

import (
	"context"
	"time"

	"connectrpc.com/connect"
)

// TimeoutInterceptor bounds each RPC, and every store call it makes, by d.
// A tighter deadline already on the context is kept.
func TimeoutInterceptor(d time.Duration) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			return next(ctx, req)
		}
	}
}
