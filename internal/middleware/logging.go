package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"
	"github.com/google/uuid"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-Id"

// GetRequestID extracts the request id from the context.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LoggingInterceptor returns a Connect interceptor that logs every RPC call.
// It logs the procedure name, request id, user number, duration, and any error
// codes/messages. The request id comes from the X-Request-Id header or is
// minted, and is echoed back on the response.
//
// Install it outside RequireAuth so rejected calls are logged too; the user
// number is then read from the context after the call.
func LoggingInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			requestID := req.Header().Get(RequestIDHeader)
			if requestID == "" {
				requestID = uuid.NewString()
			}
			ctx = context.WithValue(ctx, RequestIDKey, requestID)
			// The auth interceptor runs inside this one; it records the
			// caller here so it can be logged after the call.
			caller := &callerSlot{}
			ctx = context.WithValue(ctx, callerKey, caller)

			resp, err := next(ctx, req)

			duration := time.Since(start).Milliseconds()
			if err != nil {
				var connectErr *connect.Error
				if errors.As(err, &connectErr) {
					connectErr.Meta().Set(RequestIDHeader, requestID)
					slog.Warn("RPC error",
						"procedure", procedure,
						"request_id", requestID,
						"code", connectErr.Code(),
						"error", connectErr.Message(),
						"user_number", caller.number,
						"duration_ms", duration,
					)
				} else {
					slog.Error("RPC error",
						"procedure", procedure,
						"request_id", requestID,
						"error", err,
						"user_number", caller.number,
						"duration_ms", duration,
					)
				}
			} else {
				resp.Header().Set(RequestIDHeader, requestID)
				slog.Info("RPC ok",
					"procedure", procedure,
					"request_id", requestID,
					"user_number", caller.number,
					"duration_ms", duration,
				)
			}

			return resp, err
		}
	}
}

const callerKey contextKey = "caller"

// callerSlot lets an inner interceptor report the authenticated caller to the
// logging interceptor wrapped around it.
type callerSlot struct {
	number string
}

func recordCaller(ctx context.Context, number string) {
	if slot, ok := ctx.Value(callerKey).(*callerSlot); ok {
		slot.number = number
	}
}
