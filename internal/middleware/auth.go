package middleware

import (
	"context"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/auth"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// UserNumberKey is the context key for the authenticated user's number.
	UserNumberKey contextKey = "user_number"
	// UserTypeKey is the context key for the authenticated user's type.
	UserTypeKey contextKey = "user_type"
	// RequestIDKey is the context key for the request id.
	RequestIDKey contextKey = "request_id"
)

// GetUserNumber extracts the authenticated user's number from the context.
// Returns empty string if not found.
func GetUserNumber(ctx context.Context) string {
	number, _ := ctx.Value(UserNumberKey).(string)
	return number
}

// GetUserType extracts the authenticated user's type from the context.
func GetUserType(ctx context.Context) string {
	userType, _ := ctx.Value(UserTypeKey).(string)
	return userType
}

// RequireAuth returns a middleware that validates JWT bearer tokens. Procedures
// listed in public are let through without a token.
func RequireAuth(jwtManager *auth.JWTManager, public ...string) connect.UnaryInterceptorFunc {
	open := make(map[string]bool, len(public))
	for _, p := range public {
		open[p] = true
	}

	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if open[req.Spec().Procedure] {
				return next(ctx, req)
			}

			authHeader := req.Header().Get("Authorization")
			if authHeader == "" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
			}

			// Parse Bearer token
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			claims, err := jwtManager.Validate(parts[1])
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			}

			ctx = context.WithValue(ctx, UserNumberKey, claims.Number())
			ctx = context.WithValue(ctx, UserTypeKey, claims.UserType)
			recordCaller(ctx, claims.Number())
			return next(ctx, req)
		}
	}
}
