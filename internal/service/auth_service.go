package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/middleware"
	"github.com/mmynk/chitfund/pkg/api"
)

var errNotYourAccount = errors.New("cannot change another user's password")

// AuthService implements the AuthService RPC interface.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
}

var _ api.AuthServiceHandler = (*AuthService)(nil)

// NewAuthService creates a new authentication service.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
	}
}

// Login authenticates a user and returns a JWT token.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[api.LoginRequest]) (*connect.Response[api.LoginResponse], error) {
	slog.Info("Login request", "user_number", req.Msg.Number)

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Number, req.Msg.Password)
	if err != nil {
		return nil, toConnectError("Login", err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		slog.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, errors.New("internal error"))
	}

	slog.Info("User logged in successfully", "user_id", user.ID, "user_number", user.Number)
	return connect.NewResponse(&api.LoginResponse{
		ID:        user.ID,
		Token:     token,
		Number:    user.Number,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		UserType:  user.UserType,
		IsDefault: user.IsDefault,
	}), nil
}

// UpdatePassword changes the caller's own password.
func (s *AuthService) UpdatePassword(ctx context.Context, req *connect.Request[api.UpdatePasswordRequest]) (*connect.Response[api.UpdatePasswordResponse], error) {
	number := strings.TrimSpace(req.Msg.Number)
	slog.Info("UpdatePassword request", "user_number", number)

	if caller := middleware.GetUserNumber(ctx); caller != "" && caller != number {
		return nil, connect.NewError(connect.CodePermissionDenied, errNotYourAccount)
	}

	user, err := s.authenticator.UpdateCredential(ctx, number, req.Msg.Password, req.Msg.NewPassword)
	if err != nil {
		return nil, toConnectError("UpdatePassword", err)
	}
	return connect.NewResponse(&api.UpdatePasswordResponse{
		Number:  user.Number,
		Message: "Password updated successfully",
	}), nil
}
