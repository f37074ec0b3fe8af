package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/auth"
	"github.com/mmynk/chitfund/internal/users"
	"github.com/mmynk/chitfund/pkg/api"
)

// UserService implements the Connect UserService.
type UserService struct {
	authenticator auth.Authenticator
	directory     *users.Directory
}

var _ api.UserServiceHandler = (*UserService)(nil)

// NewUserService creates a UserService. New users are registered through
// authenticator so they get an initial credential.
func NewUserService(authenticator auth.Authenticator, directory *users.Directory) *UserService {
	return &UserService{authenticator: authenticator, directory: directory}
}

// AddUser registers a member with the default password.
func (s *UserService) AddUser(ctx context.Context, req *connect.Request[api.AddUserRequest]) (*connect.Response[api.AddUserResponse], error) {
	slog.Info("AddUser request received", "user_number", req.Msg.Number, "user_type", req.Msg.UserType)

	user, err := s.authenticator.Register(ctx, auth.UserSpec{
		Number:    req.Msg.Number,
		FirstName: req.Msg.FirstName,
		LastName:  req.Msg.LastName,
		UserType:  req.Msg.UserType,
	})
	if err != nil {
		return nil, toConnectError("AddUser", err)
	}
	return connect.NewResponse(&api.AddUserResponse{ID: user.ID}), nil
}

// ListUsers returns every user. An empty store is reported as NotFound.
func (s *UserService) ListUsers(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.ListUsersResponse], error) {
	list, err := s.directory.List(ctx)
	if err != nil {
		return nil, toConnectError("ListUsers", err)
	}
	if len(list) == 0 {
		return nil, toConnectError("ListUsers", apperr.NotFound(apperr.CodeUserEmpty))
	}

	out := make([]api.User, len(list))
	for i, u := range list {
		out[i] = api.User{
			ID:        u.ID,
			Number:    u.Number,
			FirstName: u.FirstName,
			LastName:  u.LastName,
			UserType:  u.UserType,
			IsDefault: u.IsDefault,
		}
	}
	return connect.NewResponse(&api.ListUsersResponse{Users: out}), nil
}

// CountUsers returns the number of users.
func (s *UserService) CountUsers(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.CountResponse], error) {
	n, err := s.directory.Count(ctx)
	if err != nil {
		return nil, toConnectError("CountUsers", err)
	}
	return connect.NewResponse(&api.CountResponse{Count: n}), nil
}

// DeleteUser removes a user by number.
func (s *UserService) DeleteUser(ctx context.Context, req *connect.Request[api.UserNumberRequest]) (*connect.Response[api.MessageResponse], error) {
	slog.Info("DeleteUser request received", "user_number", req.Msg.Number)

	if err := s.directory.Delete(ctx, req.Msg.Number); err != nil {
		return nil, toConnectError("DeleteUser", err)
	}
	return connect.NewResponse(&api.MessageResponse{Message: "Deleted successfully"}), nil
}

// DeleteAllUsers removes every user.
func (s *UserService) DeleteAllUsers(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.MessageResponse], error) {
	slog.Info("DeleteAllUsers request received")

	if err := s.directory.DeleteAll(ctx); err != nil {
		return nil, toConnectError("DeleteAllUsers", err)
	}
	return connect.NewResponse(&api.MessageResponse{Message: "Deleted all user records"}), nil
}

// CheckUser reports AlreadyExists when the number is taken.
func (s *UserService) CheckUser(ctx context.Context, req *connect.Request[api.UserNumberRequest]) (*connect.Response[api.CheckUserResponse], error) {
	if err := s.directory.CheckAvailable(ctx, req.Msg.Number); err != nil {
		return nil, toConnectError("CheckUser", err)
	}
	return connect.NewResponse(&api.CheckUserResponse{Available: true}), nil
}
