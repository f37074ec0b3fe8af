package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// AuthServiceName is the fully-qualified name of the AuthService.
const AuthServiceName = "chitfund.v1.AuthService"

// AuthService procedures.
const (
	AuthServiceLoginProcedure          = "/chitfund.v1.AuthService/Login"
	AuthServiceUpdatePasswordProcedure = "/chitfund.v1.AuthService/UpdatePassword"
)

type LoginRequest struct {
	Number   string `json:"number"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID        int64  `json:"id"`
	Token     string `json:"token"`
	Number    string `json:"number"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	UserType  string `json:"usertype"`
	IsDefault bool   `json:"isDefault"`
}

type UpdatePasswordRequest struct {
	Number      string `json:"number"`
	Password    string `json:"password"`
	NewPassword string `json:"newPassword"`
}

type UpdatePasswordResponse struct {
	Number  string `json:"number"`
	Message string `json:"message"`
}

// AuthServiceHandler is implemented by the server.
type AuthServiceHandler interface {
	Login(context.Context, *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error)
	UpdatePassword(context.Context, *connect.Request[UpdatePasswordRequest]) (*connect.Response[UpdatePasswordResponse], error)
}

// NewAuthServiceHandler builds an HTTP handler for svc and returns the path
// to mount it on.
func NewAuthServiceHandler(svc AuthServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + AuthServiceName + "/", router{
		AuthServiceLoginProcedure:          connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...),
		AuthServiceUpdatePasswordProcedure: connect.NewUnaryHandler(AuthServiceUpdatePasswordProcedure, svc.UpdatePassword, opts...),
	}
}

// AuthServiceClient calls an AuthService.
type AuthServiceClient struct {
	login          *connect.Client[LoginRequest, LoginResponse]
	updatePassword *connect.Client[UpdatePasswordRequest, UpdatePasswordResponse]
}

// NewAuthServiceClient creates a client for the AuthService at baseURL.
func NewAuthServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *AuthServiceClient {
	opts = clientOptions(opts)
	return &AuthServiceClient{
		login:          connect.NewClient[LoginRequest, LoginResponse](httpClient, procedureURL(baseURL, AuthServiceLoginProcedure), opts...),
		updatePassword: connect.NewClient[UpdatePasswordRequest, UpdatePasswordResponse](httpClient, procedureURL(baseURL, AuthServiceUpdatePasswordProcedure), opts...),
	}
}

func (c *AuthServiceClient) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	return c.login.CallUnary(ctx, req)
}

func (c *AuthServiceClient) UpdatePassword(ctx context.Context, req *connect.Request[UpdatePasswordRequest]) (*connect.Response[UpdatePasswordResponse], error) {
	return c.updatePassword.CallUnary(ctx, req)
}
