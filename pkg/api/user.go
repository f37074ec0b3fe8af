package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// UserServiceName is the fully-qualified name of the UserService.
const UserServiceName = "chitfund.v1.UserService"

// UserService procedures.
const (
	UserServiceAddUserProcedure        = "/chitfund.v1.UserService/AddUser"
	UserServiceListUsersProcedure      = "/chitfund.v1.UserService/ListUsers"
	UserServiceCountUsersProcedure     = "/chitfund.v1.UserService/CountUsers"
	UserServiceDeleteUserProcedure     = "/chitfund.v1.UserService/DeleteUser"
	UserServiceDeleteAllUsersProcedure = "/chitfund.v1.UserService/DeleteAllUsers"
	UserServiceCheckUserProcedure      = "/chitfund.v1.UserService/CheckUser"
)

// User is a registered member. The password hash never leaves the server.
type User struct {
	ID        int64  `json:"id"`
	Number    string `json:"number"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	UserType  string `json:"usertype"`
	IsDefault bool   `json:"isDefault"`
}

type AddUserRequest struct {
	Number    string `json:"number"`
	FirstName string `json:"firstname"`
	LastName  string `json:"lastname"`
	UserType  string `json:"usertype"`
}

type AddUserResponse struct {
	ID int64 `json:"id"`
}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type UserNumberRequest struct {
	Number string `json:"number"`
}

type CheckUserResponse struct {
	Available bool `json:"available"`
}

// UserServiceHandler is implemented by the server.
type UserServiceHandler interface {
	AddUser(context.Context, *connect.Request[AddUserRequest]) (*connect.Response[AddUserResponse], error)
	ListUsers(context.Context, *connect.Request[Empty]) (*connect.Response[ListUsersResponse], error)
	CountUsers(context.Context, *connect.Request[Empty]) (*connect.Response[CountResponse], error)
	DeleteUser(context.Context, *connect.Request[UserNumberRequest]) (*connect.Response[MessageResponse], error)
	DeleteAllUsers(context.Context, *connect.Request[Empty]) (*connect.Response[MessageResponse], error)
	CheckUser(context.Context, *connect.Request[UserNumberRequest]) (*connect.Response[CheckUserResponse], error)
}

// NewUserServiceHandler builds an HTTP handler for svc and returns the path
// to mount it on.
func NewUserServiceHandler(svc UserServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + UserServiceName + "/", router{
		UserServiceAddUserProcedure:        connect.NewUnaryHandler(UserServiceAddUserProcedure, svc.AddUser, opts...),
		UserServiceListUsersProcedure:      connect.NewUnaryHandler(UserServiceListUsersProcedure, svc.ListUsers, opts...),
		UserServiceCountUsersProcedure:     connect.NewUnaryHandler(UserServiceCountUsersProcedure, svc.CountUsers, opts...),
		UserServiceDeleteUserProcedure:     connect.NewUnaryHandler(UserServiceDeleteUserProcedure, svc.DeleteUser, opts...),
		UserServiceDeleteAllUsersProcedure: connect.NewUnaryHandler(UserServiceDeleteAllUsersProcedure, svc.DeleteAllUsers, opts...),
		UserServiceCheckUserProcedure:      connect.NewUnaryHandler(UserServiceCheckUserProcedure, svc.CheckUser, opts...),
	}
}

// UserServiceClient calls a UserService.
type UserServiceClient struct {
	addUser        *connect.Client[AddUserRequest, AddUserResponse]
	listUsers      *connect.Client[Empty, ListUsersResponse]
	countUsers     *connect.Client[Empty, CountResponse]
	deleteUser     *connect.Client[UserNumberRequest, MessageResponse]
	deleteAllUsers *connect.Client[Empty, MessageResponse]
	checkUser      *connect.Client[UserNumberRequest, CheckUserResponse]
}

// NewUserServiceClient creates a client for the UserService at baseURL.
func NewUserServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *UserServiceClient {
	opts = clientOptions(opts)
	return &UserServiceClient{
		addUser:        connect.NewClient[AddUserRequest, AddUserResponse](httpClient, procedureURL(baseURL, UserServiceAddUserProcedure), opts...),
		listUsers:      connect.NewClient[Empty, ListUsersResponse](httpClient, procedureURL(baseURL, UserServiceListUsersProcedure), opts...),
		countUsers:     connect.NewClient[Empty, CountResponse](httpClient, procedureURL(baseURL, UserServiceCountUsersProcedure), opts...),
		deleteUser:     connect.NewClient[UserNumberRequest, MessageResponse](httpClient, procedureURL(baseURL, UserServiceDeleteUserProcedure), opts...),
		deleteAllUsers: connect.NewClient[Empty, MessageResponse](httpClient, procedureURL(baseURL, UserServiceDeleteAllUsersProcedure), opts...),
		checkUser:      connect.NewClient[UserNumberRequest, CheckUserResponse](httpClient, procedureURL(baseURL, UserServiceCheckUserProcedure), opts...),
	}
}

func (c *UserServiceClient) AddUser(ctx context.Context, req *connect.Request[AddUserRequest]) (*connect.Response[AddUserResponse], error) {
	return c.addUser.CallUnary(ctx, req)
}

func (c *UserServiceClient) ListUsers(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListUsersResponse], error) {
	return c.listUsers.CallUnary(ctx, req)
}

func (c *UserServiceClient) CountUsers(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CountResponse], error) {
	return c.countUsers.CallUnary(ctx, req)
}

func (c *UserServiceClient) DeleteUser(ctx context.Context, req *connect.Request[UserNumberRequest]) (*connect.Response[MessageResponse], error) {
	return c.deleteUser.CallUnary(ctx, req)
}

func (c *UserServiceClient) DeleteAllUsers(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[MessageResponse], error) {
	return c.deleteAllUsers.CallUnary(ctx, req)
}

func (c *UserServiceClient) CheckUser(ctx context.Context, req *connect.Request[UserNumberRequest]) (*connect.Response[CheckUserResponse], error) {
	return c.checkUser.CallUnary(ctx, req)
}
