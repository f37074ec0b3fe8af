package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// ChitServiceName is the fully-qualified name of the ChitService.
const ChitServiceName = "chitfund.v1.ChitService"

// ChitService procedures.
const (
	ChitServiceCreateChitProcedure     = "/chitfund.v1.ChitService/CreateChit"
	ChitServiceListChitsProcedure      = "/chitfund.v1.ChitService/ListChits"
	ChitServiceGetChitProcedure        = "/chitfund.v1.ChitService/GetChit"
	ChitServiceCountChitsProcedure     = "/chitfund.v1.ChitService/CountChits"
	ChitServiceDeleteChitProcedure     = "/chitfund.v1.ChitService/DeleteChit"
	ChitServiceDeleteAllChitsProcedure = "/chitfund.v1.ChitService/DeleteAllChits"
	ChitServiceLinkUserProcedure       = "/chitfund.v1.ChitService/LinkUser"
)

// Chit is a chit fund with its slot ledger.
type Chit struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	TotalAmount       int64  `json:"totalAmount"`
	Tenure            int64  `json:"tenure"`
	InstallmentAmount int64  `json:"installmentAmount"`
	StartDate         string `json:"startDate"`
	EndDate           string `json:"endDate"`
	BalanceAmount     int64  `json:"balanceAmount"`
	Slots             []Slot `json:"slots"`
}

// Slot is one installment-sized claim on a chit.
type Slot struct {
	SlotID          int64     `json:"slotId"`
	SlotAmount      int64     `json:"slotAmount"`
	RemainingAmount int64     `json:"remainingAmount"`
	Split           bool      `json:"split"`
	AssignedUser    string    `json:"assignedUser,omitempty"`
	SubSlots        []SubSlot `json:"subSlots,omitempty"`
}

// SubSlot records one share of a split slot.
type SubSlot struct {
	SubSlotID  int64  `json:"subSlotId"`
	SlotAmount int64  `json:"slotAmount"`
	UserNumber string `json:"userNumber"`
}

// CreateChitRequest carries the new chit's details. Amounts are numeric strings.
type CreateChitRequest struct {
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	Tenure      string `json:"tenure"`
	Installment string `json:"installment"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
}

type CreateChitResponse struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

type ListChitsResponse struct {
	Chits []Chit `json:"chits"`
}

type GetChitRequest struct {
	Name string `json:"name"`
}

// SlotUsage summarizes how far a chit's slots have been taken up.
type SlotUsage struct {
	Open     int `json:"open"`
	Filled   int `json:"filled"`
	Split    int `json:"split"`
	SubSlots int `json:"subSlots"`
}

type GetChitResponse struct {
	Chit            Chit      `json:"chit"`
	AllocatedAmount int64     `json:"allocatedAmount"`
	Usage           SlotUsage `json:"usage"`
}

type DeleteChitRequest struct {
	Name string `json:"name"`
}

// LinkUserRequest links a user to one slot of a chit.
type LinkUserRequest struct {
	ChitName       string `json:"chitName"`
	UserNumber     string `json:"userNumber"`
	Slot           int64  `json:"slot"`
	RequiredAmount int64  `json:"requiredAmount"`
	Split          bool   `json:"split"`
}

type LinkUserResponse struct {
	ID            int64  `json:"id"`
	Message       string `json:"message"`
	BalanceAmount int64  `json:"balanceAmount"`
}

// ChitServiceHandler is implemented by the server.
type ChitServiceHandler interface {
	CreateChit(context.Context, *connect.Request[CreateChitRequest]) (*connect.Response[CreateChitResponse], error)
	ListChits(context.Context, *connect.Request[Empty]) (*connect.Response[ListChitsResponse], error)
	GetChit(context.Context, *connect.Request[GetChitRequest]) (*connect.Response[GetChitResponse], error)
	CountChits(context.Context, *connect.Request[Empty]) (*connect.Response[CountResponse], error)
	DeleteChit(context.Context, *connect.Request[DeleteChitRequest]) (*connect.Response[MessageResponse], error)
	DeleteAllChits(context.Context, *connect.Request[Empty]) (*connect.Response[MessageResponse], error)
	LinkUser(context.Context, *connect.Request[LinkUserRequest]) (*connect.Response[LinkUserResponse], error)
}

// NewChitServiceHandler builds an HTTP handler for svc and returns the path
// to mount it on.
func NewChitServiceHandler(svc ChitServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + ChitServiceName + "/", router{
		ChitServiceCreateChitProcedure:     connect.NewUnaryHandler(ChitServiceCreateChitProcedure, svc.CreateChit, opts...),
		ChitServiceListChitsProcedure:      connect.NewUnaryHandler(ChitServiceListChitsProcedure, svc.ListChits, opts...),
		ChitServiceGetChitProcedure:        connect.NewUnaryHandler(ChitServiceGetChitProcedure, svc.GetChit, opts...),
		ChitServiceCountChitsProcedure:     connect.NewUnaryHandler(ChitServiceCountChitsProcedure, svc.CountChits, opts...),
		ChitServiceDeleteChitProcedure:     connect.NewUnaryHandler(ChitServiceDeleteChitProcedure, svc.DeleteChit, opts...),
		ChitServiceDeleteAllChitsProcedure: connect.NewUnaryHandler(ChitServiceDeleteAllChitsProcedure, svc.DeleteAllChits, opts...),
		ChitServiceLinkUserProcedure:       connect.NewUnaryHandler(ChitServiceLinkUserProcedure, svc.LinkUser, opts...),
	}
}

// ChitServiceClient calls a ChitService.
type ChitServiceClient struct {
	createChit     *connect.Client[CreateChitRequest, CreateChitResponse]
	listChits      *connect.Client[Empty, ListChitsResponse]
	getChit        *connect.Client[GetChitRequest, GetChitResponse]
	countChits     *connect.Client[Empty, CountResponse]
	deleteChit     *connect.Client[DeleteChitRequest, MessageResponse]
	deleteAllChits *connect.Client[Empty, MessageResponse]
	linkUser       *connect.Client[LinkUserRequest, LinkUserResponse]
}

// NewChitServiceClient creates a client for the ChitService at baseURL.
func NewChitServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *ChitServiceClient {
	opts = clientOptions(opts)
	return &ChitServiceClient{
		createChit:     connect.NewClient[CreateChitRequest, CreateChitResponse](httpClient, procedureURL(baseURL, ChitServiceCreateChitProcedure), opts...),
		listChits:      connect.NewClient[Empty, ListChitsResponse](httpClient, procedureURL(baseURL, ChitServiceListChitsProcedure), opts...),
		getChit:        connect.NewClient[GetChitRequest, GetChitResponse](httpClient, procedureURL(baseURL, ChitServiceGetChitProcedure), opts...),
		countChits:     connect.NewClient[Empty, CountResponse](httpClient, procedureURL(baseURL, ChitServiceCountChitsProcedure), opts...),
		deleteChit:     connect.NewClient[DeleteChitRequest, MessageResponse](httpClient, procedureURL(baseURL, ChitServiceDeleteChitProcedure), opts...),
		deleteAllChits: connect.NewClient[Empty, MessageResponse](httpClient, procedureURL(baseURL, ChitServiceDeleteAllChitsProcedure), opts...),
		linkUser:       connect.NewClient[LinkUserRequest, LinkUserResponse](httpClient, procedureURL(baseURL, ChitServiceLinkUserProcedure), opts...),
	}
}

func (c *ChitServiceClient) CreateChit(ctx context.Context, req *connect.Request[CreateChitRequest]) (*connect.Response[CreateChitResponse], error) {
	return c.createChit.CallUnary(ctx, req)
}

func (c *ChitServiceClient) ListChits(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[ListChitsResponse], error) {
	return c.listChits.CallUnary(ctx, req)
}

func (c *ChitServiceClient) GetChit(ctx context.Context, req *connect.Request[GetChitRequest]) (*connect.Response[GetChitResponse], error) {
	return c.getChit.CallUnary(ctx, req)
}

func (c *ChitServiceClient) CountChits(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[CountResponse], error) {
	return c.countChits.CallUnary(ctx, req)
}

func (c *ChitServiceClient) DeleteChit(ctx context.Context, req *connect.Request[DeleteChitRequest]) (*connect.Response[MessageResponse], error) {
	return c.deleteChit.CallUnary(ctx, req)
}

func (c *ChitServiceClient) DeleteAllChits(ctx context.Context, req *connect.Request[Empty]) (*connect.Response[MessageResponse], error) {
	return c.deleteAllChits.CallUnary(ctx, req)
}

func (c *ChitServiceClient) LinkUser(ctx context.Context, req *connect.Request[LinkUserRequest]) (*connect.Response[LinkUserResponse], error) {
	return c.linkUser.CallUnary(ctx, req)
}
