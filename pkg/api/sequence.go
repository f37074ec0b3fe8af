package api

import (
	"context"
	"net/http"

	"connectrpc.com/connect"
)

// SequenceServiceName is the fully-qualified name of the SequenceService.
const SequenceServiceName = "chitfund.v1.SequenceService"

const SequenceServiceNextIDProcedure = "/chitfund.v1.SequenceService/NextID"

type NextIDRequest struct {
	Name string `json:"name"`
}

type NextIDResponse struct {
	Value int64 `json:"value"`
}

// SequenceServiceHandler is implemented by the server.
type SequenceServiceHandler interface {
	NextID(context.Context, *connect.Request[NextIDRequest]) (*connect.Response[NextIDResponse], error)
}

// NewSequenceServiceHandler builds an HTTP handler for svc and returns the
// path to mount it on.
func NewSequenceServiceHandler(svc SequenceServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = handlerOptions(opts)
	return "/" + SequenceServiceName + "/", router{
		SequenceServiceNextIDProcedure: connect.NewUnaryHandler(SequenceServiceNextIDProcedure, svc.NextID, opts...),
	}
}

// SequenceServiceClient calls a SequenceService.
type SequenceServiceClient struct {
	nextID *connect.Client[NextIDRequest, NextIDResponse]
}

// NewSequenceServiceClient creates a client for the SequenceService at baseURL.
func NewSequenceServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *SequenceServiceClient {
	return &SequenceServiceClient{
		nextID: connect.NewClient[NextIDRequest, NextIDResponse](httpClient, procedureURL(baseURL, SequenceServiceNextIDProcedure), clientOptions(opts)...),
	}
}

func (c *SequenceServiceClient) NextID(ctx context.Context, req *connect.Request[NextIDRequest]) (*connect.Response[NextIDResponse], error) {
	return c.nextID.CallUnary(ctx, req)
}
