package service

import (
	"context"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/sequence"
	"github.com/mmynk/chitfund/pkg/api"
)

// SequenceService exposes the named counters.
type SequenceService struct {
	counter *sequence.Counter
}

var _ api.SequenceServiceHandler = (*SequenceService)(nil)

// NewSequenceService creates a SequenceService over counter.
func NewSequenceService(counter *sequence.Counter) *SequenceService {
	return &SequenceService{counter: counter}
}

// NextID issues the next value of the named counter.
func (s *SequenceService) NextID(ctx context.Context, req *connect.Request[api.NextIDRequest]) (*connect.Response[api.NextIDResponse], error) {
	value, err := s.counter.Next(ctx, req.Msg.Name)
	if err != nil {
		return nil, toConnectError("NextID", err)
	}
	return connect.NewResponse(&api.NextIDResponse{Value: value}), nil
}
