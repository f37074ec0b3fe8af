package service

import (
	"context"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/ledger"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/pkg/api"
)

// ChitService implements the Connect ChitService.
type ChitService struct {
	chits  *ledger.Chits
	engine *ledger.Engine
}

var _ api.ChitServiceHandler = (*ChitService)(nil)

// NewChitService creates a ChitService over the chit lifecycle and the
// allocation engine.
func NewChitService(chits *ledger.Chits, engine *ledger.Engine) *ChitService {
	return &ChitService{chits: chits, engine: engine}
}

// CreateChit creates a chit and lays out its slots.
func (s *ChitService) CreateChit(ctx context.Context, req *connect.Request[api.CreateChitRequest]) (*connect.Response[api.CreateChitResponse], error) {
	slog.Info("CreateChit request received",
		"chit_name", req.Msg.Name,
		"amount", req.Msg.Amount,
		"installment", req.Msg.Installment,
	)

	chit, err := s.chits.Create(ctx, ledger.ChitSpec{
		Name:        req.Msg.Name,
		Amount:      req.Msg.Amount,
		Tenure:      req.Msg.Tenure,
		Installment: req.Msg.Installment,
		StartDate:   req.Msg.StartDate,
		EndDate:     req.Msg.EndDate,
	})
	if err != nil {
		return nil, toConnectError("CreateChit", err)
	}

	return connect.NewResponse(&api.CreateChitResponse{
		ID:      chit.ID,
		Message: "Chit created successfully",
	}), nil
}

// ListChits returns every chit. An empty store is reported as NotFound.
func (s *ChitService) ListChits(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.ListChitsResponse], error) {
	chits, err := s.chits.List(ctx)
	if err != nil {
		return nil, toConnectError("ListChits", err)
	}
	if len(chits) == 0 {
		return nil, toConnectError("ListChits", apperr.NotFound(apperr.CodeChitEmpty))
	}

	out := make([]api.Chit, len(chits))
	for i, chit := range chits {
		out[i] = toAPIChit(chit)
	}

	slog.Info("ListChits successful", "count", len(out))
	return connect.NewResponse(&api.ListChitsResponse{Chits: out}), nil
}

// GetChit returns one chit with its allocation summary.
func (s *ChitService) GetChit(ctx context.Context, req *connect.Request[api.GetChitRequest]) (*connect.Response[api.GetChitResponse], error) {
	chit, err := s.chits.Get(ctx, req.Msg.Name)
	if err != nil {
		return nil, toConnectError("GetChit", err)
	}

	usage := calculator.Summarize(chit)
	return connect.NewResponse(&api.GetChitResponse{
		Chit:            toAPIChit(chit),
		AllocatedAmount: usage.Allocated,
		Usage: api.SlotUsage{
			Open:     usage.Open,
			Filled:   usage.Filled,
			Split:    usage.Split,
			SubSlots: usage.SubSlots,
		},
	}), nil
}

// CountChits returns the number of chits.
func (s *ChitService) CountChits(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.CountResponse], error) {
	n, err := s.chits.Count(ctx)
	if err != nil {
		return nil, toConnectError("CountChits", err)
	}
	return connect.NewResponse(&api.CountResponse{Count: n}), nil
}

// DeleteChit removes a chit by name.
func (s *ChitService) DeleteChit(ctx context.Context, req *connect.Request[api.DeleteChitRequest]) (*connect.Response[api.MessageResponse], error) {
	slog.Info("DeleteChit request received", "chit_name", req.Msg.Name)

	if err := s.chits.DeleteByName(ctx, req.Msg.Name); err != nil {
		return nil, toConnectError("DeleteChit", err)
	}
	return connect.NewResponse(&api.MessageResponse{Message: "Deleted successfully"}), nil
}

// DeleteAllChits removes every chit.
func (s *ChitService) DeleteAllChits(ctx context.Context, req *connect.Request[api.Empty]) (*connect.Response[api.MessageResponse], error) {
	slog.Info("DeleteAllChits request received")

	if err := s.chits.DeleteAll(ctx); err != nil {
		return nil, toConnectError("DeleteAllChits", err)
	}
	return connect.NewResponse(&api.MessageResponse{Message: "Deleted all chit records"}), nil
}

// LinkUser allocates a slot of a chit to a user.
func (s *ChitService) LinkUser(ctx context.Context, req *connect.Request[api.LinkUserRequest]) (*connect.Response[api.LinkUserResponse], error) {
	slog.Info("LinkUser request received",
		"chit_name", req.Msg.ChitName,
		"slot_id", req.Msg.Slot,
		"user_number", req.Msg.UserNumber,
		"required_amount", req.Msg.RequiredAmount,
		"split", req.Msg.Split,
	)

	chit, err := s.engine.Allocate(ctx, ledger.Allocation{
		ChitName:       req.Msg.ChitName,
		SlotID:         req.Msg.Slot,
		UserNumber:     req.Msg.UserNumber,
		RequiredAmount: req.Msg.RequiredAmount,
		Split:          req.Msg.Split,
	})
	if err != nil {
		return nil, toConnectError("LinkUser", err)
	}

	return connect.NewResponse(&api.LinkUserResponse{
		ID:            chit.ID,
		Message:       "User linked successfully",
		BalanceAmount: chit.BalanceAmount,
	}), nil
}

func toAPIChit(chit *models.Chit) api.Chit {
	out := api.Chit{
		ID:                chit.ID,
		Name:              chit.Name,
		TotalAmount:       chit.TotalAmount,
		Tenure:            chit.Tenure,
		InstallmentAmount: chit.InstallmentAmount,
		StartDate:         chit.StartDate,
		EndDate:           chit.EndDate,
		BalanceAmount:     chit.BalanceAmount,
		Slots:             make([]api.Slot, len(chit.Slots)),
	}
	for i, slot := range chit.Slots {
		out.Slots[i] = api.Slot{
			SlotID:          slot.SlotID,
			SlotAmount:      slot.SlotAmount,
			RemainingAmount: slot.RemainingAmount,
			Split:           slot.Split,
			AssignedUser:    slot.AssignedUser,
		}
		for _, sub := range slot.SubSlots {
			out.Slots[i].SubSlots = append(out.Slots[i].SubSlots, api.SubSlot(sub))
		}
	}
	return out
}
