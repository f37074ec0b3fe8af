package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/sequence"
	"github.com/mmynk/chitfund/internal/storage"
)

// IDIssuer hands out values from named counters.
type IDIssuer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// ChitSpec holds the fields of a new chit as they arrive in a request.
// Amounts are numeric strings.
type ChitSpec struct {
	Name        string
	Amount      string
	Tenure      string
	Installment string
	StartDate   string
	EndDate     string
}

// Chits creates, reads and deletes chits.
type Chits struct {
	store   storage.ChitStore
	ids     IDIssuer
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// NewChits creates the chit lifecycle over store, minting IDs from ids.
// m may be nil.
func NewChits(store storage.ChitStore, ids IDIssuer, m *metrics.Metrics) *Chits {
	return &Chits{
		store:   store,
		ids:     ids,
		metrics: m,
		tracer:  otel.GetTracerProvider().Tracer(tracerName),
	}
}

// Create validates spec, issues an ID and persists the new chit with its slots.
//
// All validation happens before an ID is issued. If persisting fails after
// that, the issued ID is simply never used.
func (c *Chits) Create(ctx context.Context, spec ChitSpec) (chit *models.Chit, err error) {
	ctx, span := c.tracer.Start(ctx, "ledger.CreateChit", trace.WithAttributes(
		attribute.String("chit.name", spec.Name),
	))
	defer func() { endSpan(span, err) }()

	spec = trimSpec(spec)
	if spec.Name == "" || spec.Amount == "" || spec.Tenure == "" || spec.Installment == "" ||
		spec.StartDate == "" || spec.EndDate == "" {
		return nil, apperr.InvalidArgument(apperr.CodeChitDetailsRequired)
	}

	existing, err := c.store.GetChitByName(ctx, spec.Name)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists(apperr.CodeChitExists)
	}

	total, err := calculator.ParseAmount(spec.Amount, apperr.CodeAmountInvalid)
	if err != nil {
		return nil, err
	}
	installment, err := calculator.ParseAmount(spec.Installment, apperr.CodeInstallmentInvalid)
	if err != nil {
		return nil, err
	}
	tenure, err := calculator.ParseAmount(spec.Tenure, apperr.CodeTenureInvalid)
	if err != nil {
		return nil, err
	}
	slots, err := calculator.BuildSlots(total, installment)
	if err != nil {
		return nil, err
	}

	id, err := c.ids.Next(ctx, sequence.ChitSequence)
	if err != nil {
		return nil, err
	}

	chit = &models.Chit{
		ID:                id,
		Name:              spec.Name,
		TotalAmount:       total,
		Tenure:            tenure,
		InstallmentAmount: installment,
		StartDate:         spec.StartDate,
		EndDate:           spec.EndDate,
		BalanceAmount:     total,
		Slots:             slots,
		CreatedAt:         time.Now().Unix(),
	}
	if err := c.store.CreateChit(ctx, chit); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperr.AlreadyExists(apperr.CodeChitExists)
		case errors.Is(err, storage.ErrIDConflict):
			slog.Error("Issued chit id is already in use", "chit_id", id, "chit_name", spec.Name)
		}
		return nil, apperr.StorageFailure(err)
	}

	c.metrics.ChitCreated()
	slog.Info("Chit created", "chit_id", chit.ID, "chit_name", chit.Name, "slots", len(chit.Slots))
	return chit, nil
}

// Get returns the named chit.
func (c *Chits) Get(ctx context.Context, name string) (*models.Chit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.InvalidArgument(apperr.CodeChitNameRequired)
	}
	chit, err := c.store.GetChitByName(ctx, name)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if chit == nil {
		return nil, apperr.NotFound(apperr.CodeChitNotFound)
	}
	return chit, nil
}

// List returns every chit ordered by ID.
func (c *Chits) List(ctx context.Context) ([]*models.Chit, error) {
	chits, err := c.store.ListChits(ctx)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	return chits, nil
}

// Count returns the number of chits.
func (c *Chits) Count(ctx context.Context) (int64, error) {
	n, err := c.store.CountChits(ctx)
	if err != nil {
		return 0, apperr.StorageFailure(err)
	}
	return n, nil
}

// DeleteByName removes the named chit.
func (c *Chits) DeleteByName(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return apperr.InvalidArgument(apperr.CodeChitNameRequired)
	}
	if err := c.store.DeleteChitByName(ctx, name); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(apperr.CodeChitNotFound)
		}
		return apperr.StorageFailure(err)
	}
	slog.Info("Chit deleted", "chit_name", name)
	return nil
}

// DeleteAll removes every chit.
func (c *Chits) DeleteAll(ctx context.Context) error {
	if err := c.store.DeleteAllChits(ctx); err != nil {
		return apperr.StorageFailure(err)
	}
	slog.Info("All chits deleted")
	return nil
}

func trimSpec(spec ChitSpec) ChitSpec {
	return ChitSpec{
		Name:        strings.TrimSpace(spec.Name),
		Amount:      strings.TrimSpace(spec.Amount),
		Tenure:      strings.TrimSpace(spec.Tenure),
		Installment: strings.TrimSpace(spec.Installment),
		StartDate:   strings.TrimSpace(spec.StartDate),
		EndDate:     strings.TrimSpace(spec.EndDate),
	}
}
