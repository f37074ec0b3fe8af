package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const (
	defaultMaxRetries    = 5
	defaultRetryInterval = 10 * time.Millisecond
)

// UserDirectory answers whether a user number is registered.
type UserDirectory interface {
	UserExists(ctx context.Context, number string) (bool, error)
}

// Allocation links a user to one slot of a chit.
type Allocation struct {
	ChitName       string
	SlotID         int64
	UserNumber     string
	RequiredAmount int64
	Split          bool
}

// Engine applies allocations to chits.
type Engine struct {
	chits         storage.ChitStore
	users         UserDirectory
	locker        Locker
	metrics       *metrics.Metrics
	tracer        trace.Tracer
	maxRetries    uint64
	retryInterval time.Duration
	strictSplit   bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLocker replaces the default in-process KeyedLocker.
func WithLocker(l Locker) EngineOption {
	return func(e *Engine) { e.locker = l }
}

// WithMetrics records allocation outcomes and version conflicts.
func WithMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

// WithTracerProvider sets where allocation spans go. Defaults to the global provider.
func WithTracerProvider(tp trace.TracerProvider) EngineOption {
	return func(e *Engine) { e.tracer = tp.Tracer(tracerName) }
}

// WithMaxRetries bounds how many times a save that lost a version race is retried.
func WithMaxRetries(n uint64) EngineOption {
	return func(e *Engine) { e.maxRetries = n }
}

// WithRetryInterval sets the initial backoff between retries.
func WithRetryInterval(d time.Duration) EngineOption {
	return func(e *Engine) { e.retryInterval = d }
}

// WithStrictSplit rejects split allocations that would leave the slot's
// remaining amount below zero. By default a split may claim several slot
// amounts at once and drive the slot's remaining amount negative.
func WithStrictSplit() EngineOption {
	return func(e *Engine) { e.strictSplit = true }
}

// NewEngine creates an allocation engine over the given stores.
func NewEngine(chits storage.ChitStore, users UserDirectory, opts ...EngineOption) *Engine {
	e := &Engine{
		chits:         chits,
		users:         users,
		locker:        NewKeyedLocker(),
		tracer:        otel.GetTracerProvider().Tracer(tracerName),
		maxRetries:    defaultMaxRetries,
		retryInterval: defaultRetryInterval,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Allocate links a.UserNumber to slot a.SlotID of the named chit and returns
// the saved chit.
//
// Preconditions are checked in this order and the first failure is returned:
// user number present, chit exists, slot id not negative, required amount
// positive, user registered, slot exists.
//
// An unsplit allocation must claim exactly the slot amount of an untouched
// slot. A split allocation must claim a positive multiple of the slot amount
// and appends required/slotAmount sub-slots. Either way the chit balance must
// stay non-negative.
func (e *Engine) Allocate(ctx context.Context, a Allocation) (chit *models.Chit, err error) {
	a.ChitName = strings.TrimSpace(a.ChitName)
	a.UserNumber = strings.TrimSpace(a.UserNumber)

	ctx, span := e.tracer.Start(ctx, "ledger.Allocate", trace.WithAttributes(
		attribute.String("chit.name", a.ChitName),
		attribute.Int64("slot.id", a.SlotID),
		attribute.Int64("amount.required", a.RequiredAmount),
		attribute.Bool("split", a.Split),
	))
	defer func() {
		e.recordOutcome(a.Split, err)
		endSpan(span, err)
	}()

	if a.UserNumber == "" {
		return nil, apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	if a.ChitName == "" {
		return nil, apperr.InvalidArgument(apperr.CodeChitNameRequired)
	}

	err = e.locker.WithLock(ctx, lockKey(a.ChitName), func(ctx context.Context) error {
		var lockedErr error
		chit, lockedErr = e.allocateWithRetry(ctx, a)
		return lockedErr
	})
	if err != nil {
		var appErr *apperr.Error
		if !errors.As(err, &appErr) {
			err = apperr.StorageFailure(err)
		}
		slog.Warn("Allocation failed",
			"chit_name", a.ChitName,
			"slot_id", a.SlotID,
			"user_number", a.UserNumber,
			"error", err,
		)
		return nil, err
	}

	slog.Info("User linked to chit",
		"chit_id", chit.ID,
		"chit_name", chit.Name,
		"slot_id", a.SlotID,
		"user_number", a.UserNumber,
		"split", a.Split,
		"balance", chit.BalanceAmount,
	)
	return chit, nil
}

func (e *Engine) allocateWithRetry(ctx context.Context, a Allocation) (*models.Chit, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInterval
	b.MaxInterval = 20 * e.retryInterval
	b.MaxElapsedTime = 0

	var saved *models.Chit
	op := func() error {
		chit, err := e.allocateOnce(ctx, a)
		if errors.Is(err, storage.ErrVersionConflict) {
			e.metrics.VersionConflict()
			slog.Debug("Chit changed underneath allocation, retrying", "chit_name", a.ChitName)
			return err
		}
		if err != nil {
			return backoff.Permanent(err)
		}
		saved = chit
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, e.maxRetries), ctx))
	if errors.Is(err, storage.ErrVersionConflict) {
		return nil, apperr.Wrap(apperr.KindStorageFailure, apperr.CodeConcurrentUpdate, err)
	}
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// allocateOnce performs one read-validate-mutate-save cycle.
func (e *Engine) allocateOnce(ctx context.Context, a Allocation) (*models.Chit, error) {
	chit, err := e.chits.GetChitByName(ctx, a.ChitName)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if chit == nil {
		return nil, apperr.NotFound(apperr.CodeChitNotFound)
	}
	if a.SlotID < 0 {
		return nil, apperr.InvalidArgument(apperr.CodeSlotIDNegative)
	}
	if a.RequiredAmount <= 0 {
		return nil, apperr.InvalidArgument(apperr.CodeRequiredNonPositive)
	}

	exists, err := e.users.UserExists(ctx, a.UserNumber)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindUnknown {
			return nil, err
		}
		return nil, apperr.StorageFailure(err)
	}
	if !exists {
		return nil, apperr.NotFound(apperr.CodeUserNotFound)
	}

	slot := chit.FindSlot(a.SlotID)
	if slot == nil {
		return nil, apperr.NotFound(apperr.CodeSlotNotFound)
	}

	if err := e.apply(chit, slot, a); err != nil {
		return nil, err
	}
	if err := calculator.CheckBalance(chit); err != nil {
		slog.Error("Refusing to save unbalanced chit", "chit_name", chit.Name, "error", err)
		return nil, apperr.Wrap(apperr.KindUnknown, apperr.CodeLedgerUnbalanced, err)
	}

	if err := e.chits.SaveChit(ctx, chit); err != nil {
		switch {
		case errors.Is(err, storage.ErrVersionConflict):
			return nil, err
		case errors.Is(err, storage.ErrNotFound):
			return nil, apperr.NotFound(apperr.CodeChitNotFound)
		default:
			return nil, apperr.StorageFailure(err)
		}
	}
	return chit, nil
}

// apply validates the allocation against slot and then mutates chit. Nothing
// is changed when validation fails.
func (e *Engine) apply(chit *models.Chit, slot *models.Slot, a Allocation) error {
	remaining := slot.RemainingAmount - a.RequiredAmount

	if !a.Split {
		if remaining < 0 || a.RequiredAmount != slot.SlotAmount {
			return apperr.InvalidArgument(apperr.CodeRequiredAmountInvalid)
		}
	} else {
		if slot.SlotAmount <= 0 || a.RequiredAmount%slot.SlotAmount != 0 {
			return apperr.InvalidArgument(apperr.CodeSplitAmountsInvalid)
		}
		if e.strictSplit && remaining < 0 {
			return apperr.InvalidArgument(apperr.CodeSplitExceedsSlot)
		}
	}
	if chit.BalanceAmount-a.RequiredAmount < 0 {
		return apperr.InvalidArgument(apperr.CodeBalanceExceeded)
	}

	slot.RemainingAmount = remaining
	chit.BalanceAmount -= a.RequiredAmount
	slot.AssignedUser = a.UserNumber
	slot.Split = a.Split

	if a.Split {
		count := a.RequiredAmount / slot.SlotAmount
		next := slot.NextSubSlotID()
		for i := int64(0); i < count; i++ {
			slot.SubSlots = append(slot.SubSlots, models.SubSlot{
				SubSlotID:  next + i,
				SlotAmount: a.RequiredAmount,
				UserNumber: a.UserNumber,
			})
		}
	}
	return nil
}

func (e *Engine) recordOutcome(split bool, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindUnknown:
		if err == nil {
			e.metrics.Allocation(split, metrics.OutcomeOK)
			return
		}
		e.metrics.Allocation(split, metrics.OutcomeFailed)
	case apperr.KindStorageFailure:
		e.metrics.Allocation(split, metrics.OutcomeFailed)
	default:
		e.metrics.Allocation(split, metrics.OutcomeRejected)
	}
}
