package ledger

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/calculator"
	"github.com/mmynk/chitfund/internal/metrics"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

func TestAllocateWholeSlot(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)

	chit, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), chit.ID)

	saved := env.reload(t, "january")
	slot := saved.FindSlot(1)
	assert.Equal(t, int64(0), slot.RemainingAmount)
	assert.Equal(t, asha, slot.AssignedUser)
	assert.False(t, slot.Split)
	assert.Empty(t, slot.SubSlots)
	assert.Equal(t, int64(55000), saved.BalanceAmount)
	assert.Equal(t, int64(2), saved.Version)
}

func TestAllocateWrongAmountLeavesChitUnchanged(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)

	_, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 3, UserNumber: asha, RequiredAmount: 4000,
	})
	assert.ErrorIs(t, err, apperr.InvalidArgument(apperr.CodeRequiredAmountInvalid))

	saved := env.reload(t, "january")
	assert.Equal(t, int64(60000), saved.BalanceAmount)
	assert.Equal(t, int64(5000), saved.FindSlot(3).RemainingAmount)
	assert.Empty(t, saved.FindSlot(3).AssignedUser)
	assert.Equal(t, int64(1), saved.Version)
}

func TestAllocateRefusesToSaveUnbalancedChit(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	ctx := context.Background()

	// Balance moved without any slot recording the allocation.
	stored := env.reload(t, "january")
	stored.BalanceAmount -= 5000
	require.NoError(t, env.store.SaveChit(ctx, stored))

	engine := NewEngine(env.store, env.users)
	_, err := engine.Allocate(ctx, Allocation{
		ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000,
	})
	require.Error(t, err)
	assert.Equal(t, apperr.CodeLedgerUnbalanced, apperr.CodeOf(err))
	assert.Equal(t, apperr.KindUnknown, apperr.KindOf(err))

	saved := env.reload(t, "january")
	assert.Equal(t, int64(55000), saved.BalanceAmount)
	assert.Equal(t, int64(5000), saved.FindSlot(1).RemainingAmount)
	assert.Equal(t, int64(2), saved.Version)
}

func TestAllocateFilledSlotTwiceFailsTheSameWay(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)
	ctx := context.Background()
	alloc := Allocation{ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000}

	_, err := engine.Allocate(ctx, alloc)
	require.NoError(t, err)

	alloc.UserNumber = ravi
	for i := 0; i < 2; i++ {
		_, err := engine.Allocate(ctx, alloc)
		assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
		assert.Equal(t, apperr.CodeRequiredAmountInvalid, apperr.CodeOf(err))
	}

	saved := env.reload(t, "january")
	assert.Equal(t, int64(0), saved.FindSlot(1).RemainingAmount)
	assert.Equal(t, asha, saved.FindSlot(1).AssignedUser)
	assert.Equal(t, int64(55000), saved.BalanceAmount)
}

func TestAllocateSplitAppendsOneSubSlotPerSlotAmount(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)
	ctx := context.Background()

	_, err := engine.Allocate(ctx, Allocation{
		ChitName: "january", SlotID: 2, UserNumber: asha, RequiredAmount: 10000, Split: true,
	})
	require.NoError(t, err)

	saved := env.reload(t, "january")
	slot := saved.FindSlot(2)
	require.Len(t, slot.SubSlots, 2)
	for i, sub := range slot.SubSlots {
		assert.Equal(t, int64(i+1), sub.SubSlotID)
		assert.Equal(t, int64(10000), sub.SlotAmount)
		assert.Equal(t, asha, sub.UserNumber)
	}
	assert.True(t, slot.Split)
	assert.Equal(t, asha, slot.AssignedUser)
	assert.Equal(t, int64(-5000), slot.RemainingAmount)
	assert.Equal(t, int64(50000), saved.BalanceAmount)

	// A second split on the same slot continues the sub-slot IDs.
	_, err = engine.Allocate(ctx, Allocation{
		ChitName: "january", SlotID: 2, UserNumber: ravi, RequiredAmount: 5000, Split: true,
	})
	require.NoError(t, err)

	saved = env.reload(t, "january")
	slot = saved.FindSlot(2)
	require.Len(t, slot.SubSlots, 3)
	assert.Equal(t, int64(3), slot.SubSlots[2].SubSlotID)
	assert.Equal(t, ravi, slot.SubSlots[2].UserNumber)
	assert.Equal(t, ravi, slot.AssignedUser)
	assert.Equal(t, int64(45000), saved.BalanceAmount)
	require.NoError(t, calculator.CheckBalance(saved))
}

func TestAllocateSplitValidation(t *testing.T) {
	tests := []struct {
		name     string
		opts     []EngineOption
		required int64
		wantCode apperr.Code
	}{
		{name: "not a multiple of slot amount", required: 7500, wantCode: apperr.CodeSplitAmountsInvalid},
		{name: "smaller than slot amount", required: 2500, wantCode: apperr.CodeSplitAmountsInvalid},
		{name: "exceeds chit balance", required: 15000, wantCode: apperr.CodeBalanceExceeded},
		{name: "strict mode rejects over-claim", opts: []EngineOption{WithStrictSplit()}, required: 10000, wantCode: apperr.CodeSplitExceedsSlot},
		{name: "strict mode allows exact claim", opts: []EngineOption{WithStrictSplit()}, required: 5000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.createChit(t, "small", "10000", "5000")
			engine := NewEngine(env.store, env.users, tt.opts...)

			_, err := engine.Allocate(context.Background(), Allocation{
				ChitName: "small", SlotID: 1, UserNumber: asha, RequiredAmount: tt.required, Split: true,
			})
			if tt.wantCode == "" {
				require.NoError(t, err)
				return
			}
			assert.Equal(t, apperr.KindInvalidArgument, apperr.KindOf(err))
			assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
			assert.Equal(t, int64(10000), env.reload(t, "small").BalanceAmount)
		})
	}
}

func TestAllocatePreconditionOrder(t *testing.T) {
	tests := []struct {
		name     string
		alloc    Allocation
		wantKind apperr.Kind
		wantCode apperr.Code
	}{
		{
			name:     "missing user number reported before missing chit",
			alloc:    Allocation{ChitName: "nope", SlotID: -1, UserNumber: " ", RequiredAmount: 0},
			wantKind: apperr.KindInvalidArgument, wantCode: apperr.CodeUserNumberRequired,
		},
		{
			name:     "missing chit name",
			alloc:    Allocation{ChitName: "", SlotID: 1, UserNumber: asha, RequiredAmount: 5000},
			wantKind: apperr.KindInvalidArgument, wantCode: apperr.CodeChitNameRequired,
		},
		{
			name:     "missing chit reported before negative slot",
			alloc:    Allocation{ChitName: "nope", SlotID: -1, UserNumber: asha, RequiredAmount: 0},
			wantKind: apperr.KindNotFound, wantCode: apperr.CodeChitNotFound,
		},
		{
			name:     "negative slot reported before non-positive amount",
			alloc:    Allocation{ChitName: "january", SlotID: -1, UserNumber: "unknown", RequiredAmount: 0},
			wantKind: apperr.KindInvalidArgument, wantCode: apperr.CodeSlotIDNegative,
		},
		{
			name:     "non-positive amount reported before unknown user",
			alloc:    Allocation{ChitName: "january", SlotID: 99, UserNumber: "unknown", RequiredAmount: -5},
			wantKind: apperr.KindInvalidArgument, wantCode: apperr.CodeRequiredNonPositive,
		},
		{
			name:     "unknown user reported before missing slot",
			alloc:    Allocation{ChitName: "january", SlotID: 99, UserNumber: "unknown", RequiredAmount: 5000},
			wantKind: apperr.KindNotFound, wantCode: apperr.CodeUserNotFound,
		},
		{
			name:     "missing slot",
			alloc:    Allocation{ChitName: "january", SlotID: 99, UserNumber: asha, RequiredAmount: 5000},
			wantKind: apperr.KindNotFound, wantCode: apperr.CodeSlotNotFound,
		},
		{
			name:     "slot zero does not exist",
			alloc:    Allocation{ChitName: "january", SlotID: 0, UserNumber: asha, RequiredAmount: 5000},
			wantKind: apperr.KindNotFound, wantCode: apperr.CodeSlotNotFound,
		},
	}

	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Allocate(context.Background(), tt.alloc)
			assert.Equal(t, tt.wantKind, apperr.KindOf(err))
			assert.Equal(t, tt.wantCode, apperr.CodeOf(err))
		})
	}

	assert.Equal(t, int64(1), env.reload(t, "january").Version)
}

func TestAllocateKeepsLedgerBalanced(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)
	ctx := context.Background()

	// A mix of valid and invalid requests; the ledger must balance after each.
	requests := []Allocation{
		{SlotID: 1, UserNumber: asha, RequiredAmount: 5000},
		{SlotID: 1, UserNumber: ravi, RequiredAmount: 5000},
		{SlotID: 4, UserNumber: ravi, RequiredAmount: 5000},
		{SlotID: 5, UserNumber: asha, RequiredAmount: 6000},
		{SlotID: 7, UserNumber: asha, RequiredAmount: 10000, Split: true},
		{SlotID: 12, UserNumber: ravi, RequiredAmount: 5000},
		{SlotID: 13, UserNumber: ravi, RequiredAmount: 5000},
	}
	for _, req := range requests {
		req.ChitName = "january"
		_, _ = engine.Allocate(ctx, req)

		saved := env.reload(t, "january")
		require.NoError(t, calculator.CheckBalance(saved))
	}

	saved := env.reload(t, "january")
	assert.Equal(t, int64(60000-5000-5000-10000-5000), saved.BalanceAmount)
}

func TestAllocateConcurrentSlotsOfOneChit(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users)

	var wg sync.WaitGroup
	for slotID := int64(1); slotID <= 12; slotID++ {
		wg.Add(1)
		go func(slotID int64) {
			defer wg.Done()
			_, err := engine.Allocate(context.Background(), Allocation{
				ChitName: "january", SlotID: slotID, UserNumber: asha, RequiredAmount: 5000,
			})
			assert.NoError(t, err)
		}(slotID)
	}
	wg.Wait()

	saved := env.reload(t, "january")
	assert.Equal(t, int64(0), saved.BalanceAmount)
	assert.Equal(t, int64(13), saved.Version)
	for _, s := range saved.Slots {
		assert.Equal(t, int64(0), s.RemainingAmount, "slot %d", s.SlotID)
	}
}

// passthroughLocker takes no lock, leaving only the version check.
type passthroughLocker struct{}

func (passthroughLocker) WithLock(ctx context.Context, _ string, fn func(context.Context) error) error {
	return fn(ctx)
}

func TestAllocateConcurrentWithoutLockRetriesConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users,
		WithLocker(passthroughLocker{}),
		WithMaxRetries(100),
		WithRetryInterval(time.Millisecond),
	)

	var wg sync.WaitGroup
	for slotID := int64(1); slotID <= 12; slotID++ {
		wg.Add(1)
		go func(slotID int64) {
			defer wg.Done()
			_, err := engine.Allocate(context.Background(), Allocation{
				ChitName: "january", SlotID: slotID, UserNumber: ravi, RequiredAmount: 5000,
			})
			assert.NoError(t, err)
		}(slotID)
	}
	wg.Wait()

	saved := env.reload(t, "january")
	assert.Equal(t, int64(0), saved.BalanceAmount)
	require.NoError(t, calculator.CheckBalance(saved))
}

// conflictingStore reports a version conflict for the first n saves.
type conflictingStore struct {
	storage.ChitStore
	n     int32
	saves atomic.Int32
}

func (s *conflictingStore) SaveChit(ctx context.Context, chit *models.Chit) error {
	if s.saves.Add(1) <= s.n {
		return storage.ErrVersionConflict
	}
	return s.ChitStore.SaveChit(ctx, chit)
}

func TestAllocateRetriesVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	store := &conflictingStore{ChitStore: env.store, n: 2}
	reg := prometheus.NewRegistry()
	engine := NewEngine(store, env.users,
		WithMetrics(metrics.New(reg)),
		WithRetryInterval(time.Millisecond),
	)

	_, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000,
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), store.saves.Load())
	assert.Equal(t, int64(55000), env.reload(t, "january").BalanceAmount)

	expected := `
# HELP chitfund_chit_version_conflicts_total Chit saves rejected because another writer got there first.
# TYPE chitfund_chit_version_conflicts_total counter
chitfund_chit_version_conflicts_total 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "chitfund_chit_version_conflicts_total"))
}

func TestAllocateGivesUpAfterMaxRetries(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	store := &conflictingStore{ChitStore: env.store, n: 1000}
	engine := NewEngine(store, env.users, WithMaxRetries(2), WithRetryInterval(time.Millisecond))

	_, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000,
	})
	assert.Equal(t, apperr.KindStorageFailure, apperr.KindOf(err))
	assert.Equal(t, apperr.CodeConcurrentUpdate, apperr.CodeOf(err))
	assert.Equal(t, int32(3), store.saves.Load())
	assert.Equal(t, int64(60000), env.reload(t, "january").BalanceAmount)
}

func TestAllocateRecordsOutcomeMetrics(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	reg := prometheus.NewRegistry()
	engine := NewEngine(env.store, env.users, WithMetrics(metrics.New(reg)))
	ctx := context.Background()

	_, err := engine.Allocate(ctx, Allocation{ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000})
	require.NoError(t, err)
	_, err = engine.Allocate(ctx, Allocation{ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000})
	require.Error(t, err)
	_, err = engine.Allocate(ctx, Allocation{ChitName: "january", SlotID: 2, UserNumber: asha, RequiredAmount: 10000, Split: true})
	require.NoError(t, err)

	expected := `
# HELP chitfund_slot_allocations_total Slot allocation attempts by mode (whole, split) and outcome.
# TYPE chitfund_slot_allocations_total counter
chitfund_slot_allocations_total{mode="split",outcome="ok"} 1
chitfund_slot_allocations_total{mode="whole",outcome="ok"} 1
chitfund_slot_allocations_total{mode="whole",outcome="rejected"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "chitfund_slot_allocations_total"))
}

func TestAllocateRecordsSpan(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	engine := NewEngine(env.store, env.users, WithTracerProvider(tp))

	_, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 99, UserNumber: asha, RequiredAmount: 5000,
	})
	require.Error(t, err)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "ledger.Allocate", spans[0].Name())
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "slot not found", spans[0].Status().Description)
}

// blockingLocker fails every lock attempt.
type blockingLocker struct{ err error }

func (l blockingLocker) WithLock(context.Context, string, func(context.Context) error) error {
	return l.err
}

func TestAllocateLockFailureIsStorageFailure(t *testing.T) {
	env := newTestEnv(t)
	env.createChit(t, "january", "60000", "5000")
	engine := NewEngine(env.store, env.users, WithLocker(blockingLocker{err: context.DeadlineExceeded}))

	_, err := engine.Allocate(context.Background(), Allocation{
		ChitName: "january", SlotID: 1, UserNumber: asha, RequiredAmount: 5000,
	})
	assert.Equal(t, apperr.KindStorageFailure, apperr.KindOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
