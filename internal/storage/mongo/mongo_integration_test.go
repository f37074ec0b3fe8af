//go:build integration

package mongo

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

// setupMongoStore starts a disposable MongoDB 7 container and returns a store
// connected to a fresh database in it.
func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	ctx := context.Background()

	container, err := tcmongo.Run(ctx,
		"mongo:7",
		testcontainers.WithWaitStrategy(
			wait.ForLog("Waiting for connections").
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	store, err := New(ctx, uri, "chitfund_test")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testChit(id int64, name string) *models.Chit {
	return &models.Chit{
		ID:                id,
		Name:              name,
		TotalAmount:       10000,
		Tenure:            2,
		InstallmentAmount: 5000,
		StartDate:         "2025-01-01",
		EndDate:           "2025-02-28",
		BalanceAmount:     10000,
		Slots: []models.Slot{
			{SlotID: 1, SlotAmount: 5000, RemainingAmount: 5000},
			{SlotID: 2, SlotAmount: 5000, RemainingAmount: 5000},
		},
		CreatedAt: time.Now().Unix(),
	}
}

func TestIntegration_MongoStore(t *testing.T) {
	store := setupMongoStore(t)
	ctx := context.Background()

	t.Run("sequence", func(t *testing.T) {
		for want := int64(1); want <= 3; want++ {
			got, err := store.NextSequence(ctx, "chit")
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})

	t.Run("sequence concurrent", func(t *testing.T) {
		var wg sync.WaitGroup
		values := make(chan int64, 20)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				v, err := store.NextSequence(ctx, "user")
				assert.NoError(t, err)
				values <- v
			}()
		}
		wg.Wait()
		close(values)

		seen := make(map[int64]bool)
		for v := range values {
			assert.False(t, seen[v])
			seen[v] = true
		}
		assert.Len(t, seen, 20)
	})

	t.Run("chits", func(t *testing.T) {
		chit := testChit(1, "january")
		require.NoError(t, store.CreateChit(ctx, chit))
		assert.Equal(t, int64(1), chit.Version)

		err := store.CreateChit(ctx, testChit(2, "january"))
		assert.ErrorIs(t, err, storage.ErrDuplicate)

		err = store.CreateChit(ctx, testChit(1, "february"))
		assert.ErrorIs(t, err, storage.ErrIDConflict)
		assert.NotErrorIs(t, err, storage.ErrDuplicate)

		maxID, err := store.MaxChitID(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), maxID)

		got, err := store.GetChitByName(ctx, "january")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, chit.Slots, got.Slots)

		missing, err := store.GetChitByName(ctx, "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)

		got.BalanceAmount = 0
		got.Slots[0].RemainingAmount = -5000
		got.Slots[0].Split = true
		got.Slots[0].AssignedUser = "9000000001"
		got.Slots[0].SubSlots = []models.SubSlot{
			{SubSlotID: 1, SlotAmount: 10000, UserNumber: "9000000001"},
			{SubSlotID: 2, SlotAmount: 10000, UserNumber: "9000000001"},
		}
		require.NoError(t, store.SaveChit(ctx, got))
		assert.Equal(t, int64(2), got.Version)

		stale := testChit(1, "january")
		stale.Version = 1
		assert.ErrorIs(t, store.SaveChit(ctx, stale), storage.ErrVersionConflict)

		ghost := testChit(99, "ghost")
		ghost.Version = 1
		assert.ErrorIs(t, store.SaveChit(ctx, ghost), storage.ErrNotFound)

		byID, err := store.GetChitByID(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, got.Slots, byID.Slots)

		require.NoError(t, store.CreateChit(ctx, testChit(3, "march")))
		list, err := store.ListChits(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "january", list[0].Name)

		require.NoError(t, store.DeleteChitByName(ctx, "march"))
		assert.ErrorIs(t, store.DeleteChitByName(ctx, "march"), storage.ErrNotFound)
		require.NoError(t, store.DeleteAllChits(ctx))
		n, err := store.CountChits(ctx)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("users", func(t *testing.T) {
		user := models.NewUser("9000000001", "Meera", "Iyer", "member", "hash")
		user.ID = 1
		require.NoError(t, store.CreateUser(ctx, user))

		dup := models.NewUser("9000000001", "Other", "Person", "member", "hash")
		dup.ID = 2
		assert.ErrorIs(t, store.CreateUser(ctx, dup), storage.ErrDuplicate)

		clash := models.NewUser("9000000009", "Other", "Person", "member", "hash")
		clash.ID = 1
		err := store.CreateUser(ctx, clash)
		assert.ErrorIs(t, err, storage.ErrIDConflict)
		assert.NotErrorIs(t, err, storage.ErrDuplicate)

		got, err := store.GetUserByNumber(ctx, "9000000001")
		require.NoError(t, err)
		assert.Equal(t, user, got)

		got.IsDefault = false
		got.PasswordHash = "new-hash"
		require.NoError(t, store.UpdateUser(ctx, got))
		again, err := store.GetUserByNumber(ctx, "9000000001")
		require.NoError(t, err)
		assert.False(t, again.IsDefault)
		assert.Equal(t, "new-hash", again.PasswordHash)

		n, err := store.CountUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		require.NoError(t, store.DeleteUserByNumber(ctx, "9000000001"))
		assert.ErrorIs(t, store.DeleteUserByNumber(ctx, "9000000001"), storage.ErrNotFound)
		require.NoError(t, store.DeleteAllUsers(ctx))
	})
}
