package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/sequence"
	"github.com/mmynk/chitfund/internal/storage/sqlite"
)

// userSet is an in-memory UserDirectory.
type userSet map[string]bool

func (u userSet) UserExists(_ context.Context, number string) (bool, error) {
	return u[number], nil
}

const (
	asha = "9000000001"
	ravi = "9000000002"
)

type testEnv struct {
	store *sqlite.SQLiteStore
	chits *Chits
	users userSet
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &testEnv{
		store: store,
		chits: NewChits(store, sequence.NewCounter(store, nil), nil),
		users: userSet{asha: true, ravi: true},
	}
}

// createChit creates a chit and fails the test on error.
func (env *testEnv) createChit(t *testing.T, name, amount, installment string) *models.Chit {
	t.Helper()
	chit, err := env.chits.Create(context.Background(), ChitSpec{
		Name:        name,
		Amount:      amount,
		Tenure:      "12",
		Installment: installment,
		StartDate:   "2025-01-01",
		EndDate:     "2025-12-31",
	})
	require.NoError(t, err)
	return chit
}

// reload reads the chit back from the store.
func (env *testEnv) reload(t *testing.T, name string) *models.Chit {
	t.Helper()
	chit, err := env.store.GetChitByName(context.Background(), name)
	require.NoError(t, err)
	require.NotNil(t, chit)
	return chit
}
