package calculator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/chitfund/internal/models"
)

func newChit(t *testing.T, total, installment int64) *models.Chit {
	t.Helper()
	slots, err := BuildSlots(total, installment)
	require.NoError(t, err)
	return &models.Chit{
		Name:              "test",
		TotalAmount:       total,
		InstallmentAmount: installment,
		BalanceAmount:     total,
		Slots:             slots,
	}
}

func TestCheckBalance(t *testing.T) {
	chit := newChit(t, 60000, 5000)
	require.NoError(t, CheckBalance(chit))

	// Slot 1 allocated in full.
	chit.Slots[0].RemainingAmount = 0
	chit.Slots[0].AssignedUser = "9000000001"
	chit.BalanceAmount -= 5000
	require.NoError(t, CheckBalance(chit))

	// Slot 2 split beyond its nominal amount still balances.
	chit.Slots[1].RemainingAmount = -5000
	chit.Slots[1].Split = true
	chit.BalanceAmount -= 10000
	require.NoError(t, CheckBalance(chit))

	chit.BalanceAmount += 1
	assert.Error(t, CheckBalance(chit))
}

func TestCheckBalanceNegative(t *testing.T) {
	chit := newChit(t, 100, 100)
	chit.BalanceAmount = -1
	assert.Error(t, CheckBalance(chit))
}

func TestSummarize(t *testing.T) {
	chit := newChit(t, 400, 100)
	chit.Slots[0].RemainingAmount = 0
	chit.Slots[0].AssignedUser = "a"
	chit.Slots[1].RemainingAmount = -100
	chit.Slots[1].Split = true
	chit.Slots[1].AssignedUser = "b"
	chit.Slots[1].SubSlots = []models.SubSlot{
		{SubSlotID: 1, SlotAmount: 200, UserNumber: "b"},
		{SubSlotID: 2, SlotAmount: 200, UserNumber: "b"},
	}

	usage := Summarize(chit)
	assert.Equal(t, int64(300), usage.Allocated)
	assert.Equal(t, 2, usage.Open)
	assert.Equal(t, 2, usage.Filled)
	assert.Equal(t, 1, usage.Split)
	assert.Equal(t, 2, usage.SubSlots)
}
