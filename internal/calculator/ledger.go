package calculator

import (
	"fmt"

	"github.com/mmynk/chitfund/internal/models"
)

// SlotUsage summarizes allocation progress across a chit's slots.
type SlotUsage struct {
	Allocated int64 // sum of slotAmount - remainingAmount over all slots
	Open      int   // slots with nothing allocated yet
	Filled    int   // slots whose remaining amount is zero or below
	Split     int   // slots that have been split
	SubSlots  int   // total sub-slots across split slots
}

// AllocatedAmount returns how much has been allocated against the slots.
func AllocatedAmount(slots []models.Slot) int64 {
	var allocated int64
	for _, s := range slots {
		allocated += s.SlotAmount - s.RemainingAmount
	}
	return allocated
}

// Summarize computes slot usage for a chit.
func Summarize(chit *models.Chit) SlotUsage {
	var usage SlotUsage
	for _, s := range chit.Slots {
		usage.Allocated += s.SlotAmount - s.RemainingAmount
		switch {
		case s.RemainingAmount == s.SlotAmount && s.AssignedUser == "":
			usage.Open++
		case s.RemainingAmount <= 0:
			usage.Filled++
		}
		if s.Split {
			usage.Split++
		}
		usage.SubSlots += len(s.SubSlots)
	}
	return usage
}

// CheckBalance verifies balance + allocated == total and balance >= 0.
func CheckBalance(chit *models.Chit) error {
	if chit.BalanceAmount < 0 {
		return fmt.Errorf("chit %q balance is negative: %d", chit.Name, chit.BalanceAmount)
	}
	allocated := AllocatedAmount(chit.Slots)
	if chit.BalanceAmount+allocated != chit.TotalAmount {
		return fmt.Errorf("chit %q ledger out of balance: balance %d + allocated %d != total %d",
			chit.Name, chit.BalanceAmount, allocated, chit.TotalAmount)
	}
	return nil
}
