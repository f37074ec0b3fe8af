package calculator

import (
	"strconv"
	"strings"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
)

// ParseAmount parses a positive whole-unit amount from its request form.
// Surrounding whitespace is ignored; signs, decimals and zero are rejected.
func ParseAmount(raw string, code apperr.Code) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v <= 0 {
		return 0, apperr.InvalidArgument(code)
	}
	return v, nil
}

// SizeSlots parses the total and installment amounts and lays out the chit's slots.
func SizeSlots(totalAmount, installmentAmount string) ([]models.Slot, error) {
	total, err := ParseAmount(totalAmount, apperr.CodeAmountInvalid)
	if err != nil {
		return nil, err
	}
	installment, err := ParseAmount(installmentAmount, apperr.CodeInstallmentInvalid)
	if err != nil {
		return nil, err
	}
	return BuildSlots(total, installment)
}

// BuildSlots lays out floor(total/installment) slots with IDs 1..n, each worth
// one installment. A remainder smaller than one installment gets no slot.
//
// Example: total=60000, installment=5000 gives 12 slots of 5000.
func BuildSlots(total, installment int64) ([]models.Slot, error) {
	if total <= 0 {
		return nil, apperr.InvalidArgument(apperr.CodeAmountInvalid)
	}
	if installment <= 0 {
		return nil, apperr.InvalidArgument(apperr.CodeInstallmentInvalid)
	}

	count := total / installment
	slots := make([]models.Slot, 0, count)
	for i := int64(1); i <= count; i++ {
		slots = append(slots, models.Slot{
			SlotID:          i,
			SlotAmount:      installment,
			RemainingAmount: installment,
		})
	}
	return slots, nil
}
