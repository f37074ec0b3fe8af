package models

// Chit represents a fund plan and its slot ledger.
// A chit is always loaded and saved as a whole; Version guards concurrent writers.
type Chit struct {
	// ID is issued once by the "chit" sequence counter.
	ID int64

	// Name is the unique human-readable key for the chit.
	Name string

	// TotalAmount is the pooled amount of the chit. Immutable.
	TotalAmount int64

	// Tenure is the plan length (in installments). Immutable.
	Tenure int64

	// InstallmentAmount is the nominal value of each slot. Immutable.
	InstallmentAmount int64

	// StartDate and EndDate are stored as given at creation.
	StartDate string
	EndDate   string

	// BalanceAmount starts at TotalAmount and decreases with every allocation.
	BalanceAmount int64

	// Slots is fixed in length and slot IDs once the chit is created.
	Slots []Slot

	// Version is incremented by the store on every successful save.
	Version int64

	// CreatedAt is the Unix timestamp when the chit was created.
	CreatedAt int64
}

// Slot is one unit of the chit's payment schedule.
type Slot struct {
	SlotID          int64     `json:"slotId"`
	SlotAmount      int64     `json:"slotAmount"`
	RemainingAmount int64     `json:"remainingAmount"`
	Split           bool      `json:"split"`
	AssignedUser    string    `json:"assignedUser,omitempty"`
	SubSlots        []SubSlot `json:"subSlots,omitempty"`
}

// SubSlot is a claim on a split slot.
type SubSlot struct {
	SubSlotID  int64  `json:"subSlotId"`
	SlotAmount int64  `json:"slotAmount"`
	UserNumber string `json:"userNumber"`
}

// FindSlot returns the slot with the given ID, or nil.
func (c *Chit) FindSlot(slotID int64) *Slot {
	for i := range c.Slots {
		if c.Slots[i].SlotID == slotID {
			return &c.Slots[i]
		}
	}
	return nil
}

// NextSubSlotID returns the ID the next appended sub-slot should take.
// IDs continue from the current maximum and are never reused.
func (s *Slot) NextSubSlotID() int64 {
	var maxID int64
	for _, sub := range s.SubSlots {
		if sub.SubSlotID > maxID {
			maxID = sub.SubSlotID
		}
	}
	return maxID + 1
}
