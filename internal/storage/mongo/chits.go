package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

type chitDoc struct {
	ID                int64     `bson:"_id"`
	Name              string    `bson:"name"`
	TotalAmount       int64     `bson:"totalAmount"`
	Tenure            int64     `bson:"tenure"`
	InstallmentAmount int64     `bson:"installmentAmount"`
	StartDate         string    `bson:"startDate"`
	EndDate           string    `bson:"endDate"`
	BalanceAmount     int64     `bson:"balanceAmount"`
	Slots             []slotDoc `bson:"slots"`
	Version           int64     `bson:"version"`
	CreatedAt         int64     `bson:"createdAt"`
}

type slotDoc struct {
	SlotID          int64        `bson:"slotId"`
	SlotAmount      int64        `bson:"slotAmount"`
	RemainingAmount int64        `bson:"remainingAmount"`
	Split           bool         `bson:"split"`
	AssignedUser    string       `bson:"assignedUser,omitempty"`
	SubSlots        []subSlotDoc `bson:"subSlots,omitempty"`
}

type subSlotDoc struct {
	SubSlotID  int64  `bson:"subSlotId"`
	SlotAmount int64  `bson:"slotAmount"`
	UserNumber string `bson:"userNumber"`
}

func toSlotDocs(slots []models.Slot) []slotDoc {
	docs := make([]slotDoc, len(slots))
	for i, s := range slots {
		docs[i] = slotDoc{
			SlotID:          s.SlotID,
			SlotAmount:      s.SlotAmount,
			RemainingAmount: s.RemainingAmount,
			Split:           s.Split,
			AssignedUser:    s.AssignedUser,
		}
		for _, sub := range s.SubSlots {
			docs[i].SubSlots = append(docs[i].SubSlots, subSlotDoc(sub))
		}
	}
	return docs
}

func (d *chitDoc) toModel() *models.Chit {
	chit := &models.Chit{
		ID:                d.ID,
		Name:              d.Name,
		TotalAmount:       d.TotalAmount,
		Tenure:            d.Tenure,
		InstallmentAmount: d.InstallmentAmount,
		StartDate:         d.StartDate,
		EndDate:           d.EndDate,
		BalanceAmount:     d.BalanceAmount,
		Slots:             make([]models.Slot, len(d.Slots)),
		Version:           d.Version,
		CreatedAt:         d.CreatedAt,
	}
	for i, s := range d.Slots {
		chit.Slots[i] = models.Slot{
			SlotID:          s.SlotID,
			SlotAmount:      s.SlotAmount,
			RemainingAmount: s.RemainingAmount,
			Split:           s.Split,
			AssignedUser:    s.AssignedUser,
		}
		for _, sub := range s.SubSlots {
			chit.Slots[i].SubSlots = append(chit.Slots[i].SubSlots, models.SubSlot(sub))
		}
	}
	return chit
}

// CreateChit inserts a chit document.
func (s *MongoStore) CreateChit(ctx context.Context, chit *models.Chit) error {
	doc := chitDoc{
		ID:                chit.ID,
		Name:              chit.Name,
		TotalAmount:       chit.TotalAmount,
		Tenure:            chit.Tenure,
		InstallmentAmount: chit.InstallmentAmount,
		StartDate:         chit.StartDate,
		EndDate:           chit.EndDate,
		BalanceAmount:     chit.BalanceAmount,
		Slots:             toSlotDocs(chit.Slots),
		Version:           1,
		CreatedAt:         chit.CreatedAt,
	}
	if _, err := s.chits.InsertOne(ctx, doc); err != nil {
		switch {
		case duplicateOn(err, chitNameIndex):
			return fmt.Errorf("chit %q: %w", chit.Name, storage.ErrDuplicate)
		case duplicateOn(err, idIndex):
			return fmt.Errorf("chit id %d: %w", chit.ID, storage.ErrIDConflict)
		}
		return fmt.Errorf("failed to insert chit: %w", err)
	}
	chit.Version = 1
	return nil
}

// GetChitByName returns the chit with the given name, or nil.
func (s *MongoStore) GetChitByName(ctx context.Context, name string) (*models.Chit, error) {
	return s.getChit(ctx, bson.M{"name": name})
}

// GetChitByID returns the chit with the given ID, or nil.
func (s *MongoStore) GetChitByID(ctx context.Context, id int64) (*models.Chit, error) {
	return s.getChit(ctx, bson.M{"_id": id})
}

func (s *MongoStore) getChit(ctx context.Context, filter bson.M) (*models.Chit, error) {
	var doc chitDoc
	found, err := findOne(ctx, s.chits, filter, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get chit: %w", err)
	}
	if !found {
		return nil, nil
	}
	return doc.toModel(), nil
}

// ListChits returns all chits ordered by ID.
func (s *MongoStore) ListChits(ctx context.Context) ([]*models.Chit, error) {
	cursor, err := s.chits.Find(ctx, bson.D{}, byIDAscending())
	if err != nil {
		return nil, fmt.Errorf("failed to list chits: %w", err)
	}
	var docs []chitDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode chits: %w", err)
	}

	chits := make([]*models.Chit, len(docs))
	for i := range docs {
		chits[i] = docs[i].toModel()
	}
	return chits, nil
}

// CountChits returns the number of chits.
func (s *MongoStore) CountChits(ctx context.Context) (int64, error) {
	n, err := s.chits.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count chits: %w", err)
	}
	return n, nil
}

// MaxChitID returns the highest chit ID, or 0 when there are no chits.
func (s *MongoStore) MaxChitID(ctx context.Context) (int64, error) {
	id, err := maxID(ctx, s.chits)
	if err != nil {
		return 0, fmt.Errorf("failed to read max chit id: %w", err)
	}
	return id, nil
}

// SaveChit replaces the balance and slots when the stored version matches.
func (s *MongoStore) SaveChit(ctx context.Context, chit *models.Chit) error {
	res, err := s.chits.UpdateOne(ctx,
		bson.M{"_id": chit.ID, "version": chit.Version},
		bson.M{"$set": bson.M{
			"balanceAmount": chit.BalanceAmount,
			"slots":         toSlotDocs(chit.Slots),
			"version":       chit.Version + 1,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to save chit: %w", err)
	}
	if res.MatchedCount == 0 {
		n, err := s.chits.CountDocuments(ctx, bson.M{"_id": chit.ID})
		if err != nil {
			return fmt.Errorf("failed to check chit: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("chit %d: %w", chit.ID, storage.ErrNotFound)
		}
		return fmt.Errorf("chit %d at version %d: %w", chit.ID, chit.Version, storage.ErrVersionConflict)
	}
	chit.Version++
	return nil
}

// DeleteChitByName removes a chit.
func (s *MongoStore) DeleteChitByName(ctx context.Context, name string) error {
	res, err := s.chits.DeleteOne(ctx, bson.M{"name": name})
	if err != nil {
		return fmt.Errorf("failed to delete chit: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("chit %q: %w", name, storage.ErrNotFound)
	}
	return nil
}

// DeleteAllChits removes every chit.
func (s *MongoStore) DeleteAllChits(ctx context.Context) error {
	if _, err := s.chits.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to delete chits: %w", err)
	}
	return nil
}
