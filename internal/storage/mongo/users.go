package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

type userDoc struct {
	ID           int64  `bson:"_id"`
	Number       string `bson:"number"`
	FirstName    string `bson:"firstname"`
	LastName     string `bson:"lastname"`
	UserType     string `bson:"usertype"`
	PasswordHash string `bson:"password"`
	IsDefault    bool   `bson:"isDefault"`
	CreatedAt    int64  `bson:"createdAt"`
	UpdatedAt    int64  `bson:"updatedAt"`
}

// CreateUser inserts a user document.
func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	if _, err := s.users.InsertOne(ctx, userDoc(*user)); err != nil {
		switch {
		case duplicateOn(err, userNumberIndex):
			return fmt.Errorf("user %q: %w", user.Number, storage.ErrDuplicate)
		case duplicateOn(err, idIndex):
			return fmt.Errorf("user id %d: %w", user.ID, storage.ErrIDConflict)
		}
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// GetUserByNumber returns the user with the given number, or nil.
func (s *MongoStore) GetUserByNumber(ctx context.Context, number string) (*models.User, error) {
	var doc userDoc
	found, err := findOne(ctx, s.users, bson.M{"number": number}, &doc)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, nil
	}
	user := models.User(doc)
	return &user, nil
}

// ListUsers returns all users ordered by ID.
func (s *MongoStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	cursor, err := s.users.Find(ctx, bson.D{}, byIDAscending())
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	users := make([]*models.User, len(docs))
	for i := range docs {
		user := models.User(docs[i])
		users[i] = &user
	}
	return users, nil
}

// CountUsers returns the number of users.
func (s *MongoStore) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.users.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// MaxUserID returns the highest user ID, or 0 when there are no users.
func (s *MongoStore) MaxUserID(ctx context.Context) (int64, error) {
	id, err := maxID(ctx, s.users)
	if err != nil {
		return 0, fmt.Errorf("failed to read max user id: %w", err)
	}
	return id, nil
}

// UpdateUser writes a user's profile and password fields.
func (s *MongoStore) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"number": user.Number},
		bson.M{"$set": bson.M{
			"firstname": user.FirstName,
			"lastname":  user.LastName,
			"usertype":  user.UserType,
			"password":  user.PasswordHash,
			"isDefault": user.IsDefault,
			"updatedAt": user.UpdatedAt,
		}},
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("user %q: %w", user.Number, storage.ErrNotFound)
	}
	return nil
}

// DeleteUserByNumber removes a user.
func (s *MongoStore) DeleteUserByNumber(ctx context.Context, number string) error {
	res, err := s.users.DeleteOne(ctx, bson.M{"number": number})
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("user %q: %w", number, storage.ErrNotFound)
	}
	return nil
}

// DeleteAllUsers removes every user.
func (s *MongoStore) DeleteAllUsers(ctx context.Context) error {
	if _, err := s.users.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	return nil
}
