// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/chitfund/internal/models"
)

var (
	// ErrNotFound is returned when a delete or update targets a missing record.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (chit name, user number) is taken.
	ErrDuplicate = errors.New("duplicate record")
	// ErrVersionConflict is returned by SaveChit when the stored version has moved on.
	ErrVersionConflict = errors.New("version conflict")
	// ErrIDConflict is returned when a new record's ID is already in use. It
	// means the counter that issued the ID is behind the store.
	ErrIDConflict = errors.New("id already in use")
)

// ChitStore is the ledger store: chits are read and written as whole documents.
type ChitStore interface {
	// CreateChit persists a new chit. chit.ID must already be assigned.
	// The store sets chit.Version to 1. Returns ErrDuplicate if the name is
	// taken and ErrIDConflict if the ID is.
	CreateChit(ctx context.Context, chit *models.Chit) error

	// GetChitByName returns the chit with the given name, or nil if there is none.
	GetChitByName(ctx context.Context, name string) (*models.Chit, error)

	// GetChitByID returns the chit with the given ID, or nil if there is none.
	GetChitByID(ctx context.Context, id int64) (*models.Chit, error)

	// ListChits returns all chits ordered by ID.
	ListChits(ctx context.Context) ([]*models.Chit, error)

	// CountChits returns the number of chits.
	CountChits(ctx context.Context) (int64, error)

	// MaxChitID returns the highest chit ID in use, or 0 when there are none.
	MaxChitID(ctx context.Context) (int64, error)

	// SaveChit writes the mutable fields of chit (balance and slots) if the stored
	// version still equals chit.Version, then increments chit.Version.
	// Returns ErrVersionConflict otherwise.
	SaveChit(ctx context.Context, chit *models.Chit) error

	// DeleteChitByName removes a chit. Returns ErrNotFound if there was none.
	DeleteChitByName(ctx context.Context, name string) error

	// DeleteAllChits removes every chit.
	DeleteAllChits(ctx context.Context) error
}

// UserStore persists registered users.
type UserStore interface {
	// CreateUser persists a new user. Returns ErrDuplicate if the number is
	// taken and ErrIDConflict if the ID is.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByNumber returns the user with the given number, or nil if there is none.
	GetUserByNumber(ctx context.Context, number string) (*models.User, error)

	// ListUsers returns all users ordered by ID.
	ListUsers(ctx context.Context) ([]*models.User, error)

	// CountUsers returns the number of users.
	CountUsers(ctx context.Context) (int64, error)

	// MaxUserID returns the highest user ID in use, or 0 when there are none.
	MaxUserID(ctx context.Context) (int64, error)

	// UpdateUser writes the user's mutable fields. Returns ErrNotFound if missing.
	UpdateUser(ctx context.Context, user *models.User) error

	// DeleteUserByNumber removes a user. Returns ErrNotFound if there was none.
	DeleteUserByNumber(ctx context.Context, number string) error

	// DeleteAllUsers removes every user.
	DeleteAllUsers(ctx context.Context) error
}

// SequenceStore is the backing for named counters.
type SequenceStore interface {
	// NextSequence atomically increments the named counter and returns the new
	// value. A missing counter is created and the first call returns 1.
	NextSequence(ctx context.Context, name string) (int64, error)
}

// Store is a complete backend: chits, users and counters behind one connection.
type Store interface {
	ChitStore
	UserStore
	SequenceStore

	// Close releases any resources held by the store.
	Close() error
}
