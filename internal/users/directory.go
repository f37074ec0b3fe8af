// Package users looks up and removes registered chit members.
// Registration lives in package auth because it needs the password hasher.
package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

// Directory answers questions about registered users.
type Directory struct {
	store storage.UserStore
}

// NewDirectory creates a Directory over store.
func NewDirectory(store storage.UserStore) *Directory {
	return &Directory{store: store}
}

// UserExists reports whether number belongs to a registered user.
func (d *Directory) UserExists(ctx context.Context, number string) (bool, error) {
	user, err := d.store.GetUserByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		return false, apperr.StorageFailure(err)
	}
	return user != nil, nil
}

// CheckAvailable fails with AlreadyExists when number is already registered.
func (d *Directory) CheckAvailable(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	exists, err := d.UserExists(ctx, number)
	if err != nil {
		return err
	}
	if exists {
		return apperr.AlreadyExists(apperr.CodeUserExists)
	}
	return nil
}

// Get returns the user registered under number.
func (d *Directory) Get(ctx context.Context, number string) (*models.User, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	user, err := d.store.GetUserByNumber(ctx, number)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if user == nil {
		return nil, apperr.NotFound(apperr.CodeUserNotFound)
	}
	return user, nil
}

// List returns every user ordered by ID.
func (d *Directory) List(ctx context.Context) ([]*models.User, error) {
	users, err := d.store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	return users, nil
}

// Count returns the number of registered users.
func (d *Directory) Count(ctx context.Context) (int64, error) {
	n, err := d.store.CountUsers(ctx)
	if err != nil {
		return 0, apperr.StorageFailure(err)
	}
	return n, nil
}

// Delete removes the user registered under number. Slots already linked to
// the number keep it.
func (d *Directory) Delete(ctx context.Context, number string) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	if err := d.store.DeleteUserByNumber(ctx, number); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return apperr.NotFound(apperr.CodeUserNotFound)
		}
		return apperr.StorageFailure(err)
	}
	slog.Info("User deleted", "user_number", number)
	return nil
}

// DeleteAll removes every user.
func (d *Directory) DeleteAll(ctx context.Context) error {
	if err := d.store.DeleteAllUsers(ctx); err != nil {
		return apperr.StorageFailure(err)
	}
	slog.Info("All users deleted")
	return nil
}
