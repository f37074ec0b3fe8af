package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/chitfund/internal/apperr"
	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/sequence"
	"github.com/mmynk/chitfund/internal/storage"
)

// DefaultPassword is given to new users when none is configured.
const DefaultPassword = "chit1234"

// IDIssuer hands out values from named counters.
type IDIssuer interface {
	Next(ctx context.Context, name string) (int64, error)
}

// PasswordAuthenticator implements password-based authentication using bcrypt.
// New users start with a shared default password and are flagged IsDefault
// until they change it.
type PasswordAuthenticator struct {
	store           storage.UserStore
	ids             IDIssuer
	defaultPassword string
	cost            int
}

// PasswordOption configures a PasswordAuthenticator.
type PasswordOption func(*PasswordAuthenticator)

// WithDefaultPassword sets the password new users start with.
func WithDefaultPassword(password string) PasswordOption {
	return func(a *PasswordAuthenticator) { a.defaultPassword = password }
}

// WithCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithCost(cost int) PasswordOption {
	return func(a *PasswordAuthenticator) { a.cost = cost }
}

// NewPasswordAuthenticator creates a new password-based authenticator.
func NewPasswordAuthenticator(store storage.UserStore, ids IDIssuer, opts ...PasswordOption) *PasswordAuthenticator {
	a := &PasswordAuthenticator{
		store:           store,
		ids:             ids,
		defaultPassword: DefaultPassword,
		cost:            bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Register creates a user with the default password. The user ID comes from
// the "user" counter and is only issued once the details are valid and the
// number is free.
func (a *PasswordAuthenticator) Register(ctx context.Context, spec UserSpec) (*models.User, error) {
	spec = UserSpec{
		Number:    strings.TrimSpace(spec.Number),
		FirstName: strings.TrimSpace(spec.FirstName),
		LastName:  strings.TrimSpace(spec.LastName),
		UserType:  strings.TrimSpace(spec.UserType),
	}
	if spec.Number == "" || spec.FirstName == "" || spec.LastName == "" || spec.UserType == "" {
		return nil, apperr.InvalidArgument(apperr.CodeUserDetailsRequired)
	}

	existing, err := a.store.GetUserByNumber(ctx, spec.Number)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if existing != nil {
		return nil, apperr.AlreadyExists(apperr.CodeUserExists)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(a.defaultPassword), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	id, err := a.ids.Next(ctx, sequence.UserSequence)
	if err != nil {
		return nil, err
	}

	user := models.NewUser(spec.Number, spec.FirstName, spec.LastName, spec.UserType, string(hash))
	user.ID = id
	if err := a.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			return nil, apperr.AlreadyExists(apperr.CodeUserExists)
		case errors.Is(err, storage.ErrIDConflict):
			slog.Error("Issued user id is already in use", "user_id", id, "user_number", spec.Number)
		}
		return nil, apperr.StorageFailure(err)
	}

	slog.Info("User registered", "user_id", user.ID, "user_number", user.Number)
	return user, nil
}

// EnsureUser makes sure a user with spec's number exists and has password.
// A missing user is registered first. A user still on the default password
// gets password; one who has changed theirs is left alone. Calling it again
// after a failure between the two steps finishes the job.
func (a *PasswordAuthenticator) EnsureUser(ctx context.Context, spec UserSpec, password string) (*models.User, error) {
	number := strings.TrimSpace(spec.Number)
	if number == "" {
		return nil, apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	if password == "" {
		return nil, apperr.InvalidArgument(apperr.CodeCredentialsRequired)
	}

	user, err := a.store.GetUserByNumber(ctx, number)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if user == nil {
		if user, err = a.Register(ctx, spec); err != nil {
			return nil, err
		}
	}
	if !user.IsDefault {
		return user, nil
	}
	return a.UpdateCredential(ctx, number, a.defaultPassword, password)
}

// Authenticate verifies the number and password, returning the user if valid.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, number, credential string) (*models.User, error) {
	number = strings.TrimSpace(number)
	if number == "" || credential == "" {
		return nil, apperr.InvalidArgument(apperr.CodeCredentialsRequired)
	}
	return a.verify(ctx, number, credential)
}

// UpdateCredential replaces the password after checking the current one and
// clears the IsDefault flag.
func (a *PasswordAuthenticator) UpdateCredential(ctx context.Context, number, current, next string) (*models.User, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, apperr.InvalidArgument(apperr.CodeUserNumberRequired)
	}
	if current == "" || next == "" {
		return nil, apperr.InvalidArgument(apperr.CodeCredentialsRequired)
	}

	user, err := a.verify(ctx, number, current)
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), a.cost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user.PasswordHash = string(hash)
	user.IsDefault = false
	user.UpdatedAt = time.Now().Unix()

	if err := a.store.UpdateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeUserNotFound)
		}
		return nil, apperr.StorageFailure(err)
	}

	slog.Info("Password updated", "user_number", number)
	return user, nil
}

func (a *PasswordAuthenticator) verify(ctx context.Context, number, password string) (*models.User, error) {
	user, err := a.store.GetUserByNumber(ctx, number)
	if err != nil {
		return nil, apperr.StorageFailure(err)
	}
	if user == nil {
		return nil, apperr.NotFound(apperr.CodeUserNotFound)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.New(apperr.KindUnauthenticated, apperr.CodePasswordInvalid)
	}
	return user, nil
}
