package auth

import (
	"context"

	"github.com/mmynk/chitfund/internal/models"
)

// UserSpec holds the details of a new member as they arrive in a request.
type UserSpec struct {
	Number    string
	FirstName string
	LastName  string
	UserType  string
}

// Authenticator defines the interface for authentication implementations.
// The service layer only depends on this, so the credential scheme can change
// without touching it.
type Authenticator interface {
	// Register creates a user with the implementation's initial credential.
	Register(ctx context.Context, spec UserSpec) (*models.User, error)

	// Authenticate verifies the credential for number and returns the user.
	Authenticate(ctx context.Context, number, credential string) (*models.User, error)

	// UpdateCredential replaces the user's credential after verifying the current one.
	UpdateCredential(ctx context.Context, number, current, next string) (*models.User, error)
}
