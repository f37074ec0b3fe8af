package models

import "time"

// User represents a registered chit member.
// Members are addressed by Number (their phone number) everywhere outside storage.
type User struct {
	// ID is issued by the "user" sequence counter.
	ID int64

	// Number is the unique login identifier.
	Number string

	FirstName string
	LastName  string

	// UserType is a free-form role such as "admin" or "member".
	UserType string

	// PasswordHash is the bcrypt hash of the user's password.
	PasswordHash string

	// IsDefault is true while the user still has the default password.
	IsDefault bool

	// CreatedAt is the Unix timestamp when the user was created.
	CreatedAt int64

	// UpdatedAt is the Unix timestamp of the last change.
	UpdatedAt int64
}

// NewUser creates a user with the given details and password hash.
// The ID is left for the caller to assign.
func NewUser(number, firstName, lastName, userType, passwordHash string) *User {
	now := time.Now().Unix()
	return &User{
		Number:       number,
		FirstName:    firstName,
		LastName:     lastName,
		UserType:     userType,
		PasswordHash: passwordHash,
		IsDefault:    true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
