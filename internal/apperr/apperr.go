// Package apperr defines the error taxonomy shared by the ledger, user and
// sequence packages. Every failure carries a Kind, which the RPC layer maps to
// a status code, and a Code, which selects a stable user-facing message.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidArgument
	KindNotFound
	KindAlreadyExists
	KindStorageFailure
	KindUnauthenticated
)

func (k Kind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindNotFound:
		return "not_found"
	case KindAlreadyExists:
		return "already_exists"
	case KindStorageFailure:
		return "storage_failure"
	case KindUnauthenticated:
		return "unauthenticated"
	default:
		return "unknown"
	}
}

// Code identifies which precondition or operation failed.
type Code string

const (
	CodeChitDetailsRequired   Code = "chit_details_required"
	CodeChitExists            Code = "chit_exists"
	CodeChitNameRequired      Code = "chit_name_required"
	CodeChitNotFound          Code = "chit_not_found"
	CodeChitEmpty             Code = "chit_empty"
	CodeAmountInvalid         Code = "amount_invalid"
	CodeInstallmentInvalid    Code = "installment_invalid"
	CodeTenureInvalid         Code = "tenure_invalid"
	CodeSlotIDNegative        Code = "slot_id_negative"
	CodeSlotNotFound          Code = "slot_not_found"
	CodeRequiredNonPositive   Code = "required_amount_non_positive"
	CodeRequiredAmountInvalid Code = "required_amount_invalid"
	CodeSplitAmountsInvalid   Code = "split_amounts_invalid"
	CodeSplitExceedsSlot      Code = "split_exceeds_slot"
	CodeBalanceExceeded       Code = "balance_exceeded"
	CodeConcurrentUpdate      Code = "concurrent_update"
	CodeLedgerUnbalanced      Code = "ledger_unbalanced"
	CodeUserNumberRequired    Code = "user_number_required"
	CodeUserNotFound          Code = "user_not_found"
	CodeUserExists            Code = "user_exists"
	CodeUserEmpty             Code = "user_empty"
	CodeUserDetailsRequired   Code = "user_details_required"
	CodeCredentialsRequired   Code = "credentials_required"
	CodePasswordInvalid       Code = "password_invalid"
	CodeCounterNameRequired   Code = "counter_name_required"
	CodeStorageUnavailable    Code = "storage_unavailable"
)

var messages = map[Code]string{
	CodeChitDetailsRequired:   "chit name, amount, tenure, installment, startDate, and endDate are required",
	CodeChitExists:            "chit name already exists",
	CodeChitNameRequired:      "chit name required",
	CodeChitNotFound:          "chit not found",
	CodeChitEmpty:             "no chits found",
	CodeAmountInvalid:         "amount must be a positive integer",
	CodeInstallmentInvalid:    "installment must be a positive integer",
	CodeTenureInvalid:         "tenure must be a positive integer",
	CodeSlotIDNegative:        "slot id cannot be negative",
	CodeSlotNotFound:          "slot not found",
	CodeRequiredNonPositive:   "required amount cannot be zero or negative",
	CodeRequiredAmountInvalid: "required amount invalid",
	CodeSplitAmountsInvalid:   "invalid split amounts",
	CodeSplitExceedsSlot:      "split amount exceeds slot remaining amount",
	CodeBalanceExceeded:       "required amount exceeds chit balance",
	CodeConcurrentUpdate:      "chit was modified concurrently, try again",
	CodeLedgerUnbalanced:      "chit ledger is out of balance",
	CodeUserNumberRequired:    "user number required",
	CodeUserNotFound:          "user not found",
	CodeUserExists:            "user number already exists",
	CodeUserEmpty:             "no users found",
	CodeUserDetailsRequired:   "number, firstname, lastname, and usertype are required",
	CodeCredentialsRequired:   "number and password cannot be empty",
	CodePasswordInvalid:       "invalid password",
	CodeCounterNameRequired:   "counter name required",
	CodeStorageUnavailable:    "storage unavailable",
}

// Message returns the user-facing message for a code.
func Message(code Code) string {
	if msg, ok := messages[code]; ok {
		return msg
	}
	return string(code)
}

// Error is a classified failure. Err, when set, is the underlying cause; it is
// logged but never shown to clients.
type Error struct {
	Kind Kind
	Code Code
	Err  error
}

// New creates an error of the given kind and code.
func New(kind Kind, code Code) *Error {
	return &Error{Kind: kind, Code: code}
}

// Wrap creates an error of the given kind and code with a cause.
func Wrap(kind Kind, code Code, err error) *Error {
	return &Error{Kind: kind, Code: code, Err: err}
}

func InvalidArgument(code Code) *Error { return New(KindInvalidArgument, code) }
func NotFound(code Code) *Error        { return New(KindNotFound, code) }
func AlreadyExists(code Code) *Error   { return New(KindAlreadyExists, code) }

// StorageFailure wraps a store error.
func StorageFailure(err error) *Error {
	return Wrap(KindStorageFailure, CodeStorageUnavailable, err)
}

// Message returns the stable user-facing message.
func (e *Error) Message() string {
	return Message(e.Code)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message(), e.Err)
	}
	return e.Message()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error with the same kind and code, so callers can write
// errors.Is(err, apperr.NotFound(apperr.CodeSlotNotFound)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code
}

// KindOf returns the kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindUnknown
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
