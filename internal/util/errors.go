// internal/util/errors.go
package util

import (
	"errors"
	"fmt"
)

// Common application-specific errors.
var (
	ErrNotFound            = errors.New("resource not found")
	ErrInvalidInput        = errors.New("invalid input provided")
	ErrSelfTransfer        = errors.New("cannot transfer to self")
	ErrAccountNotFound     = errors.New("account not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrDuplicateEntry      = errors.New("duplicate entry")
	ErrInfrastructure      = errors.New("ledger store failure")
)

// Error attaches a user-facing message to one of the sentinel kinds above.
// errors.Is matches both the kind and the optional cause.
type Error struct {
	Kind    error
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

// NewError returns an *Error of the given kind.
func NewError(kind error, message string) error {
	return &Error{Kind: kind, Message: message}
}

// Infrastructure classifies err as a storage failure unless it already
// carries one of the ledger's known kinds.
func Infrastructure(op string, err error) error {
	if err == nil || IsClassified(err) {
		return err
	}
	return &Error{Kind: ErrInfrastructure, Message: op, Cause: err}
}

// IsError reports whether err matches target anywhere in its chain.
func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// IsValidation reports whether err is a rejected request shape.
func IsValidation(err error) bool {
	return IsError(err, ErrInvalidInput) || IsError(err, ErrSelfTransfer)
}

// IsClassified reports whether err already belongs to the error taxonomy.
func IsClassified(err error) bool {
	for _, kind := range []error{
		ErrNotFound, ErrInvalidInput, ErrSelfTransfer, ErrAccountNotFound,
		ErrInsufficientBalance, ErrDuplicateEntry, ErrInfrastructure,
	} {
		if errors.Is(err, kind) {
			return true
		}
	}
	return false
}

// Message returns the user-facing text for err, falling back to err.Error().
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
