// Package apperr defines the closed set of failure kinds surfaced by the
// purchase ledger and reputation services.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error. The set is closed; callers switch on it.
type Kind string

const (
	Unauthenticated      Kind = "unauthenticated"
	InvalidInput         Kind = "invalid_input"
	RateLimited          Kind = "rate_limited"
	PendingTransaction   Kind = "pending_or_unknown_transaction"
	TransactionFailed    Kind = "transaction_failed"
	WrongContract        Kind = "wrong_contract"
	PriceMismatch        Kind = "price_mismatch"
	DuplicateTransaction Kind = "duplicate_transaction"
	NotFound             Kind = "not_found"
	StoreUnavailable     Kind = "store_unavailable"
)

// Error carries a Kind, a message safe to show to the caller, and the
// underlying cause for server-side logs.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error by Kind, so errors.Is(err, apperr.E(apperr.NotFound, ""))
// works regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// E builds an error of the given kind.
func E(kind Kind, msg string) error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap builds an error of the given kind around a collaborator error.
func Wrap(kind Kind, msg string, cause error) error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

func Invalid(msg string) error { return E(InvalidInput, msg) }

func Store(cause error) error {
	return Wrap(StoreUnavailable, "storage unavailable", cause)
}

// As extracts the *Error from err's chain.
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf returns the Kind of err, or StoreUnavailable for unclassified errors.
func KindOf(err error) Kind {
	if ae, ok := As(err); ok {
		return ae.Kind
	}
	return StoreUnavailable
}
