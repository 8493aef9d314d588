// Package reject defines the typed rejections returned by the auction core.
//
// A rejection is a value, never a panic: every command either applies fully
// or returns an *Error and leaves state untouched.
package reject

import (
	"errors"
	"fmt"
)

// Kind classifies a rejection. A Kind is itself an error so callers can write
// errors.Is(err, reject.InsufficientFunds).
type Kind string

const (
	NotFound            Kind = "not_found"
	InvalidState        Kind = "invalid_state"
	InsufficientFunds   Kind = "insufficient_funds"
	AlreadyTopBidder    Kind = "already_top_bidder"
	ConstraintViolation Kind = "constraint_violation"
	EmptyHistory        Kind = "empty_history"
	Invalid             Kind = "invalid"
)

func (k Kind) Error() string { return string(k) }

// Error is a rejection of a single command.
type Error struct {
	Kind Kind
	Msg  string
}

// New returns a rejection of the given kind.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf is New with a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return e.Msg
}

// Is matches a target Kind, so wrapped rejections still classify.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the first rejection in err's chain.
func KindOf(err error) (Kind, bool) {
	var r *Error
	if errors.As(err, &r) {
		return r.Kind, true
	}
	return "", false
}
