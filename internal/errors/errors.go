// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so failures of form service requests can be told apart
// (lock held elsewhere, session expired, offline) and presented accordingly.
//
// The package supports wrapping underlying errors while maintaining error kind information.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// LockTimeout indicates another actor holds the session lock (HTTP 423).
	LockTimeout Kind = "lock_timeout"
	// SessionExpired indicates the user was logged out for inactivity (HTTP 401).
	SessionExpired Kind = "session_expired"
	// Timeout indicates the request timed out in transport.
	Timeout Kind = "timeout"
	// Offline indicates the host has no network connectivity.
	Offline Kind = "offline"
	// ServerError indicates the server returned a structured error body.
	ServerError Kind = "server_error"
	// ServerValidation indicates per-question validation errors.
	ServerValidation Kind = "server_validation"
	// RateLimited indicates the server asked the client to slow down.
	RateLimited Kind = "rate_limited"
	// Notification carries a blocking message from the server.
	Notification Kind = "notification"
	// Unexpected covers every unclassified failure.
	Unexpected Kind = "unexpected"
	// InvalidFormSpec indicates a session was built without exactly one form source.
	InvalidFormSpec Kind = "invalid_form_spec"
	// Config indicates unusable configuration.
	Config Kind = "config"
)

// E wraps an error with kind and human-friendly message.
// HTML marks messages that contain markup (links) rather than plain text.
type E struct {
	Kind    Kind
	Message string
	HTML    bool
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// KindOf returns the kind of the first *E in err's chain, or Unexpected.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return Unexpected
}

// Is reports whether err carries kind.
func Is(err error, kind Kind) bool {
	var e *E
	return stderrors.As(err, &e) && e.Kind == kind
}
