package eams

import (
	"errors"
	"fmt"
)

// ErrSessionExpired is returned whenever a response carries the
// authentication-required interstitial. It is always recoverable by logging in
// again and is never a server fault.
var ErrSessionExpired = errors.New("eams: session expired")

// ErrMissingTableID is returned when the course table identifier cannot be
// found in the landing page scripts.
var ErrMissingTableID = errors.New("eams: course table id not found")

// ProtocolError means the remote misbehaved at the HTTP level (redirect loop,
// redirect without a target).
type ProtocolError struct {
	Reason string
	URL    string
}

func (e *ProtocolError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("eams: protocol error: %s", e.Reason)
	}
	return fmt.Sprintf("eams: protocol error: %s (%s)", e.Reason, e.URL)
}

// TokenNotFoundError means a piece of markup the flow depends on is absent,
// which usually means the remote page structure changed.
type TokenNotFoundError struct {
	Field string
	Page  string
}

func (e *TokenNotFoundError) Error() string {
	return fmt.Sprintf("eams: %q not found on %s", e.Field, e.Page)
}

// StatusError is a hard failure for any status >= 400.
type StatusError struct {
	Status int
	Method string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("eams: %s %s: unexpected status %d", e.Method, e.URL, e.Status)
}

// EncodingError describes a password cipher failure. It is only ever
// reported, callers fall back to the raw password.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("eams: encode password: %s", e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

// IsPageDrift reports whether err signals that upstream markup no longer
// matches what the extractors expect.
func IsPageDrift(err error) bool {
	var tokenErr *TokenNotFoundError
	return errors.As(err, &tokenErr) || errors.Is(err, ErrMissingTableID)
}
