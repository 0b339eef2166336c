package domain

import (
	"errors"
	"fmt"
	"time"
)

// Credential errors
var (
	ErrPrincipalNotFound  = errors.New("principal not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountUnverified  = errors.New("account email not verified")
	ErrAccountLocked      = errors.New("account temporarily locked")
)

// Token errors
var (
	ErrTokenInvalid       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token has expired")
	ErrTokenInvalidOrUsed = errors.New("invalid or already used token")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
)

// Infrastructure errors
var (
	ErrStore          = errors.New("store operation failed")
	ErrNotifierFailed = errors.New("could not send message")
	ErrRateLimited    = errors.New("too many requests")
)

// ValidationError reports malformed caller input. It is raised before any
// side effect is performed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

// AccountLockedError carries the remaining lock window alongside ErrAccountLocked.
type AccountLockedError struct {
	RetryAfter time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account temporarily locked, retry in %s", e.RetryAfter)
}

func (e *AccountLockedError) Unwrap() error { return ErrAccountLocked }

// RateLimitedError carries the retry-after window alongside ErrRateLimited.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("too many requests, retry in %s", e.RetryAfter)
}

func (e *RateLimitedError) Unwrap() error { return ErrRateLimited }

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
