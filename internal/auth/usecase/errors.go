package usecase

import (
	"errors"
	"fmt"
)

// Session authentication failures. Every error returned by the session usecases
// matches exactly one of these with errors.Is.
var (
	ErrUnauthenticated         = errors.New("not authorized")
	ErrSessionExpiredOrInvalid = errors.New("session expired or invalid")
	ErrSessionExpired          = errors.New("session expired")
	ErrSessionTerminated       = errors.New("session terminated")
	ErrSessionNotFound         = errors.New("session not found")
	ErrStoreUnavailable        = errors.New("session store unavailable")
)

// Unauthenticated variants that keep the distinction the transport reports to clients.
var (
	ErrNoToken     error = &authError{msg: "not authorized, no token"}
	ErrTokenFailed error = &authError{msg: "not authorized, token failed"}
)

type authError struct {
	msg string
}

func (e *authError) Error() string { return e.msg }
func (e *authError) Unwrap() error { return ErrUnauthenticated }

// Credential failures.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email is already taken")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidEmailFormat = errors.New("invalid email format")
	ErrMissingFields      = errors.New("name, email and password are required")
)

// ReasonIPOrDeviceMismatch is the machine-readable code of a hijack termination.
const ReasonIPOrDeviceMismatch = "ip_or_device_mismatch"

// SessionTerminatedError carries the reason a session was terminated during validation.
type SessionTerminatedError struct {
	Reason string
}

func (e *SessionTerminatedError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSessionTerminated, e.Reason)
}

func (e *SessionTerminatedError) Unwrap() error {
	return ErrSessionTerminated
}

// storeError wraps a repository failure so it matches ErrStoreUnavailable.
func storeError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
