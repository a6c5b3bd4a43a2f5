package credAuth

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation is the parent of every request-shape error.
	ErrValidation = errors.New("validation failed")
	// ErrMissingFields is returned when a required field is empty.
	ErrMissingFields = fmt.Errorf("%w: missing required fields", ErrValidation)
	// ErrPasswordTooShort is returned when a new password is under the configured minimum.
	ErrPasswordTooShort = fmt.Errorf("%w: password too short", ErrValidation)
	// ErrPasswordMismatch is returned when a password and its confirmation differ.
	ErrPasswordMismatch = fmt.Errorf("%w: passwords do not match", ErrValidation)
	// ErrPasswordReuse is returned when a new password equals the current one.
	ErrPasswordReuse = fmt.Errorf("%w: new password must differ from the current one", ErrValidation)
	// ErrCurrentPasswordRequired is returned when a profile edit omits the current password.
	ErrCurrentPasswordRequired = fmt.Errorf("%w: current password required", ErrValidation)

	// ErrRateLimited is returned after the shadow delay when the caller's IP is blocked.
	ErrRateLimited = errors.New("too many requests")
	// ErrInvalidCredentials covers both an unknown email and a wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPersistence wraps user store and throttle backend failures.
	ErrPersistence = errors.New("persistence failure")
	// ErrAccountExists is returned when registering or switching to a taken email.
	ErrAccountExists = errors.New("account already exists")

	// ErrUserNotFound must be returned by a UserStore when no record matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail must be returned by a UserStore when a write collides on email.
	ErrDuplicateEmail = errors.New("duplicate email")

	// ErrTokenInvalid is returned when a bearer token fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrEngineNotReady is returned when an Engine was not produced by Builder.Build.
	ErrEngineNotReady = errors.New("engine not initialized")
)
