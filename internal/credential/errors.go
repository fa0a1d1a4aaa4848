package credential

import "errors"

// Sentinel errors for credential operations. Callers check them with
// errors.Is().
var (
	// ErrDuplicateUsername indicates the username is already registered.
	ErrDuplicateUsername = errors.New("username already registered")

	// ErrNotFound indicates the username does not exist.
	ErrNotFound = errors.New("user not found")

	// ErrInvalidCredentials indicates the password does not match.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrValidation indicates a required registration field is empty.
	ErrValidation = errors.New("missing required field")

	// ErrStorage indicates the credential file could not be read or
	// written. Durable state is unchanged when this is returned.
	ErrStorage = errors.New("credential storage failure")
)
