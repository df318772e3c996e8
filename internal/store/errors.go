package store

import "errors"

var (
	// ErrValidation marks malformed or missing caller input
	ErrValidation = errors.New("validation failed")
	// ErrNotAuthenticated is returned by the remote store without a valid session
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrNotFound means the addressed task does not exist
	ErrNotFound = errors.New("not found")
	// ErrProjectNotFound means the project does not resolve to an owned project
	ErrProjectNotFound = errors.New("project not found")
	// ErrTransientIO wraps network and storage failures not caused by the caller
	ErrTransientIO = errors.New("transient i/o error")
)

// IsRetryable reports whether repeating the action may succeed
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransientIO)
}

// IsNotFound reports whether err is a task or project not-found failure
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrProjectNotFound)
}
