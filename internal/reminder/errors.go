package reminder

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound covers a missing id, a deleted reminder, an already
	// consumed state change and a reminder owned by someone else. The cases
	// are not told apart so callers cannot probe for other users' ids.
	ErrNotFound = errors.New("reminder not found")

	// ErrUnauthorized is returned when the scan trigger secret does not match.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrBackendUnavailable wraps store or push transport failures.
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// ValidationError reports a user-correctable problem with reminder input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func backendError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrBackendUnavailable, err)
}
