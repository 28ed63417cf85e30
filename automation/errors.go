package automation

import (
	"errors"
	"fmt"
)

// ErrNotFound covers missing rules and missing (or foreign-owned) action log
// entries. Ownership failures deliberately map here rather than to a
// "forbidden" error so the API never confirms that someone else's entry
// exists.
var ErrNotFound = errors.New("not found")

// ErrAlreadyQueued is returned when an open pending entry already exists for
// the same (rule, target). Processors treat it as a no-op.
var ErrAlreadyQueued = errors.New("pending action already queued for target")

// ValidationError rejects a malformed rule configuration before anything is
// persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func validationErrorf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}
