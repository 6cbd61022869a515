package momentum

import (
	"errors"
	"fmt"
)

// Sentinel errors surfaced by the engine. Ownership failures and missing
// habits are deliberately indistinguishable at the API boundary: callers map
// both ErrNotFound and ErrAccessDenied to a uniform access-denied response.
var (
	ErrNotFound     = errors.New("not found")
	ErrAccessDenied = errors.New("access denied")
	ErrArchived     = errors.New("habit is archived")
)

// ValidationError reports invalid input to a calculator or service call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
