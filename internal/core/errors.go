package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth     = errors.New("invalid month")
	ErrEmptyName        = errors.New("empty name")
	ErrMissingDate      = errors.New("missing dream date")
	ErrStressOutOfRange = errors.New("stress before sleep must be between 1 and 10")

	// ErrStoreUnavailable marks a temporary store failure, such as a locked database.
	ErrStoreUnavailable = errors.New("dream store unavailable")
)

// DateParseError reports a dream_date that could not be read as a calendar date.
type DateParseError struct {
	DreamID int64
	Value   string
	Err     error
}

func (e *DateParseError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("dream %d: missing dream_date", e.DreamID)
	}
	return fmt.Sprintf("dream %d: invalid dream_date %q: %v", e.DreamID, e.Value, e.Err)
}

func (e *DateParseError) Unwrap() error { return e.Err }

// InvalidNumberError names the form field whose text is not a number.
type InvalidNumberError struct {
	Field string
	Value string
}

func (e *InvalidNumberError) Error() string {
	return fmt.Sprintf("%s: %q is not a valid number", e.Field, e.Value)
}

// NotFoundError is returned by stores when no dream has the requested id.
type NotFoundError struct {
	ID int64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("dream %d not found", e.ID)
}

// TransportError wraps a failed exchange with a remote dream store.
type TransportError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: remote returned status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ValidationError collects the reasons a payload was rejected.
type ValidationError struct {
	Problems []error
}

func (e *ValidationError) Error() string {
	if len(e.Problems) == 1 {
		return "invalid dream: " + e.Problems[0].Error()
	}
	return fmt.Sprintf("invalid dream: %v", errors.Join(e.Problems...))
}

func (e *ValidationError) Unwrap() []error { return e.Problems }

// IsNotFound reports whether err carries a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
