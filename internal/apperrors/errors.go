package apperrors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when an admin access key is missing or wrong.
	ErrUnauthorized = errors.New("invalid key")
	ErrNotFound     = errors.New("not found")
)

type ValidationReason string

const (
	ReasonMissingScore  ValidationReason = "missing_score"
	ReasonBadWord       ValidationReason = "bad_word"
	ReasonDuplicateName ValidationReason = "duplicate_name"
	ReasonInvalidName   ValidationReason = "invalid_name"
)

// ValidationError is a client mistake; Message is safe to show to players.
type ValidationError struct {
	Reason  ValidationReason
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed (%s): %s", e.Reason, e.Message)
}

func NewValidation(reason ValidationReason, message string) *ValidationError {
	return &ValidationError{Reason: reason, Message: message}
}

// StorageError wraps a filesystem failure. Its details stay in server logs.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func NewStorage(op, path string, err error) *StorageError {
	return &StorageError{Op: op, Path: path, Err: err}
}

// AsValidation returns the ValidationError in err's chain, if any.
func AsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// HasReason reports whether err is a ValidationError with the given reason.
func HasReason(err error, reason ValidationReason) bool {
	ve, ok := AsValidation(err)
	return ok && ve.Reason == reason
}

func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
