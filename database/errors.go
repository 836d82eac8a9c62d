package database

import (
	"errors"
	"fmt"
)

// DBError represents a database operation error with context
type DBError struct {
	Operation string
	Err       error
}

// Error implements the error interface
func (e *DBError) Error() string {
	return fmt.Sprintf("database error in %s: %v", e.Operation, e.Err)
}

// Unwrap returns the underlying error
func (e *DBError) Unwrap() error {
	return e.Err
}

// ValidationError represents a validation error
type ValidationError struct {
	Field  string
	Reason string
	Value  interface{}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for field '%s': %s (value: %v)", e.Field, e.Reason, e.Value)
	}
	return fmt.Sprintf("validation failed for field '%s': %s", e.Field, e.Reason)
}

// WrapDBError wraps a database error with operation context
func WrapDBError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &DBError{
		Operation: operation,
		Err:       err,
	}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, reason string) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
	}
}

// NewValidationErrorWithValue creates a new ValidationError with a value
func NewValidationErrorWithValue(field, reason string, value interface{}) error {
	return &ValidationError{
		Field:  field,
		Reason: reason,
		Value:  value,
	}
}

// IsValidationError reports whether err wraps a ValidationError
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

const (
	maxUserIDLength = 128
	maxSymbolLength = 16
)

// ValidatePreferences checks a visibility update against the column limits of
// user_watchlist_preferences
func ValidatePreferences(userID string, prefs map[string]bool) error {
	if userID == "" {
		return NewValidationError("user_id", "must not be empty")
	}
	if len(userID) > maxUserIDLength {
		return NewValidationErrorWithValue("user_id", fmt.Sprintf("exceeds %d characters", maxUserIDLength), userID)
	}
	for symbol := range prefs {
		if symbol == "" {
			return NewValidationError("symbol", "must not be empty")
		}
		if len(symbol) > maxSymbolLength {
			return NewValidationErrorWithValue("symbol", fmt.Sprintf("exceeds %d characters", maxSymbolLength), symbol)
		}
	}
	return nil
}
