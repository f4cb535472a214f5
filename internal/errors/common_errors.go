package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorType represents the type of error
type ErrorType string

const (
	ErrTypeColumnNotFound    ErrorType = "COLUMN_NOT_FOUND"
	ErrTypeNonNumericColumn  ErrorType = "NON_NUMERIC_COLUMN"
	ErrTypeSchema            ErrorType = "SCHEMA"
	ErrTypeParsing           ErrorType = "PARSING"
	ErrTypeStorage           ErrorType = "STORAGE"
	ErrTypeValidation        ErrorType = "VALIDATION"
	ErrTypeNotFound          ErrorType = "NOT_FOUND"
	ErrTypeUnsupportedFormat ErrorType = "UNSUPPORTED_FORMAT"
	ErrTypeConfig            ErrorType = "CONFIG"
)

// AppError represents an application-specific error
type AppError struct {
	Type    ErrorType
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

// Unwrap allows errors.Is and errors.As to work with AppError
func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewAppError creates a new application error
func NewAppError(errType ErrorType, message string, cause error) *AppError {
	return &AppError{
		Type:    errType,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// IsType reports whether err, or any error it wraps, is an AppError of the given type.
func IsType(err error, errType ErrorType) bool {
	var appErr *AppError
	if !stderrors.As(err, &appErr) {
		return false
	}
	return appErr.Type == errType
}

// Helper functions for common error types

// NewColumnNotFoundError reports a column lookup by name that failed.
func NewColumnNotFoundError(column string) *AppError {
	return NewAppError(ErrTypeColumnNotFound, fmt.Sprintf("column %q not found", column), nil).
		WithContext("column", column)
}

// NewNonNumericColumnError reports arithmetic requested on a column that is not numeric.
func NewNonNumericColumnError(column, actual string) *AppError {
	return NewAppError(ErrTypeNonNumericColumn,
		fmt.Sprintf("column %q is %s, numeric required", column, actual), nil).
		WithContext("column", column).
		WithContext("type", actual)
}

// NewSchemaError creates a dataset shape error
func NewSchemaError(message string) *AppError {
	return NewAppError(ErrTypeSchema, message, nil)
}

// NewParsingError creates a parsing-related error
func NewParsingError(message string, cause error) *AppError {
	return NewAppError(ErrTypeParsing, message, cause)
}

// NewStorageError creates a storage-related error
func NewStorageError(message string, cause error) *AppError {
	return NewAppError(ErrTypeStorage, message, cause)
}

// NewAppValidationError creates a validation error for AppError type
func NewAppValidationError(message string) *AppError {
	return NewAppError(ErrTypeValidation, message, nil)
}

// NewNotFoundError creates a not found error
func NewNotFoundError(resource string) *AppError {
	return NewAppError(ErrTypeNotFound, fmt.Sprintf("%s not found", resource), nil)
}

// NewUnsupportedFormatError reports a file whose extension no reader or writer handles.
func NewUnsupportedFormatError(path string) *AppError {
	return NewAppError(ErrTypeUnsupportedFormat, fmt.Sprintf("unsupported format: %s", path), nil).
		WithContext("path", path)
}

// NewConfigError creates a configuration error
func NewConfigError(message string, cause error) *AppError {
	return NewAppError(ErrTypeConfig, message, cause)
}
