package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error code for stable testing
type ErrorCode string

// Error codes for different error categories
const (
	// General errors
	ErrUnknown      ErrorCode = "UNKNOWN"
	ErrInternal     ErrorCode = "INTERNAL"
	ErrInvalidInput ErrorCode = "INVALID_INPUT"

	// Configuration errors
	ErrConfigLoad  ErrorCode = "CONFIG_LOAD"
	ErrConfigValid ErrorCode = "CONFIG_INVALID"

	// Formula errors
	ErrFormulaNotFound ErrorCode = "FORMULA_NOT_FOUND"
	ErrFormulaParse    ErrorCode = "FORMULA_PARSE"
	ErrFormulaInvalid  ErrorCode = "FORMULA_INVALID"

	// Hook errors, one per lifecycle stage
	ErrDependencyMissing ErrorCode = "DEPENDENCY_MISSING"
	ErrFetchFailed       ErrorCode = "FETCH_FAILED"
	ErrBuildFailed       ErrorCode = "BUILD_FAILED"
	ErrArtifactMissing   ErrorCode = "ARTIFACT_MISSING"
	ErrInstallFailed     ErrorCode = "INSTALL_FAILED"
	ErrTestFailed        ErrorCode = "TEST_FAILED"

	// Keg errors
	ErrAlreadyInstalled ErrorCode = "ALREADY_INSTALLED"
	ErrNotInstalled     ErrorCode = "NOT_INSTALLED"
	ErrLinkConflict     ErrorCode = "LINK_CONFLICT"
)

// FormularyError represents a structured error with code and details
type FormularyError struct {
	Code    ErrorCode
	Message string
	Details map[string]interface{}
	Wrapped error
}

// Error implements the error interface
func (e *FormularyError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *FormularyError) Unwrap() error {
	return e.Wrapped
}

// Is matches any FormularyError carrying the same code
func (e *FormularyError) Is(target error) bool {
	var targetErr *FormularyError
	if errors.As(target, &targetErr) {
		return e.Code == targetErr.Code
	}
	return false
}

// New creates a new FormularyError with the given code and message
func New(code ErrorCode, message string) *FormularyError {
	return &FormularyError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Newf creates a new FormularyError with a formatted message
func Newf(code ErrorCode, format string, args ...interface{}) *FormularyError {
	return &FormularyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with a FormularyError
func Wrap(err error, code ErrorCode, message string) *FormularyError {
	if err == nil {
		return nil
	}
	return &FormularyError{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, code ErrorCode, format string, args ...interface{}) *FormularyError {
	if err == nil {
		return nil
	}
	return &FormularyError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Details: make(map[string]interface{}),
		Wrapped: err,
	}
}

// WithDetail adds a detail to the error
func (e *FormularyError) WithDetail(key string, value interface{}) *FormularyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithDetails adds multiple details to the error
func (e *FormularyError) WithDetails(details map[string]interface{}) *FormularyError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// IsErrorCode checks if an error has a specific error code
func IsErrorCode(err error, code ErrorCode) bool {
	var fErr *FormularyError
	if errors.As(err, &fErr) {
		return fErr.Code == code
	}
	return false
}

// GetErrorCode returns the error code from an error, or ErrUnknown if not a FormularyError.
// For nested FormularyErrors the outermost code wins.
func GetErrorCode(err error) ErrorCode {
	var fErr *FormularyError
	if errors.As(err, &fErr) {
		return fErr.Code
	}
	return ErrUnknown
}

// GetErrorDetails returns the details from an error, or nil if not a FormularyError
func GetErrorDetails(err error) map[string]interface{} {
	var fErr *FormularyError
	if errors.As(err, &fErr) {
		return fErr.Details
	}
	return nil
}

// AsFormularyError returns the outermost FormularyError in err's chain
func AsFormularyError(err error) (*FormularyError, bool) {
	var fErr *FormularyError
	if errors.As(err, &fErr) {
		return fErr, true
	}
	return nil, false
}
