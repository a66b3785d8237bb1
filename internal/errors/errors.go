package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError represents a structured application error
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches any AppError carrying the same code, so the exported sentinels
// below can be used with errors.Is regardless of the message.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   appErr,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
		}
	}
	return &AppError{
		Code:    code,
		Message: err.Error(),
		Cause:   err,
	}
}

// GetCode returns the code of the first AppError in err's chain, otherwise
// "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Predefined error codes
const (
	CodeInvalidShape     = "INVALID_SHAPE"
	CodeDegenerateDesign = "DEGENERATE_DESIGN"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeConfigInvalid    = "CONFIG_INVALID"
	CodeOracleMismatch   = "ORACLE_MISMATCH"
	CodeInternalError    = "INTERNAL_ERROR"
)

// Sentinels for errors.Is
var (
	ErrInvalidShape     = New(CodeInvalidShape, "invalid observation shape")
	ErrDegenerateDesign = New(CodeDegenerateDesign, "degenerate design")
	ErrInvalidInput     = New(CodeInvalidInput, "invalid input")
	ErrConfigInvalid    = New(CodeConfigInvalid, "invalid configuration")
	ErrOracleMismatch   = New(CodeOracleMismatch, "engine and oracle disagree")
)

// Common error constructors
func InvalidShape(format string, args ...interface{}) *AppError {
	return New(CodeInvalidShape, fmt.Sprintf(format, args...))
}

func DegenerateDesign(format string, args ...interface{}) *AppError {
	return New(CodeDegenerateDesign, fmt.Sprintf(format, args...))
}

func InvalidInput(message string) *AppError {
	return New(CodeInvalidInput, message)
}

func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

func OracleMismatch(format string, args ...interface{}) *AppError {
	return New(CodeOracleMismatch, fmt.Sprintf(format, args...))
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
