package common

import (
	"errors"
	"fmt"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Error codes
const (
	CodeConfig      = "CONFIG_ERROR"
	CodeRender      = "RENDER_ERROR"
	CodeExtraction  = "EXTRACTION_ERROR"
	CodePlacement   = "PLACEMENT_ERROR"
	CodeEnumeration = "ENUMERATION_ERROR"
	CodeBusy        = "BATCH_BUSY"
)

// Common application errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrRender       = errors.New("render failed")
	ErrExtraction   = errors.New("extraction failed")
	ErrPlacement    = errors.New("placement failed")
	ErrEnumeration  = errors.New("enumeration failed")
	ErrBusy         = errors.New("batch already running")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// ConfigError wraps a configuration problem so it matches ErrInvalidInput.
func ConfigError(message string) *AppError {
	return NewAppError(CodeConfig, message, ErrInvalidInput)
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// CodeOf returns the AppError code found in err's chain, or "".
func CodeOf(err error) string {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code
	}
	return ""
}
