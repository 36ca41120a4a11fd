package common

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation failed for field '%s' with value '%v': %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value interface{}, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// Check records a failure for fieldName when ok is false. Used for cross-field rules.
func (v *Validator) Check(fieldName string, value interface{}, ok bool, message string) *Validator {
	if !ok {
		v.errors = append(v.errors, ValidationError{Field: fieldName, Value: value, Message: message})
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Error returns a combined error message
func (v *Validator) Error() error {
	if !v.HasErrors() {
		return nil
	}
	return errors.New(v.ErrorMessage())
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value interface{}) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value interface{}) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return &ValidationError{Field: fieldName, Value: "", Message: "is required"}
		}
	case *string:
		if v == nil || strings.TrimSpace(*v) == "" {
			return &ValidationError{Field: fieldName, Value: "", Message: "is required"}
		}
	}
	return nil
}

// Fraction requires a float64 in [0, 1].
func Fraction(fieldName string, value interface{}) *ValidationError {
	f, ok := value.(float64)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a number"}
	}
	if f < 0 || f > 1 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be between 0.0 and 1.0"}
	}
	return nil
}

// Positive requires an int greater than zero.
func Positive(fieldName string, value interface{}) *ValidationError {
	n, ok := value.(int)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be an integer"}
	}
	if n <= 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be greater than zero"}
	}
	return nil
}

// ExistingDir requires a path that exists and is a directory.
func ExistingDir(fieldName string, value interface{}) *ValidationError {
	path, ok := value.(string)
	if !ok {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be a string"}
	}
	st, err := os.Stat(path)
	if err != nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "folder not found"}
	}
	if !st.IsDir() {
		return &ValidationError{Field: fieldName, Value: value, Message: "is not a folder"}
	}
	return nil
}

// ValidateAndReturnError validates and returns a CONFIG_ERROR if validation fails
func ValidateAndReturnError(validator *Validator) error {
	if validator.HasErrors() {
		return ConfigError(validator.ErrorMessage())
	}
	return nil
}
