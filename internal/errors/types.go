// Package errors provides the structured error type shared by Tessera
// packages.
//
// Normal configuration resolution and content-model operations never return
// errors: lookup, conversion and structural failures are absorbed locally and
// resolve to empty results. The types below classify the failures that are
// absorbed (for logging) and the few that do propagate, namely malformed
// change-notifier registration, configuration loading, store I/O and
// processor failures.
package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeLookup       ErrorType = "lookup"
	ErrorTypeConversion   ErrorType = "conversion"
	ErrorTypeStructural   ErrorType = "structural"
	ErrorTypeCache        ErrorType = "cache"
	ErrorTypeRegistration ErrorType = "registration"
	ErrorTypeConfig       ErrorType = "config"
	ErrorTypeIO           ErrorType = "io"
	ErrorTypeProcess      ErrorType = "process"
	ErrorTypeValidation   ErrorType = "validation"
)

// TesseraError is a structured error type with context.
type TesseraError struct {
	Type      ErrorType
	Code      string
	Message   string
	Cause     error
	Context   map[string]interface{}
	Component string
}

// Error implements the error interface.
func (e *TesseraError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *TesseraError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *TesseraError) Is(target error) bool {
	var t *TesseraError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *TesseraError) WithContext(key string, value interface{}) *TesseraError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component type context.
func (e *TesseraError) WithComponent(component string) *TesseraError {
	e.Component = component

	return e
}

// Error creation functions

// NewLookupError creates a lookup failure (unknown type, missing property,
// unreadable store entry).
func NewLookupError(code, message string, cause error) *TesseraError {
	return &TesseraError{Type: ErrorTypeLookup, Code: code, Message: message, Cause: cause}
}

// NewConversionError creates a value conversion failure.
func NewConversionError(code, message string) *TesseraError {
	return &TesseraError{Type: ErrorTypeConversion, Code: code, Message: message}
}

// NewRegistrationError creates a change-notifier registration error.
func NewRegistrationError(code, message string) *TesseraError {
	return &TesseraError{Type: ErrorTypeRegistration, Code: code, Message: message}
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *TesseraError {
	return &TesseraError{Type: ErrorTypeConfig, Code: code, Message: message}
}

// NewIOError creates an I/O error.
func NewIOError(code, message string, cause error) *TesseraError {
	return &TesseraError{Type: ErrorTypeIO, Code: code, Message: message, Cause: cause}
}

// NewProcessError creates a processor failure.
func NewProcessError(code, message string, cause error) *TesseraError {
	return &TesseraError{Type: ErrorTypeProcess, Code: code, Message: message, Cause: cause}
}

// NewValidationError creates a validation error.
func NewValidationError(code, message string) *TesseraError {
	return &TesseraError{Type: ErrorTypeValidation, Code: code, Message: message}
}

// AsTessera returns the first TesseraError in err's chain.
func AsTessera(err error) (*TesseraError, bool) {
	var te *TesseraError
	if errors.As(err, &te) {
		return te, true
	}
	return nil, false
}

// IsType reports whether err is a TesseraError of the given type.
func IsType(err error, errorType ErrorType) bool {
	var te *TesseraError
	if errors.As(err, &te) {
		return te.Type == errorType
	}

	return false
}

// IsRegistration checks if an error came from the change-notifier boundary.
func IsRegistration(err error) bool {
	return IsType(err, ErrorTypeRegistration)
}

// IsProcess checks if an error came from a pipeline processor.
func IsProcess(err error) bool {
	return IsType(err, ErrorTypeProcess)
}

// Logger interface for error logging.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...interface{})
	Warn(ctx context.Context, err error, msg string, fields ...interface{})
}

// Absorb logs an error that is handled locally. Lookup, conversion,
// structural and cache failures go to debug; everything else to warn.
func Absorb(ctx context.Context, logger Logger, err error, msg string) {
	if err == nil || logger == nil {
		return
	}

	var te *TesseraError
	if errors.As(err, &te) {
		switch te.Type {
		case ErrorTypeLookup, ErrorTypeConversion, ErrorTypeStructural, ErrorTypeCache:
			logger.Debug(ctx, msg, "error", err.Error(), "type", string(te.Type), "code", te.Code)
			return
		}
	}
	logger.Warn(ctx, err, msg)
}

// Common error codes.
const (
	ErrCodeStoreUnavailable  = "ERR_STORE_UNAVAILABLE"
	ErrCodeStoreRead         = "ERR_STORE_READ"
	ErrCodeComponentNotFound = "ERR_COMPONENT_NOT_FOUND"
	ErrCodeSuperTypeCycle    = "ERR_SUPERTYPE_CYCLE"
	ErrCodeInvalidName       = "ERR_INVALID_NAME"
	ErrCodeNilInvalidator    = "ERR_NIL_INVALIDATOR"
	ErrCodeDuplicateName     = "ERR_DUPLICATE_NAME"
	ErrCodeNotRegistered     = "ERR_NOT_REGISTERED"
	ErrCodeConfigInvalid     = "ERR_CONFIG_INVALID"
	ErrCodeProcessFailed     = "ERR_PROCESS_FAILED"
	ErrCodeAcceptsFailed     = "ERR_ACCEPTS_FAILED"
	ErrCodeRuleCompile       = "ERR_RULE_COMPILE"
)
