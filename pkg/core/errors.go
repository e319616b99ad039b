package core

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies the type of failure for retry policy and reporting.
type ErrorCategory int

const (
	ErrCategoryNone      ErrorCategory = iota // No error
	ErrCategoryParse                          // Malformed snapshot input
	ErrCategoryRegion                         // Capture region out of bounds
	ErrCategoryLookup                         // No candidate resolved
	ErrCategoryTimeout                        // Locate deadline elapsed
	ErrCategoryAmbiguity                      // Multiple candidates, no index, strict mode
	ErrCategoryTransport                      // Input injection or capture failure
	ErrCategoryConfig                         // Invalid configuration
)

// String returns the string representation of ErrorCategory.
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryParse:
		return "parse"
	case ErrCategoryRegion:
		return "region"
	case ErrCategoryLookup:
		return "lookup"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryAmbiguity:
		return "ambiguity"
	case ErrCategoryTransport:
		return "transport"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Retryable reports whether a session may retry a step that failed with
// this category. Parse, region and config failures are caller errors and
// are surfaced immediately.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case ErrCategoryLookup, ErrCategoryTimeout, ErrCategoryTransport:
		return true
	default:
		return false
	}
}

// AutomationError is a structured error with category and machine-readable code.
type AutomationError struct {
	Category ErrorCategory
	Code     string                 // Machine-readable code: not_found, timeout, etc.
	Message  string                 // Human-readable message
	Details  map[string]interface{} // Additional context
	Cause    error                  // Underlying error
}

// Error implements the error interface.
func (e *AutomationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support.
func (e *AutomationError) Unwrap() error {
	return e.Cause
}

// Is matches another AutomationError by category and code, so that
// errors.Is(err, ErrNotFound) works on derived copies.
func (e *AutomationError) Is(target error) bool {
	var t *AutomationError
	if !errors.As(target, &t) {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *AutomationError) WithCause(cause error) *AutomationError {
	return &AutomationError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  e.Details,
		Cause:    cause,
	}
}

// WithMessage returns a copy of the error with a custom message.
func (e *AutomationError) WithMessage(msg string) *AutomationError {
	return &AutomationError{
		Category: e.Category,
		Code:     e.Code,
		Message:  msg,
		Details:  e.Details,
		Cause:    e.Cause,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *AutomationError) WithDetails(details map[string]interface{}) *AutomationError {
	merged := make(map[string]interface{})
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	return &AutomationError{
		Category: e.Category,
		Code:     e.Code,
		Message:  e.Message,
		Details:  merged,
		Cause:    e.Cause,
	}
}

// Predefined errors
var (
	ErrParse = &AutomationError{
		Category: ErrCategoryParse,
		Code:     "parse_error",
		Message:  "malformed hierarchy dump",
	}
	ErrInvalidRegion = &AutomationError{
		Category: ErrCategoryRegion,
		Code:     "invalid_region",
		Message:  "capture region outside screenshot bounds",
	}
	ErrNotFound = &AutomationError{
		Category: ErrCategoryLookup,
		Code:     "not_found",
		Message:  "no element matched the criteria",
	}
	ErrLocateTimeout = &AutomationError{
		Category: ErrCategoryTimeout,
		Code:     "locate_timeout",
		Message:  "element did not appear within the timeout",
	}
	ErrAmbiguousMatch = &AutomationError{
		Category: ErrCategoryAmbiguity,
		Code:     "ambiguous_match",
		Message:  "multiple elements matched with no disambiguating index",
	}
	ErrTransport = &AutomationError{
		Category: ErrCategoryTransport,
		Code:     "transport_failure",
		Message:  "device transport call failed",
	}
	ErrOCRUnavailable = &AutomationError{
		Category: ErrCategoryConfig,
		Code:     "ocr_unavailable",
		Message:  "no text recognizer configured",
	}
	ErrInvalidConfig = &AutomationError{
		Category: ErrCategoryConfig,
		Code:     "invalid_config",
		Message:  "invalid configuration",
	}
)

// NewAutomationError creates a new AutomationError with the given parameters.
func NewAutomationError(category ErrorCategory, code, message string) *AutomationError {
	return &AutomationError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// CategoryOf extracts the category from an error chain. Errors outside the
// taxonomy report ErrCategoryTransport, the conservative retryable choice
// for failures coming out of a device call.
func CategoryOf(err error) ErrorCategory {
	if err == nil {
		return ErrCategoryNone
	}
	var ae *AutomationError
	if errors.As(err, &ae) {
		return ae.Category
	}
	return ErrCategoryTransport
}
