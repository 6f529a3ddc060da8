package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Estimation errors surfaced to the caller
	ErrorCategoryInvalidFit       ErrorCategory = "INVALID_FIT"
	ErrorCategoryInsufficientData ErrorCategory = "INSUFFICIENT_DATA"

	// Numerical edge cases that callers usually resolve to a sentinel value
	ErrorCategoryDegenerateVariance ErrorCategory = "DEGENERATE_VARIANCE"

	// Input and setup errors
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"
	ErrorCategoryData          ErrorCategory = "DATA"
)

// Sentinel errors, one per category that callers are expected to branch on.
var (
	// ErrInvalidFit means the estimator produced theta <= 0, a non-finite value,
	// or an AR(1) slope outside (0,1). The series is not mean-reverting under
	// the chosen estimator and the model must not be used for signals.
	ErrInvalidFit = stderrors.New("invalid fit: series is not mean-reverting")

	// ErrInsufficientData means fewer than two observations were supplied.
	ErrInsufficientData = stderrors.New("insufficient data: at least one transition required")

	// ErrDegenerateVariance means a sample standard deviation is zero or
	// numerically indistinguishable from zero.
	ErrDegenerateVariance = stderrors.New("degenerate variance")
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// Is reports whether target is the sentinel for this error's category, so
// errors.Is(err, ErrInvalidFit) holds even when Underlying is something else.
func (e *BotError) Is(target error) bool {
	sentinel := sentinelFor(e.Category)
	return sentinel != nil && target == sentinel
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// NewBotError creates a new categorized error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
	}
}

// WrapError wraps an existing error with categorized context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
	}
}

func sentinelFor(category ErrorCategory) error {
	switch category {
	case ErrorCategoryInvalidFit:
		return ErrInvalidFit
	case ErrorCategoryInsufficientData:
		return ErrInsufficientData
	case ErrorCategoryDegenerateVariance:
		return ErrDegenerateVariance
	default:
		return nil
	}
}

// Common error constructors

func NewInvalidFitError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryInvalidFit, component, operation, message)
}

func NewInsufficientDataError(component, operation string, got int) *BotError {
	return NewBotError(ErrorCategoryInsufficientData, component, operation,
		fmt.Sprintf("need at least 2 observations, got %d", got)).WithContext("observations", got)
}

func NewDegenerateVarianceError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryDegenerateVariance, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewDataError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryData, component, operation)
}

// IsInvalidFit reports whether err signals a non-mean-reverting fit
func IsInvalidFit(err error) bool {
	return stderrors.Is(err, ErrInvalidFit)
}

// IsInsufficientData reports whether err signals a too-short series
func IsInsufficientData(err error) bool {
	return stderrors.Is(err, ErrInsufficientData)
}

// CategoryOf extracts the category of a categorized error, or "" otherwise
func CategoryOf(err error) ErrorCategory {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.Category
	}
	return ""
}
