package helpers

import "fmt"

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MarketRotatorError struct {
	Message string
	Cause   error
}

func (e *MarketRotatorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MarketRotatorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As assertions at the composition root.
type ConfigurationError struct{ MarketRotatorError }
type FeedError struct{ MarketRotatorError }
type ValidationError struct{ MarketRotatorError }

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewConfigurationError(format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{MarketRotatorError{Message: fmt.Sprintf(format, args...)}}
}

// -----------------------------------------------------------------------------

func WrapFeedError(cause error, format string, args ...interface{}) *FeedError {
	return &FeedError{MarketRotatorError{Message: fmt.Sprintf(format, args...), Cause: cause}}
}

// -----------------------------------------------------------------------------

func NewValidationError(format string, args ...interface{}) *ValidationError {
	return &ValidationError{MarketRotatorError{Message: fmt.Sprintf(format, args...)}}
}
