package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// Faults that must stop processing
	ErrorCategoryFatal         ErrorCategory = "FATAL"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Internal-consistency faults: logged, mutation discarded, symbol skipped
	ErrorCategoryInvariant ErrorCategory = "INVARIANT"

	// Absorbed at the stage boundary nearest their origin
	ErrorCategoryTransient  ErrorCategory = "TRANSIENT"
	ErrorCategoryNetwork    ErrorCategory = "NETWORK"
	ErrorCategoryTimeout    ErrorCategory = "TIMEOUT"
	ErrorCategoryValidation ErrorCategory = "VALIDATION"
	ErrorCategoryPosition   ErrorCategory = "POSITION"
	ErrorCategoryStorage    ErrorCategory = "STORAGE"
	ErrorCategoryRateLimit  ErrorCategory = "RATE_LIMIT"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
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

// IsRetryable returns whether this error can be retried
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// IsFatal returns whether this error should stop processing
func (e *BotError) IsFatal() bool {
	return e.Category == ErrorCategoryFatal || e.Category == ErrorCategoryConfiguration
}

// IsTransient returns whether the error only costs the current cycle for one symbol
func (e *BotError) IsTransient() bool {
	switch e.Category {
	case ErrorCategoryTransient, ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryRateLimit:
		return true
	}
	return false
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
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
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithRetryable sets the retryable flag
func (e *BotError) WithRetryable(retryable bool) *BotError {
	e.Retryable = retryable
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTransient, ErrorCategoryRateLimit, ErrorCategoryStorage:
		return true
	default:
		return false
	}
}

// As extracts a *BotError from an error chain
func As(err error) (*BotError, bool) {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr, true
	}
	return nil, false
}

// IsCategory reports whether any BotError in the chain has the given category
func IsCategory(err error, category ErrorCategory) bool {
	botErr, ok := As(err)
	return ok && botErr.Category == category
}

// CategorizeError attempts to categorize a generic error
func CategorizeError(err error, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	if botErr, ok := As(err); ok {
		return botErr
	}

	errMsg := strings.ToLower(err.Error())

	if strings.Contains(errMsg, "timeout") || strings.Contains(errMsg, "context deadline exceeded") {
		return WrapError(err, ErrorCategoryTimeout, component, operation)
	}

	if strings.Contains(errMsg, "connection") || strings.Contains(errMsg, "network") ||
		strings.Contains(errMsg, "dns") || strings.Contains(errMsg, "dial") {
		return WrapError(err, ErrorCategoryNetwork, component, operation)
	}

	if strings.Contains(errMsg, "rate limit") || strings.Contains(errMsg, "too many requests") {
		return WrapError(err, ErrorCategoryRateLimit, component, operation)
	}

	if strings.Contains(errMsg, "invalid") || strings.Contains(errMsg, "malformed") {
		return WrapError(err, ErrorCategoryValidation, component, operation)
	}

	return WrapError(err, ErrorCategoryTransient, component, operation)
}

// Common error constructors
func NewTransientError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTransient, component, operation)
}

func NewTimeoutError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTimeout, component, operation)
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewInvariantError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryInvariant, component, operation, message)
}

func NewStorageError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryStorage, component, operation)
}

// RecoveryAction is what the caller should do with a failed operation
type RecoveryAction string

const (
	RecoveryActionRetry    RecoveryAction = "RETRY"
	RecoveryActionSkip     RecoveryAction = "SKIP"
	RecoveryActionStop     RecoveryAction = "STOP"
	RecoveryActionFallback RecoveryAction = "FALLBACK"
	RecoveryActionWait     RecoveryAction = "WAIT"
)

// GetRecoveryAction suggests a recovery action based on error category
func (e *BotError) GetRecoveryAction() RecoveryAction {
	switch e.Category {
	case ErrorCategoryFatal, ErrorCategoryConfiguration:
		return RecoveryActionStop
	case ErrorCategoryRateLimit:
		return RecoveryActionWait
	case ErrorCategoryStorage:
		return RecoveryActionFallback
	case ErrorCategoryNetwork, ErrorCategoryTimeout, ErrorCategoryTransient:
		if e.Retryable {
			return RecoveryActionRetry
		}
		return RecoveryActionSkip
	default:
		return RecoveryActionSkip
	}
}

// ErrorStats tracks error statistics
type ErrorStats struct {
	mu               sync.Mutex
	TotalErrors      int
	ErrorsByCategory map[ErrorCategory]int
	RecentErrors     []*BotError
	MaxRecentErrors  int
}

// NewErrorStats creates a new error statistics tracker
func NewErrorStats(maxRecentErrors int) *ErrorStats {
	return &ErrorStats{
		ErrorsByCategory: make(map[ErrorCategory]int),
		RecentErrors:     make([]*BotError, 0, maxRecentErrors),
		MaxRecentErrors:  maxRecentErrors,
	}
}

// RecordError records an error in the statistics
func (es *ErrorStats) RecordError(err *BotError) {
	if err == nil {
		return
	}
	es.mu.Lock()
	defer es.mu.Unlock()

	es.TotalErrors++
	es.ErrorsByCategory[err.Category]++

	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > es.MaxRecentErrors {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate returns the share of errors in a specific category
func (es *ErrorStats) GetErrorRate(category ErrorCategory) float64 {
	es.mu.Lock()
	defer es.mu.Unlock()
	if es.TotalErrors == 0 {
		return 0.0
	}
	return float64(es.ErrorsByCategory[category]) / float64(es.TotalErrors)
}

// HasRecentErrors checks if there have been at least count recent errors of a category
func (es *ErrorStats) HasRecentErrors(category ErrorCategory, count int) bool {
	es.mu.Lock()
	defer es.mu.Unlock()
	recentCount := 0
	for _, err := range es.RecentErrors {
		if err.Category == category {
			recentCount++
		}
	}
	return recentCount >= count
}

// Recent returns the formatted recent errors, oldest first
func (es *ErrorStats) Recent() []string {
	es.mu.Lock()
	defer es.mu.Unlock()
	out := make([]string, 0, len(es.RecentErrors))
	for _, err := range es.RecentErrors {
		out = append(out, err.Error())
	}
	return out
}
