package sdk

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Common errors returned by the SDK. These can be used with errors.Is()
// to check for specific error conditions.
//
// Server-reported failures are never returned as errors: a non-2xx response
// is data on the response value (WasSuccess false, Errors populated).
//
// Example:
//
//	resp, err := svc.Load(ctx, sdk.NoOptions, "player-1")
//	if errors.Is(err, sdk.ErrRequestCanceled) {
//	    // The reactor transport dropped the request
//	} else if err != nil {
//	    // No response was obtained at all
//	} else if !resp.WasSuccess() {
//	    // The backend rejected the request
//	}
var (
	// ErrInvalidConfig is returned when the configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingBaseURL is returned when an endpoint is built without a base
	ErrMissingBaseURL = errors.New("base URL cannot be empty")

	// ErrEmptyFunctionName is returned when a server function has no snippet name
	ErrEmptyFunctionName = errors.New("server function name cannot be empty")

	// ErrInvalidOption is returned for paging or sort values the backend cannot accept
	ErrInvalidOption = errors.New("invalid request option")

	// ErrStoreIdentifierSet is returned when an object's store identifier is changed
	ErrStoreIdentifierSet = errors.New("store identifier already set")

	// ErrInvalidSession is returned when a user-scoped call has no valid session
	ErrInvalidSession = errors.New("invalid session token")

	// ErrScopeMismatch is returned when an object belongs to another store scope
	ErrScopeMismatch = errors.New("object store does not match service scope")

	// ErrConversion is returned when JSON or domain conversion fails
	ErrConversion = errors.New("conversion failed")

	// ErrTimeout is returned when a request times out
	ErrTimeout = errors.New("request timeout")

	// ErrRequestCanceled is returned when a request is canceled before a response arrives
	ErrRequestCanceled = errors.New("request canceled")

	// ErrCircuitOpen is returned when the circuit breaker is open
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrRateLimited is returned when the client-side limiter rejects a request
	ErrRateLimited = errors.New("rate limited")

	// ErrRetryExhausted is returned when every attempt failed without a response
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrTransportClosed is returned by a transport after Close
	ErrTransportClosed = errors.New("transport closed")
)

// ErrorType represents the type of error for categorization and handling.
// Different error types may have different retry behaviors.
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    switch sdkErr.Type {
//	    case sdk.ErrorTypeNetwork:
//	        // Connection refused, DNS, reset
//	    case sdk.ErrorTypeConversion:
//	        // Malformed JSON in a constructor
//	    case sdk.ErrorTypeCanceled:
//	        // Reactor request was canceled
//	    }
//	}
type ErrorType int

const (
	// ErrorTypeUnknown represents an unknown or unclassified error
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeNetwork represents transport failures (connection refused, DNS, broken pipe)
	ErrorTypeNetwork
	// ErrorTypeTimeout represents timeout errors (request timeout, context deadline)
	ErrorTypeTimeout
	// ErrorTypeCanceled represents requests canceled before completion
	ErrorTypeCanceled
	// ErrorTypeConversion represents JSON or domain object conversion failures
	ErrorTypeConversion
	// ErrorTypeValidation represents construction failures raised before any request
	ErrorTypeValidation
	// ErrorTypeCircuitOpen represents circuit breaker open state errors
	ErrorTypeCircuitOpen
	// ErrorTypeRateLimit represents client-side rate limiting errors
	ErrorTypeRateLimit
	// ErrorTypeRetryExhausted represents a pooled request that ran out of attempts
	ErrorTypeRetryExhausted
)

// String returns the string representation of the error type
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCanceled:
		return "canceled"
	case ErrorTypeConversion:
		return "conversion"
	case ErrorTypeValidation:
		return "validation"
	case ErrorTypeCircuitOpen:
		return "circuit_open"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeRetryExhausted:
		return "retry_exhausted"
	default:
		return "unknown"
	}
}

// Error represents an enhanced error with additional context and metadata.
// It provides detailed information about what went wrong, whether the error
// is retryable, and context about the request that failed.
//
// The Error type implements the error interface and supports error wrapping
// via errors.Is() and errors.As().
//
// Example:
//
//	var sdkErr *sdk.Error
//	if errors.As(err, &sdkErr) {
//	    fmt.Printf("Error Type: %s\n", sdkErr.Type)
//	    fmt.Printf("Retryable: %v\n", sdkErr.IsRetryable())
//	    if sdkErr.Context != nil {
//	        fmt.Printf("Failed URL: %s\n", sdkErr.Context.URL)
//	        fmt.Printf("Attempts: %d\n", sdkErr.Context.Attempts)
//	    }
//	}
type Error struct {
	// Type categorizes the error for handling decisions
	Type ErrorType `json:"type"`
	// Message is a human-readable error description
	Message string `json:"message"`
	// Details contains additional error metadata
	Details map[string]interface{} `json:"details,omitempty"`
	// RequestID is the X-Request-Id of the last response, if any
	RequestID string `json:"request_id,omitempty"`
	// Timestamp is when the error occurred
	Timestamp time.Time `json:"timestamp"`
	// Retryable indicates if the operation can be retried
	Retryable bool `json:"retryable"`
	// Context provides additional context about the failed request
	Context *ErrorContext `json:"context,omitempty"`
	// wrapped is the underlying error, if any
	wrapped error
}

// ErrorContext provides additional context about the request that failed.
type ErrorContext struct {
	// URL is the full URL of the failed request
	URL string `json:"url,omitempty"`
	// Method is the HTTP method used (GET, PUT, POST, DELETE)
	Method string `json:"method,omitempty"`
	// Duration is how long the request took before failing
	Duration time.Duration `json:"duration,omitempty"`
	// Attempts is the number of attempts made
	Attempts int `json:"attempts,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Context != nil && e.Context.URL != "" {
		return fmt.Sprintf("%s error: %s (url: %s, attempts: %d)", e.Type, e.Message, e.Context.URL, e.Context.Attempts)
	}
	return fmt.Sprintf("%s error: %s", e.Type, e.Message)
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.wrapped
}

// Is implements errors.Is
func (e *Error) Is(target error) bool {
	switch e.Type {
	case ErrorTypeTimeout:
		return target == ErrTimeout
	case ErrorTypeCanceled:
		return target == ErrRequestCanceled
	case ErrorTypeConversion:
		return target == ErrConversion
	case ErrorTypeCircuitOpen:
		return target == ErrCircuitOpen
	case ErrorTypeRateLimit:
		return target == ErrRateLimited
	case ErrorTypeRetryExhausted:
		return target == ErrRetryExhausted
	}
	return false
}

// IsRetryable returns true if the error is retryable
func (e *Error) IsRetryable() bool {
	return e.Retryable
}

// WithContext adds error context
func (e *Error) WithContext(ctx *ErrorContext) *Error {
	e.Context = ctx
	return e
}

// WithDetail adds a detail to the error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// NewError creates a new enhanced error
func NewError(errType ErrorType, message string, wrapped error) *Error {
	return &Error{
		Type:      errType,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: isRetryableType(errType),
		wrapped:   wrapped,
	}
}

// isRetryableType determines if an error type is retryable
func isRetryableType(errType ErrorType) bool {
	switch errType {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

// NetworkError represents a transport failure: the request never produced
// an HTTP response (connection refused, DNS failure, reset, truncated read).
//
// Example:
//
//	var netErr *sdk.NetworkError
//	if errors.As(err, &netErr) {
//	    log.Printf("Network error during %s: %v", netErr.Op, netErr.Err)
//	}
type NetworkError struct {
	// Op is the operation that failed (e.g., "GET https://...", "read body")
	Op string
	// Err is the underlying network error
	Err error
}

// Error implements the error interface
func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// IsRetryable returns true if the network error is retryable
func (e *NetworkError) IsRetryable() bool {
	return !errors.Is(e.Err, context.Canceled)
}

// ToError converts NetworkError to the enhanced Error type
func (e *NetworkError) ToError() *Error {
	errType := ErrorTypeNetwork
	switch {
	case errors.Is(e.Err, context.DeadlineExceeded):
		errType = ErrorTypeTimeout
	case errors.Is(e.Err, context.Canceled):
		errType = ErrorTypeCanceled
	}
	err := NewError(errType, e.Error(), e)
	err.WithDetail("operation", e.Op)
	return err
}

// ConversionError reports JSON or domain conversion failures raised while
// constructing objects. Best-effort response parsing never returns one.
type ConversionError struct {
	// Source names what was being converted (e.g., "keyed object")
	Source string
	// Err is the underlying cause
	Err error
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %s: %v", e.Source, e.Err)
}

// Unwrap returns the underlying error
func (e *ConversionError) Unwrap() error {
	return e.Err
}

// Is matches ErrConversion
func (e *ConversionError) Is(target error) bool {
	return target == ErrConversion
}

func conversionError(source string, format string, args ...any) error {
	return &ConversionError{Source: source, Err: fmt.Errorf(format, args...)}
}

// validationError wraps a sentinel with call-site detail.
func validationError(sentinel error, format string, args ...any) error {
	return NewError(ErrorTypeValidation, fmt.Sprintf(format, args...), sentinel)
}

// IsRetryable checks if an error is retryable.
// Retryable errors include:
//   - Network errors (connection issues)
//   - Timeout errors
//
// Non-retryable errors include:
//   - Validation and conversion errors
//   - Canceled requests
//   - Circuit breaker open (fail fast)
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRequestCanceled) || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrTimeout) {
		return true
	}

	var enhancedErr *Error
	if errors.As(err, &enhancedErr) {
		return enhancedErr.IsRetryable()
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return netErr.IsRetryable()
	}

	return false
}

// IsCanceled reports whether err comes from a canceled request.
func IsCanceled(err error) bool {
	return errors.Is(err, ErrRequestCanceled) || errors.Is(err, context.Canceled)
}

// IsConversion reports whether err is a conversion failure.
func IsConversion(err error) bool {
	return errors.Is(err, ErrConversion)
}

// WrapError wraps an error with additional context and type information.
// If the error is already an enhanced Error, it updates the message.
// Otherwise, it creates a new Error with the specified type and message.
//
// Example:
//
//	if err := store.Save(ctx, id); err != nil {
//	    return sdk.WrapError(err, sdk.ErrorTypeNetwork, "failed to persist device id")
//	}
func WrapError(err error, errType ErrorType, message string) *Error {
	if err == nil {
		return nil
	}

	var enhancedErr *Error
	if errors.As(err, &enhancedErr) {
		enhancedErr.Message = message
		return enhancedErr
	}

	return NewError(errType, message, err)
}
