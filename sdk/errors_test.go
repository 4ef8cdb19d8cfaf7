package sdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Is(t *testing.T) {
	tests := []struct {
		name     string
		errType  ErrorType
		sentinel error
	}{
		{"timeout", ErrorTypeTimeout, ErrTimeout},
		{"canceled", ErrorTypeCanceled, ErrRequestCanceled},
		{"conversion", ErrorTypeConversion, ErrConversion},
		{"circuit open", ErrorTypeCircuitOpen, ErrCircuitOpen},
		{"rate limit", ErrorTypeRateLimit, ErrRateLimited},
		{"retry exhausted", ErrorTypeRetryExhausted, ErrRetryExhausted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError(tt.errType, "boom", nil)
			assert.True(t, errors.Is(err, tt.sentinel))
			assert.False(t, errors.Is(err, ErrInvalidConfig))
			assert.Equal(t, tt.errType.String()+" error: boom", err.Error())
		})
	}
}

func TestErrorType_String(t *testing.T) {
	assert.Equal(t, "network", ErrorTypeNetwork.String())
	assert.Equal(t, "validation", ErrorTypeValidation.String())
	assert.Equal(t, "retry_exhausted", ErrorTypeRetryExhausted.String())
	assert.Equal(t, "unknown", ErrorType(99).String())
}

func TestValidationError_UnwrapsToSentinel(t *testing.T) {
	err := validationError(ErrInvalidOption, "paging limit %d", -5)

	assert.True(t, errors.Is(err, ErrInvalidOption))
	assert.False(t, errors.Is(err, ErrInvalidConfig))
	assert.False(t, IsRetryable(err))
	assert.Equal(t, "validation error: paging limit -5", err.Error())

	var sdkErr *Error
	assert.True(t, errors.As(err, &sdkErr))
	assert.Equal(t, ErrorTypeValidation, sdkErr.Type)
}

func TestError_WithContext(t *testing.T) {
	err := NewError(ErrorTypeRetryExhausted, "gave up", nil).
		WithContext(&ErrorContext{URL: "https://h/v1/app/a/text", Method: "GET", Attempts: 4}).
		WithDetail("status", 503)

	assert.Equal(t, "retry_exhausted error: gave up (url: https://h/v1/app/a/text, attempts: 4)", err.Error())
	assert.Equal(t, 503, err.Details["status"])
}

func TestNetworkError_ToError(t *testing.T) {
	tests := []struct {
		name      string
		cause     error
		wantType  ErrorType
		retryable bool
	}{
		{"reset", io.ErrUnexpectedEOF, ErrorTypeNetwork, true},
		{"deadline", fmt.Errorf("dial: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"canceled", context.Canceled, ErrorTypeCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			netErr := &NetworkError{Op: "GET https://h", Err: tt.cause}
			err := netErr.ToError()

			assert.Equal(t, tt.wantType, err.Type)
			assert.Equal(t, tt.retryable, IsRetryable(err))
			assert.Equal(t, "GET https://h", err.Details["operation"])
			assert.True(t, errors.Is(err, tt.cause))

			var unwrapped *NetworkError
			assert.True(t, errors.As(err, &unwrapped))
		})
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("x"), false},
		{"timeout sentinel", fmt.Errorf("wrapped: %w", ErrTimeout), true},
		{"network", NewError(ErrorTypeNetwork, "reset", nil), true},
		{"circuit open", NewError(ErrorTypeCircuitOpen, "open", nil), false},
		{"canceled context", fmt.Errorf("op: %w", context.Canceled), false},
		{"bare network error", &NetworkError{Op: "read", Err: io.EOF}, true},
		{"conversion", &ConversionError{Source: "object", Err: io.EOF}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestConversionError(t *testing.T) {
	err := conversionError("keyed object", "expected one key, got %d", 2)
	assert.True(t, IsConversion(err))
	assert.Equal(t, "cannot convert keyed object: expected one key, got 2", err.Error())
	assert.False(t, IsCanceled(err))
}

func TestWrapError(t *testing.T) {
	assert.Nil(t, WrapError(nil, ErrorTypeNetwork, "x"))

	wrapped := WrapError(io.EOF, ErrorTypeNetwork, "device store unreachable")
	assert.Equal(t, ErrorTypeNetwork, wrapped.Type)
	assert.True(t, errors.Is(wrapped, io.EOF))

	original := NewError(ErrorTypeTimeout, "slow", nil)
	same := WrapError(fmt.Errorf("ctx: %w", original), ErrorTypeNetwork, "renamed")
	assert.Same(t, original, same)
	assert.Equal(t, "renamed", same.Message)
	assert.Equal(t, ErrorTypeTimeout, same.Type)
}
