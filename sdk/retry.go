package sdk

import (
	"errors"
	"math"
	"math/rand"
	"time"
)

// RetryStrategy computes the delay before the next attempt of the pooled
// transport. The attempt parameter starts at 1 for the first retry; a
// zero or negative delay stops retrying.
//
// The SDK provides:
//   - ExponentialBackoffStrategy: growing delays with jitter (the default)
//   - LinearBackoffStrategy: fixed delay with jitter
//   - ConstantBackoffStrategy: fixed delay
//   - NoRetryStrategy: a single attempt
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithTransportMode(sdk.TransportPooled).
//	    WithRetryStrategy(sdk.RetryStrategyFunc(func(attempt int) time.Duration {
//	        return time.Duration(attempt*attempt) * 100 * time.Millisecond
//	    }))
type RetryStrategy interface {
	NextInterval(attempt int) time.Duration
}

// RetryStrategyFunc adapts a function to RetryStrategy.
type RetryStrategyFunc func(attempt int) time.Duration

// NextInterval calls f.
func (f RetryStrategyFunc) NextInterval(attempt int) time.Duration {
	return f(attempt)
}

// RetryBudget limits which failures are retried and how often.
//
// Example:
//
//	budget := sdk.RetryBudget{
//	    MaxAttempts:     3,
//	    RetryableErrors: []sdk.ErrorType{sdk.ErrorTypeNetwork},
//	}
//	config := sdk.DefaultConfig().
//	    WithRetryPredicate(sdk.BudgetPredicate(budget))
type RetryBudget struct {
	// MaxAttempts is the total number of attempts, first try included.
	// Zero means no limit from the budget.
	MaxAttempts int

	// RetryableErrors restricts retries to these error types.
	// If empty, every retryable error qualifies.
	RetryableErrors []ErrorType
}

// Exhausted reports whether attempt was the last one allowed.
func (rb RetryBudget) Exhausted(attempt int) bool {
	return rb.MaxAttempts > 0 && attempt >= rb.MaxAttempts
}

// Allows reports whether err may be retried under this budget.
func (rb RetryBudget) Allows(err error) bool {
	if !IsRetryable(err) {
		return false
	}
	if len(rb.RetryableErrors) == 0 {
		return true
	}
	var e *Error
	if errors.As(err, &e) {
		for _, allowed := range rb.RetryableErrors {
			if e.Type == allowed {
				return true
			}
		}
	}
	return false
}

// BudgetPredicate builds a RetryPredicate that retries gateway failures and
// the errors allowed by b, until b is exhausted.
func BudgetPredicate(b RetryBudget) RetryPredicate {
	return func(attempt int, resp *Response, err error) bool {
		if b.Exhausted(attempt) {
			return false
		}
		if err != nil {
			return b.Allows(err)
		}
		return DefaultRetryPredicate(attempt, resp, nil)
	}
}

// ExponentialBackoffStrategy implements exponential backoff with jitter.
//
// The delay calculation is:
//
//	base = InitialInterval * (Multiplier ^ (attempt-1))
//	delay = min(base, MaxInterval) ± jitter
//
// Example:
//
//	strategy := &sdk.ExponentialBackoffStrategy{
//	    InitialInterval: 100 * time.Millisecond,
//	    MaxInterval:     10 * time.Second,
//	    Multiplier:      2.0,
//	    Jitter:          0.3,
//	}
type ExponentialBackoffStrategy struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64

	// Jitter is the randomization factor (0.0 to 1.0).
	// 0.3 means ±30% randomization of the calculated interval.
	Jitter float64

	// Budget stops the strategy once MaxAttempts is reached.
	Budget RetryBudget
}

// DefaultExponentialBackoff returns 100ms doubling up to 5s with ±30%
// jitter and no attempt limit of its own.
func DefaultExponentialBackoff() *ExponentialBackoffStrategy {
	return &ExponentialBackoffStrategy{
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     5 * time.Second,
		Multiplier:      2.0,
		Jitter:          0.3,
	}
}

// NextInterval calculates the next retry interval
func (s *ExponentialBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 || s.Budget.Exhausted(attempt) {
		return 0
	}

	interval := float64(s.InitialInterval) * math.Pow(s.Multiplier, float64(attempt-1))
	if s.MaxInterval > 0 && interval > float64(s.MaxInterval) {
		interval = float64(s.MaxInterval)
	}
	return applyJitter(interval, s.Jitter)
}

// LinearBackoffStrategy waits Interval ± jitter between attempts.
type LinearBackoffStrategy struct {
	Interval time.Duration
	Jitter   float64
	Budget   RetryBudget
}

// NextInterval returns the next retry interval
func (s *LinearBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 || s.Budget.Exhausted(attempt) {
		return 0
	}
	return applyJitter(float64(s.Interval), s.Jitter)
}

// ConstantBackoffStrategy waits exactly Interval between attempts.
type ConstantBackoffStrategy struct {
	Interval time.Duration
	Budget   RetryBudget
}

// NextInterval returns the next retry interval
func (s *ConstantBackoffStrategy) NextInterval(attempt int) time.Duration {
	if attempt <= 0 || s.Budget.Exhausted(attempt) {
		return 0
	}
	return s.Interval
}

// NoRetryStrategy disables retries entirely.
type NoRetryStrategy struct{}

// NextInterval always returns 0
func (NoRetryStrategy) NextInterval(int) time.Duration {
	return 0
}

// applyJitter spreads interval by ±factor and clamps at a 1ns floor so a
// positive base never turns into "stop".
func applyJitter(interval, factor float64) time.Duration {
	if factor > 0 {
		spread := interval * factor
		interval += spread * (2*rand.Float64() - 1)
	}
	if interval < 1 {
		interval = 1
	}
	return time.Duration(interval)
}
