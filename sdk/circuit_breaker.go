package sdk

import (
	"sync"
	"time"
)

// CircuitState represents the current state of a circuit breaker.
//
// State transitions:
//   - Closed -> Open: When failure threshold is reached
//   - Open -> Half-Open: After timeout period expires
//   - Half-Open -> Closed: When success threshold is reached
//   - Half-Open -> Open: On any failure
type CircuitState int

const (
	// CircuitClosed lets every attempt through and counts failures.
	CircuitClosed CircuitState = iota
	// CircuitOpen rejects attempts without touching the network.
	CircuitOpen
	// CircuitHalfOpen lets a limited number of probes through.
	CircuitHalfOpen
)

// String returns the string representation of the circuit state
func (cs CircuitState) String() string {
	switch cs {
	case CircuitClosed:
		return "closed"
	case CircuitOpen:
		return "open"
	case CircuitHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker guards the pooled transport's attempts. While open,
// attempts fail fast with ErrCircuitOpen and are not retried.
//
// Example:
//
//	config := sdk.DefaultConfig().
//	    WithTransportMode(sdk.TransportPooled).
//	    WithCircuitBreaker(sdk.DefaultCircuitBreakerConfig())
type CircuitBreaker interface {
	// Execute runs fn if the circuit allows it. The error returned by fn
	// updates the circuit state.
	Execute(fn func() error) error

	State() CircuitState

	// Reset forces the circuit closed.
	Reset()
}

// CircuitBreakerConfig holds configuration for circuit breaker behavior.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// the circuit.
	// Default: 5
	FailureThreshold int

	// SuccessThreshold is the number of half-open successes that closes
	// the circuit.
	// Default: 2
	SuccessThreshold int

	// Timeout is how long the circuit stays open before probing.
	// Default: 30s
	Timeout time.Duration

	// HalfOpenRequests caps concurrent probes while half-open.
	// Default: 3
	HalfOpenRequests int
}

// DefaultCircuitBreakerConfig returns 5 failures to open, 2 successes to
// close, a 30s open period and 3 half-open probes.
func DefaultCircuitBreakerConfig() CircuitBreakerConfig {
	return CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
		HalfOpenRequests: 3,
	}
}

type circuitBreaker struct {
	config CircuitBreakerConfig

	mu               sync.Mutex
	state            CircuitState
	failures         int
	successes        int
	halfOpenRequests int
	lastFailureTime  time.Time
	now              func() time.Time
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(config CircuitBreakerConfig) CircuitBreaker {
	return &circuitBreaker{
		config: config,
		state:  CircuitClosed,
		now:    time.Now,
	}
}

// Execute runs the given function if the circuit allows it
func (cb *circuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.checkStateTransition()

	switch cb.state {
	case CircuitOpen:
		cb.mu.Unlock()
		return NewError(ErrorTypeCircuitOpen, "circuit breaker is open", ErrCircuitOpen)
	case CircuitHalfOpen:
		if cb.halfOpenRequests >= cb.config.HalfOpenRequests {
			cb.mu.Unlock()
			return NewError(ErrorTypeCircuitOpen, "circuit breaker half-open limit reached", ErrCircuitOpen)
		}
		cb.halfOpenRequests++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	cb.mu.Unlock()
	return err
}

// State returns the current state of the circuit
func (cb *circuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.checkStateTransition()
	return cb.state
}

// Reset manually resets the circuit to closed state
func (cb *circuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.transitionTo(CircuitClosed)
}

func (cb *circuitBreaker) checkStateTransition() {
	if cb.state == CircuitOpen && cb.now().Sub(cb.lastFailureTime) >= cb.config.Timeout {
		cb.transitionTo(CircuitHalfOpen)
	}
}

func (cb *circuitBreaker) onSuccess() {
	switch cb.state {
	case CircuitClosed:
		cb.failures = 0
	case CircuitHalfOpen:
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.transitionTo(CircuitClosed)
		}
	}
}

func (cb *circuitBreaker) onFailure() {
	cb.lastFailureTime = cb.now()

	switch cb.state {
	case CircuitClosed:
		cb.failures++
		if cb.failures >= cb.config.FailureThreshold {
			cb.transitionTo(CircuitOpen)
		}
	case CircuitHalfOpen:
		cb.transitionTo(CircuitOpen)
	}
}

// transitionTo resets every counter.
func (cb *circuitBreaker) transitionTo(newState CircuitState) {
	cb.state = newState
	cb.failures = 0
	cb.successes = 0
	cb.halfOpenRequests = 0
}

type noopCircuitBreaker struct{}

func (noopCircuitBreaker) Execute(fn func() error) error { return fn() }
func (noopCircuitBreaker) State() CircuitState           { return CircuitClosed }
func (noopCircuitBreaker) Reset()                        {}

// NewNoopCircuitBreaker returns a breaker that always lets calls through.
func NewNoopCircuitBreaker() CircuitBreaker {
	return noopCircuitBreaker{}
}

// observedCircuitBreaker reports state changes to an Observer.
type observedCircuitBreaker struct {
	cb       CircuitBreaker
	endpoint string
	observer Observer

	mu        sync.Mutex
	lastState CircuitState
}

func newObservedCircuitBreaker(cb CircuitBreaker, endpoint string, observer Observer) CircuitBreaker {
	return &observedCircuitBreaker{
		cb:        cb,
		endpoint:  endpoint,
		observer:  observer,
		lastState: cb.State(),
	}
}

func (o *observedCircuitBreaker) Execute(fn func() error) error {
	err := o.cb.Execute(fn)
	o.notify()
	return err
}

func (o *observedCircuitBreaker) State() CircuitState {
	o.notify()
	return o.cb.State()
}

func (o *observedCircuitBreaker) Reset() {
	o.cb.Reset()
	o.notify()
}

func (o *observedCircuitBreaker) notify() {
	current := o.cb.State()
	o.mu.Lock()
	old := o.lastState
	o.lastState = current
	o.mu.Unlock()
	if old != current {
		o.observer.OnCircuitBreakerStateChange(o.endpoint, old, current)
	}
}
