package testdata

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// AssertEventually polls condition every tick until it holds or timeout
// passes.
func AssertEventually(t *testing.T, condition func() bool, timeout, tick time.Duration, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Eventually(t, condition, timeout, tick, msgAndArgs...)
}

// AssertHeader checks one header of a recorded request.
func AssertHeader(t *testing.T, req RecordedRequest, name, expected string) {
	t.Helper()
	assert.Equal(t, expected, req.Headers.Get(name), "header %s of %s %s", name, req.Method, req.Path)
}

// Concurrent fans a function out over goroutines and collects their
// errors.
type Concurrent struct {
	t    *testing.T
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

// NewConcurrent creates a Concurrent bound to t.
func NewConcurrent(t *testing.T) *Concurrent {
	return &Concurrent{t: t}
}

// Run starts n goroutines calling fn with their index.
func (c *Concurrent) Run(n int, fn func(i int) error) {
	c.wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer c.wg.Done()
			if err := fn(i); err != nil {
				c.mu.Lock()
				c.errs = append(c.errs, fmt.Errorf("goroutine %d: %w", i, err))
				c.mu.Unlock()
			}
		}(i)
	}
}

// Wait blocks until every goroutine returned and fails the test if any
// reported an error.
func (c *Concurrent) Wait() {
	c.t.Helper()
	c.wg.Wait()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, err := range c.errs {
		c.t.Error(err)
	}
	if len(c.errs) > 0 {
		c.t.FailNow()
	}
}
