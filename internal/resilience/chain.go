package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrExhausted is returned when every endpoint in a [Chain] fails or has an
// open breaker.
var ErrExhausted = errors.New("resilience: all endpoints failed")

// ChainConfig configures the per-endpoint breaker created for each entry in a
// [Chain].
type ChainConfig struct {
	Breaker BreakerConfig
}

// entry pairs an endpoint value with its dedicated breaker.
type entry[T any] struct {
	name    string
	value   T
	breaker *Breaker
}

// Chain wraps a primary and zero or more alternate endpoints of the same
// type. When the primary fails (or its breaker is open), the next healthy
// alternate is tried in registration order.
//
// Chain is safe for concurrent use once assembled; Add must not race with Do.
type Chain[T any] struct {
	entries []entry[T]
	cfg     ChainConfig
}

// NewChain creates a [Chain] with primary as the first endpoint.
func NewChain[T any](primaryName string, primary T, cfg ChainConfig) *Chain[T] {
	c := &Chain[T]{cfg: cfg}
	c.Add(primaryName, primary)
	return c
}

// Add appends an alternate endpoint. Alternates are tried in the order they
// were added, after the primary.
func (c *Chain[T]) Add(name string, value T) {
	bc := c.cfg.Breaker
	bc.Name = name
	c.entries = append(c.entries, entry[T]{
		name:    name,
		value:   value,
		breaker: NewBreaker(bc),
	})
}

// Do tries fn against each endpoint in order until one succeeds. Endpoints
// with open breakers are skipped. Returns [ErrExhausted] wrapped with the
// last error when every endpoint fails.
func (c *Chain[T]) Do(fn func(T) error) error {
	var lastErr error
	for i := range c.entries {
		e := &c.entries[i]
		err := e.breaker.Do(func() error {
			return fn(e.value)
		})
		if err == nil {
			return nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping endpoint (circuit open)", "endpoint", e.name)
		} else {
			slog.Warn("endpoint failed, trying next", "endpoint", e.name, "error", err)
		}
	}
	return fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}

// DoWithResult tries fn against each endpoint in the chain until one
// succeeds, returning both the result value and error. A package-level
// function because Go does not support method-level type parameters.
func DoWithResult[T any, R any](c *Chain[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range c.entries {
		e := &c.entries[i]
		var result R
		err := e.breaker.Do(func() error {
			var innerErr error
			result, innerErr = fn(e.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrOpen) {
			slog.Debug("skipping endpoint (circuit open)", "endpoint", e.name)
		} else {
			slog.Warn("endpoint failed, trying next", "endpoint", e.name, "error", err)
		}
	}
	return zero, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
}
