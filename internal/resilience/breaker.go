// Package resilience provides the circuit breaker and endpoint failover
// primitives that keep optional external services (the grammar checker in
// particular) from dragging down an analysis.
//
// [Breaker] is a classic three-state circuit breaker (closed → open →
// half-open). [Chain] composes multiple endpoints of the same type with
// per-endpoint breakers so a failing primary is bypassed in favour of healthy
// alternates.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrOpen is returned by [Breaker.Do] while the breaker is open and the
// cool-down has not yet elapsed.
var ErrOpen = errors.New("resilience: circuit open")

// State is the operating mode of a [Breaker].
type State int

const (
	// Closed is the normal state: calls pass through.
	Closed State = iota

	// Open rejects calls immediately with [ErrOpen] until the cool-down
	// elapses.
	Open

	// HalfOpen lets a limited number of probe calls through. Enough
	// successes close the breaker; any failure re-opens it.
	HalfOpen
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig holds tuning knobs for a [Breaker]. Zero-value fields use the
// defaults noted per field.
type BreakerConfig struct {
	// Name labels the breaker in log messages.
	Name string

	// FailureLimit is the number of consecutive failures, while closed,
	// that trips the breaker. Default: 5.
	FailureLimit int

	// Cooldown is how long the breaker stays open before probing again.
	// Default: 30s.
	Cooldown time.Duration

	// ProbeQuota is how many half-open probes must succeed before the
	// breaker closes again. Default: 2.
	ProbeQuota int
}

// Breaker implements the three-state circuit breaker pattern. Safe for
// concurrent use.
type Breaker struct {
	name         string
	failureLimit int
	cooldown     time.Duration
	probeQuota   int

	// now is swappable for deterministic tests.
	now func() time.Time

	mu          sync.Mutex
	state       State
	failures    int
	openedAt    time.Time
	probeActive int
	probeOK     int
}

// NewBreaker creates a [Breaker] from cfg, filling defaults for zero fields.
func NewBreaker(cfg BreakerConfig) *Breaker {
	if cfg.FailureLimit <= 0 {
		cfg.FailureLimit = 5
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.ProbeQuota <= 0 {
		cfg.ProbeQuota = 2
	}
	return &Breaker{
		name:         cfg.Name,
		failureLimit: cfg.FailureLimit,
		cooldown:     cfg.Cooldown,
		probeQuota:   cfg.ProbeQuota,
		now:          time.Now,
		state:        Closed,
	}
}

// Do runs fn if the breaker allows it. While open it returns [ErrOpen]
// without calling fn; in half-open only a bounded number of probes get
// through.
func (b *Breaker) Do(fn func() error) error {
	if err := b.admit(); err != nil {
		return err
	}

	err := fn()
	b.settle(err)
	return err
}

// admit decides whether a call may proceed, performing any due state
// transition.
func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.state = HalfOpen
		b.probeActive = 0
		b.probeOK = 0
		slog.Info("circuit entering half-open", "name", b.name)

	case HalfOpen:
		if b.probeActive >= b.probeQuota {
			return ErrOpen
		}
	}

	if b.state == HalfOpen {
		b.probeActive++
	}
	return nil
}

// settle records a call outcome and transitions state accordingly.
func (b *Breaker) settle(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		if b.state == HalfOpen {
			// A failed probe re-opens immediately.
			b.trip()
			return
		}
		b.failures++
		if b.failures >= b.failureLimit {
			b.trip()
		}
		return
	}

	switch b.state {
	case HalfOpen:
		b.probeOK++
		if b.probeOK >= b.probeQuota {
			b.state = Closed
			b.failures = 0
			slog.Info("circuit closed after successful probes", "name", b.name)
		}
	case Closed:
		b.failures = 0
	}
}

// trip opens the breaker. Must be called with b.mu held.
func (b *Breaker) trip() {
	b.state = Open
	b.openedAt = b.now()
	b.failures = b.failureLimit
	slog.Warn("circuit opened", "name", b.name, "cooldown", b.cooldown)
}

// State returns the breaker's current state. An open breaker whose cool-down
// has elapsed reports [HalfOpen]; the actual transition happens on the next
// [Breaker.Do].
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == Open && b.now().Sub(b.openedAt) >= b.cooldown {
		return HalfOpen
	}
	return b.state
}

// Reset forces the breaker back to [Closed] and clears all counters.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = Closed
	b.failures = 0
	b.probeActive = 0
	b.probeOK = 0
}
