package resilience

import (
	"errors"
	"testing"
	"time"
)

type fakeEndpoint struct {
	name  string
	calls int
	err   error
}

func TestChain_PrimarySucceeds(t *testing.T) {
	t.Parallel()

	primary := &fakeEndpoint{name: "primary"}
	alt := &fakeEndpoint{name: "alt"}
	c := NewChain("primary", primary, ChainConfig{})
	c.Add("alt", alt)

	err := c.Do(func(e *fakeEndpoint) error {
		e.calls++
		return e.err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if primary.calls != 1 {
		t.Errorf("primary.calls=%d, want 1", primary.calls)
	}
	if alt.calls != 0 {
		t.Errorf("alt.calls=%d, want 0 (alternate must not run when primary succeeds)", alt.calls)
	}
}

func TestChain_FallsBackToAlternate(t *testing.T) {
	t.Parallel()

	primary := &fakeEndpoint{name: "primary", err: errBoom}
	alt := &fakeEndpoint{name: "alt"}
	c := NewChain("primary", primary, ChainConfig{})
	c.Add("alt", alt)

	err := c.Do(func(e *fakeEndpoint) error {
		e.calls++
		return e.err
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if primary.calls != 1 || alt.calls != 1 {
		t.Errorf("calls primary=%d alt=%d, want 1 and 1", primary.calls, alt.calls)
	}
}

func TestChain_AllFail(t *testing.T) {
	t.Parallel()

	c := NewChain("primary", &fakeEndpoint{err: errBoom}, ChainConfig{})
	c.Add("alt", &fakeEndpoint{err: errBoom})

	err := c.Do(func(e *fakeEndpoint) error { return e.err })
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("Do: err=%v, want ErrExhausted", err)
	}
}

func TestChain_SkipsOpenBreaker(t *testing.T) {
	t.Parallel()

	primary := &fakeEndpoint{name: "primary", err: errBoom}
	alt := &fakeEndpoint{name: "alt"}
	c := NewChain("primary", primary, ChainConfig{
		Breaker: BreakerConfig{FailureLimit: 1, Cooldown: time.Hour},
	})
	c.Add("alt", alt)

	do := func() error {
		return c.Do(func(e *fakeEndpoint) error {
			e.calls++
			return e.err
		})
	}

	// First call trips the primary's breaker and falls back.
	if err := do(); err != nil {
		t.Fatalf("first Do: %v", err)
	}
	// Second call must skip the primary outright.
	if err := do(); err != nil {
		t.Fatalf("second Do: %v", err)
	}

	if primary.calls != 1 {
		t.Errorf("primary.calls=%d, want 1 (open breaker should block the retry)", primary.calls)
	}
	if alt.calls != 2 {
		t.Errorf("alt.calls=%d, want 2", alt.calls)
	}
}

func TestDoWithResult_ReturnsValue(t *testing.T) {
	t.Parallel()

	primary := &fakeEndpoint{name: "primary", err: errBoom}
	alt := &fakeEndpoint{name: "alt"}
	c := NewChain("primary", primary, ChainConfig{})
	c.Add("alt", alt)

	got, err := DoWithResult(c, func(e *fakeEndpoint) (string, error) {
		if e.err != nil {
			return "", e.err
		}
		return e.name, nil
	})
	if err != nil {
		t.Fatalf("DoWithResult: %v", err)
	}
	if got != "alt" {
		t.Errorf("result=%q, want %q", got, "alt")
	}
}

func TestDoWithResult_AllFail(t *testing.T) {
	t.Parallel()

	c := NewChain("only", &fakeEndpoint{err: errBoom}, ChainConfig{})

	got, err := DoWithResult(c, func(e *fakeEndpoint) (int, error) {
		return 7, e.err
	})
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("err=%v, want ErrExhausted", err)
	}
	if got != 0 {
		t.Errorf("result=%d, want zero value on failure", got)
	}
}
