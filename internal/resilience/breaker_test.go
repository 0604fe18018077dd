package resilience

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

// newTestBreaker returns a breaker with a controllable clock.
func newTestBreaker(cfg BreakerConfig) (*Breaker, *time.Time) {
	b := NewBreaker(cfg)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b.now = func() time.Time { return now }
	return b, &now
}

func failTimes(b *Breaker, n int) {
	for range n {
		_ = b.Do(func() error { return errBoom })
	}
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{Name: "grammar", FailureLimit: 3})

	failTimes(b, 2)
	if got := b.State(); got != Closed {
		t.Fatalf("state=%v after 2 failures, want closed", got)
	}

	failTimes(b, 1)
	if got := b.State(); got != Open {
		t.Fatalf("state=%v after 3 failures, want open", got)
	}

	err := b.Do(func() error {
		t.Fatal("fn must not run while open")
		return nil
	})
	if !errors.Is(err, ErrOpen) {
		t.Errorf("Do while open: err=%v, want ErrOpen", err)
	}
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{FailureLimit: 3})

	failTimes(b, 2)
	if err := b.Do(func() error { return nil }); err != nil {
		t.Fatalf("Do: %v", err)
	}
	failTimes(b, 2)

	if got := b.State(); got != Closed {
		t.Errorf("state=%v, want closed (success should reset the streak)", got)
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(BreakerConfig{FailureLimit: 1, Cooldown: 10 * time.Second})

	failTimes(b, 1)
	if got := b.State(); got != Open {
		t.Fatalf("state=%v, want open", got)
	}

	*now = now.Add(11 * time.Second)
	if got := b.State(); got != HalfOpen {
		t.Fatalf("state=%v after cooldown, want half-open", got)
	}
}

func TestBreaker_ClosesAfterSuccessfulProbes(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(BreakerConfig{FailureLimit: 1, Cooldown: time.Second, ProbeQuota: 2})

	failTimes(b, 1)
	*now = now.Add(2 * time.Second)

	for range 2 {
		if err := b.Do(func() error { return nil }); err != nil {
			t.Fatalf("probe: %v", err)
		}
	}

	if got := b.State(); got != Closed {
		t.Errorf("state=%v after successful probes, want closed", got)
	}
}

func TestBreaker_ReopensOnFailedProbe(t *testing.T) {
	t.Parallel()

	b, now := newTestBreaker(BreakerConfig{FailureLimit: 1, Cooldown: time.Second})

	failTimes(b, 1)
	*now = now.Add(2 * time.Second)
	failTimes(b, 1)

	if got := b.State(); got != Open {
		t.Errorf("state=%v after failed probe, want open", got)
	}
}

func TestBreaker_Reset(t *testing.T) {
	t.Parallel()

	b, _ := newTestBreaker(BreakerConfig{FailureLimit: 1})
	failTimes(b, 1)

	b.Reset()
	if got := b.State(); got != Closed {
		t.Errorf("state=%v after Reset, want closed", got)
	}
	if err := b.Do(func() error { return nil }); err != nil {
		t.Errorf("Do after Reset: %v", err)
	}
}

func TestStateString(t *testing.T) {
	t.Parallel()

	cases := []struct {
		state State
		want  string
	}{
		{Closed, "closed"},
		{Open, "open"},
		{HalfOpen, "half-open"},
		{State(42), "unknown"},
	}
	for _, tc := range cases {
		if got := tc.state.String(); got != tc.want {
			t.Errorf("State(%d).String()=%q, want %q", tc.state, got, tc.want)
		}
	}
}
