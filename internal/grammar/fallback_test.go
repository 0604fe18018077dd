package grammar_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/internal/resilience"
)

type scriptedChecker struct {
	suggestions []grammar.Suggestion
	err         error
	calls       int
}

func (s *scriptedChecker) Check(context.Context, string) ([]grammar.Suggestion, error) {
	s.calls++
	return s.suggestions, s.err
}

func TestFallback_PrimaryServes(t *testing.T) {
	t.Parallel()

	primary := &scriptedChecker{suggestions: []grammar.Suggestion{{Message: "from primary"}}}
	alt := &scriptedChecker{suggestions: []grammar.Suggestion{{Message: "from alternate"}}}

	f := grammar.NewFallback("primary", primary, resilience.ChainConfig{})
	f.Add("alternate", alt)

	got, err := f.Check(context.Background(), "He go to the store.")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "from primary" {
		t.Errorf("suggestions = %+v, want the primary's", got)
	}
	if alt.calls != 0 {
		t.Errorf("alternate calls = %d, want 0", alt.calls)
	}
}

func TestFallback_PrimaryFailureFallsBack(t *testing.T) {
	t.Parallel()

	primary := &scriptedChecker{err: errors.New("connection refused")}
	alt := &scriptedChecker{suggestions: []grammar.Suggestion{{Message: "from alternate"}}}

	f := grammar.NewFallback("primary", primary, resilience.ChainConfig{})
	f.Add("alternate", alt)

	got, err := f.Check(context.Background(), "He go to the store.")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if len(got) != 1 || got[0].Message != "from alternate" {
		t.Errorf("suggestions = %+v, want the alternate's", got)
	}
}

func TestFallback_AllEndpointsFail(t *testing.T) {
	t.Parallel()

	primary := &scriptedChecker{err: errors.New("connection refused")}
	alt := &scriptedChecker{err: errors.New("gateway timeout")}

	f := grammar.NewFallback("primary", primary, resilience.ChainConfig{})
	f.Add("alternate", alt)

	if _, err := f.Check(context.Background(), "text"); !errors.Is(err, resilience.ErrExhausted) {
		t.Errorf("Check() error = %v, want ErrExhausted", err)
	}
}

func TestFallback_OpenCircuitSkipsPrimary(t *testing.T) {
	t.Parallel()

	primary := &scriptedChecker{err: errors.New("connection refused")}
	alt := &scriptedChecker{suggestions: []grammar.Suggestion{{Message: "from alternate"}}}

	f := grammar.NewFallback("primary", primary, resilience.ChainConfig{
		Breaker: resilience.BreakerConfig{FailureLimit: 1, Cooldown: time.Hour},
	})
	f.Add("alternate", alt)

	for range 3 {
		if _, err := f.Check(context.Background(), "text"); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
	}
	// The first call trips the primary's circuit; later calls must not probe
	// it again within the cooldown.
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if alt.calls != 3 {
		t.Errorf("alternate calls = %d, want 3", alt.calls)
	}
}
