package fluency_test

import (
	"testing"
	"time"

	"github.com/voxprep/voxprep/pkg/fluency"
)

func TestPhoneticFillers_StretchedVariants(t *testing.T) {
	t.Parallel()

	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("Ummm, I was thinking, ummm, maybe we should wait.", time.Minute)

	if got := report.Fillers["um"]; got != 2 {
		t.Errorf("fillers[um]=%d, want 2 stretched variants", got)
	}
}

func TestPhoneticFillers_MergeWithExactMatches(t *testing.T) {
	t.Parallel()

	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("um ummm um", time.Minute)

	// Two exact matches plus one variant make three, triggering the heavier
	// deduction.
	if got := report.Fillers["um"]; got != 3 {
		t.Errorf("fillers[um]=%d, want 3 (2 exact + 1 variant)", got)
	}
}

func TestPhoneticFillers_DisabledByDefault(t *testing.T) {
	t.Parallel()

	a := fluency.New()
	report := a.Analyze("Ummm, that could work.", time.Minute)

	if _, ok := report.Fillers["um"]; ok {
		t.Errorf("fillers=%v, variants must not count when the option is off", report.Fillers)
	}
}

func TestPhoneticFillers_UhVariant(t *testing.T) {
	t.Parallel()

	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("Uhh, give me a second here.", time.Minute)

	if got := report.Fillers["uh"]; got != 1 {
		t.Errorf("fillers[uh]=%d, want 1", got)
	}
}

func TestPhoneticFillers_ThresholdRejectsDistantTokens(t *testing.T) {
	t.Parallel()

	a := fluency.New(
		fluency.WithPhoneticFillers(),
		fluency.WithPhoneticThreshold(0.99),
	)
	report := a.Analyze("Ummm, that could work.", time.Minute)

	if _, ok := report.Fillers["um"]; ok {
		t.Errorf("fillers=%v, threshold 0.99 must reject stretched variants", report.Fillers)
	}
}

func TestPhoneticFillers_LongConsonantRuns(t *testing.T) {
	t.Parallel()

	// Arbitrarily long stretches collapse to the same phonetic code as the
	// canonical word.
	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("Ummmmm let me think. Uhhhh right.", time.Minute)

	if got := report.Fillers["um"]; got != 1 {
		t.Errorf("fillers[um]=%d, want 1", got)
	}
	if got := report.Fillers["uh"]; got != 1 {
		t.Errorf("fillers[uh]=%d, want 1", got)
	}
}

func TestPhoneticFillers_UnrelatedTokensNotCounted(t *testing.T) {
	t.Parallel()

	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("The drummer kept a calm arm.", time.Minute)

	if len(report.Fillers) != 0 {
		t.Errorf("fillers=%v, want none for unrelated words", report.Fillers)
	}
}

func TestPhoneticFillers_MultiWordEntriesSkipped(t *testing.T) {
	t.Parallel()

	a := fluency.New(fluency.WithPhoneticFillers())
	report := a.Analyze("They knew the answer already.", time.Minute)

	if _, ok := report.Fillers["you know"]; ok {
		t.Errorf("fillers=%v, phrase entries must not gain phonetic variants", report.Fillers)
	}
}
