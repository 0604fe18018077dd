package config_test

import (
	"testing"

	"github.com/voxprep/voxprep/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			ListenAddr: ":8080",
			LogLevel:   config.LogInfo,
		},
		Scoring: config.ScoringConfig{
			Vocabulary:         []string{"uh", "um"},
			MinWords:           15,
			MinDurationSeconds: 30,
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if d.ScoringChanged || d.VocabularyChanged || d.LogLevelChanged {
		t.Errorf("Diff of identical configs reported changes: %+v", d)
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("LogLevelChanged=false, want true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel=%q, want debug", d.NewLogLevel)
	}
	if d.ScoringChanged {
		t.Error("ScoringChanged=true for a log-level-only change")
	}
}

func TestDiff_VocabularyChanged(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Scoring.Vocabulary = append(new.Scoring.Vocabulary, "sort of")

	d := config.Diff(old, new)
	if !d.VocabularyChanged {
		t.Error("VocabularyChanged=false, want true")
	}
	if !d.ScoringChanged {
		t.Error("ScoringChanged=false, want true when vocabulary changed")
	}
}

func TestDiff_ScoringKnobChanged(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Scoring.MinWords = 20

	d := config.Diff(old, new)
	if !d.ScoringChanged {
		t.Error("ScoringChanged=false, want true")
	}
	if d.VocabularyChanged {
		t.Error("VocabularyChanged=true for a threshold-only change")
	}
}

func TestDiff_CaptureChangeIgnored(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Capture.Name = "deepgram"

	d := config.Diff(old, new)
	if d.ScoringChanged || d.VocabularyChanged || d.LogLevelChanged {
		t.Errorf("capture changes are restart-only, but Diff reported: %+v", d)
	}
}
