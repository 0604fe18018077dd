package config

import "slices"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	// ScoringChanged is true if any scoring knob changed; the analyzer must
	// be rebuilt.
	ScoringChanged bool

	// VocabularyChanged is true if the filler vocabulary itself changed.
	// Implies ScoringChanged.
	VocabularyChanged bool

	LogLevelChanged bool
	NewLogLevel     LogLevel
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart; capture and
// server settings require a restart and are deliberately ignored here.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if !slices.Equal(old.Scoring.Vocabulary, new.Scoring.Vocabulary) {
		d.VocabularyChanged = true
		d.ScoringChanged = true
	}
	if old.Scoring.MinWords != new.Scoring.MinWords ||
		old.Scoring.MinDurationSeconds != new.Scoring.MinDurationSeconds ||
		old.Scoring.Phonetic != new.Scoring.Phonetic ||
		old.Scoring.PhoneticThreshold != new.Scoring.PhoneticThreshold {
		d.ScoringChanged = true
	}

	return d
}
