package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidCaptureNames lists the capture provider names shipped with voxprep.
// Used by [Validate] to warn about unrecognised names.
var ValidCaptureNames = []string{"browser", "deepgram", "mock"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Capture provider
	if name := cfg.Capture.Name; name != "" && !slices.Contains(ValidCaptureNames, name) {
		slog.Warn("unknown capture provider name, may be a typo or third-party provider",
			"name", name,
			"known", ValidCaptureNames,
		)
	}
	if cfg.Capture.Name == "deepgram" && cfg.Capture.APIKey == "" {
		errs = append(errs, errors.New("capture.api_key is required when capture.name is deepgram"))
	}
	if cfg.Capture.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("capture.sample_rate %d must not be negative", cfg.Capture.SampleRate))
	}
	if cfg.Capture.Channels < 0 || cfg.Capture.Channels > 2 {
		errs = append(errs, fmt.Errorf("capture.channels %d is out of range [0, 2]", cfg.Capture.Channels))
	}

	// Grammar availability warning
	if cfg.Grammar.BaseURL == "" {
		slog.Warn("grammar.base_url is empty; sessions will carry no grammar suggestions")
	}
	if cfg.Grammar.FallbackURL != "" && cfg.Grammar.BaseURL == "" {
		errs = append(errs, errors.New("grammar.fallback_url requires grammar.base_url"))
	}
	if cfg.Grammar.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("grammar.timeout_seconds %d must not be negative", cfg.Grammar.TimeoutSeconds))
	}
	if cfg.Grammar.FailureLimit < 0 {
		errs = append(errs, fmt.Errorf("grammar.failure_limit %d must not be negative", cfg.Grammar.FailureLimit))
	}
	if cfg.Grammar.CooldownSeconds < 0 {
		errs = append(errs, fmt.Errorf("grammar.cooldown_seconds %d must not be negative", cfg.Grammar.CooldownSeconds))
	}

	// Scoring
	for i, word := range cfg.Scoring.Vocabulary {
		if strings.TrimSpace(word) == "" {
			errs = append(errs, fmt.Errorf("scoring.vocabulary[%d] is blank", i))
		}
	}
	if cfg.Scoring.MinWords < 0 {
		errs = append(errs, fmt.Errorf("scoring.min_words %d must not be negative", cfg.Scoring.MinWords))
	}
	if cfg.Scoring.MinDurationSeconds < 0 {
		errs = append(errs, fmt.Errorf("scoring.min_duration_seconds %d must not be negative", cfg.Scoring.MinDurationSeconds))
	}
	if t := cfg.Scoring.PhoneticThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("scoring.phonetic_threshold %.2f is out of range [0, 1]", t))
	}

	// History
	if cfg.History.Limit < 0 {
		errs = append(errs, fmt.Errorf("history.limit %d must not be negative", cfg.History.Limit))
	}

	return errors.Join(errs...)
}
