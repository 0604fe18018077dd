// Package config provides the configuration schema, loader, capture provider
// registry, and file watcher for the voxprep server.
package config

// LogLevel controls log verbosity for the voxprep server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for voxprep.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Capture ProviderEntry `yaml:"capture"`
	Grammar GrammarConfig `yaml:"grammar"`
	Scoring ScoringConfig `yaml:"scoring"`
	History HistoryConfig `yaml:"history"`
}

// ServerConfig holds network and logging settings for the voxprep server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// TLS configures TLS for the server. When nil, the server runs plain HTTP.
	TLS *TLSConfig `yaml:"tls"`
}

// TLSConfig holds TLS certificate paths for enabling HTTPS.
type TLSConfig struct {
	// CertFile is the path to the PEM-encoded TLS certificate.
	CertFile string `yaml:"cert_file"`

	// KeyFile is the path to the PEM-encoded TLS private key.
	KeyFile string `yaml:"key_file"`
}

// ProviderEntry selects and configures a transcription source. The Name field
// is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered capture provider (e.g., "browser", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific recognition model within the provider
	// (e.g., "nova-2").
	Model string `yaml:"model"`

	// Language is the BCP-47 language tag requested for recognition
	// (e.g., "en-US").
	Language string `yaml:"language"`

	// SampleRate is the PCM sample rate in Hz for audio-carrying providers.
	SampleRate int `yaml:"sample_rate"`

	// Channels is the PCM channel count for audio-carrying providers.
	Channels int `yaml:"channels"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// GrammarConfig configures the external grammar checking service. An empty
// BaseURL disables grammar suggestions entirely.
type GrammarConfig struct {
	// BaseURL is the root of a LanguageTool-compatible server
	// (e.g., "http://localhost:8010").
	BaseURL string `yaml:"base_url"`

	// FallbackURL is the root of an alternate server tried when the primary
	// fails or its circuit is open. Optional; requires base_url.
	FallbackURL string `yaml:"fallback_url"`

	// Language is the language code sent with every check request.
	Language string `yaml:"language"`

	// TimeoutSeconds bounds each check request. 0 uses the client default.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// FailureLimit is the consecutive-failure count that trips the circuit
	// guarding the service. 0 uses the breaker default.
	FailureLimit int `yaml:"failure_limit"`

	// CooldownSeconds is how long a tripped circuit waits before probing the
	// service again. 0 uses the breaker default.
	CooldownSeconds int `yaml:"cooldown_seconds"`
}

// ScoringConfig tunes the fluency analyzer. All fields are hot-reloadable via
// the [Watcher].
type ScoringConfig struct {
	// Vocabulary overrides the built-in filler vocabulary. Entries may be
	// multi-word phrases ("you know"). Empty keeps the default list.
	Vocabulary []string `yaml:"vocabulary"`

	// MinWords is the token count below which a response is flagged as too
	// short. 0 uses the analyzer default.
	MinWords int `yaml:"min_words"`

	// MinDurationSeconds is the speaking time below which a session is
	// flagged as too brief. 0 uses the analyzer default.
	MinDurationSeconds int `yaml:"min_duration_seconds"`

	// Phonetic enables matching stretched filler variants ("ummm", "uhh")
	// against the vocabulary.
	Phonetic bool `yaml:"phonetic"`

	// PhoneticThreshold is the string-similarity cutoff for phonetic
	// matching, in (0, 1]. 0 uses the analyzer default.
	PhoneticThreshold float64 `yaml:"phonetic_threshold"`
}

// HistoryConfig bounds the in-memory session history.
type HistoryConfig struct {
	// Limit is the maximum number of retained session records. 0 means
	// unbounded.
	Limit int `yaml:"limit"`
}
