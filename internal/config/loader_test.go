package config_test

import (
	"strings"
	"testing"

	"github.com/voxprep/voxprep/internal/config"
)

func TestValidate_InvalidLogLevel(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: bananas
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for invalid log level, got nil")
	}
	if !strings.Contains(err.Error(), "log_level") {
		t.Errorf("error should mention log_level, got: %v", err)
	}
}

func TestValidate_DeepgramRequiresAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
capture:
  name: deepgram
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for deepgram without api_key, got nil")
	}
	if !strings.Contains(err.Error(), "api_key") {
		t.Errorf("error should mention api_key, got: %v", err)
	}
}

func TestValidate_BrowserNeedsNoAPIKey(t *testing.T) {
	t.Parallel()
	yaml := `
capture:
  name: browser
`
	if _, err := config.LoadFromReader(strings.NewReader(yaml)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_TLSRequiresBothFiles(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  tls:
    cert_file: /etc/voxprep/cert.pem
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for tls with missing key_file, got nil")
	}
	if !strings.Contains(err.Error(), "key_file") {
		t.Errorf("error should mention key_file, got: %v", err)
	}
}

func TestValidate_FallbackRequiresBaseURL(t *testing.T) {
	t.Parallel()
	yaml := `
grammar:
  fallback_url: http://languagetool-spare:8010
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for fallback_url without base_url, got nil")
	}
	if !strings.Contains(err.Error(), "fallback_url") {
		t.Errorf("error should mention fallback_url, got: %v", err)
	}
}

func TestValidate_BlankVocabularyEntry(t *testing.T) {
	t.Parallel()
	yaml := `
scoring:
  vocabulary: ["um", "  ", "like"]
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for blank vocabulary entry, got nil")
	}
	if !strings.Contains(err.Error(), "vocabulary[1]") {
		t.Errorf("error should name the blank entry, got: %v", err)
	}
}

func TestValidate_PhoneticThresholdRange(t *testing.T) {
	t.Parallel()
	yaml := `
scoring:
  phonetic_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range phonetic_threshold, got nil")
	}
	if !strings.Contains(err.Error(), "phonetic_threshold") {
		t.Errorf("error should mention phonetic_threshold, got: %v", err)
	}
}

func TestValidate_NegativeValues(t *testing.T) {
	t.Parallel()
	yaml := `
grammar:
  timeout_seconds: -1
scoring:
  min_words: -5
history:
  limit: -2
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"timeout_seconds", "min_words", "history.limit"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidate_ChannelsRange(t *testing.T) {
	t.Parallel()
	yaml := `
capture:
  name: browser
  channels: 7
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for out-of-range channels, got nil")
	}
	if !strings.Contains(err.Error(), "channels") {
		t.Errorf("error should mention channels, got: %v", err)
	}
}

func TestValidCaptureNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the list is populated.
	if len(config.ValidCaptureNames) == 0 {
		t.Fatal("ValidCaptureNames should not be empty")
	}
	found := false
	for _, n := range config.ValidCaptureNames {
		if n == "browser" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidCaptureNames should contain \"browser\"")
	}
}
