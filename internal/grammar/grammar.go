// Package grammar provides a client for an external LanguageTool-compatible
// grammar checking service. Suggestions are strictly additive advice: callers
// are expected to degrade to zero suggestions whenever the service is
// unreachable, slow, or returns garbage, and never let a grammar failure
// affect a fluency analysis.
//
// Typical usage:
//
//	c, err := grammar.New("http://localhost:8010",
//	    grammar.WithLanguage("en-US"),
//	    grammar.WithTimeout(5*time.Second),
//	)
//	suggestions, err := c.Check(ctx, transcript)
package grammar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/voxprep/voxprep/internal/resilience"
)

// Compile-time interface assertion.
var _ Checker = (*Client)(nil)

const (
	defaultLanguage   = "en-US"
	defaultTimeout    = 5 * time.Second
	checkEndpoint     = "/v2/check"
	languagesEndpoint = "/v2/languages"

	// noReplacement is the placeholder shown when the service flags a span
	// but offers no replacement text.
	noReplacement = "—"
)

// Suggestion is a single grammar finding mapped onto the analyzed text.
type Suggestion struct {
	// ErrorSpan is the exact substring of the analyzed text the finding
	// refers to.
	ErrorSpan string `json:"errorSpan"`

	// Suggestion is the service's first proposed replacement, or "—" when
	// the service offered none.
	Suggestion string `json:"suggestion"`

	// Message is the service's human-readable explanation.
	Message string `json:"message"`
}

// Checker is the consumer-side interface of the grammar service. The session
// controller depends on this rather than on *Client so tests can substitute a
// stub.
type Checker interface {
	Check(ctx context.Context, text string) ([]Suggestion, error)
}

// Option is a functional option for configuring a grammar Client.
type Option func(*Client)

// WithLanguage sets the language code sent with every check request (e.g.
// "en-US", "de-DE"). Defaults to "en-US".
func WithLanguage(lang string) Option {
	return func(c *Client) {
		c.language = lang
	}
}

// WithTimeout sets the per-request HTTP timeout. Defaults to 5 s.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = d
	}
}

// WithBreaker overrides the circuit breaker configuration guarding the
// service. The breaker keeps a dead grammar service from being probed on
// every single analysis.
func WithBreaker(cfg resilience.BreakerConfig) Option {
	return func(c *Client) {
		cfg.Name = "grammar"
		c.breaker = resilience.NewBreaker(cfg)
	}
}

// Client talks to a LanguageTool-compatible server via POST /v2/check. Safe
// for concurrent use.
type Client struct {
	baseURL    string
	language   string
	httpClient *http.Client
	breaker    *resilience.Breaker
}

// New creates a grammar Client targeting the service at baseURL (e.g.
// "http://localhost:8010"). baseURL must not be empty.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("grammar: baseURL must not be empty")
	}
	c := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: defaultLanguage,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		breaker: resilience.NewBreaker(resilience.BreakerConfig{Name: "grammar"}),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// ---- wire types ----

// checkResponse is the JSON body returned by POST /v2/check. Fields the
// client does not consume are omitted.
type checkResponse struct {
	Matches []checkMatch `json:"matches"`
}

type checkMatch struct {
	Message      string             `json:"message"`
	Offset       int                `json:"offset"`
	Length       int                `json:"length"`
	Replacements []checkReplacement `json:"replacements"`
}

type checkReplacement struct {
	Value string `json:"value"`
}

// ---- Check ----

// Check submits text to the grammar service and maps each finding to a
// [Suggestion]. Offsets returned by the service are interpreted as rune
// offsets into text; findings whose span falls outside the text are dropped.
//
// Any failure (network, non-200, malformed JSON, open breaker) is returned as
// an error for the caller to degrade on. An empty text short-circuits to nil
// without contacting the service.
func (c *Client) Check(ctx context.Context, text string) ([]Suggestion, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	var suggestions []Suggestion
	err := c.breaker.Do(func() error {
		var err error
		suggestions, err = c.check(ctx, text)
		return err
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Ping probes the service's language listing endpoint. Used by readiness
// checks; it bypasses the circuit breaker so a probe never consumes the
// breaker's failure budget.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+languagesEndpoint, nil)
	if err != nil {
		return fmt.Errorf("grammar: create ping request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("grammar: GET %s: %w", languagesEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("grammar: GET %s returned status %d", languagesEndpoint, resp.StatusCode)
	}
	return nil
}

func (c *Client) check(ctx context.Context, text string) ([]Suggestion, error) {
	form := url.Values{}
	form.Set("text", text)
	form.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+checkEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("grammar: create check request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grammar: POST %s: %w", checkEndpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("grammar: POST %s returned status %d", checkEndpoint, resp.StatusCode)
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("grammar: decode check response: %w", err)
	}

	runes := []rune(text)
	suggestions := make([]Suggestion, 0, len(body.Matches))
	for _, m := range body.Matches {
		if m.Offset < 0 || m.Length <= 0 || m.Offset+m.Length > len(runes) {
			continue
		}
		replacement := noReplacement
		if len(m.Replacements) > 0 && m.Replacements[0].Value != "" {
			replacement = m.Replacements[0].Value
		}
		suggestions = append(suggestions, Suggestion{
			ErrorSpan:  string(runes[m.Offset : m.Offset+m.Length]),
			Suggestion: replacement,
			Message:    m.Message,
		})
	}
	return suggestions, nil
}
