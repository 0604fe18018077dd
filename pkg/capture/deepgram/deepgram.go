// Package deepgram provides a Deepgram-backed capture source using the
// Deepgram streaming WebSocket API. It implements the capture.Source
// interface for setups where the browser ships raw microphone PCM to the
// server instead of running its own recognition engine.
package deepgram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/voxprep/voxprep/pkg/capture"
)

const (
	deepgramEndpoint  = "wss://api.deepgram.com/v1/listen"
	defaultModel      = "nova-3"
	defaultLanguage   = "en"
	defaultSampleRate = 16000
)

// Option is a functional option for configuring the Deepgram Source.
type Option func(*Source)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(s *Source) {
		s.model = model
	}
}

// WithLanguage sets the BCP-47 language code for recognition (e.g., "en",
// "de-DE"). Used when the StreamConfig does not specify one.
func WithLanguage(language string) Option {
	return func(s *Source) {
		s.language = language
	}
}

// WithEndpoint overrides the Deepgram streaming endpoint URL. Intended for
// tests and self-hosted deployments.
func WithEndpoint(endpoint string) Option {
	return func(s *Source) {
		s.endpoint = endpoint
	}
}

// Source implements capture.Source backed by the Deepgram streaming API.
type Source struct {
	apiKey   string
	model    string
	language string
	endpoint string
}

// New creates a new Deepgram Source. An empty apiKey wraps
// [capture.ErrUnavailable] so callers can surface the condition uniformly.
func New(apiKey string, opts ...Option) (*Source, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("deepgram: missing api key: %w", capture.ErrUnavailable)
	}
	s := &Source{
		apiKey:   apiKey,
		model:    defaultModel,
		language: defaultLanguage,
		endpoint: deepgramEndpoint,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Ensure Source implements capture.Source at compile time.
var _ capture.Source = (*Source)(nil)

// Open starts a streaming transcription session with Deepgram. It respects
// cfg.Language, cfg.SampleRate, and cfg.Channels.
func (s *Source) Open(ctx context.Context, cfg capture.StreamConfig) (capture.Stream, error) {
	wsURL, err := s.buildURL(cfg)
	if err != nil {
		return nil, fmt.Errorf("deepgram: build URL: %w", err)
	}

	headers := http.Header{}
	headers.Set("Authorization", "Token "+s.apiKey)

	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{
		HTTPHeader: headers,
	})
	if err != nil {
		return nil, fmt.Errorf("deepgram: dial: %w (%w)", err, capture.ErrUnavailable)
	}

	st := &stream{
		conn:     conn,
		partials: make(chan capture.Fragment, 64),
		finals:   make(chan capture.Fragment, 64),
		audio:    make(chan []byte, 256),
		done:     make(chan struct{}),
	}

	st.wg.Add(2)
	go st.readLoop(ctx)
	go st.writeLoop(ctx)

	return st, nil
}

// buildURL constructs the Deepgram streaming endpoint URL for the given config.
func (s *Source) buildURL(cfg capture.StreamConfig) (string, error) {
	u, err := url.Parse(s.endpoint)
	if err != nil {
		return "", err
	}

	lang := cfg.Language
	if lang == "" {
		lang = s.language
	}
	sr := cfg.SampleRate
	if sr == 0 {
		sr = defaultSampleRate
	}

	q := u.Query()
	q.Set("model", s.model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("interim_results", "true")
	q.Set("sample_rate", strconv.Itoa(sr))
	if cfg.Channels > 0 {
		q.Set("channels", strconv.Itoa(cfg.Channels))
	}

	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ---- stream ----

// deepgramResponse is the JSON structure returned by Deepgram for a Results
// event.
type deepgramResponse struct {
	Type    string `json:"type"`
	IsFinal bool   `json:"is_final"`
	Start   float64 `json:"start"`
	Channel struct {
		Alternatives []struct {
			Transcript string  `json:"transcript"`
			Confidence float64 `json:"confidence"`
		} `json:"alternatives"`
	} `json:"channel"`
}

// stream is a live Deepgram streaming session. It implements capture.Stream.
type stream struct {
	conn     *websocket.Conn
	partials chan capture.Fragment
	finals   chan capture.Fragment
	audio    chan []byte

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup

	errMu sync.Mutex
	err   error
}

// SendAudio queues a PCM audio chunk for delivery to Deepgram.
func (s *stream) SendAudio(chunk []byte) error {
	select {
	case <-s.done:
		return errors.New("deepgram: stream is closed")
	default:
	}
	select {
	case s.audio <- chunk:
		return nil
	case <-s.done:
		return errors.New("deepgram: stream is closed")
	}
}

// Partials returns the channel of interim fragments.
func (s *stream) Partials() <-chan capture.Fragment { return s.partials }

// Finals returns the channel of committed fragments.
func (s *stream) Finals() <-chan capture.Fragment { return s.finals }

// Err returns the error that terminated the stream, if any.
func (s *stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

func (s *stream) setErr(err error) {
	s.errMu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.errMu.Unlock()
}

// Close terminates the stream cleanly.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		// Ask Deepgram to flush pending audio before the socket drops.
		_ = s.conn.Write(context.Background(), websocket.MessageText, []byte(`{"type":"CloseStream"}`))
		s.wg.Wait()
		s.conn.Close(websocket.StatusNormalClosure, "stream closed")
	})
	return nil
}

// writeLoop reads from the audio channel and sends binary messages to
// Deepgram.
func (s *stream) writeLoop(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case chunk, ok := <-s.audio:
			if !ok {
				return
			}
			if err := s.conn.Write(ctx, websocket.MessageBinary, chunk); err != nil {
				s.setErr(fmt.Errorf("deepgram: write audio: %w", err))
				return
			}
		case <-s.done:
			// Drain any queued audio before exiting.
			for {
				select {
				case chunk, ok := <-s.audio:
					if !ok {
						return
					}
					_ = s.conn.Write(ctx, websocket.MessageBinary, chunk)
				default:
					return
				}
			}
		}
	}
}

// readLoop receives JSON messages from Deepgram and dispatches them to the
// partials and finals channels.
func (s *stream) readLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.partials)
	defer close(s.finals)

	for {
		_, msg, err := s.conn.Read(ctx)
		if err != nil {
			select {
			case <-s.done:
				// Normal close.
			default:
				s.setErr(fmt.Errorf("deepgram: read: %w", err))
			}
			return
		}

		f, ok := parseResponse(msg)
		if !ok {
			continue
		}

		if f.IsFinal {
			select {
			case s.finals <- f:
			case <-s.done:
			}
		} else {
			select {
			case s.partials <- f:
			case <-s.done:
			}
		}
	}
}

// parseResponse parses a raw Deepgram WebSocket message into a Fragment.
// Returns (Fragment, true) on success, or (zero, false) if the message should
// be ignored.
func parseResponse(data []byte) (capture.Fragment, bool) {
	var resp deepgramResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return capture.Fragment{}, false
	}
	if resp.Type != "Results" {
		return capture.Fragment{}, false
	}
	if len(resp.Channel.Alternatives) == 0 {
		return capture.Fragment{}, false
	}

	alt := resp.Channel.Alternatives[0]
	return capture.Fragment{
		Text:       alt.Transcript,
		IsFinal:    resp.IsFinal,
		Confidence: alt.Confidence,
		Timestamp:  time.Duration(resp.Start * float64(time.Second)),
	}, true
}
