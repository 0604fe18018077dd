package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/pkg/capture"
	"github.com/voxprep/voxprep/pkg/fluency"
)

var (
	// ErrAlreadyRecording is returned by Start while a session is active.
	ErrAlreadyRecording = errors.New("session: a recording is already active")

	// ErrNotRecording is returned by Stop when no session is active.
	ErrNotRecording = errors.New("session: no active recording")

	// ErrNoSpeech is returned by Stop when the capture stream produced no
	// final text. Nothing is recorded in that case.
	ErrNoSpeech = errors.New("session: no speech was captured")
)

// State is the controller's lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateRecording State = "recording"
)

// Snapshot is a point-in-time view of the controller for UI rendering.
type Snapshot struct {
	State State `json:"state"`

	// LiveText is the settled finals plus the current partial, suitable for
	// live display. After a capture failure it holds whatever text arrived
	// before the stream died.
	LiveText string `json:"liveText"`

	// StartedAt is when the active recording began; zero while idle.
	StartedAt time.Time `json:"startedAt,omitzero"`

	// LastError describes the most recent capture failure, empty otherwise.
	LastError string `json:"lastError,omitempty"`
}

// ControllerConfig holds the dependencies of a [Controller].
type ControllerConfig struct {
	// Source opens capture streams. Required.
	Source capture.Source

	// Stream configures each opened stream.
	Stream capture.StreamConfig

	// Analyzer scores settled transcripts. Required.
	Analyzer *fluency.Analyzer

	// Grammar fetches suggestions for the settled transcript. Optional; when
	// nil (or failing) records simply carry no suggestions.
	Grammar grammar.Checker

	// History receives completed records. Required.
	History *History

	// Metrics receives session and capture instrumentation. Optional.
	Metrics *observe.Metrics
}

// Controller drives one recording at a time: Idle → Recording on Start,
// Recording → Idle on Stop (scoring and recording the result) or on a capture
// stream failure (preserving the partial text, recording nothing).
//
// All exported methods are safe for concurrent use.
type Controller struct {
	source    capture.Source
	streamCfg capture.StreamConfig
	analyzer  *fluency.Analyzer
	grammar   grammar.Checker
	history   *History
	metrics   *observe.Metrics

	// now is swappable for deterministic tests.
	now func() time.Time

	mu        sync.Mutex
	state     State
	stream    capture.Stream
	pumpDone  chan struct{}
	gen       int
	seq       int
	stopping  bool
	finals    []string
	partial   string
	lastErr   error
	startedAt time.Time
}

// NewController creates a Controller from cfg.
func NewController(cfg ControllerConfig) (*Controller, error) {
	if cfg.Source == nil {
		return nil, errors.New("session: Source is required")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("session: Analyzer is required")
	}
	if cfg.History == nil {
		return nil, errors.New("session: History is required")
	}
	return &Controller{
		source:    cfg.Source,
		streamCfg: cfg.Stream,
		analyzer:  cfg.Analyzer,
		grammar:   cfg.Grammar,
		history:   cfg.History,
		metrics:   cfg.Metrics,
		now:       time.Now,
		state:     StateIdle,
	}, nil
}

// Start opens a capture stream and begins accumulating transcript fragments.
// Returns [ErrAlreadyRecording] if a session is active; errors from the
// capture source (including [capture.ErrUnavailable]) are propagated.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateRecording {
		return ErrAlreadyRecording
	}

	stream, err := c.source.Open(ctx, c.streamCfg)
	if err != nil {
		return fmt.Errorf("session: open capture stream: %w", err)
	}

	c.gen++
	c.seq++
	c.state = StateRecording
	c.stream = stream
	c.stopping = false
	c.finals = nil
	c.partial = ""
	c.lastErr = nil
	c.startedAt = c.now().UTC()
	c.pumpDone = make(chan struct{})

	go c.pump(stream, c.gen, c.pumpDone)

	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, 1)
	}
	slog.Info("recording started", "started_at", c.startedAt)
	return nil
}

// Stop ends the active recording, scores the settled transcript, fetches
// grammar suggestions (degrading silently on failure), appends the result to
// history, and returns it.
//
// Returns [ErrNotRecording] if no session is active and [ErrNoSpeech] if no
// final text was captured (the session still ends, nothing is recorded).
func (c *Controller) Stop(ctx context.Context) (Record, error) {
	c.mu.Lock()
	if c.state != StateRecording {
		c.mu.Unlock()
		return Record{}, ErrNotRecording
	}
	c.stopping = true
	stream := c.stream
	done := c.pumpDone
	c.mu.Unlock()

	// Closing the stream settles any buffered fragments and ends the pump.
	if err := stream.Close(); err != nil {
		slog.Warn("capture stream close error", "err", err)
	}
	select {
	case <-done:
	case <-ctx.Done():
		return Record{}, ctx.Err()
	}

	c.mu.Lock()
	transcript := strings.TrimSpace(strings.Join(c.finals, " "))
	startedAt := c.startedAt
	endedAt := c.now().UTC()
	seq := c.seq
	analyzer := c.analyzer
	c.state = StateIdle
	c.stream = nil
	c.pumpDone = nil
	c.startedAt = time.Time{}
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(ctx, -1)
	}

	if transcript == "" {
		slog.Info("recording stopped with no speech")
		return Record{}, ErrNoSpeech
	}

	duration := endedAt.Sub(startedAt)
	analysisStart := time.Now()
	report := analyzer.AnalyzeExtended(transcript, duration)
	if c.metrics != nil {
		c.metrics.RecordAnalysis(ctx, "session", time.Since(analysisStart).Seconds())
	}

	var suggestions []grammar.Suggestion
	if c.grammar != nil {
		var err error
		suggestions, err = c.grammar.Check(ctx, transcript)
		if err != nil {
			// Grammar advice is strictly additive; a dead service never
			// blocks the analysis.
			slog.Warn("grammar check failed, continuing without suggestions", "err", err)
			suggestions = nil
			if c.metrics != nil {
				c.metrics.RecordGrammarRequest(ctx, "error")
			}
		} else if c.metrics != nil {
			c.metrics.RecordGrammarRequest(ctx, "ok")
		}
	}

	rec := Record{
		ID:         fmt.Sprintf("practice-%s-%03d", startedAt.Format("20060102T150405Z"), seq),
		Transcript: transcript,
		Duration:   duration,
		Report:     report,
		Grammar:    suggestions,
		StartedAt:  startedAt,
		EndedAt:    endedAt,
	}
	c.history.Add(rec)

	if c.metrics != nil {
		c.metrics.RecordSessionCompleted(ctx, string(report.Tone))
	}
	slog.Info("recording stopped",
		"id", rec.ID,
		"duration", duration.Round(time.Millisecond),
		"score", report.Score,
		"tone", report.Tone,
		"grammar_suggestions", len(suggestions),
	)
	return rec, nil
}

// Snapshot returns the current state and live transcript for UI rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		State:     c.state,
		LiveText:  liveText(c.finals, c.partial),
		StartedAt: c.startedAt,
	}
	if c.lastErr != nil {
		s.LastError = c.lastErr.Error()
	}
	return s
}

// SetAnalyzer swaps the analyzer used for subsequent analyses, for example
// after a configuration reload changed the scoring knobs. A nil analyzer is
// ignored.
func (c *Controller) SetAnalyzer(a *fluency.Analyzer) {
	if a == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.analyzer = a
}

// State returns the controller's current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// pump consumes the stream's fragment channels until both close, then checks
// for a stream failure. gen guards against a stale pump touching a newer
// session's state.
func (c *Controller) pump(stream capture.Stream, gen int, done chan struct{}) {
	defer close(done)

	partials := stream.Partials()
	finals := stream.Finals()
	for partials != nil || finals != nil {
		select {
		case f, ok := <-partials:
			if !ok {
				partials = nil
				continue
			}
			c.setPartial(gen, f.Text)
		case f, ok := <-finals:
			if !ok {
				finals = nil
				continue
			}
			c.appendFinal(gen, f.Text)
		}
	}

	if err := stream.Err(); err != nil {
		c.fail(gen, err)
	}
}

func (c *Controller) setPartial(gen int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	c.partial = text
	if c.metrics != nil {
		c.metrics.RecordCaptureFragment(context.Background(), "partial")
	}
}

func (c *Controller) appendFinal(gen int, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		return
	}
	if text = strings.TrimSpace(text); text != "" {
		c.finals = append(c.finals, text)
	}
	c.partial = ""
	if c.metrics != nil {
		c.metrics.RecordCaptureFragment(context.Background(), "final")
	}
}

// fail handles a mid-session capture failure: the session resets to idle and
// the accumulated text is preserved for display, but nothing is analyzed or
// recorded. A failure observed during a deliberate Stop is ignored; Stop owns
// the transition in that case.
func (c *Controller) fail(gen int, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen || c.stopping || c.state != StateRecording {
		return
	}
	if c.stream != nil {
		// Release the source even though the stream already reported the
		// failure; Close is idempotent across implementations.
		if cerr := c.stream.Close(); cerr != nil {
			slog.Debug("closing failed capture stream", "err", cerr)
		}
	}
	c.state = StateIdle
	c.stream = nil
	c.lastErr = err
	c.startedAt = time.Time{}
	if c.metrics != nil {
		c.metrics.ActiveSessions.Add(context.Background(), -1)
	}
	slog.Error("capture stream failed, session reset", "err", err)
}

func liveText(finals []string, partial string) string {
	parts := finals
	if partial != "" {
		parts = append(append([]string(nil), finals...), partial)
	}
	return strings.Join(parts, " ")
}
