// Package server exposes the HTTP API for driving practice sessions: starting
// and stopping recordings, inspecting the live transcript, re-analyzing
// arbitrary text, and browsing past session records. It also mounts the
// browser capture websocket, health probes, and the Prometheus metrics
// endpoint.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/internal/health"
	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/internal/session"
	"github.com/voxprep/voxprep/pkg/capture"
	"github.com/voxprep/voxprep/pkg/fluency"
)

// defaultHistoryLimit caps GET /api/history responses when the client does
// not pass an explicit limit.
const defaultHistoryLimit = 20

// Config holds the dependencies of a [Server].
type Config struct {
	// ListenAddr is the address Run binds to, e.g. ":8080".
	ListenAddr string

	// Controller drives recording sessions. Required.
	Controller *session.Controller

	// History serves past session records. Required.
	History *session.History

	// Analyzer scores text for the stateless analyze endpoint. Required.
	Analyzer *fluency.Analyzer

	// Grammar fetches suggestions for the analyze endpoint. Optional; when
	// nil (or failing) responses simply carry no suggestions.
	Grammar grammar.Checker

	// Bridge serves the browser capture websocket at /ws/capture. Optional.
	Bridge http.Handler

	// Health serves /healthz and /readyz. Optional.
	Health *health.Handler

	// Metrics instruments HTTP requests and analyses. Optional; defaults to
	// [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// TLSCertFile and TLSKeyFile enable TLS when both are set.
	TLSCertFile string
	TLSKeyFile  string
}

// Server is the HTTP front end. Create one with [New] and either mount
// Handler on an existing server or call Run.
type Server struct {
	cfg      Config
	metrics  *observe.Metrics
	mux      *http.ServeMux
	analyzer atomic.Pointer[fluency.Analyzer]
}

// New validates cfg and assembles the route table.
func New(cfg Config) (*Server, error) {
	if cfg.Controller == nil {
		return nil, errors.New("server: Controller is required")
	}
	if cfg.History == nil {
		return nil, errors.New("server: History is required")
	}
	if cfg.Analyzer == nil {
		return nil, errors.New("server: Analyzer is required")
	}
	s := &Server{
		cfg:     cfg,
		metrics: cfg.Metrics,
		mux:     http.NewServeMux(),
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	s.analyzer.Store(cfg.Analyzer)
	s.routes()
	return s, nil
}

// Handler returns the fully assembled route table.
func (s *Server) Handler() http.Handler { return s.mux }

// SetAnalyzer swaps the analyzer behind the analyze endpoint, for example
// after a configuration reload changed the scoring knobs. A nil analyzer is
// ignored.
func (s *Server) SetAnalyzer(a *fluency.Analyzer) {
	if a != nil {
		s.analyzer.Store(a)
	}
}

func (s *Server) routes() {
	wrap := observe.Middleware(s.metrics)

	s.mux.Handle("POST /api/session/start", wrap(http.HandlerFunc(s.handleStart)))
	s.mux.Handle("POST /api/session/stop", wrap(http.HandlerFunc(s.handleStop)))
	s.mux.Handle("GET /api/session", wrap(http.HandlerFunc(s.handleSnapshot)))
	s.mux.Handle("GET /api/history", wrap(http.HandlerFunc(s.handleHistory)))
	s.mux.Handle("POST /api/analyze", wrap(http.HandlerFunc(s.handleAnalyze)))

	if s.cfg.Bridge != nil {
		s.mux.Handle("GET /ws/capture", s.cfg.Bridge)
	}
	if s.cfg.Health != nil {
		s.cfg.Health.Register(s.mux)
	}
	s.mux.Handle("GET /metrics", promhttp.Handler())
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.ListenAddr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "addr", s.cfg.ListenAddr, "tls", s.cfg.TLSCertFile != "")
		if s.cfg.TLSCertFile != "" {
			errCh <- srv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
		} else {
			errCh <- srv.ListenAndServe()
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: listen on %s: %w", s.cfg.ListenAddr, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// ── Handlers ─────────────────────────────────────────────────────────────────

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Controller.Start(r.Context()); err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, s.cfg.Controller.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	rec, err := s.cfg.Controller.Stop(r.Context())
	if err != nil {
		writeError(w, errorStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.cfg.Controller.Snapshot())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = n
	}
	records := s.cfg.History.Recent(limit)
	if records == nil {
		records = []session.Record{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Records: records, Total: s.cfg.History.Len()})
}

// analyzeRequest is the body of POST /api/analyze. DurationSeconds may be
// zero when the client has no timing information; the duration deduction
// then applies as for any short take.
type analyzeRequest struct {
	Text            string  `json:"text"`
	DurationSeconds float64 `json:"durationSeconds"`
}

type analyzeResponse struct {
	Report  fluency.ExtendedReport `json:"report"`
	Grammar []grammar.Suggestion   `json:"grammar,omitempty"`
}

type historyResponse struct {
	Records []session.Record `json:"records"`
	Total   int              `json:"total"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if req.DurationSeconds < 0 {
		writeError(w, http.StatusBadRequest, errors.New("durationSeconds must not be negative"))
		return
	}

	duration := time.Duration(req.DurationSeconds * float64(time.Second))
	start := time.Now()
	report := s.analyzer.Load().AnalyzeExtended(req.Text, duration)
	s.metrics.RecordAnalysis(r.Context(), "api", time.Since(start).Seconds())

	resp := analyzeResponse{Report: report}
	if s.cfg.Grammar != nil {
		suggestions, err := s.cfg.Grammar.Check(r.Context(), req.Text)
		if err != nil {
			slog.Warn("grammar check failed, continuing without suggestions", "err", err)
			s.metrics.RecordGrammarRequest(r.Context(), "error")
		} else {
			resp.Grammar = suggestions
			s.metrics.RecordGrammarRequest(r.Context(), "ok")
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrAlreadyRecording), errors.Is(err, session.ErrNotRecording):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoSpeech):
		return http.StatusUnprocessableEntity
	case errors.Is(err, capture.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
