// Command voxprep is the main entry point for the VoxPrep speaking practice
// server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/voxprep/voxprep/internal/config"
	"github.com/voxprep/voxprep/internal/grammar"
	"github.com/voxprep/voxprep/internal/health"
	"github.com/voxprep/voxprep/internal/observe"
	"github.com/voxprep/voxprep/internal/resilience"
	"github.com/voxprep/voxprep/internal/server"
	"github.com/voxprep/voxprep/internal/session"
	"github.com/voxprep/voxprep/pkg/capture"
	"github.com/voxprep/voxprep/pkg/capture/browser"
	"github.com/voxprep/voxprep/pkg/capture/deepgram"
	"github.com/voxprep/voxprep/pkg/capture/mock"
	"github.com/voxprep/voxprep/pkg/fluency"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxprep: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxprep: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("voxprep starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceName: "voxprep"})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Capture source ────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	bridge := browser.New()
	registerCaptureProviders(reg, bridge)

	source, err := reg.CreateCapture(cfg.Capture)
	if err != nil {
		slog.Error("failed to create capture source", "name", cfg.Capture.Name, "err", err)
		return 1
	}
	slog.Info("capture source created", "name", cfg.Capture.Name)

	// ── Grammar client (optional) ─────────────────────────────────────────────
	var (
		grammarClient  *grammar.Client
		grammarChecker grammar.Checker
	)
	if cfg.Grammar.BaseURL != "" {
		grammarClient, err = grammar.New(cfg.Grammar.BaseURL, grammarOptions(cfg.Grammar)...)
		if err != nil {
			slog.Error("failed to create grammar client", "err", err)
			return 1
		}
		grammarChecker = grammarClient
		slog.Info("grammar client created", "base_url", cfg.Grammar.BaseURL)

		if cfg.Grammar.FallbackURL != "" {
			spare, err := grammar.New(cfg.Grammar.FallbackURL, grammarOptions(cfg.Grammar)...)
			if err != nil {
				slog.Error("failed to create grammar fallback client", "err", err)
				return 1
			}
			fb := grammar.NewFallback("grammar-primary", grammarClient, resilience.ChainConfig{
				Breaker: resilience.BreakerConfig{
					FailureLimit: cfg.Grammar.FailureLimit,
					Cooldown:     time.Duration(cfg.Grammar.CooldownSeconds) * time.Second,
				},
			})
			fb.Add("grammar-fallback", spare)
			grammarChecker = fb
			slog.Info("grammar fallback configured", "fallback_url", cfg.Grammar.FallbackURL)
		}
	}

	// ── Session wiring ────────────────────────────────────────────────────────
	analyzer := fluency.New(analyzerOptions(cfg.Scoring)...)
	history := session.NewHistory(cfg.History.Limit)

	ctrlCfg := session.ControllerConfig{
		Source: source,
		Stream: capture.StreamConfig{
			Language:   cfg.Capture.Language,
			SampleRate: cfg.Capture.SampleRate,
			Channels:   cfg.Capture.Channels,
		},
		Analyzer: analyzer,
		History:  history,
		Metrics:  metrics,
	}
	if grammarChecker != nil {
		ctrlCfg.Grammar = grammarChecker
	}
	controller, err := session.NewController(ctrlCfg)
	if err != nil {
		slog.Error("failed to create session controller", "err", err)
		return 1
	}

	// ── Health probes ─────────────────────────────────────────────────────────
	checkers := []health.Checker{health.CaptureReady(source)}
	if grammarClient != nil {
		checkers = append(checkers, health.GrammarReady(grammarClient))
	}
	healthHandler := health.New(checkers...)

	// ── HTTP server ───────────────────────────────────────────────────────────
	srvCfg := server.Config{
		ListenAddr: cfg.Server.ListenAddr,
		Controller: controller,
		History:    history,
		Analyzer:   analyzer,
		Health:     healthHandler,
		Metrics:    metrics,
	}
	if grammarChecker != nil {
		srvCfg.Grammar = grammarChecker
	}
	if cfg.Capture.Name == "browser" {
		srvCfg.Bridge = bridge
	}
	if cfg.Server.TLS != nil {
		srvCfg.TLSCertFile = cfg.Server.TLS.CertFile
		srvCfg.TLSKeyFile = cfg.Server.TLS.KeyFile
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		slog.Error("failed to create http server", "err", err)
		return 1
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		diff := config.Diff(old, new)
		if diff.LogLevelChanged {
			logLevel.Set(slogLevel(diff.NewLogLevel))
			slog.Info("log level changed", "level", diff.NewLogLevel)
		}
		if diff.ScoringChanged {
			a := fluency.New(analyzerOptions(new.Scoring)...)
			controller.SetAnalyzer(a)
			srv.SetAnalyzer(a)
			slog.Info("scoring configuration reloaded", "vocabulary_changed", diff.VocabularyChanged)
		}
	})
	if err != nil {
		slog.Error("failed to start config watcher", "err", err)
		return 1
	}
	defer watcher.Stop()

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Run(ctx) })

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Capture wiring ────────────────────────────────────────────────────────────

// registerCaptureProviders wires the built-in capture source factories into
// reg. The browser bridge is shared with the HTTP server so the websocket
// endpoint feeds the same source the session controller reads from.
func registerCaptureProviders(reg *config.Registry, bridge *browser.Bridge) {
	reg.RegisterCapture("browser", func(config.ProviderEntry) (capture.Source, error) {
		return bridge, nil
	})

	reg.RegisterCapture("deepgram", func(entry config.ProviderEntry) (capture.Source, error) {
		var opts []deepgram.Option
		if entry.Model != "" {
			opts = append(opts, deepgram.WithModel(entry.Model))
		}
		if entry.Language != "" {
			opts = append(opts, deepgram.WithLanguage(entry.Language))
		}
		if endpoint := optString(entry.Options, "endpoint"); endpoint != "" {
			opts = append(opts, deepgram.WithEndpoint(endpoint))
		}
		return deepgram.New(entry.APIKey, opts...)
	})

	// mock produces no fragments; useful for exercising the HTTP surface
	// without a real source.
	reg.RegisterCapture("mock", func(config.ProviderEntry) (capture.Source, error) {
		return &mock.Source{}, nil
	})

	for _, name := range config.ValidCaptureNames {
		slog.Debug("registered capture provider", "name", name)
	}
}

// ── Option mapping ────────────────────────────────────────────────────────────

func analyzerOptions(cfg config.ScoringConfig) []fluency.Option {
	var opts []fluency.Option
	if len(cfg.Vocabulary) > 0 {
		opts = append(opts, fluency.WithVocabulary(cfg.Vocabulary))
	}
	if cfg.MinWords > 0 {
		opts = append(opts, fluency.WithMinWords(cfg.MinWords))
	}
	if cfg.MinDurationSeconds > 0 {
		opts = append(opts, fluency.WithMinDuration(time.Duration(cfg.MinDurationSeconds)*time.Second))
	}
	if cfg.Phonetic {
		opts = append(opts, fluency.WithPhoneticFillers())
		if cfg.PhoneticThreshold > 0 {
			opts = append(opts, fluency.WithPhoneticThreshold(cfg.PhoneticThreshold))
		}
	}
	return opts
}

func grammarOptions(cfg config.GrammarConfig) []grammar.Option {
	var opts []grammar.Option
	if cfg.Language != "" {
		opts = append(opts, grammar.WithLanguage(cfg.Language))
	}
	if cfg.TimeoutSeconds > 0 {
		opts = append(opts, grammar.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second))
	}
	if cfg.FailureLimit > 0 || cfg.CooldownSeconds > 0 {
		opts = append(opts, grammar.WithBreaker(resilience.BreakerConfig{
			FailureLimit: cfg.FailureLimit,
			Cooldown:     time.Duration(cfg.CooldownSeconds) * time.Second,
		}))
	}
	return opts
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         VoxPrep — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printEntry("Capture", captureSummary(cfg.Capture))
	if cfg.Grammar.BaseURL != "" {
		printEntry("Grammar", cfg.Grammar.BaseURL)
	} else {
		printEntry("Grammar", "(disabled)")
	}
	printEntry("Fillers", fmt.Sprintf("%d words", vocabularySize(cfg.Scoring)))
	if cfg.History.Limit > 0 {
		printEntry("History", fmt.Sprintf("last %d sessions", cfg.History.Limit))
	} else {
		printEntry("History", "unbounded")
	}
	printEntry("Listen addr", cfg.Server.ListenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printEntry(name, value string) {
	if len([]rune(value)) > 19 {
		value = string([]rune(value)[:16]) + "…"
	}
	fmt.Printf("║  %-12s   : %-19s ║\n", name, value)
}

func captureSummary(entry config.ProviderEntry) string {
	if entry.Model != "" {
		return entry.Name + " / " + entry.Model
	}
	return entry.Name
}

func vocabularySize(cfg config.ScoringConfig) int {
	if len(cfg.Vocabulary) > 0 {
		return len(cfg.Vocabulary)
	}
	return len(fluency.DefaultVocabulary)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
