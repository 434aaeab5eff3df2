// Command voca is the main entry point for the Voca pronunciation server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voca-app/voca/internal/analysis"
	"github.com/voca-app/voca/internal/catalog"
	"github.com/voca-app/voca/internal/config"
	"github.com/voca-app/voca/internal/history"
	"github.com/voca-app/voca/internal/observe"
	"github.com/voca-app/voca/internal/server"
	"github.com/voca-app/voca/internal/stt"
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
			fmt.Fprintf(os.Stderr, "voca: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voca: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voca starting",
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	shutdownTelemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "voca",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()

	// ── Brand catalog ─────────────────────────────────────────────────────────
	var cat *catalog.Catalog
	if cfg.Catalog.Path != "" {
		cat, err = catalog.LoadFile(cfg.Catalog.Path)
	} else {
		cat, err = catalog.Load()
	}
	if err != nil {
		slog.Error("failed to load brand catalog", "err", err)
		return 1
	}
	slog.Info("brand catalog loaded", "brands", cat.Len())

	// ── Scoring engine ────────────────────────────────────────────────────────
	var engineOpts []analysis.Option
	if cfg.Analysis.MatchThreshold != 0 {
		engineOpts = append(engineOpts, analysis.WithMatchThreshold(cfg.Analysis.MatchThreshold))
	}
	if cfg.Analysis.SuggestionFloor != 0 {
		engineOpts = append(engineOpts, analysis.WithSuggestionFloor(cfg.Analysis.SuggestionFloor))
	}
	analyzer := analysis.New(cat, engineOpts...)

	// ── Practice history store ────────────────────────────────────────────────
	var store history.Store
	if cfg.History.PostgresDSN != "" {
		pool, err := pgxpool.New(ctx, cfg.History.PostgresDSN)
		if err != nil {
			slog.Error("failed to create postgres pool", "err", err)
			return 1
		}
		defer pool.Close()

		pg := history.NewPostgresStore(pool)
		if err := pg.Migrate(ctx); err != nil {
			slog.Error("failed to migrate history schema", "err", err)
			return 1
		}
		store = pg
		slog.Info("history store ready", "backend", "postgres")
	} else {
		store = history.NewMemoryStore()
		slog.Info("history store ready", "backend", "memory")
	}

	// ── Transcription gateway (optional) ──────────────────────────────────────
	serverOpts := []server.Option{}
	if cfg.STT.BaseURL != "" {
		var sttOpts []stt.Option
		if cfg.STT.APIKey != "" {
			sttOpts = append(sttOpts, stt.WithAPIKey(cfg.STT.APIKey))
		}
		if cfg.STT.Model != "" {
			sttOpts = append(sttOpts, stt.WithModel(cfg.STT.Model))
		}
		if cfg.STT.PollIntervalMs > 0 {
			sttOpts = append(sttOpts, stt.WithPollInterval(time.Duration(cfg.STT.PollIntervalMs)*time.Millisecond))
		}
		client, err := stt.NewClient(cfg.STT.BaseURL, sttOpts...)
		if err != nil {
			slog.Error("failed to create transcription client", "err", err)
			return 1
		}
		serverOpts = append(serverOpts, server.WithTranscriber(client))
		slog.Info("transcription gateway configured", "base_url", cfg.STT.BaseURL, "model", cfg.STT.Model)
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	srv := server.New(analyzer, cat, store, serverOpts...)

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = ":8080"
	}
	httpServer := &http.Server{
		Addr:              listenAddr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg, cat.Len(), listenAddr)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.Server.TLS != nil {
			err = httpServer.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = httpServer.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down", "addr", listenAddr)

	select {
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, brandCount int, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║           Voca — startup summary      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	fmt.Printf("║  Brands          : %-19d ║\n", brandCount)
	if cfg.History.PostgresDSN != "" {
		fmt.Printf("║  History         : %-19s ║\n", "postgres")
	} else {
		fmt.Printf("║  History         : %-19s ║\n", "memory")
	}
	if cfg.STT.BaseURL != "" {
		fmt.Printf("║  Transcription   : %-19s ║\n", "configured")
	} else {
		fmt.Printf("║  Transcription   : %-19s ║\n", "(disabled)")
	}
	if cfg.Server.TLS != nil {
		fmt.Printf("║  TLS             : %-19s ║\n", "enabled")
	} else {
		fmt.Printf("║  TLS             : %-19s ║\n", "(plain http)")
	}
	fmt.Printf("║  Listen addr     : %-19s ║\n", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
