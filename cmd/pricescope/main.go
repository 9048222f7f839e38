package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/use-agent/pricescope/api"
	"github.com/use-agent/pricescope/cache"
	"github.com/use-agent/pricescope/config"
	"github.com/use-agent/pricescope/fallback"
	"github.com/use-agent/pricescope/identity"
	"github.com/use-agent/pricescope/metrics"
	"github.com/use-agent/pricescope/orchestrate"
	"github.com/use-agent/pricescope/ranking"
	"github.com/use-agent/pricescope/render"
	"github.com/use-agent/pricescope/source"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	_ = godotenv.Load() // .env is optional; real env always wins
	cfg := config.Load()

	// ── 2. Initialise structured logging ────────────────────────────
	initLogger(cfg.Log)
	slog.Info("pricescope starting",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"mode", cfg.Server.Mode,
		"renderEnabled", cfg.Browser.Enabled,
	)

	// ── 3. Identity pool (user agents + proxies) ────────────────────
	pool := identity.NewPool(cfg.Identity)

	// ── 4. Renderer (launches browser) ──────────────────────────────
	// renderFn stays nil when the browser is disabled; sources that
	// need a render pass will then fail with a parse error instead.
	var renderFn source.RenderFunc
	if cfg.Browser.Enabled {
		renderer, err := render.New(cfg.Browser)
		if err != nil {
			slog.Error("failed to initialise renderer", "error", err)
			os.Exit(1)
		}
		defer renderer.Close()
		renderFn = renderer.Render
		slog.Info("renderer ready", "maxPages", cfg.Browser.MaxPages)
	}

	// ── 5. Source registry ──────────────────────────────────────────
	registry := source.NewRegistry()
	for _, site := range config.Sites() {
		registry.Register(source.NewSiteAdapter(site, renderFn))
	}
	slog.Info("sources registered", "sources", registry.IDs())

	// ── 6. Fetch pipeline: metrics → fallback engine → orchestrator ─
	m := metrics.New()
	engine := fallback.NewEngine(pool, cfg.Scrape, m)
	ranker := ranking.NewEngine(cfg.Ranking)
	orch := orchestrate.New(registry, engine, ranker, cfg.Scrape, m)

	// ── 7. Cache + router ───────────────────────────────────────────
	cc := cache.New(cfg.Cache.MaxEntries, cfg.Cache.TTL)
	startTime := time.Now()
	router := api.NewRouter(orch, pool, m, cfg, cc, startTime)

	// ── 8. Start HTTP server ────────────────────────────────────────
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// ── 9. Graceful shutdown ────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutdown signal received", "signal", sig.String())

	// Give in-flight requests 5 seconds to complete.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("HTTP server forced shutdown", "error", err)
	} else {
		slog.Info("HTTP server drained gracefully")
	}

	// renderer.Close() runs via defer — drains the page pool and kills Chrome.
	slog.Info("pricescope stopped")
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
