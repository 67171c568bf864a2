// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/halvard/skriva/internal/api"
	"github.com/halvard/skriva/internal/autosave"
	"github.com/halvard/skriva/internal/entry"
	"github.com/halvard/skriva/internal/journal"
	"github.com/halvard/skriva/internal/mcpserver"
	"github.com/halvard/skriva/internal/sse"
	"github.com/halvard/skriva/internal/vault"
)

func newLogger(cfg *Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)
	return logger
}

// openVault opens (or migrates) the configured vault and runs an initial
// reconcile pass so the index reflects whatever is on disk at startup.
func openVault(cfg *Config, logger *slog.Logger) (*vault.Vault, error) {
	v, err := vault.Open(cfg.Vault.Path, logger)
	if err != nil {
		return nil, fmt.Errorf("open vault: %w", err)
	}
	res, err := v.Reconcile()
	if err != nil {
		logger.Warn("initial reconcile failed", slog.String("error", err.Error()))
	} else {
		logger.Info("vault reconciled",
			slog.Int("scanned", res.Scanned),
			slog.Int("indexed", res.Indexed),
			slog.Int("removed", res.Removed))
	}
	return v, nil
}

// Run starts the HTTP server, the autosave scheduler, and the vault
// watcher, and blocks until ctx is cancelled or a shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config
	logger := newLogger(cfg)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("vault_path", cfg.Vault.Path),
		slog.Bool("autosave", cfg.AutoSave.Enabled),
		slog.String("log_level", cfg.App.LogLevel.String()))

	v, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	// Autosave scheduler; completed saves surface through the broker.
	sched := autosave.New(cfg.AutoSave.SchedulerConfig(), v.Store(), logger,
		func(d entry.Date, saveErr error) {
			if saveErr == nil {
				broker.PublishEntryEvent("saved", d)
				broker.PublishDirty(d, false)
			}
		})

	svc := journal.NewService(v.Store(), sched, v)
	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the entries tree for external edits.
	g.Go(func() error {
		err := v.Watch(gCtx, func(kind string, d entry.Date) {
			switch kind {
			case "deleted":
				broker.PublishEntryEvent("deleted", d)
			default:
				broker.PublishEntryEvent("external", d)
			}
		})
		if err != nil {
			logger.Warn("watcher failed", slog.String("error", err.Error()))
		}
		return nil
	})

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Drafts must reach disk before the process exits.
		if err := sched.Close(); err != nil {
			logger.Error("autosave drain failed", slog.String("error", err.Error()))
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// RunMCP serves the journal tools over MCP stdio. Log output goes to
// stderr so stdout stays clean for the protocol stream.
func RunMCP(_ context.Context, cfg *Config) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))

	v, err := openVault(cfg, logger)
	if err != nil {
		return err
	}
	defer v.Close()

	sched := autosave.New(cfg.AutoSave.SchedulerConfig(), v.Store(), logger, nil)
	defer sched.Close()

	svc := journal.NewService(v.Store(), sched, v)
	return mcpserver.New(svc).ServeStdio()
}

// RunReconcile opens the vault, runs one reconcile pass, and reports the
// result. Used by the CLI for scripted maintenance.
func RunReconcile(_ context.Context, cfg *Config) error {
	logger := newLogger(cfg)

	v, err := vault.Open(cfg.Vault.Path, logger)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	defer v.Close()

	res, err := v.Reconcile()
	if err != nil {
		return err
	}
	logger.Info("reconcile complete",
		slog.Int("scanned", res.Scanned),
		slog.Int("indexed", res.Indexed),
		slog.Int("removed", res.Removed))
	return nil
}
