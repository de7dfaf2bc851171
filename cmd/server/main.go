package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/csvstandard/internal/config"
	"github.com/JonMunkholm/csvstandard/internal/core"
	"github.com/JonMunkholm/csvstandard/internal/logging"
	"github.com/JonMunkholm/csvstandard/internal/schema"
	"github.com/JonMunkholm/csvstandard/internal/sheets"
	"github.com/JonMunkholm/csvstandard/internal/store"
	"github.com/JonMunkholm/csvstandard/internal/web"
)

// templateStore is what the server needs from a backing store.
type templateStore interface {
	core.TemplateStore
	core.UploadRecorder
}

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	loaded, err := config.LoadEnvFiles()
	if err != nil {
		slog.Error("failed to read .env file", "error", err)
		os.Exit(1)
	}
	if loaded {
		slog.Info("loaded .env file (overwriting existing env vars)")
	} else {
		slog.Info("no .env file found, using environment variables")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"database", cfg.Database.UsesDatabase(),
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"session_ttl", cfg.Session.TTL.String(),
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open template store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	if err := loadTemplates(ctx, cfg, st); err != nil {
		slog.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	sheetOpts := []sheets.Option{}
	if cfg.Sheets.ClientID != "" {
		sheetOpts = append(sheetOpts, sheets.WithOAuthApp(cfg.Sheets.ClientID, cfg.Sheets.ClientSecret))
	}
	if cfg.Sheets.Endpoint != "" {
		sheetOpts = append(sheetOpts, sheets.WithEndpoint(cfg.Sheets.Endpoint))
	}
	sheetClient := sheets.New(sheetOpts...)

	service := core.NewService(st,
		core.WithRecorder(st),
		core.WithSheetSink(sheetClient),
		core.WithLimiter(core.NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime)),
		core.WithSessionTTL(cfg.Session.TTL),
		core.WithMaxFileSize(cfg.Upload.MaxFileSize),
	)

	server := web.NewServer(cfg, service, st, sheetClient)

	// Create cancellable context for background jobs
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartSweeper(jobCtx, cfg.Session.SweepInterval)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for in-flight parses to finish (with timeout)
		if status := service.LimiterStatus(); status.Active > 0 {
			slog.Info("waiting for uploads to complete", "active", status.Active)
			if err := service.WaitForUploads(shutdownCtx); err != nil {
				slog.Warn("uploads did not complete in time", "error", err)
			} else {
				slog.Info("all uploads completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		cancelJobs()
		closeStore()
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}

// openStore connects to PostgreSQL when a database URL is configured and
// falls back to the in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config) (templateStore, func(), error) {
	if !cfg.Database.UsesDatabase() {
		slog.Warn("DATABASE_URL not set, templates and history are kept in memory")
		return store.NewMemory(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.Database.URL,
		int32(cfg.Database.MaxConns),
		int32(cfg.Database.MinConns),
		cfg.Database.MaxConnLifetime,
		cfg.Database.MaxConnIdleTime,
	)
	if err != nil {
		return nil, nil, err
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	pg := store.NewPostgres(pool)
	if err := pg.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return pg, pool.Close, nil
}

// loadTemplates seeds the starter templates and imports TEMPLATES_DIR.
// Imported files overwrite stored templates with the same ID.
func loadTemplates(ctx context.Context, cfg *config.Config, st core.TemplateStore) error {
	if cfg.Templates.Seed {
		n, err := store.Seed(ctx, st, schema.Builtin())
		if err != nil {
			return err
		}
		slog.Info("starter templates seeded", "added", n)
	}

	if cfg.Templates.Dir == "" {
		return nil
	}
	templates, err := schema.LoadDir(cfg.Templates.Dir)
	if err != nil {
		return err
	}
	for i := range templates {
		if err := st.Save(ctx, &templates[i]); err != nil {
			return err
		}
	}
	slog.Info("templates imported", "dir", cfg.Templates.Dir, "count", len(templates))
	return nil
}
