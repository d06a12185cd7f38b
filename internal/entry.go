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
	prom "github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/starford/noteprops/internal/api"
	"github.com/starford/noteprops/internal/docservice"
	"github.com/starford/noteprops/internal/index"
	"github.com/starford/noteprops/internal/mcpserver"
	"github.com/starford/noteprops/internal/metrics"
	"github.com/starford/noteprops/internal/pipeline"
	"github.com/starford/noteprops/internal/render"
	"github.com/starford/noteprops/internal/sse"
	"github.com/starford/noteprops/internal/storage"
	"github.com/starford/noteprops/internal/watch"
)

// components are the pieces shared by every command.
type components struct {
	content *storage.FS
	builder *pipeline.Builder
	emitter *pipeline.Emitter
}

func (a *application) setup(rec metrics.Recorder, logger *slog.Logger) (*components, error) {
	cfg := a.config

	content, err := storage.EnsureFS(cfg.Content.Path)
	if err != nil {
		return nil, fmt.Errorf("init content storage: %w", err)
	}
	output, err := storage.EnsureFS(cfg.Output.Path)
	if err != nil {
		return nil, fmt.Errorf("init output storage: %w", err)
	}

	component := render.New(render.Options{Collapsed: cfg.Component.Collapsed})
	return &components{
		content: content,
		builder: pipeline.NewBuilder(content, cfg.Properties.PipelineOptions(),
			pipeline.WithWorkers(cfg.Build.Workers),
			pipeline.WithLogger(logger),
			pipeline.WithRecorder(rec),
		),
		emitter: pipeline.NewEmitter(output, component, pipeline.EmitterConfig{
			Locale:       cfg.Component.Locale,
			DisplayClass: cfg.Component.DisplayClass,
			Logger:       logger,
		}),
	}, nil
}

func (a *application) service(c *components, db index.DocumentIndex, events docservice.Publisher, rec metrics.Recorder, logger *slog.Logger) *docservice.Service {
	cfg := a.config
	return docservice.New(docservice.Config{
		Builder:      c.builder,
		Emitter:      c.emitter,
		Index:        db,
		Component:    render.New(render.Options{Collapsed: cfg.Component.Collapsed}),
		Locale:       cfg.Component.Locale,
		DisplayClass: cfg.Component.DisplayClass,
		Events:       events,
		Recorder:     rec,
		Logger:       logger,
	})
}

func newApplicationFor(opts []Option) (*application, error) {
	app := &application{version: "dev"}
	for _, opt := range opts {
		opt(app)
	}
	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if app.logOut == nil {
		app.logOut = os.Stdout
	}
	return app, nil
}

// Build runs a single build into the output directory. The returned error
// joins the per-document failures, so a caller can exit non-zero while
// every other document is still emitted.
func Build(ctx context.Context, opts ...Option) error {
	app, err := newApplicationFor(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	c, err := app.setup(nil, logger)
	if err != nil {
		return err
	}

	res, err := c.builder.Build(ctx)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	manifest, err := c.emitter.Emit(res)
	if err != nil {
		return fmt.Errorf("emit: %w", err)
	}

	logger.Info("Build finished",
		slog.String("build_id", res.BuildID),
		slog.String("content_path", cfg.Content.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.Int("documents", manifest.Documents),
		slog.Int("failures", len(res.Failures)),
		slog.Duration("duration", res.Duration))

	return res.Err()
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplicationFor(opts)
	if err != nil {
		return err
	}
	cfg := app.config

	// Initialize structured JSON logger.
	logger := app.logger()

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("content_path", cfg.Content.Path),
		slog.String("output_path", cfg.Output.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	c, err := app.setup(rec, logger)
	if err != nil {
		return err
	}

	// Initialize SQLite index.
	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	svc := app.service(c, db, broker, rec, logger)

	// Run initial build.
	res, err := svc.Rebuild(ctx, nil)
	if err != nil {
		return fmt.Errorf("initial build: %w", err)
	}
	if len(res.Failures) > 0 {
		logger.Warn("initial build had failures", slog.Int("failures", len(res.Failures)))
	}

	apiRouter := api.NewRouter(svc, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker, rec)
	previewRouter := api.NewPreviewRouter(svc, rec)

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
	r.Handle("/metrics", metrics.HTTPHandler(reg))

	// Mount API routes under /api; preview pages and assets at the root.
	r.Mount("/api", apiRouter)
	r.Mount("/", previewRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Rebuild on content changes.
	g.Go(func() error {
		w := watch.New(cfg.Content.Path, watch.WithLogger(logger))
		if err := w.Run(gCtx, svc.HandleChanges); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("watcher: %w", err)
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
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group once a signal arrives so the watcher stops too.
var errShutdown = errors.New("shutdown requested")

// ServeMCP builds the content once and serves the MCP tools over stdio.
func ServeMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	app, err := newApplicationFor(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := app.logger()

	c, err := app.setup(nil, logger)
	if err != nil {
		return err
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return fmt.Errorf("init index: %w", err)
	}
	defer db.Close()

	svc := app.service(c, db, nil, nil, logger)
	if _, err := svc.Rebuild(ctx, nil); err != nil {
		return fmt.Errorf("initial build: %w", err)
	}

	logger.Info("MCP server starting on stdio", slog.String("content_path", cfg.Content.Path))
	return mcpserver.New(svc, app.version).ServeStdio()
}
