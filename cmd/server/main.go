// Command server runs the usage report HTTP server: the JSON API under /v1
// and the HTML dashboard under /ui.
package main

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

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/glue"
	"github.com/aws/aws-sdk-go-v2/service/identitystore"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/robfig/cron/v3"

	"usage-report/internal/api"
	"usage-report/internal/cache"
	"usage-report/internal/catalog"
	"usage-report/internal/config"
	"usage-report/internal/engine"
	"usage-report/internal/identity"
	"usage-report/internal/middleware"
	"usage-report/internal/service/report"
	"usage-report/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var awsOpts []func(*awsconfig.LoadOptions) error
	if cfg.AWSRegion != "" {
		awsOpts = append(awsOpts, awsconfig.WithRegion(cfg.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsOpts...)
	if err != nil {
		return fmt.Errorf("load AWS config: %w", err)
	}

	shortCache := cache.New()
	longCache := cache.New()

	executor := engine.NewExecutor(athena.NewFromConfig(awsCfg), engine.ExecutorConfig{
		Database:       cfg.Database,
		OutputLocation: cfg.OutputLocation,
		WorkGroup:      cfg.WorkGroup,
		PollInterval:   cfg.PollInterval,
		MaxWait:        cfg.MaxQueryWait,
	}, logger)

	tables := catalog.NewResolver(glue.NewFromConfig(awsCfg), cfg.Database, cfg.TableOverride, logger)
	names := identity.NewResolver(identitystore.NewFromConfig(awsCfg), cfg.IdentityStoreID, longCache, cfg.ResolveTTL, logger)

	reports := report.NewService(executor, tables, names, shortCache, longCache, logger)
	reports.SetTTLs(cfg.QueryTTL, cfg.ResolveTTL)

	if cfg.SectionsPath != "" {
		data, err := os.ReadFile(cfg.SectionsPath)
		if err != nil {
			return fmt.Errorf("read sections file: %w", err)
		}
		sections, err := report.LoadSections(data)
		if err != nil {
			return fmt.Errorf("load sections file %s: %w", cfg.SectionsPath, err)
		}
		reports.SetSections(sections)
		logger.Info("custom report sections loaded", "path", cfg.SectionsPath, "count", len(sections))
	}

	if cfg.RefreshSchedule != "" {
		scheduler := cron.New()
		if _, err := scheduler.AddFunc(cfg.RefreshSchedule, reports.Refresh); err != nil {
			return fmt.Errorf("invalid REFRESH_SCHEDULE %q: %w", cfg.RefreshSchedule, err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		logger.Info("scheduled cache refresh enabled", "schedule", cfg.RefreshSchedule)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
	r.Use(middleware.RateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		Burst:             cfg.RateLimitBurst,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Mount("/v1", api.NewHandler(reports, logger).Routes())
	r.Mount("/ui", ui.NewHandler(reports, logger).Routes())
	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, "/ui", http.StatusFound)
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.ListenAddr, "database", cfg.Database)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
