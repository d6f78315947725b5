package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	httpapi "github.com/i474232898/weather-likelihood/internal/api/http"
	"github.com/i474232898/weather-likelihood/internal/assistant"
	"github.com/i474232898/weather-likelihood/internal/config"
	"github.com/i474232898/weather-likelihood/internal/scheduler"
	"github.com/i474232898/weather-likelihood/internal/store"
	"github.com/i474232898/weather-likelihood/internal/weather"
	"github.com/i474232898/weather-likelihood/internal/weather/providers"
)

const serviceName = "weather-likelihood"

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	zapLogger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't initialize zap logger: %v\n", err)
		os.Exit(1)
	}
	defer zapLogger.Sync()
	log := zapLogger.Sugar()

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Providers with resilience (backoff + circuit breaker), tried in order.
	provs, err := providers.Build(cfg.Providers, httpClient)
	if err != nil {
		log.Fatalw("failed to build providers", "error", err)
	}

	// In-memory series cache with configured retention.
	memStore := store.NewMemoryStore(cfg.CacheMaxEntries, cfg.CacheMaxAge)

	// Core service orchestrating providers, cache and statistics.
	service := weather.NewService(memStore, provs, weather.Options{
		Years:         cfg.Years(),
		MaxWindowDays: cfg.MaxWindowDays,
		GapFill:       cfg.GapFill,
	}, log.Named("service"))

	var geo assistant.Geocoder
	if cfg.GeocoderAPIKey != "" {
		geo = assistant.NewGoogleGeocoder(cfg.GeocoderAPIKey)
	}
	advisor := assistant.NewAdvisor(assistant.NewClassifier(geo), service, cfg.DefaultWindowDays, log.Named("assistant"))

	// Scheduler that sweeps the cache and keeps prewarmed series fresh.
	sched := scheduler.New(scheduler.Config{
		SweepInterval: cfg.CacheSweepInterval,
		Locations:     cfg.PrewarmLocations,
		Variables:     cfg.PrewarmVariables,
		FetchTimeout:  2 * cfg.HTTPTimeout,
	}, memStore, service, log.Named("scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatalw("failed to start scheduler", "error", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		// Cold-cache queries wait on upstream archives.
		WriteTimeout: 3 * cfg.HTTPTimeout,
		ErrorHandler: httpapi.ErrorHandler(log.Named("http")),
	})

	// Global middleware
	app.Use(httpapi.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:request_id} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, advisor, memStore, httpapi.Options{
		DefaultWindowDays: cfg.DefaultWindowDays,
		RequestTimeout:    2 * cfg.HTTPTimeout,
	})

	go func() {
		log.Infow("listening", "port", cfg.Port, "providers", cfg.Providers, "years", service.Years().String())
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
