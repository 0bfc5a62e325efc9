package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	httpapi "github.com/i474232898/city-weather-tracker/internal/api/http"
	"github.com/i474232898/city-weather-tracker/internal/auth"
	"github.com/i474232898/city-weather-tracker/internal/config"
	"github.com/i474232898/city-weather-tracker/internal/logging"
	"github.com/i474232898/city-weather-tracker/internal/metrics"
	"github.com/i474232898/city-weather-tracker/internal/scheduler"
	"github.com/i474232898/city-weather-tracker/internal/store"
	"github.com/i474232898/city-weather-tracker/internal/weather"
	"github.com/i474232898/city-weather-tracker/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := logging.New(cfg.LogLevel)
	slog.SetDefault(lg)

	st, err := store.Open(cfg.DatabaseURL, lg)
	if err != nil {
		lg.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := st.Close(); err != nil {
			lg.Error("error closing database", slog.Any("error", err))
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	provider := providers.NewOpenWeatherProvider(httpClient, cfg.WeatherAPIKey,
		providers.WithBaseURL(cfg.WeatherAPIBaseURL),
		providers.WithRetries(cfg.ProviderMaxRetries),
		providers.WithMetrics(m),
	)

	cities := weather.NewService(st, provider, lg, m, weather.ServiceConfig{
		Concurrency:    cfg.RefreshConcurrency,
		RefreshTimeout: cfg.RefreshTimeout,
	})
	users := auth.NewService(st, auth.NewTokenManager(cfg.AppSecret, cfg.TokenTTL), cfg.BcryptCost, lg, m)

	// Hourly (by default) refresh of every tracked city.
	sched := scheduler.New(cfg.SyncInterval, cities, lg)
	if cfg.SyncOnStart {
		go sched.RunOnce(context.Background())
	}
	if err := sched.Start(); err != nil {
		lg.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}
	defer sched.Stop()

	app := httpapi.NewApp()
	app.Use(logger.New())
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Auth:     users,
		Cities:   cities,
		Health:   st,
		Gatherer: reg,
		Logger:   lg,
	})

	go func() {
		lg.Info("server listening", slog.String("port", cfg.Port))
		if err := app.Listen(":" + cfg.Port); err != nil {
			lg.Error("fiber server stopped", slog.Any("error", err))
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		lg.Error("error during shutdown", slog.Any("error", err))
	}
}
