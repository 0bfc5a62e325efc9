package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port string `validate:"required,numeric"`

	// Upstream weather provider.
	WeatherAPIKey      string
	WeatherAPIBaseURL  string        `validate:"required,url"`
	HTTPTimeout        time.Duration `validate:"gt=0"`
	ProviderMaxRetries int           `validate:"gte=0"`

	// Token signing.
	AppSecret  string        `validate:"required"`
	TokenTTL   time.Duration `validate:"gt=0"`
	BcryptCost int           `validate:"gte=4,lte=31"`

	// DatabaseURL is either a postgres:// URL or a SQLite file path.
	DatabaseURL string `validate:"required"`

	// SyncInterval controls how often every tracked city is refreshed.
	SyncInterval       time.Duration `validate:"gt=0"`
	SyncOnStart        bool
	RefreshConcurrency int           `validate:"gte=1"`
	RefreshTimeout     time.Duration `validate:"gt=0"`

	LogLevel string `validate:"oneof=debug info warn error"`
}

var validate = validator.New()

// Load reads configuration from the environment (and .env when present).
func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := &AppConfig{
		Port:              getenvDefault("PORT", "1530"),
		WeatherAPIKey:     os.Getenv("WEATHER_API_KEY"),
		WeatherAPIBaseURL: getenvDefault("WEATHER_API_BASE_URL", "https://api.openweathermap.org"),
		AppSecret:         os.Getenv("APP_SECRET"),
		DatabaseURL:       getenvDefault("DATABASE_URL", "weather.db"),
		LogLevel:          strings.ToLower(getenvDefault("LOG_LEVEL", "info")),
	}

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "10s"); err != nil {
		return nil, err
	}
	if cfg.TokenTTL, err = getenvDuration("TOKEN_TTL", "7h"); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = getenvDuration("SYNC_INTERVAL", "1h"); err != nil {
		return nil, err
	}
	if cfg.RefreshTimeout, err = getenvDuration("REFRESH_TIMEOUT", "30s"); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries, err = getenvInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.BcryptCost, err = getenvInt("BCRYPT_COST", 10); err != nil {
		return nil, err
	}
	if cfg.RefreshConcurrency, err = getenvInt("REFRESH_CONCURRENCY", 4); err != nil {
		return nil, err
	}
	if cfg.SyncOnStart, err = getenvBool("SYNC_ON_START", false); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
