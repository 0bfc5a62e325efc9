package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "1530", cfg.Port)
	assert.Equal(t, 7*time.Hour, cfg.TokenTTL)
	assert.Equal(t, time.Hour, cfg.SyncInterval)
	assert.Equal(t, 10, cfg.BcryptCost)
	assert.Equal(t, 0, cfg.ProviderMaxRetries)
	assert.Equal(t, 4, cfg.RefreshConcurrency)
	assert.False(t, cfg.SyncOnStart)
	assert.Equal(t, "https://api.openweathermap.org", cfg.WeatherAPIBaseURL)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("APP_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"SYNC_INTERVAL":       "every hour",
		"BCRYPT_COST":         "ten",
		"SYNC_ON_START":       "maybe",
		"REFRESH_CONCURRENCY": "0",
		"LOG_LEVEL":           "verbose",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv("APP_SECRET", "secret")
			t.Setenv(key, value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
