package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromViper_Defaults(t *testing.T) {
	cfg, err := fromViper(viper.New())
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 3, cfg.Retry.Attempts)
	assert.Equal(t, 1500*time.Millisecond, cfg.Retry.InitialDelay)
	assert.Equal(t, 2.0, cfg.Retry.Factor)
	assert.False(t, cfg.Retry.Jitter)
	assert.Equal(t, 20*time.Second, cfg.API.Timeout)
	assert.Equal(t, 60*time.Second, cfg.API.RawTimeout)
	assert.False(t, cfg.DB.Enabled())
	assert.Equal(t, 10, cfg.DB.MaxConns)
}

func TestFromViper_ValoresDeEntorno(t *testing.T) {
	v := viper.New()
	v.Set("API_BASE_URL", "https://api.example.com/")
	v.Set("RETRY_ATTEMPTS", "5")
	v.Set("RETRY_FACTOR", "1.5")
	v.Set("RETRY_JITTER", "true")
	v.Set("DB_HOST", "db")

	cfg, err := fromViper(v)
	require.NoError(t, err)

	assert.Equal(t, "https://api.example.com", cfg.API.BaseURL, "la barra final se recorta")
	assert.Equal(t, 5, cfg.Retry.Attempts)
	assert.Equal(t, 1.5, cfg.Retry.Factor)
	assert.True(t, cfg.Retry.Jitter)
	assert.True(t, cfg.DB.Enabled())
	assert.Equal(t, "postgres://postgres:@db:5432/preventa?sslmode=disable", cfg.DB.ConnectionString())
}

func TestFromViper_RechazaIntentosInvalidos(t *testing.T) {
	v := viper.New()
	v.Set("RETRY_ATTEMPTS", "0")

	_, err := fromViper(v)
	assert.Error(t, err)
}
