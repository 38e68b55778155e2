package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address())
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"EUR", "NGN", "USD"}, cfg.Currencies.Codes())
	assert.Equal(t, "USD", cfg.DefaultCurrency)
	assert.Len(t, cfg.Rates, 6)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.True(t, cfg.RunMigrations)
}

func TestLoadProductionRequiresBackends(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("JWT_SECRET", "s3cret")

	_, err := Load()
	assert.ErrorContains(t, err, "DATABASE_URL")

	t.Setenv("DATABASE_URL", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "")
	_, err = Load()
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestLoadDurationsAndCurrencies(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("IDEMPOTENCY_TTL", "90m")
	t.Setenv("SUPPORTED_CURRENCIES", "usd:2,jpy:0")
	t.Setenv("EXCHANGE_RATES", "USD:JPY=150,JPY:USD=0.0066")
	t.Setenv("PORT", ":9000")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.ShutdownPeriod)
	assert.Equal(t, 90*time.Minute, cfg.IdempotencyTTL)
	assert.Equal(t, []string{"JPY", "USD"}, cfg.Currencies.Codes())
	assert.Len(t, cfg.Rates, 2)
	assert.Equal(t, ":9000", cfg.Address())
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "SHUTDOWN_TIMEOUT_SECONDS")

	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "")
	t.Setenv("DEFAULT_CURRENCY", "GBP")
	_, err = Load()
	assert.ErrorContains(t, err, "DEFAULT_CURRENCY")
}
