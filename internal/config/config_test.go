package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validSecret = "test-secret-key-that-is-long-enough-123"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "http://localhost", cfg.Ledger)
	assert.Equal(t, "ledger-fees", cfg.FeeAccount)
	assert.Equal(t, time.Second, cfg.ExpiryPollInterval)
	assert.Equal(t, 5, cfg.ExpiryConcurrency)
	assert.Equal(t, 24*time.Hour, cfg.IdempotencyTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("PORT", "9090")
	t.Setenv("LEDGER_IDENTIFIER", "http://ledger.example.com")
	t.Setenv("EXPIRY_POLL_INTERVAL", "250ms")
	t.Setenv("EXPIRY_CONCURRENCY", "12")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.HTTPPort)
	assert.Equal(t, "http://ledger.example.com", cfg.Ledger)
	assert.Equal(t, 250*time.Millisecond, cfg.ExpiryPollInterval)
	assert.Equal(t, 12, cfg.ExpiryConcurrency)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.ErrorContains(t, err, "JWT_SECRET is required")
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	_, err := Load()
	assert.ErrorContains(t, err, "at least 32 characters")
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("JWT_SECRET", validSecret)
	t.Setenv("EXPIRY_POLL_INTERVAL", "soon")
	_, err := Load()
	assert.ErrorContains(t, err, "EXPIRY_POLL_INTERVAL")
}
