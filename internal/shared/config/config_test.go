package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 30, cfg.Server.RateLimit)
	assert.Equal(t, time.Minute, cfg.Server.RateLimitWindow)
	assert.Equal(t, 24*time.Hour, cfg.Payments.IdempotencyTTL)
	assert.Equal(t, "00:05", cfg.Payments.Cutoff)
	assert.Equal(t, "UTC", cfg.Payments.Timezone)
	assert.Equal(t, 720*time.Hour, cfg.Payments.ExpiryWindow)
	assert.Equal(t, 2*time.Minute, cfg.Payments.NewOrderGrace)
	assert.Equal(t, 100, cfg.Payments.MaxPageSize)
	assert.Equal(t, 20, cfg.Payments.DefaultPageSize)
	assert.Equal(t, 10*time.Minute, cfg.Payments.ConfirmationTTL)
	assert.True(t, cfg.Payments.AllowReviewFailedDelete)
	assert.Equal(t, "aim", cfg.Gateway.Provider)
	assert.Equal(t, 30*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, uint32(5), cfg.Gateway.Breaker.FailureThreshold)
	assert.Equal(t, "coursepay.orders", cfg.Kafka.Topic)
	assert.Equal(t, "incidents/", cfg.Storage.IncidentPrefix)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := chdirTemp(t)
	yaml := []byte(`
gateway:
  provider: stripe
payments:
  cutoff: "18:30"
  timezone: America/Denver
  allow_review_failed_delete: false
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o600))
	t.Setenv("COURSEPAY_PAYMENTS_MAX_PAGE_SIZE", "50")
	t.Setenv("COURSEPAY_STRIPE_SECRET_KEY", "sk_test_123")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "stripe", cfg.Gateway.Provider)
	assert.Equal(t, "18:30", cfg.Payments.Cutoff)
	assert.Equal(t, "America/Denver", cfg.Payments.Timezone)
	assert.False(t, cfg.Payments.AllowReviewFailedDelete)
	assert.Equal(t, 50, cfg.Payments.MaxPageSize)
	assert.Equal(t, "sk_test_123", cfg.Gateway.Stripe.SecretKey)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "reconcile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  shutdown_timeout: 5s\n"), 0o600))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, ":8080", cfg.Server.Address)

	_, err = LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Gateway:  GatewayConfig{Provider: "aim"},
		Payments: PaymentsConfig{MaxPageSize: 100, DefaultPageSize: 20},
	}
	assert.NoError(t, cfg.Validate())

	cfg.Gateway.Provider = "paypal"
	assert.Error(t, cfg.Validate())

	cfg.Gateway.Provider = "aim"
	cfg.Payments.DefaultPageSize = 200
	assert.Error(t, cfg.Validate())
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := &DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Database: "coursepay", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=coursepay sslmode=disable", cfg.DSN())
}
