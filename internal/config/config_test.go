package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.False(t, cfg.Server.IsProduction())
	assert.Equal(t, 30*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Empty(t, cfg.CORS.AllowedOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("SERVER_ENV", "Production")
	t.Setenv("STORE_DRIVER", "MEMORY")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("ADMIN_EMAILS", " boss@example.com, ,ops@example.com")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://shop.example.com")
	t.Setenv("RATE_LIMIT_REQUESTS", "5")
	t.Setenv("RATE_LIMIT_WINDOW", "10s")
	t.Setenv("DB_USER", "ledger")
	t.Setenv("DB_PASSWORD", "pw")
	t.Setenv("DB_DATABASE", "inventory")

	cfg := Load()

	assert.True(t, cfg.Server.IsProduction())
	assert.Equal(t, StoreDriverMemory, cfg.Store.Driver)
	assert.Equal(t, []string{"boss@example.com", "ops@example.com"}, cfg.JWT.AdminEmails)
	assert.Equal(t, []string{"https://shop.example.com"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 5, cfg.RateLimit.Requests)
	assert.Equal(t, 10*time.Second, cfg.RateLimit.Window)
	assert.Equal(t, "postgres://ledger:pw@localhost:5432/inventory?sslmode=disable&search_path=public", cfg.Database.DSN())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
}

func TestValidate(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := Load()
	cfg.Store.Driver = "mongo"
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.JWT.Secret = ""
	assert.Error(t, cfg.Validate())

	cfg = Load()
	cfg.RateLimit.Window = 0
	assert.Error(t, cfg.Validate())
}
