package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("EXPENSIO_JWT_SECRET_KEY", "test-secret-key-32-chars-long!!")

	var cfg Config
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "Expensio", cfg.App.Name)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.True(t, cfg.Database.AutoMigrate)

	assert.Equal(t, "test-secret-key-32-chars-long!!", cfg.JWT.SecretKey)
	assert.Equal(t, "HS256", cfg.JWT.Algorithm)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, "expensio", cfg.JWT.Issuer)

	assert.Equal(t, 7*24*time.Hour, cfg.RefreshToken.Expiry)
	assert.Equal(t, 32, cfg.RefreshToken.TokenLength)
	assert.Equal(t, time.Hour, cfg.RefreshToken.CleanupInterval)

	assert.Equal(t, 8, cfg.Auth.MinLength)
	assert.True(t, cfg.Auth.RequireLetter)
	assert.True(t, cfg.Auth.RequireNumber)
	assert.Equal(t, 10, cfg.Auth.BcryptCost)
}

func TestLoadConfig_MissingSecretKey(t *testing.T) {
	// Setenv registers the restore; the variable itself must be absent for
	// the required check to trip.
	t.Setenv("EXPENSIO_JWT_SECRET_KEY", "")
	os.Unsetenv("EXPENSIO_JWT_SECRET_KEY")

	var cfg Config
	err := LoadConfig(&cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "SECRET_KEY")
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	t.Setenv("EXPENSIO_JWT_SECRET_KEY", "another-secret")
	t.Setenv("EXPENSIO_JWT_ALGORITHM", "HS512")
	t.Setenv("EXPENSIO_JWT_ACCESS_EXPIRY", "15m")
	t.Setenv("EXPENSIO_REFRESH_TOKEN_EXPIRY", "24h")
	t.Setenv("EXPENSIO_AUTH_MIN_LENGTH", "12")
	t.Setenv("EXPENSIO_DB_DRIVER", "postgres")

	var cfg Config
	require.NoError(t, LoadConfig(&cfg))

	assert.Equal(t, "HS512", cfg.JWT.Algorithm)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessExpiry)
	assert.Equal(t, 24*time.Hour, cfg.RefreshToken.Expiry)
	assert.Equal(t, 12, cfg.Auth.MinLength)
	assert.Equal(t, "postgres", cfg.Database.Driver)
}
