package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grovehq/grove/internal/config"
)

const testSecret = "0123456789abcdef0123456789abcdef" // 32 chars

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GROVE_JWT_SECRET", testSecret)

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "grove", cfg.Database.User)
	assert.Equal(t, "grove_dev", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxConns)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 15*time.Minute, cfg.JWT.AccessTTL)
	assert.Equal(t, 7*24*time.Hour, cfg.JWT.RefreshTTL)
	assert.Equal(t, 5, cfg.Tree.MaxDepth)
	assert.False(t, cfg.SelfHosted)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GROVE_JWT_SECRET", testSecret)
	t.Setenv("GROVE_DB_HOST", "db.internal")
	t.Setenv("GROVE_DB_PORT", "5433")
	t.Setenv("GROVE_TREE_MAX_DEPTH", "3")
	t.Setenv("GROVE_JWT_ACCESS_TTL", "30m")
	t.Setenv("GROVE_SELF_HOSTED", "true")
	t.Setenv("GROVE_CORS_ORIGINS", "https://app.example.com, https://other.example.com")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5433, cfg.Database.Port)
	assert.Equal(t, 3, cfg.Tree.MaxDepth)
	assert.Equal(t, 30*time.Minute, cfg.JWT.AccessTTL)
	assert.True(t, cfg.SelfHosted)
	assert.Equal(t, []string{"https://app.example.com", "https://other.example.com"}, cfg.Server.CORSOrigins)
}

func TestLoadValidation(t *testing.T) {
	t.Run("missing JWT secret", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", "")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GROVE_JWT_SECRET is required")
	})

	t.Run("short JWT secret", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", "tooshort")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "at least 32 characters")
	})

	t.Run("bad port", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", testSecret)
		t.Setenv("GROVE_DB_PORT", "70000")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GROVE_DB_PORT")
	})

	t.Run("unparseable int", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", testSecret)
		t.Setenv("GROVE_DB_PORT", "not-a-number")

		_, err := config.Load()
		require.Error(t, err)
	})

	t.Run("zero max depth", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", testSecret)
		t.Setenv("GROVE_TREE_MAX_DEPTH", "0")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GROVE_TREE_MAX_DEPTH")
	})

	t.Run("negative access TTL", func(t *testing.T) {
		t.Setenv("GROVE_JWT_SECRET", testSecret)
		t.Setenv("GROVE_JWT_ACCESS_TTL", "-5m")

		_, err := config.Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "GROVE_JWT_ACCESS_TTL")
	})
}

func TestDSN(t *testing.T) {
	t.Parallel()

	db := config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "grove",
		Password: "pw",
		DBName:   "grove_dev",
		SSLMode:  "disable",
	}

	assert.Equal(t,
		"host=localhost port=5432 user=grove password=pw dbname=grove_dev sslmode=disable",
		db.DSN(),
	)
}
