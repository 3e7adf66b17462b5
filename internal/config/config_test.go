package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})

	t.Run("CodeTTL converts minutes to duration", func(t *testing.T) {
		cfg := &Config{CodeTTLMinutes: 60}
		assert.Equal(t, 60*time.Minute, cfg.CodeTTL())
	})
}

func TestValidate(t *testing.T) {
	t.Run("rejects non-positive code TTL", func(t *testing.T) {
		cfg := &Config{CodeTTLMinutes: 0}
		assert.Error(t, cfg.Validate(false))
	})

	t.Run("rejects plain http push gateway in production", func(t *testing.T) {
		cfg := &Config{CodeTTLMinutes: 60, PushGatewayURL: "http://push.local"}
		assert.Error(t, cfg.Validate(true))
	})

	t.Run("allows plain http push gateway in development", func(t *testing.T) {
		cfg := &Config{CodeTTLMinutes: 60, PushGatewayURL: "http://push.local"}
		assert.NoError(t, cfg.Validate(false))
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":             os.Getenv("PORT"),
		"DATABASE_URL":     os.Getenv("DATABASE_URL"),
		"REDIS_URL":        os.Getenv("REDIS_URL"),
		"CODE_TTL_MINUTES": os.Getenv("CODE_TTL_MINUTES"),
		"LOG_LEVEL":        os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("CODE_TTL_MINUTES")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 60, cfg.CodeTTLMinutes)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("CODE_TTL_MINUTES", "30")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, 30, cfg.CodeTTLMinutes)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required database url", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})
}
