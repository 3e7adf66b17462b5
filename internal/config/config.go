package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port             int    `env:"PORT" envDefault:"8080"`
	DatabaseURL      string `env:"DATABASE_URL,required"`
	RedisURL         string `env:"REDIS_URL,required"`
	CodeTTLMinutes   int    `env:"CODE_TTL_MINUTES" envDefault:"60"`
	PushGatewayURL   string `env:"PUSH_GATEWAY_URL"`
	PushGatewayToken string `env:"PUSH_GATEWAY_TOKEN"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
}

// CodeTTL is how long a freshly issued link code stays redeemable.
func (c *Config) CodeTTL() time.Duration {
	return time.Duration(c.CodeTTLMinutes) * time.Minute
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate(isProduction bool) error {
	if c.CodeTTLMinutes <= 0 {
		return fmt.Errorf("CODE_TTL_MINUTES must be positive")
	}

	if c.PushGatewayURL != "" && !strings.HasPrefix(c.PushGatewayURL, "https://") {
		if isProduction {
			return fmt.Errorf("PUSH_GATEWAY_URL must use https in production")
		}
		log.Warn().Msg("PUSH_GATEWAY_URL is not https: fine for local development only")
	}

	if isProduction {
		if c.PushGatewayURL == "" {
			log.Warn().Msg("PUSH_GATEWAY_URL is empty in production: wallet push notifications disabled")
		}
		if strings.HasPrefix(c.RedisURL, "redis://") {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
