// Package devserver is a self-contained authentication backend for local
// development and integration tests. It keeps every account in memory and
// speaks the same envelope protocol as the production backend, including
// its inconsistent error payload shapes.
package devserver

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Address         string        `env:"AUTHFRONT_ADDRESS" env-default:"127.0.0.1:8080"`
	JWTSecret       string        `env:"AUTHFRONT_JWT_SECRET" env-default:"dev-secret-change-me"`
	TokenTTL        time.Duration `env:"AUTHFRONT_TOKEN_TTL" env-default:"24h"`
	Issuer          string        `env:"AUTHFRONT_ISSUER" env-default:"authfront-dev"`
	Production      bool          `env:"AUTHFRONT_PRODUCTION" env-default:"false"`
	LoginRateLimit  int           `env:"AUTHFRONT_LOGIN_RATE_LIMIT" env-default:"5"`
	LoginRateWindow time.Duration `env:"AUTHFRONT_LOGIN_RATE_WINDOW" env-default:"1m"`
}

// LoadConfig reads settings from the environment, falling back to the
// defaults above.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
