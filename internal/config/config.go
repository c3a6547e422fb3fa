// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles; a .env file in the working directory is honoured when present.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Database (PostgreSQL)
	DatabaseURL   string `env:"DATABASE_URL,required,notEmpty"`
	RunMigrations bool   `env:"RUN_MIGRATIONS" envDefault:"true"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required,notEmpty"`

	// Directory holding scaler.bin, classifier.bin and report.json.
	ArtifactPath string `env:"ARTIFACT_PATH" envDefault:"ml/models"`

	// Access tokens
	JWTSecret                string `env:"JWT_SECRET,required,notEmpty,unset"`
	JWTAlgorithm             string `env:"JWT_ALGORITHM" envDefault:"HS256"`
	JWTIssuer                string `env:"JWT_ISSUER" envDefault:"loanwise"`
	AccessTokenExpireMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"30"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Rate limiting. Scoring is limited per user, the token endpoint per IP.
	RateLimitEnabled          bool `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	RateLimitScoringPerMinute int  `env:"RATE_LIMIT_SCORING_PER_MINUTE" envDefault:"120"`
	RateLimitScoringBurst     int  `env:"RATE_LIMIT_SCORING_BURST" envDefault:"20"`
	RateLimitLoginRPS         int  `env:"RATE_LIMIT_LOGIN_RPS" envDefault:"5"`
	RateLimitLoginBurst       int  `env:"RATE_LIMIT_LOGIN_BURST" envDefault:"10"`

	// TrustProxyHeaders takes the client address from X-Forwarded-For or
	// X-Real-IP. Enable only behind a proxy that overwrites them.
	TrustProxyHeaders bool `env:"TRUST_PROXY_HEADERS" envDefault:"false"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	// Request body size limit in bytes
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"65536"`
}

var supportedAlgorithms = []string{"HS256", "HS384", "HS512"}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// AccessTokenTTL returns the configured token lifetime.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpireMinutes) * time.Minute
}

// Validate checks values the struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(supportedAlgorithms, c.JWTAlgorithm) {
		errs = append(errs, fmt.Errorf("JWT_ALGORITHM must be one of %v, got %q", supportedAlgorithms, c.JWTAlgorithm))
	}
	if c.IsProduction() && len(c.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes in production"))
	}
	if c.AccessTokenExpireMinutes <= 0 {
		errs = append(errs, errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive"))
	}
	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT out of range: %d", c.AppPort))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}
	if c.RateLimitScoringPerMinute < 0 || c.RateLimitLoginRPS < 0 ||
		c.RateLimitScoringBurst < 0 || c.RateLimitLoginBurst < 0 {
		errs = append(errs, errors.New("rate limits must not be negative"))
	}
	return errors.Join(errs...)
}

// Load reads .env if present, parses environment variables and validates
// the result. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
