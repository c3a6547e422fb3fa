// Package main is the entrypoint for the LoanWise scoring API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/cache"
	"github.com/loanwise/loanwise/internal/config"
	"github.com/loanwise/loanwise/internal/metrics"
	"github.com/loanwise/loanwise/internal/middleware"
	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/repository"
	"github.com/loanwise/loanwise/internal/scoring"
	"github.com/loanwise/loanwise/internal/server"
	"github.com/loanwise/loanwise/internal/service"
)

var version = "dev"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := initLogger(cfg)

	if cfg.RunMigrations {
		if err := repository.Migrate(cfg.DatabaseURL); err != nil {
			logger.Error("failed to run migrations",
				slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			)
			os.Exit(1)
		}
		logger.Info("database migrations applied")
	}

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error(
			"failed to connect to database",
			slog.String("error", sanitizeError(err, cfg.DatabaseURL)),
			slog.String("database_url", redactURL(cfg.DatabaseURL)),
		)
		os.Exit(1)
	}
	defer repo.Close()
	logger.Info("connected to database")

	cacheClient, err := cache.New(ctx, cfg.RedisURL)
	if err != nil {
		logger.Error(
			"failed to connect to Redis",
			slog.String("error", sanitizeError(err, cfg.RedisURL)),
			slog.String("redis_url", redactURL(cfg.RedisURL)),
		)
		os.Exit(1)
	}
	defer cacheClient.Close()
	logger.Info("connected to Redis")

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    cfg.JWTSecret,
		Algorithm: cfg.JWTAlgorithm,
		Issuer:    cfg.JWTIssuer,
		TTL:       cfg.AccessTokenTTL(),
	})
	if err != nil {
		logger.Error("failed to configure tokens", "error", err)
		os.Exit(1)
	}

	recorder := metrics.NewPrometheus()

	scorer := scoring.NewService(scoring.DirLoader(cfg.ArtifactPath), recorder, logger.With("component", "scoring"))
	if _, err := scorer.Reload(ctx); err != nil {
		if !errors.Is(err, ml.ErrArtifactMissing) {
			logger.Error("failed to load model artifact", "path", cfg.ArtifactPath, "error", err)
			os.Exit(1)
		}
		logger.Warn("no model artifact; scoring unavailable until the trainer runs and the model is reloaded",
			"path", cfg.ArtifactPath,
		)
	}

	users := service.NewUserService(repo, tokens, cacheClient, recorder, logger.With("component", "users"))
	predictions := service.NewPredictionService(scorer, repo, recorder)

	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSAllowedOrigins

	router := server.Routes(server.Deps{
		Logger:      logger,
		Version:     version,
		Users:       users,
		Predictions: predictions,
		Scoring:     scorer,
		DB:          repo,
		Cache:       cacheClient,
		Metrics:     recorder.Handler(),
		RateLimit: middleware.RateLimitConfig{
			Logger:        logger,
			Limiter:       cacheClient,
			Metrics:       recorder,
			Enabled:       cfg.RateLimitEnabled,
			UserPerMinute: cfg.RateLimitScoringPerMinute,
			UserBurst:     cfg.RateLimitScoringBurst,
			IPPerSecond:   cfg.RateLimitLoginRPS,
			IPBurst:       cfg.RateLimitLoginBurst,
		},
		CORS:        cors,
		MaxBodySize: cfg.MaxRequestBodySize,
		Development: cfg.IsDevelopment(),

		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	srv := server.New(
		router,
		cfg.AppPort,
		cfg.ReadTimeout,
		cfg.WriteTimeout,
		cfg.ShutdownTimeout,
		logger,
	)
	srv.OnReload("model", func(ctx context.Context) error {
		_, err := scorer.Reload(ctx)
		return err
	})

	logger.Info("starting server",
		"port", cfg.AppPort,
		"env", cfg.AppEnv,
		"version", version,
		"artifact_path", cfg.ArtifactPath,
	)

	if err := srv.Run(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

// initLogger initializes the slog logger based on configuration.
func initLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.LogLevel)}

	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

// parseLogLevel converts string log level to slog.Level.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

var passwordPattern = regexp.MustCompile(`(?i)password=[^\s]+`)

// redactURL drops the password from a connection URL.
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "[redacted]"
	}

	if parsed.User != nil {
		username := parsed.User.Username()
		if username == "" {
			parsed.User = url.User("redacted")
		} else {
			parsed.User = url.User(username)
		}
	}

	return parsed.String()
}

// sanitizeError replaces connection strings in an error message with their
// redacted form.
func sanitizeError(err error, secrets ...string) string {
	if err == nil {
		return ""
	}

	msg := err.Error()
	for _, secret := range secrets {
		if secret == "" {
			continue
		}
		redacted := redactURL(secret)
		if redacted == "" {
			redacted = "[redacted]"
		}
		msg = strings.ReplaceAll(msg, secret, redacted)
	}

	return passwordPattern.ReplaceAllString(msg, "password=redacted")
}
