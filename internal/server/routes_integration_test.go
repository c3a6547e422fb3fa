//go:build integration

package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/loanwise/loanwise/internal/cache"
	"github.com/loanwise/loanwise/internal/handler/dto"
	"github.com/loanwise/loanwise/internal/metrics"
	"github.com/loanwise/loanwise/internal/middleware"
	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/repository"
	"github.com/loanwise/loanwise/internal/scoring"
	"github.com/loanwise/loanwise/internal/service"
	"github.com/loanwise/loanwise/internal/testutil"
)

// newIntegrationEnv wires the router to real Postgres and Redis. The
// scoring limit allows a burst of two predictions per user.
func newIntegrationEnv(t *testing.T) (*testEnv, *metrics.InMemoryRecorder) {
	t.Helper()

	ctx := context.Background()
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")
	redisURL := testutil.RequireEnv(t, "REDIS_URL")

	if err := repository.Migrate(dbURL); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(repo.Close)

	c, err := cache.New(ctx, redisURL)
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	if err := testutil.FlushRedis(ctx, c.Client()); err != nil {
		t.Fatalf("flush redis: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := metrics.NewInMemory()
	art := testutil.NewTestArtifact(t)
	scorer := scoring.NewService(func(context.Context) (*ml.Artifact, error) { return art, nil }, rec, logger)
	if _, err := scorer.Reload(ctx); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	users := service.NewUserService(repo, testutil.NewTestTokenService(t), c, rec, logger)
	router := Routes(Deps{
		Logger:      logger,
		Version:     "integration",
		Users:       users,
		Predictions: service.NewPredictionService(scorer, repo, rec),
		Scoring:     scorer,
		DB:          repo,
		Cache:       c,
		RateLimit: middleware.RateLimitConfig{
			Limiter:       c,
			Metrics:       rec,
			Enabled:       true,
			UserPerMinute: 1,
			UserBurst:     2,
			IPPerSecond:   100,
			IPBurst:       100,
		},
		CORS:        middleware.DefaultCORSConfig(),
		Development: true,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, users: users, scorer: scorer}, rec
}

func TestIntegrationRoutes_ScoreAndHistory(t *testing.T) {
	env, rec := newIntegrationEnv(t)

	email := testutil.UniqueEmail("history")
	body := `{"email":"` + email + `","password":"password123","full_name":"History"}`
	if resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", "application/json", body); resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}
	if resp := env.do(t, http.MethodPost, "/api/v1/auth/register", "", "application/json", body); resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate register status = %d, want 409", resp.StatusCode)
	}

	form := url.Values{"username": {email}, "password": {"password123"}}.Encode()
	resp := env.do(t, http.MethodPost, "/api/v1/auth/token", "", "application/x-www-form-urlencoded", form)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("token status = %d", resp.StatusCode)
	}
	var tok dto.TokenResponse
	decode(t, resp, &tok)

	var created []dto.PredictionResponse
	for i := 0; i < 2; i++ {
		resp := env.do(t, http.MethodPost, "/api/v1/predictions", tok.AccessToken, "application/json", predictionBody)
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("create %d status = %d", i, resp.StatusCode)
		}
		var p dto.PredictionResponse
		decode(t, resp, &p)
		created = append(created, p)
	}

	resp = env.do(t, http.MethodPost, "/api/v1/predictions", tok.AccessToken, "application/json", predictionBody)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("third create status = %d, want 429", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	resp = env.do(t, http.MethodGet, "/api/v1/predictions", tok.AccessToken, "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	var page dto.PredictionListResponse
	decode(t, resp, &page)
	if len(page.Data) != len(created) {
		t.Fatalf("history has %d items, want %d", len(page.Data), len(created))
	}
	for i := range created {
		if page.Data[i].ID != created[i].ID {
			t.Errorf("history[%d] = %s, want %s", i, page.Data[i].ID, created[i].ID)
		}
	}

	snap := rec.Snapshot()
	if snap.IdentityCacheHits == 0 {
		t.Error("repeated requests with one token should hit the identity cache")
	}
	if snap.RateLimited["user"] != 1 {
		t.Errorf("rate limited = %d, want 1", snap.RateLimited["user"])
	}
}

func TestIntegrationRoutes_Ready(t *testing.T) {
	env, _ := newIntegrationEnv(t)

	resp := env.do(t, http.MethodGet, "/readyz", "", "", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", resp.StatusCode)
	}
}
