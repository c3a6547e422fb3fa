package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/loanwise/loanwise/internal/handler"
	"github.com/loanwise/loanwise/internal/middleware"
	"github.com/loanwise/loanwise/internal/scoring"
	"github.com/loanwise/loanwise/internal/service"
)

// Deps are the components the router serves.
type Deps struct {
	Logger      *slog.Logger
	Version     string
	Users       *service.UserService
	Predictions *service.PredictionService
	Scoring     *scoring.Service

	// Health checks; nil entries report "not configured".
	DB    handler.HealthChecker
	Cache handler.HealthChecker

	// Metrics serves /metrics when set.
	Metrics http.Handler

	RateLimit   middleware.RateLimitConfig
	CORS        middleware.CORSConfig
	MaxBodySize int64
	Development bool

	// TrustProxyHeaders rewrites RemoteAddr from X-Forwarded-For/X-Real-IP.
	TrustProxyHeaders bool
}

// Routes builds the HTTP router.
func Routes(d Deps) http.Handler {
	h := handler.New(d.Version)
	health := handler.NewHealthHandler(d.DB, d.Cache, handler.HealthCheckFunc(d.Scoring.Check))
	authH := handler.NewAuthHandler(d.Users, d.Logger)
	userH := handler.NewUserHandler(d.Users, d.Logger)
	predH := handler.NewPredictionHandler(d.Predictions, d.Logger)
	modelH := handler.NewModelHandler(d.Scoring, d.Logger)

	maxBody := d.MaxBodySize
	if maxBody <= 0 {
		maxBody = middleware.DefaultMaxBodySize
	}
	if d.RateLimit.Logger == nil {
		d.RateLimit.Logger = d.Logger
	}

	r := chi.NewRouter()

	if d.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Recoverer(d.Logger))
	r.Use(middleware.Security(d.Development))
	r.Use(middleware.CORS(d.CORS))
	r.Use(middleware.MaxBodySize(maxBody))

	r.Get("/", h.Root)
	r.Get("/healthz", health.Healthz)
	r.Get("/readyz", health.Readyz)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	authn := middleware.Auth(middleware.AuthConfig{Logger: d.Logger, Authenticator: d.Users})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Use(middleware.RateLimitIP(d.RateLimit))
			r.Post("/register", authH.Register)
			r.Post("/token", authH.Token)
		})

		r.Group(func(r chi.Router) {
			r.Use(authn)

			r.Get("/users/me", userH.Me)
			r.Put("/users/me", userH.UpdateMe)

			r.With(middleware.RateLimitUser(d.RateLimit)).Post("/predictions", predH.Create)
			r.Get("/predictions", predH.List)

			r.Get("/model", modelH.Get)
			r.With(middleware.RequireSuperuser).Post("/admin/model/reload", modelH.Reload)
		})
	})

	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)

	return r
}
