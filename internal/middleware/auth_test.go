package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/model"
)

type stubAuthenticator struct {
	tokens map[string]*model.Identity
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*model.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if id, ok := s.tokens[token]; ok {
		return id, nil
	}
	return nil, auth.ErrUnauthorized
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func echoUserHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, auth.UserIDFromContext(r.Context()))
	})
}

func TestAuth(t *testing.T) {
	t.Parallel()

	authn := stubAuthenticator{tokens: map[string]*model.Identity{
		"good": {UserID: "user-1", Email: "u@example.com"},
	}}
	handler := Auth(AuthConfig{Logger: discardLogger(), Authenticator: authn})(echoUserHandler())

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid bearer", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "bearer good", http.StatusOK, "user-1"},
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic good", http.StatusUnauthorized, ""},
		{"unknown token", "Bearer bad", http.StatusUnauthorized, ""},
		{"empty token", "Bearer ", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/users/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if rec.Body.String() != tt.wantBody {
					t.Errorf("body = %q, want %q", rec.Body.String(), tt.wantBody)
				}
				return
			}

			var body errorBody
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode error body: %v", err)
			}
			if body.Code != "UNAUTHORIZED" {
				t.Errorf("code = %q, want UNAUTHORIZED", body.Code)
			}
			if rec.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("missing WWW-Authenticate header")
			}
		})
	}
}

func TestAuth_BackendError(t *testing.T) {
	t.Parallel()

	authn := stubAuthenticator{err: errors.New("database down")}
	handler := Auth(AuthConfig{Logger: discardLogger(), Authenticator: authn})(echoUserHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer anything")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestRequireSuperuser(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		identity   *model.Identity
		wantStatus int
	}{
		{"superuser", &model.Identity{UserID: "a", IsSuperuser: true}, http.StatusOK},
		{"regular user", &model.Identity{UserID: "b"}, http.StatusForbidden},
		{"anonymous", nil, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/model/reload", nil)
			if tt.identity != nil {
				req = req.WithContext(auth.ContextWithIdentity(req.Context(), tt.identity))
			}
			rec := httptest.NewRecorder()
			RequireSuperuser(echoUserHandler()).ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}
