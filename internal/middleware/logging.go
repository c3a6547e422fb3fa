package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/loanwise/loanwise/internal/auth"
)

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if rw.wroteHeader {
		return
	}
	rw.status = code
	rw.wroteHeader = true
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

// userSlot lets Auth, which runs deeper in the chain, report the caller
// back to the access log.
type userSlot struct{ userID string }

const userSlotKey contextKey = "log_user"

// Logger logs one structured line per request. 5xx log at error level
// and 4xx at warn.
func Logger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			slot := &userSlot{}

			next.ServeHTTP(rec, r.WithContext(withUserSlot(r.Context(), slot)))

			attrs := []slog.Attr{
				slog.String("request_id", GetRequestID(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status_code", rec.status),
				slog.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000),
				slog.String("user_agent", r.UserAgent()),
			}
			if slot.userID != "" {
				attrs = append(attrs, slog.String("user_id", slot.userID))
			}

			level := slog.LevelInfo
			switch {
			case rec.status >= 500:
				level = slog.LevelError
			case rec.status >= 400:
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request", attrs...)
		})
	}
}

func withUserSlot(ctx context.Context, slot *userSlot) context.Context {
	return context.WithValue(ctx, userSlotKey, slot)
}

// recordUser stores the authenticated user in the access log slot, if any.
func recordUser(r *http.Request) {
	slot, _ := r.Context().Value(userSlotKey).(*userSlot)
	if slot != nil {
		slot.userID = auth.UserIDFromContext(r.Context())
	}
}
