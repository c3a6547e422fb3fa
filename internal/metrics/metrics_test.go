package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestInMemoryRecorder_Snapshot(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncPredictionScored("Low")
	m.IncPredictionScored("Low")
	m.IncPredictionScored("High")
	m.ObserveScoringDuration(2 * time.Millisecond)
	m.IncModelReload("success")
	m.IncAuthFailure("invalid_token")
	m.IncIdentityCacheHit()
	m.IncIdentityCacheMiss()
	m.IncRateLimited("scoring")

	s := m.Snapshot()
	if s.PredictionsByTier["Low"] != 2 || s.PredictionsByTier["High"] != 1 {
		t.Errorf("unexpected tier counts: %v", s.PredictionsByTier)
	}
	if s.ScoringDurationCount != 1 || s.ScoringDurationTotalNs != int64(2*time.Millisecond) {
		t.Errorf("unexpected duration: count=%d total=%d", s.ScoringDurationCount, s.ScoringDurationTotalNs)
	}
	if s.ModelReloads["success"] != 1 {
		t.Errorf("expected 1 successful reload, got %d", s.ModelReloads["success"])
	}
	if s.AuthFailures["invalid_token"] != 1 {
		t.Errorf("expected 1 auth failure, got %d", s.AuthFailures["invalid_token"])
	}
	if s.IdentityCacheHits != 1 || s.IdentityCacheMisses != 1 {
		t.Errorf("unexpected cache counts: %d/%d", s.IdentityCacheHits, s.IdentityCacheMisses)
	}
	if s.RateLimited["scoring"] != 1 {
		t.Errorf("expected 1 rate limited, got %d", s.RateLimited["scoring"])
	}

	// snapshot maps are copies
	s.PredictionsByTier["Low"] = 100
	if m.Snapshot().PredictionsByTier["Low"] != 2 {
		t.Error("snapshot should not alias recorder state")
	}
}

func TestPrometheusRecorder_Handler(t *testing.T) {
	t.Parallel()

	p := NewPrometheus()
	p.IncPredictionScored("Medium")
	p.ObserveScoringDuration(time.Millisecond)
	p.IncModelReload("failure")
	p.IncPredictionPersistFailed()
	p.IncAuthFailure("bad_credentials")
	p.IncIdentityCacheHit()
	p.IncIdentityCacheMiss()
	p.IncRateLimited("ip")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	for _, want := range []string{
		`loanwise_predictions_scored_total{tier="Medium"} 1`,
		`loanwise_model_reloads_total{status="failure"} 1`,
		"loanwise_scoring_duration_seconds_count 1",
		"loanwise_prediction_persist_failures_total 1",
		`loanwise_auth_failures_total{reason="bad_credentials"} 1`,
		`loanwise_identity_cache_requests_total{result="hit"} 1`,
		`loanwise_identity_cache_requests_total{result="miss"} 1`,
		`loanwise_rate_limited_total{scope="ip"} 1`,
		"go_goroutines",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
