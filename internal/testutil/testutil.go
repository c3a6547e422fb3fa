// Package testutil holds helpers shared by tests across packages.
package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"

	"github.com/loanwise/loanwise/internal/auth"
	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/model"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420420

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// TestPassword is the plaintext password of users built by NewTestUser.
const TestPassword = "correct horse battery staple"

// NewTestUser creates an active user with TestPassword.
func NewTestUser(t testing.TB, email string) *model.User {
	t.Helper()
	hash, err := auth.HashPassword(TestPassword)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return &model.User{
		ID:             ulid.Make().String(),
		Email:          email,
		HashedPassword: hash,
		FullName:       "Test User",
		IsActive:       true,
		CreatedAt:      time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestApplication returns a valid application at the median of the
// training distribution.
func NewTestApplication() model.LoanApplication {
	return model.LoanApplication{
		LoanAmount:        15000,
		AnnualIncome:      65000,
		CreditScore:       710,
		EmploymentLength:  4,
		DebtToIncomeRatio: 65000.0 / 15000.0,
		HomeOwnership:     "RENT",
		Purpose:           "debt_consolidation",
		InterestRate:      11.5,
		Term:              "36 months",
	}
}

// NewTestInput returns the raw form of NewTestApplication.
func NewTestInput() features.Input {
	app := NewTestApplication()
	return features.Input{
		LoanAmount:       &app.LoanAmount,
		AnnualIncome:     &app.AnnualIncome,
		CreditScore:      ptr(float64(app.CreditScore)),
		EmploymentLength: &app.EmploymentLength,
		HomeOwnership:    app.HomeOwnership,
		Purpose:          app.Purpose,
		InterestRate:     &app.InterestRate,
		Term:             app.Term,
	}
}

// NewReferenceInput returns the reference application: 10000 borrowed on
// 50000 income, credit score 700, five years employed, with a
// client-supplied debt-to-income ratio of 0.2 that scoring must ignore.
func NewReferenceInput() features.Input {
	in := NewTestInput()
	in.LoanAmount = ptr(10000.0)
	in.AnnualIncome = ptr(50000.0)
	in.CreditScore = ptr(700.0)
	in.EmploymentLength = ptr(5.0)
	in.DebtToIncomeRatio = ptr(0.2)
	return in
}

// NewTestPrediction creates a scored prediction owned by userID.
func NewTestPrediction(t testing.TB, userID string) *model.Prediction {
	t.Helper()
	return &model.Prediction{
		ID:                 ulid.Make().String(),
		UserID:             userID,
		LoanApplication:    NewTestApplication(),
		DefaultProbability: 0.31,
		RiskClassification: model.RiskMedium,
		ModelVersion:       ulid.Make().String(),
		CreatedAt:          time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestArtifact fits a small artifact on synthetic data in which default
// follows a low income-to-loan ratio.
func NewTestArtifact(t testing.TB) *ml.Artifact {
	t.Helper()

	rng := rand.New(rand.NewSource(5))
	rows := make([]features.Vector, 200)
	labels := make([]int, len(rows))
	for i := range rows {
		loan := 1000 + rng.Float64()*30000
		income := 10000 + rng.Float64()*120000
		rows[i] = features.Derive(loan, income, 600+float64(rng.Intn(250)), float64(rng.Intn(11)))
		if income/loan < 3 {
			labels[i] = 1
		}
	}

	imp, err := features.FitImputer(rows)
	if err != nil {
		t.Fatalf("fit imputer: %v", err)
	}
	scaler, err := ml.FitScaler(rows)
	if err != nil {
		t.Fatalf("fit scaler: %v", err)
	}
	params := ml.DefaultForestParams()
	params.NumTrees = 10
	forest, err := ml.FitForest(context.Background(), scaler.TransformAll(rows), labels, params)
	if err != nil {
		t.Fatalf("fit forest: %v", err)
	}

	return &ml.Artifact{
		Version:    ulid.Make().String(),
		Features:   features.NameList(),
		TrainedAt:  time.Now().UTC(),
		Imputer:    imp,
		Scaler:     scaler,
		Classifier: forest,
		Metrics:    ml.Metrics{ROCAUC: 0.95, TrainRows: 160, TestRows: 40},
	}
}

// NewTestTokenService returns a token service with a fixed test secret.
func NewTestTokenService(t testing.TB) *auth.TokenService {
	t.Helper()
	svc, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    "test-secret-at-least-32-bytes-long!!",
		Algorithm: "HS256",
		Issuer:    "loanwise",
		TTL:       30 * time.Minute,
	})
	if err != nil {
		t.Fatalf("new token service: %v", err)
	}
	return svc
}

// UniqueEmail generates a unique email address for tests.
func UniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d@example.com", prefix, time.Now().UnixNano())
}

func ptr[T any](v T) *T { return &v }
