//go:build integration

package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loanwise/loanwise/internal/testutil"
)

func TestIntegrationMigration_Schema(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)
	pool := repo.Pool()

	schema := map[string][]string{
		"users": {
			"id", "email", "hashed_password", "full_name",
			"is_active", "is_superuser", "created_at", "updated_at",
		},
		"predictions": {
			"id", "user_id", "loan_amount", "annual_income", "credit_score",
			"employment_length", "debt_to_income_ratio", "home_ownership",
			"purpose", "interest_rate", "term", "default_probability",
			"risk_classification", "model_version", "created_at",
		},
	}

	for table, columns := range schema {
		exists, err := tableExists(ctx, pool, table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if !exists {
			t.Errorf("Table %q should exist after migrations", table)
			continue
		}
		for _, col := range columns {
			exists, err := columnExists(ctx, pool, table, col)
			if err != nil {
				t.Fatalf("columnExists failed: %v", err)
			}
			if !exists {
				t.Errorf("Column %q should exist in %s table", col, table)
			}
		}
	}
}

func TestIntegrationMigration_PredictionConstraints(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)
	user := createTestUser(t, ctx, repo)

	tests := []struct {
		name   string
		mutate func(p map[string]any)
	}{
		{"credit score above range", func(p map[string]any) { p["credit_score"] = 900 }},
		{"probability above one", func(p map[string]any) { p["default_probability"] = 1.5 }},
		{"unknown tier", func(p map[string]any) { p["risk_classification"] = "Extreme" }},
		{"unknown owner", func(p map[string]any) { p["user_id"] = "01HZZZZZZZZZZZZZZZZZZZZZZZ" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pred := testutil.NewTestPrediction(t, user.ID)
			row := map[string]any{
				"credit_score":        pred.CreditScore,
				"default_probability": pred.DefaultProbability,
				"risk_classification": string(pred.RiskClassification),
				"user_id":             user.ID,
			}
			tt.mutate(row)

			_, err := repo.Pool().Exec(ctx, `
				INSERT INTO predictions (id, user_id, loan_amount, annual_income, credit_score,
					employment_length, debt_to_income_ratio, home_ownership, purpose,
					interest_rate, term, default_probability, risk_classification, model_version)
				VALUES ($1, $2, 1000, 1000, $3, 1, 1, 'RENT', 'car', 10, '36 months', $4, $5, $6)`,
				pred.ID, row["user_id"], row["credit_score"], row["default_probability"],
				row["risk_classification"], pred.ModelVersion,
			)
			if err == nil {
				t.Error("expected constraint violation, got nil")
			}
		})
	}
}

func TestIntegrationMigration_RollbackAndReapply(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)
	dbURL := testutil.RequireEnv(t, "DATABASE_URL")

	if err := MigrateDown(dbURL); err != nil {
		t.Fatalf("migrate down: %v", err)
	}
	for _, table := range []string{"users", "predictions"} {
		exists, err := tableExists(ctx, repo.Pool(), table)
		if err != nil {
			t.Fatalf("tableExists failed: %v", err)
		}
		if exists {
			t.Errorf("%s table should not exist after rollback", table)
		}
	}

	if err := Migrate(dbURL); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if err := Migrate(dbURL); err != nil {
		t.Errorf("repeat migrate should be a no-op: %v", err)
	}
}

func tableExists(ctx context.Context, pool *pgxpool.Pool, tableName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public'
			AND table_name = $1
		)
	`, tableName).Scan(&exists)
	return exists, err
}

func columnExists(ctx context.Context, pool *pgxpool.Pool, tableName, columnName string) (bool, error) {
	var exists bool
	err := pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.columns
			WHERE table_schema = 'public'
			AND table_name = $1
			AND column_name = $2
		)
	`, tableName, columnName).Scan(&exists)
	return exists, err
}
