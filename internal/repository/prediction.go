package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/loanwise/loanwise/internal/model"
)

const predictionColumns = `id, user_id, loan_amount, annual_income, credit_score, employment_length,
	debt_to_income_ratio, home_ownership, purpose, interest_rate, term,
	default_probability, risk_classification, model_version, created_at`

// CreatePrediction inserts a scored prediction. Rows are never updated.
func (r *Repository) CreatePrediction(ctx context.Context, p *model.Prediction) error {
	query := `
		INSERT INTO predictions (` + predictionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.pool.Exec(ctx, query,
		p.ID,
		p.UserID,
		p.LoanAmount,
		p.AnnualIncome,
		p.CreditScore,
		p.EmploymentLength,
		p.DebtToIncomeRatio,
		p.HomeOwnership,
		p.Purpose,
		p.InterestRate,
		p.Term,
		p.DefaultProbability,
		p.RiskClassification,
		p.ModelVersion,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prediction: %w", err)
	}
	return nil
}

// ListPredictionsByUser returns a user's predictions ordered by
// (created_at, id) ascending, starting after cursor. The returned cursor is
// empty when there are no more rows.
func (r *Repository) ListPredictionsByUser(ctx context.Context, userID, cursor string, limit int) ([]*model.Prediction, string, error) {
	args := []any{userID}
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE user_id = $1`

	if cursor != "" {
		c, err := decodeCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query += ` AND (created_at, id) > ($2, $3)`
		args = append(args, c.CreatedAt, c.ID)
	}

	query += fmt.Sprintf(" ORDER BY created_at ASC, id ASC LIMIT $%d", len(args)+1)
	args = append(args, limit+1) // one extra row tells us whether more exist

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", fmt.Errorf("failed to list predictions: %w", err)
	}
	defer rows.Close()

	var predictions []*model.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, "", fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("error iterating predictions: %w", err)
	}

	var next string
	if len(predictions) > limit {
		predictions = predictions[:limit]
		last := predictions[len(predictions)-1]
		next = encodeCursor(&PaginationCursor{ID: last.ID, CreatedAt: last.CreatedAt})
	}

	return predictions, next, nil
}

func scanPrediction(row pgx.Row) (*model.Prediction, error) {
	var p model.Prediction
	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.LoanAmount,
		&p.AnnualIncome,
		&p.CreditScore,
		&p.EmploymentLength,
		&p.DebtToIncomeRatio,
		&p.HomeOwnership,
		&p.Purpose,
		&p.InterestRate,
		&p.Term,
		&p.DefaultProbability,
		&p.RiskClassification,
		&p.ModelVersion,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	// pgx returns timestamptz in the local zone.
	p.CreatedAt = p.CreatedAt.UTC()
	return &p, nil
}
