package dto

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/model"
)

// Number is a JSON number that also accepts numeric strings. A value that
// is neither decodes to NaN so validation can name the field.
type Number struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value = decodeNumber(data, nil)
	return nil
}

// Tenure is employment length given either in years or as free text such
// as "10+ years". Text without a number is treated as absent.
type Tenure struct {
	Value *float64
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tenure) UnmarshalJSON(data []byte) error {
	t.Value = decodeNumber(data, features.ParseEmploymentLength)
	return nil
}

func decodeNumber(data []byte, parseText func(string) (float64, bool)) *float64 {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		return &f
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		nan := math.NaN()
		return &nan
	}
	if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return &v
	}
	if parseText != nil {
		if v, ok := parseText(s); ok {
			return &v
		}
		return nil
	}
	nan := math.NaN()
	return &nan
}

// CreatePredictionRequest represents the body of POST /api/v1/predictions.
type CreatePredictionRequest struct {
	LoanAmount        Number `json:"loan_amount"`
	AnnualIncome      Number `json:"annual_income"`
	CreditScore       Number `json:"credit_score"`
	EmploymentLength  Tenure `json:"employment_length"`
	DebtToIncomeRatio Number `json:"debt_to_income_ratio"`
	HomeOwnership     string `json:"home_ownership"`
	Purpose           string `json:"purpose"`
	InterestRate      Number `json:"interest_rate"`
	Term              string `json:"term"`
}

// ToInput converts the request to scoring input.
func (r *CreatePredictionRequest) ToInput() features.Input {
	return features.Input{
		LoanAmount:        r.LoanAmount.Value,
		AnnualIncome:      r.AnnualIncome.Value,
		CreditScore:       r.CreditScore.Value,
		EmploymentLength:  r.EmploymentLength.Value,
		DebtToIncomeRatio: r.DebtToIncomeRatio.Value,
		HomeOwnership:     r.HomeOwnership,
		Purpose:           r.Purpose,
		InterestRate:      r.InterestRate.Value,
		Term:              r.Term,
	}
}

// PredictionResponse represents a scored prediction in API responses.
type PredictionResponse struct {
	ID                 string    `json:"id"`
	LoanAmount         float64   `json:"loan_amount"`
	AnnualIncome       float64   `json:"annual_income"`
	CreditScore        int       `json:"credit_score"`
	EmploymentLength   float64   `json:"employment_length"`
	DebtToIncomeRatio  float64   `json:"debt_to_income_ratio"`
	HomeOwnership      string    `json:"home_ownership"`
	Purpose            string    `json:"purpose"`
	InterestRate       float64   `json:"interest_rate"`
	Term               string    `json:"term"`
	DefaultProbability float64   `json:"default_probability"`
	RiskClassification string    `json:"risk_classification"`
	ModelVersion       string    `json:"model_version"`
	UserID             string    `json:"user_id"`
	CreatedAt          time.Time `json:"created_at"`
}

// PredictionListResponse represents a page of the caller's history.
type PredictionListResponse struct {
	Data       []PredictionResponse `json:"data"`
	Pagination *Pagination          `json:"pagination"`
}

// ToPredictionResponse converts a Prediction model to its DTO.
func ToPredictionResponse(p *model.Prediction) PredictionResponse {
	return PredictionResponse{
		ID:                 p.ID,
		LoanAmount:         p.LoanAmount,
		AnnualIncome:       p.AnnualIncome,
		CreditScore:        p.CreditScore,
		EmploymentLength:   p.EmploymentLength,
		DebtToIncomeRatio:  p.DebtToIncomeRatio,
		HomeOwnership:      p.HomeOwnership,
		Purpose:            p.Purpose,
		InterestRate:       p.InterestRate,
		Term:               p.Term,
		DefaultProbability: p.DefaultProbability,
		RiskClassification: string(p.RiskClassification),
		ModelVersion:       p.ModelVersion,
		UserID:             p.UserID,
		CreatedAt:          p.CreatedAt,
	}
}

// ToPredictionListResponse converts a page of predictions to its DTO.
func ToPredictionListResponse(items []*model.Prediction, nextCursor string, hasMore bool) *PredictionListResponse {
	data := make([]PredictionResponse, len(items))
	for i, p := range items {
		data[i] = ToPredictionResponse(p)
	}
	return &PredictionListResponse{
		Data: data,
		Pagination: &Pagination{
			NextCursor: nextCursor,
			HasMore:    hasMore,
		},
	}
}
