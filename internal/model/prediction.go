// Package model defines domain entities for the application.
package model

import "time"

// RiskTier is the categorical bucket derived from a default probability.
type RiskTier string

const (
	RiskLow    RiskTier = "Low"
	RiskMedium RiskTier = "Medium"
	RiskHigh   RiskTier = "High"
)

// Tier thresholds. A probability equal to a threshold falls in the higher tier.
const (
	MediumRiskThreshold = 0.2
	HighRiskThreshold   = 0.5
)

// ClassifyRisk maps a default probability to its risk tier.
func ClassifyRisk(probability float64) RiskTier {
	switch {
	case probability < MediumRiskThreshold:
		return RiskLow
	case probability < HighRiskThreshold:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// IsValid checks if the tier is one of the known values.
func (t RiskTier) IsValid() bool {
	return t == RiskLow || t == RiskMedium || t == RiskHigh
}

// LoanApplication is the validated applicant data submitted for scoring.
type LoanApplication struct {
	LoanAmount        float64 `json:"loan_amount"`
	AnnualIncome      float64 `json:"annual_income"`
	CreditScore       int     `json:"credit_score"`
	EmploymentLength  float64 `json:"employment_length"`
	DebtToIncomeRatio float64 `json:"debt_to_income_ratio"`
	HomeOwnership     string  `json:"home_ownership"`
	Purpose           string  `json:"purpose"`
	InterestRate      float64 `json:"interest_rate"`
	Term              string  `json:"term"`
}

// Prediction is a scored loan application owned by a user.
// It is immutable once persisted.
type Prediction struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`
	LoanApplication
	DefaultProbability float64   `json:"default_probability"`
	RiskClassification RiskTier  `json:"risk_classification"`
	ModelVersion       string    `json:"model_version"`
	CreatedAt          time.Time `json:"created_at"`
}
