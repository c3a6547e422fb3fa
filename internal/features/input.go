package features

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/loanwise/loanwise/internal/model"
)

// Validation limits for inference input.
const (
	MinCreditScore     = 300
	MaxCreditScore     = 850
	MaxInterestRate    = 100
	MaxTextFieldLength = 64
)

// ErrValidation matches every *ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// FieldError describes one invalid input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field in a request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) true.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Input is an application as received from a client. Nil means the field
// was absent.
type Input struct {
	LoanAmount        *float64
	AnnualIncome      *float64
	CreditScore       *float64
	EmploymentLength  *float64
	DebtToIncomeRatio *float64
	HomeOwnership     string
	Purpose           string
	InterestRate      *float64
	Term              string
}

// Build validates in and returns the application record together with its
// feature vector. The debt-to-income ratio is always recomputed from loan
// amount and annual income; a client-supplied value is not used.
func Build(in Input) (model.LoanApplication, Vector, error) {
	verr := &ValidationError{}

	loan := requireNumber(verr, "loan_amount", in.LoanAmount)
	if !math.IsNaN(loan) && loan <= 0 {
		verr.add("loan_amount", "must be greater than 0")
	}

	income := requireNumber(verr, "annual_income", in.AnnualIncome)
	if !math.IsNaN(income) && income < 0 {
		verr.add("annual_income", "must not be negative")
	}

	score := requireNumber(verr, "credit_score", in.CreditScore)
	if !math.IsNaN(score) {
		if score != math.Trunc(score) {
			verr.add("credit_score", "must be a whole number")
		} else if score < MinCreditScore || score > MaxCreditScore {
			verr.add("credit_score", "must be between %d and %d", MinCreditScore, MaxCreditScore)
		}
	}

	tenure := requireNumber(verr, "employment_length", in.EmploymentLength)
	if !math.IsNaN(tenure) && tenure < 0 {
		verr.add("employment_length", "must not be negative")
	}

	if in.DebtToIncomeRatio != nil && !isFinite(*in.DebtToIncomeRatio) {
		verr.add("debt_to_income_ratio", "must be a finite number")
	}

	rate := requireNumber(verr, "interest_rate", in.InterestRate)
	if !math.IsNaN(rate) && (rate < 0 || rate > MaxInterestRate) {
		verr.add("interest_rate", "must be between 0 and %d", MaxInterestRate)
	}

	requireText(verr, "home_ownership", in.HomeOwnership)
	requireText(verr, "purpose", in.Purpose)
	requireText(verr, "term", in.Term)

	if len(verr.Fields) > 0 {
		return model.LoanApplication{}, Vector{}, verr
	}

	vec := Derive(loan, income, score, tenure)
	if vec.HasMissing() {
		verr.add("debt_to_income_ratio", "cannot be derived from loan_amount and annual_income")
		return model.LoanApplication{}, Vector{}, verr
	}

	app := model.LoanApplication{
		LoanAmount:        loan,
		AnnualIncome:      income,
		CreditScore:       int(score),
		EmploymentLength:  tenure,
		DebtToIncomeRatio: vec[IdxDebtToIncomeRatio],
		HomeOwnership:     strings.TrimSpace(in.HomeOwnership),
		Purpose:           strings.TrimSpace(in.Purpose),
		InterestRate:      rate,
		Term:              strings.TrimSpace(in.Term),
	}
	return app, vec, nil
}

// FromApplication recomputes the vector of an already validated application.
func FromApplication(app model.LoanApplication) Vector {
	return Derive(app.LoanAmount, app.AnnualIncome, float64(app.CreditScore), app.EmploymentLength)
}

func requireNumber(verr *ValidationError, field string, v *float64) float64 {
	if v == nil {
		verr.add(field, "is required")
		return math.NaN()
	}
	if !isFinite(*v) {
		verr.add(field, "must be a finite number")
		return math.NaN()
	}
	return *v
}

func requireText(verr *ValidationError, field, v string) {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		verr.add(field, "is required")
		return
	}
	if len(trimmed) > MaxTextFieldLength {
		verr.add(field, "must be at most %d characters", MaxTextFieldLength)
	}
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
