// Package features turns loan application fields into the fixed-order numeric
// vector consumed by the scaler and classifier. Training and inference both go
// through Derive, so engineered fields are computed the same way in both paths.
package features

import (
	"math"
	"regexp"
	"strconv"
)

// NumFeatures is the length of every feature vector.
const NumFeatures = 5

// Vector positions. Changing the order invalidates every stored artifact.
const (
	IdxLoanAmount = iota
	IdxAnnualIncome
	IdxCreditScore
	IdxEmploymentLength
	IdxDebtToIncomeRatio
)

// Names lists the feature names in vector order.
var Names = [NumFeatures]string{
	IdxLoanAmount:        "loan_amount",
	IdxAnnualIncome:      "annual_income",
	IdxCreditScore:       "credit_score",
	IdxEmploymentLength:  "employment_length",
	IdxDebtToIncomeRatio: "debt_to_income_ratio",
}

// Vector is a model input. NaN marks a missing value before imputation.
type Vector [NumFeatures]float64

// Slice returns a copy of the vector as a slice.
func (v Vector) Slice() []float64 {
	out := make([]float64, NumFeatures)
	copy(out, v[:])
	return out
}

// HasMissing reports whether any element is NaN.
func (v Vector) HasMissing() bool {
	for _, x := range v {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}

// NameList returns the feature names as a slice, for persistence.
func NameList() []string {
	out := make([]string, NumFeatures)
	copy(out, Names[:])
	return out
}

// MatchesOrder reports whether names is exactly the compiled feature order.
func MatchesOrder(names []string) bool {
	if len(names) != NumFeatures {
		return false
	}
	for i, n := range names {
		if n != Names[i] {
			return false
		}
	}
	return true
}

// Derive builds a vector from raw values, computing the engineered
// debt-to-income ratio. Missing inputs are passed as NaN.
func Derive(loanAmount, annualIncome, creditScore, employmentYears float64) Vector {
	return Vector{
		IdxLoanAmount:        loanAmount,
		IdxAnnualIncome:      annualIncome,
		IdxCreditScore:       creditScore,
		IdxEmploymentLength:  employmentYears,
		IdxDebtToIncomeRatio: DebtToIncome(annualIncome, loanAmount),
	}
}

// DebtToIncome returns annual income divided by loan amount.
// The result is NaN when it cannot be computed.
func DebtToIncome(annualIncome, loanAmount float64) float64 {
	if math.IsNaN(annualIncome) || math.IsNaN(loanAmount) || loanAmount == 0 {
		return math.NaN()
	}
	ratio := annualIncome / loanAmount
	if math.IsInf(ratio, 0) {
		return math.NaN()
	}
	return ratio
}

var tenureDigits = regexp.MustCompile(`\d+`)

// ParseEmploymentLength extracts the number of years from a tenure string
// such as "10+ years" or "< 1 year". The second return is false when the
// string carries no number ("n/a", "").
func ParseEmploymentLength(s string) (float64, bool) {
	m := tenureDigits.FindString(s)
	if m == "" {
		return math.NaN(), false
	}
	years, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return math.NaN(), false
	}
	return years, true
}
