package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_ComputesRatio(t *testing.T) {
	t.Parallel()

	v := Derive(10000, 50000, 720, 5)

	assert.Equal(t, 10000.0, v[IdxLoanAmount])
	assert.Equal(t, 50000.0, v[IdxAnnualIncome])
	assert.Equal(t, 720.0, v[IdxCreditScore])
	assert.Equal(t, 5.0, v[IdxEmploymentLength])
	assert.Equal(t, 5.0, v[IdxDebtToIncomeRatio])
	assert.False(t, v.HasMissing())
}

func TestDebtToIncome_Undefined(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		income float64
		loan   float64
	}{
		{"zero loan", 50000, 0},
		{"missing income", math.NaN(), 1000},
		{"missing loan", 50000, math.NaN()},
		{"infinite ratio", math.MaxFloat64, 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.True(t, math.IsNaN(DebtToIncome(tt.income, tt.loan)))
		})
	}
}

func TestParseEmploymentLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   float64
		wantOK bool
	}{
		{"10+ years", 10, true},
		{"< 1 year", 1, true},
		{"3 years", 3, true},
		{"n/a", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, ok := ParseEmploymentLength(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			} else {
				assert.True(t, math.IsNaN(got))
			}
		})
	}
}

func TestMatchesOrder(t *testing.T) {
	t.Parallel()

	assert.True(t, MatchesOrder(NameList()))

	swapped := NameList()
	swapped[0], swapped[1] = swapped[1], swapped[0]
	assert.False(t, MatchesOrder(swapped))
	assert.False(t, MatchesOrder(NameList()[:4]))
}

func TestImputer_FillsMeans(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	rows := []Vector{
		{1000, 40000, 700, 2, 40},
		{3000, nan, 680, nan, nan},
		{2000, 60000, 720, 4, 30},
	}

	imp, err := FitImputer(rows)
	require.NoError(t, err)
	assert.Equal(t, 2000.0, imp.Means[IdxLoanAmount])
	assert.Equal(t, 50000.0, imp.Means[IdxAnnualIncome])
	assert.Equal(t, 3.0, imp.Means[IdxEmploymentLength])

	imp.TransformAll(rows)
	assert.False(t, rows[1].HasMissing())
	assert.Equal(t, 50000.0, rows[1][IdxAnnualIncome])
	assert.Equal(t, 35.0, rows[1][IdxDebtToIncomeRatio])
}

func TestFitImputer_EmptyColumn(t *testing.T) {
	t.Parallel()

	nan := math.NaN()
	_, err := FitImputer([]Vector{{1, 2, 3, nan, 5}})
	require.ErrorIs(t, err, ErrEmptyColumn)
	assert.Contains(t, err.Error(), "employment_length")
}
