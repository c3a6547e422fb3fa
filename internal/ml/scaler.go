package ml

import (
	"errors"

	"gonum.org/v1/gonum/stat"

	"github.com/loanwise/loanwise/internal/features"
)

// ErrNoSamples is returned when fitting on an empty dataset.
var ErrNoSamples = errors.New("no samples")

// StandardScaler centers each feature on its training mean and divides by
// its population standard deviation.
type StandardScaler struct {
	Mean  [features.NumFeatures]float64
	Scale [features.NumFeatures]float64
}

// FitScaler learns per-feature mean and scale. Constant columns get a
// scale of 1 so they transform to zero.
func FitScaler(rows []features.Vector) (*StandardScaler, error) {
	if len(rows) == 0 {
		return nil, ErrNoSamples
	}
	s := &StandardScaler{}
	col := make([]float64, len(rows))
	for j := 0; j < features.NumFeatures; j++ {
		for i, r := range rows {
			col[i] = r[j]
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		s.Mean[j] = mean
		s.Scale[j] = std
	}
	return s, nil
}

// Transform returns the standardized copy of v.
func (s *StandardScaler) Transform(v features.Vector) features.Vector {
	for j := range v {
		v[j] = (v[j] - s.Mean[j]) / s.Scale[j]
	}
	return v
}

// TransformAll standardizes rows into a new slice of plain rows.
func (s *StandardScaler) TransformAll(rows []features.Vector) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		out[i] = s.Transform(r).Slice()
	}
	return out
}
