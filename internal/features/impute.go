package features

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// ErrEmptyColumn is returned when a column has no observed values to average.
var ErrEmptyColumn = errors.New("column has no observed values")

// Imputer replaces missing values with per-column means learned from the
// training split.
type Imputer struct {
	Means [NumFeatures]float64
}

// FitImputer computes column means over rows, ignoring NaN.
func FitImputer(rows []Vector) (*Imputer, error) {
	imp := &Imputer{}
	col := make([]float64, 0, len(rows))
	for j := 0; j < NumFeatures; j++ {
		col = col[:0]
		for _, r := range rows {
			if !math.IsNaN(r[j]) {
				col = append(col, r[j])
			}
		}
		if len(col) == 0 {
			return nil, fmt.Errorf("%s: %w", Names[j], ErrEmptyColumn)
		}
		imp.Means[j] = stat.Mean(col, nil)
	}
	return imp, nil
}

// Transform returns v with NaN entries replaced by the fitted means.
func (imp *Imputer) Transform(v Vector) Vector {
	for j, x := range v {
		if math.IsNaN(x) {
			v[j] = imp.Means[j]
		}
	}
	return v
}

// TransformAll applies Transform to every row in place.
func (imp *Imputer) TransformAll(rows []Vector) {
	for i := range rows {
		rows[i] = imp.Transform(rows[i])
	}
}
