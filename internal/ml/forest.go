package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidLabel is returned when a training label is not 0 or 1.
var ErrInvalidLabel = errors.New("label must be 0 or 1")

// ForestParams controls random forest training.
type ForestParams struct {
	NumTrees        int   `json:"num_trees"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams returns the production training configuration.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NumTrees:        100,
		MaxDepth:        10,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Seed:            42,
	}
}

func (p ForestParams) validate() error {
	switch {
	case p.NumTrees < 1:
		return fmt.Errorf("num trees must be positive, got %d", p.NumTrees)
	case p.MaxDepth < 1:
		return fmt.Errorf("max depth must be positive, got %d", p.MaxDepth)
	case p.MinSamplesSplit < 2:
		return fmt.Errorf("min samples split must be at least 2, got %d", p.MinSamplesSplit)
	case p.MinSamplesLeaf < 1:
		return fmt.Errorf("min samples leaf must be positive, got %d", p.MinSamplesLeaf)
	}
	return nil
}

// RandomForest is a bagged ensemble of CART trees. Probabilities are the
// mean of per-tree leaf fractions.
type RandomForest struct {
	NumFeatures int
	Params      ForestParams
	Trees       []Tree
}

// FitForest trains a forest on x (rows of equal width) and binary labels y.
// Trees are grown concurrently; each tree's randomness is derived up front
// from Params.Seed so results do not depend on scheduling.
func FitForest(ctx context.Context, x [][]float64, y []int, params ForestParams) (*RandomForest, error) {
	if err := params.validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, ErrNoSamples
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("row count %d does not match label count %d", len(x), len(y))
	}
	width := len(x[0])
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(row), width)
		}
		if y[i] != 0 && y[i] != 1 {
			return nil, fmt.Errorf("row %d: %w", i, ErrInvalidLabel)
		}
	}

	seeds := make([]int64, params.NumTrees)
	master := rand.New(rand.NewSource(params.Seed))
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	maxFeatures := max(1, int(math.Sqrt(float64(width))))
	forest := &RandomForest{
		NumFeatures: width,
		Params:      params,
		Trees:       make([]Tree, params.NumTrees),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for t := range forest.Trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[t]))
			sample := make([]int, len(x))
			for i := range sample {
				sample[i] = rng.Intn(len(x))
			}
			b := &treeBuilder{
				x:           x,
				y:           y,
				rng:         rng,
				maxDepth:    params.MaxDepth,
				minSplit:    params.MinSamplesSplit,
				minLeaf:     params.MinSamplesLeaf,
				maxFeatures: maxFeatures,
			}
			forest.Trees[t] = b.build(sample)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return forest, nil
}

// PredictProba returns the probability of the positive class.
func (f *RandomForest) PredictProba(x []float64) float64 {
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].Predict(x)
	}
	return sum / float64(len(f.Trees))
}

// Predict returns 1 when the positive-class probability exceeds one half.
func (f *RandomForest) Predict(x []float64) int {
	if f.PredictProba(x) > 0.5 {
		return 1
	}
	return 0
}

// PredictProbaAll scores every row.
func (f *RandomForest) PredictProbaAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = f.PredictProba(row)
	}
	return out
}
