// Package trainer fits the scaler and classifier pair from a historical loan
// export and writes it to an artifact directory.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/ml"
)

// DefaultTestSize is the held-out fraction.
const DefaultTestSize = 0.2

// Options configures a training run.
type Options struct {
	DataPath string
	OutDir   string
	TestSize float64
	Forest   ml.ForestParams
}

// DefaultOptions returns the production configuration with seed 42.
func DefaultOptions() Options {
	return Options{
		TestSize: DefaultTestSize,
		Forest:   ml.DefaultForestParams(),
	}
}

// Trainer runs the offline pipeline.
type Trainer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a trainer.
func New(logger *slog.Logger) *Trainer {
	return &Trainer{logger: logger, now: time.Now}
}

// Run loads opts.DataPath, trains and saves into opts.OutDir.
func (t *Trainer) Run(ctx context.Context, opts Options) (*ml.Artifact, error) {
	f, err := os.Open(opts.DataPath)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	ds, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	t.logger.Info("dataset loaded", "rows", ds.Len(), "path", opts.DataPath)

	art, err := t.Fit(ctx, ds, opts)
	if err != nil {
		return nil, err
	}

	if err := art.Save(opts.OutDir); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}
	t.logger.Info("artifact saved", "dir", opts.OutDir, "version", art.Version)
	return art, nil
}

// Fit trains and evaluates an artifact from ds without touching disk.
func (t *Trainer) Fit(ctx context.Context, ds *Dataset, opts Options) (*ml.Artifact, error) {
	trainIdx, testIdx, err := ml.TrainTestSplit(ds.Len(), opts.TestSize, opts.Forest.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	train, test := ds.Subset(trainIdx), ds.Subset(testIdx)

	imputer, err := features.FitImputer(train.Rows)
	if err != nil {
		return nil, fmt.Errorf("fit imputer: %w", err)
	}
	imputer.TransformAll(train.Rows)
	imputer.TransformAll(test.Rows)

	scaler, err := ml.FitScaler(train.Rows)
	if err != nil {
		return nil, fmt.Errorf("fit scaler: %w", err)
	}
	xTrain := scaler.TransformAll(train.Rows)
	xTest := scaler.TransformAll(test.Rows)

	start := t.now()
	forest, err := ml.FitForest(ctx, xTrain, train.Labels, opts.Forest)
	if err != nil {
		return nil, fmt.Errorf("fit forest: %w", err)
	}
	t.logger.Info("forest trained",
		"trees", len(forest.Trees),
		"max_depth", opts.Forest.MaxDepth,
		"train_rows", train.Len(),
		"duration", t.now().Sub(start),
	)

	metrics, err := evaluate(forest, xTest, test.Labels)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	metrics.TrainRows = train.Len()
	metrics.TestRows = test.Len()
	t.logger.Info("evaluation complete",
		"roc_auc", metrics.ROCAUC,
		"accuracy", metrics.Classification.Accuracy,
		"test_rows", test.Len(),
	)

	trainedAt := t.now().UTC()
	return &ml.Artifact{
		Version:    ulid.MustNew(ulid.Timestamp(trainedAt), ulid.DefaultEntropy()).String(),
		Features:   features.NameList(),
		TrainedAt:  trainedAt,
		Imputer:    imputer,
		Scaler:     scaler,
		Classifier: forest,
		Metrics:    metrics,
	}, nil
}

func evaluate(forest *ml.RandomForest, x [][]float64, y []int) (ml.Metrics, error) {
	scores := forest.PredictProbaAll(x)
	preds := make([]int, len(scores))
	for i, p := range scores {
		if p > 0.5 {
			preds[i] = 1
		}
	}

	report, err := ml.Classify(y, preds)
	if err != nil {
		return ml.Metrics{}, err
	}
	auc, err := ml.ROCAUC(y, scores)
	if err != nil {
		return ml.Metrics{}, err
	}
	return ml.Metrics{ROCAUC: auc, Classification: report}, nil
}
