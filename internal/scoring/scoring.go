// Package scoring holds the resident model artifact and scores loan
// applications against it.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/metrics"
	"github.com/loanwise/loanwise/internal/ml"
	"github.com/loanwise/loanwise/internal/model"
)

// Result is the outcome of scoring one application.
type Result struct {
	Application  model.LoanApplication
	Probability  float64
	Tier         model.RiskTier
	ModelVersion string
}

// Loader loads an artifact pair.
type Loader func(ctx context.Context) (*ml.Artifact, error)

// DirLoader returns a Loader reading from dir.
func DirLoader(dir string) Loader {
	return func(ctx context.Context) (*ml.Artifact, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return ml.Load(dir)
	}
}

// Service scores applications with the currently loaded artifact.
type Service struct {
	load    Loader
	current atomic.Pointer[ml.Artifact]
	reload  sync.Mutex
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewService creates a scoring service. Call Reload to load the first artifact.
func NewService(load Loader, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Service{load: load, metrics: recorder, logger: logger}
}

// Score validates in, transforms it and returns the default probability and
// risk tier. It has no side effects.
func (s *Service) Score(ctx context.Context, in features.Input) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	app, vec, err := features.Build(in)
	if err != nil {
		return Result{}, err
	}

	art := s.current.Load()
	if art == nil {
		return Result{}, fmt.Errorf("%w: no artifact loaded", ml.ErrArtifactMissing)
	}

	start := time.Now()
	p := art.PredictProba(vec)
	tier := model.ClassifyRisk(p)
	s.metrics.ObserveScoringDuration(time.Since(start))
	s.metrics.IncPredictionScored(string(tier))

	return Result{
		Application:  app,
		Probability:  p,
		Tier:         tier,
		ModelVersion: art.Version,
	}, nil
}

// Reload loads a fresh artifact and swaps it in. On failure the previous
// artifact stays active.
func (s *Service) Reload(ctx context.Context) (ml.Report, error) {
	s.reload.Lock()
	defer s.reload.Unlock()

	art, err := s.load(ctx)
	if err != nil {
		s.metrics.IncModelReload("failure")
		s.logger.Error("model reload failed", "error", err)
		return ml.Report{}, err
	}

	prev := s.current.Swap(art)
	s.metrics.IncModelReload("success")

	attrs := []any{"version", art.Version, "roc_auc", art.Metrics.ROCAUC}
	if prev != nil {
		attrs = append(attrs, "previous_version", prev.Version)
	}
	s.logger.Info("model loaded", attrs...)
	return art.Report(), nil
}

// Current returns the active artifact report, or ErrArtifactMissing.
func (s *Service) Current() (ml.Report, error) {
	art := s.current.Load()
	if art == nil {
		return ml.Report{}, ml.ErrArtifactMissing
	}
	return art.Report(), nil
}

// Check reports whether an artifact is loaded. It backs the readiness probe.
func (s *Service) Check(context.Context) error {
	if s.current.Load() == nil {
		return ml.ErrArtifactMissing
	}
	return nil
}
