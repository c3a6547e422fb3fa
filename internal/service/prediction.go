package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/loanwise/loanwise/internal/features"
	"github.com/loanwise/loanwise/internal/metrics"
	"github.com/loanwise/loanwise/internal/model"
	"github.com/loanwise/loanwise/internal/repository"
	"github.com/loanwise/loanwise/internal/scoring"
)

// Scorer scores a loan application.
type Scorer interface {
	Score(ctx context.Context, in features.Input) (scoring.Result, error)
}

// PredictionStore persists scored predictions.
type PredictionStore interface {
	CreatePrediction(ctx context.Context, p *model.Prediction) error
	ListPredictionsByUser(ctx context.Context, userID, cursor string, limit int) ([]*model.Prediction, string, error)
}

// PredictionService scores applications and keeps each caller's history.
type PredictionService struct {
	scorer  Scorer
	store   PredictionStore
	metrics metrics.Recorder
	now     func() time.Time
}

// NewPredictionService creates a PredictionService.
func NewPredictionService(scorer Scorer, store PredictionStore, recorder metrics.Recorder) *PredictionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &PredictionService{
		scorer:  scorer,
		store:   store,
		metrics: recorder,
		now:     time.Now,
	}
}

// Create scores in for userID and stores the result. Scoring errors are
// returned unchanged; storage errors wrap ErrPersistence.
func (s *PredictionService) Create(ctx context.Context, userID string, in features.Input) (*model.Prediction, error) {
	res, err := s.scorer.Score(ctx, in)
	if err != nil {
		return nil, err
	}

	p := &model.Prediction{
		ID:                 ulid.Make().String(),
		UserID:             userID,
		LoanApplication:    res.Application,
		DefaultProbability: res.Probability,
		RiskClassification: res.Tier,
		ModelVersion:       res.ModelVersion,
		// PostgreSQL keeps microseconds; truncate so cursors round-trip.
		CreatedAt: s.now().UTC().Truncate(time.Microsecond),
	}

	if err := s.store.CreatePrediction(ctx, p); err != nil {
		s.metrics.IncPredictionPersistFailed()
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return p, nil
}

// ListPredictionsInput defines input for listing a caller's predictions.
type ListPredictionsInput struct {
	UserID string
	Cursor string
	Limit  int
}

// ListPredictionsOutput is one page of history.
type ListPredictionsOutput struct {
	Predictions []*model.Prediction
	NextCursor  string
	HasMore     bool
}

// List returns the caller's predictions oldest first.
func (s *PredictionService) List(ctx context.Context, input ListPredictionsInput) (*ListPredictionsOutput, error) {
	switch {
	case input.Limit <= 0:
		input.Limit = DefaultListLimit
	case input.Limit > MaxListLimit:
		input.Limit = MaxListLimit
	}

	items, next, err := s.store.ListPredictionsByUser(ctx, input.UserID, input.Cursor, input.Limit)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidCursor) {
			return nil, ErrInvalidCursor
		}
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	if items == nil {
		items = []*model.Prediction{}
	}

	return &ListPredictionsOutput{
		Predictions: items,
		NextCursor:  next,
		HasMore:     next != "",
	}, nil
}
