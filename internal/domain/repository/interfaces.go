package repository

import (
	"context"

	"CandleNet/internal/domain/models"
)

// CachedArrays is what an ArrayCache persists for one identity.
type CachedArrays struct {
	Dataset     *models.Dataset
	Fingerprint string
}

// ArrayCache persists parsed label/feature arrays between runs.
// Load returns (nil, false, nil) on miss.
type ArrayCache interface {
	Load(ctx context.Context, id models.Identity) (*CachedArrays, bool, error)
	Store(ctx context.Context, arrays *CachedArrays) error
	Invalidate(ctx context.Context, id models.Identity) error
}

// RunStore keeps the history of training runs.
type RunStore interface {
	Init(ctx context.Context) error
	Save(ctx context.Context, run *models.TrainingRun) error
	List(ctx context.Context, symbol string, limit int) ([]*models.TrainingRun, error)
	Close() error
}

// PredictionPublisher forwards predictions to downstream consumers.
type PredictionPublisher interface {
	Publish(ctx context.Context, p *models.Prediction) error
	Close() error
}

type Metrics interface {
	RecordFileLoaded(partition string)
	RecordLoadProgress(id string, percent float64)
	RecordCache(result string)
	RecordEpoch(variant string, loss float64)
	RecordTraining(variant string, seconds float64)
	RecordPrediction(id string, value float64)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
