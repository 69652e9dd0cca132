package usecase

import (
	"context"
	"fmt"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/domain/service"
	"CandleNet/internal/services/dataset"
	"CandleNet/internal/services/network"
	applogger "CandleNet/pkg/logger"
)

// DatasetLoader reads the arrays for one identity.
type DatasetLoader interface {
	Load(ctx context.Context, id models.Identity, shaping dataset.Shaping) (*models.Dataset, error)
}

// NetworkFactory builds an untrained network for a profile.
type NetworkFactory interface {
	New(p network.Profile, shape []int, opts ...network.Option) (service.Network, error)
}

// ModelSaver persists trained networks.
type ModelSaver interface {
	Save(id models.Identity, net service.Network, profile network.Profile) (string, error)
}

// ProfileResolver returns a validated profile by name; empty means the default.
type ProfileResolver func(name string) (network.Profile, error)

// TrainingDriver loads a dataset, trains the profile's network on it and saves the result.
type TrainingDriver struct {
	loader   DatasetLoader
	factory  NetworkFactory
	models   ModelSaver
	runs     domrepo.RunStore
	metrics  domrepo.Metrics
	profiles ProfileResolver
	eval     DatasetLoader
	log      *applogger.Logger
}

func NewTrainingDriver(
	loader DatasetLoader,
	factory NetworkFactory,
	models ModelSaver,
	runs domrepo.RunStore,
	metrics domrepo.Metrics,
	profiles ProfileResolver,
	log *applogger.Logger,
) *TrainingDriver {
	return &TrainingDriver{
		loader:   loader,
		factory:  factory,
		models:   models,
		runs:     runs,
		metrics:  metrics,
		profiles: profiles,
		log:      log,
	}
}

// WithEvaluation scores every trained network on the samples loader returns.
func (d *TrainingDriver) WithEvaluation(loader DatasetLoader) *TrainingDriver {
	d.eval = loader
	return d
}

// Train runs one full training. A dataset without samples is ErrEmptyDataset
// and nothing is written.
func (d *TrainingDriver) Train(ctx context.Context, id models.Identity, profileName string) (*models.TrainingRun, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	p, err := d.profiles(profileName)
	if err != nil {
		return nil, err
	}
	log := d.log.With(
		applogger.String("identity", id.Key()),
		applogger.String("profile", p.Name),
		applogger.String("variant", p.Variant),
	)

	ds, err := d.loader.Load(ctx, id, p.Shaping())
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	if ds.Len() == 0 {
		return nil, fmt.Errorf("%w: %s", models.ErrEmptyDataset, id.Key())
	}
	if err := dataset.Validate(ds); err != nil {
		return nil, err
	}

	x := make([][]float64, ds.Len())
	y := make([]float64, ds.Len())
	for i := range x {
		x[i] = ds.Float64Row(i)
		y[i] = float64(ds.Labels[i])
	}

	net, err := d.factory.New(p, ds.Shape, network.WithEpochHook(func(epoch int, loss float64) {
		d.metrics.RecordEpoch(p.Variant, loss)
		log.Debug("epoch", applogger.Int("epoch", epoch), applogger.Float("loss", loss))
	}))
	if err != nil {
		return nil, fmt.Errorf("build network: %w", err)
	}

	log.Info("training", applogger.Int("samples", ds.Len()), applogger.Any("shape", ds.Shape), applogger.Int("epochs", p.Epochs))
	start := time.Now()
	loss, err := net.Fit(ctx, x, y)
	if err != nil {
		d.metrics.RecordError("train")
		return nil, fmt.Errorf("fit: %w", err)
	}
	took := time.Since(start)
	d.metrics.RecordTraining(p.Variant, took.Seconds())

	ev, ok := d.evaluate(ctx, id, p, net, log)

	dir, err := d.models.Save(id, net, p)
	if err != nil {
		return nil, fmt.Errorf("save model: %w", err)
	}

	run := &models.TrainingRun{
		Identity:  id,
		Profile:   p.Name,
		Variant:   p.Variant,
		Samples:   ds.Len(),
		Epochs:    p.Epochs,
		FinalLoss: loss,
		Duration:  took,
		ModelPath: dir,
		CreatedAt: time.Now().UTC(),
	}
	if ok {
		run.TestSamples = ev.Samples
		run.TestLoss = ev.MSE
		run.Accuracy = ev.Accuracy
	}
	if d.runs != nil {
		if err := d.runs.Save(ctx, run); err != nil {
			d.metrics.RecordError("run_store")
			log.Warn("record training run failed", applogger.Error(err))
		}
	}

	log.Info("model saved",
		applogger.String("path", dir),
		applogger.Float("loss", loss),
		applogger.Duration("took", took))
	return run, nil
}

// evaluate is best effort: a missing or mismatched held-out split is logged and skipped.
func (d *TrainingDriver) evaluate(ctx context.Context, id models.Identity, p network.Profile, net service.Network, log *applogger.Logger) (network.Evaluation, bool) {
	if d.eval == nil {
		return network.Evaluation{}, false
	}
	ds, err := d.eval.Load(ctx, id, p.Shaping())
	if err != nil {
		log.Debug("no evaluation split", applogger.Error(err))
		return network.Evaluation{}, false
	}
	if ds.Len() == 0 {
		return network.Evaluation{}, false
	}
	x := make([][]float64, ds.Len())
	y := make([]float64, ds.Len())
	for i := range x {
		x[i] = ds.Float64Row(i)
		y[i] = float64(ds.Labels[i])
	}
	ev, err := network.Evaluate(net, x, y)
	if err != nil {
		log.Warn("evaluation failed", applogger.Error(err))
		return network.Evaluation{}, false
	}
	log.Info("evaluated",
		applogger.Int("samples", ev.Samples),
		applogger.Float("mse", ev.MSE),
		applogger.Float("accuracy", ev.Accuracy))
	return ev, true
}
