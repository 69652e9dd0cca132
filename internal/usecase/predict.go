package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"gorgonia.org/tensor"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/domain/service"
	"CandleNet/internal/services/dataset"
	"CandleNet/internal/services/network"
	applogger "CandleNet/pkg/logger"
)

// ModelSource resolves the saved model of an identity.
type ModelSource interface {
	Load(id models.Identity) (service.Network, *network.Meta, error)
}

// Predictor runs single-sample inference against saved models.
type Predictor struct {
	models    ModelSource
	publisher domrepo.PredictionPublisher
	metrics   domrepo.Metrics
	log       *applogger.Logger
	output    string
	stdout    io.Writer
}

func NewPredictor(
	models ModelSource,
	publisher domrepo.PredictionPublisher,
	metrics domrepo.Metrics,
	log *applogger.Logger,
	output string,
	stdout io.Writer,
) *Predictor {
	return &Predictor{
		models:    models,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		output:    output,
		stdout:    stdout,
	}
}

// Predict reads samplePath, writes the result to the output file and stdout.
func (p *Predictor) Predict(ctx context.Context, id models.Identity, samplePath string) (*models.Prediction, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	net, meta, err := p.models.Load(id)
	if err != nil {
		return nil, err
	}
	data, _, err := dataset.ReadSample(samplePath, meta.Flatten)
	if err != nil {
		return nil, err
	}
	pred, err := p.run(ctx, id, net, meta, data)
	if err != nil {
		return nil, err
	}

	text := FormatPrediction(pred.Value)
	if err := os.WriteFile(p.output, []byte(text), 0o644); err != nil {
		return nil, fmt.Errorf("write prediction: %w", err)
	}
	if p.stdout != nil {
		fmt.Fprintln(p.stdout, text)
	}
	return pred, nil
}

// PredictValues runs inference on an already parsed, row-major sample.
func (p *Predictor) PredictValues(ctx context.Context, id models.Identity, data []float64) (*models.Prediction, error) {
	if err := id.Validate(); err != nil {
		return nil, err
	}
	net, meta, err := p.models.Load(id)
	if err != nil {
		return nil, err
	}
	return p.run(ctx, id, net, meta, data)
}

func (p *Predictor) run(ctx context.Context, id models.Identity, net service.Network, meta *network.Meta, data []float64) (*models.Prediction, error) {
	start := time.Now()
	v, err := Infer(net, data)
	if err != nil {
		p.metrics.RecordError("predict")
		return nil, err
	}
	p.metrics.RecordPrediction(id.Key(), v)
	p.metrics.RecordLatency("predict", time.Since(start).Seconds())

	pred := &models.Prediction{
		Identity:  id,
		Value:     v,
		ModelPath: meta.Dir,
		CreatedAt: time.Now().UTC(),
	}
	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, pred); err != nil {
			p.metrics.RecordError("publish")
			p.log.Warn("publish prediction failed", applogger.String("identity", id.Key()), applogger.Error(err))
		}
	}
	p.log.Info("prediction", applogger.String("identity", id.Key()), applogger.Float("value", v))
	return pred, nil
}

// Infer lays data out as a batch of one sample of the network's input shape,
// then hands the network that sample read back out of the batch. The reshape
// is the size check: its error is returned as the tensor library reports it.
func Infer(net service.Network, data []float64) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty sample")
	}
	backing := append([]float64(nil), data...)
	batch := tensor.New(tensor.WithShape(len(backing)), tensor.WithBacking(backing))
	if err := batch.Reshape(append([]int{1}, net.InputShape()...)...); err != nil {
		return 0, err
	}
	view, err := batch.Slice(tensor.S(0))
	if err != nil {
		return 0, fmt.Errorf("select sample: %w", err)
	}
	sample := view.Materialize()
	var row []float64
	switch d := sample.Data().(type) {
	case []float64:
		row = d
	case float64:
		row = []float64{d}
	default:
		return 0, fmt.Errorf("unexpected tensor backing %T", d)
	}
	if len(row) != len(data) {
		return 0, fmt.Errorf("sample view has %d values, expected %d", len(row), len(data))
	}
	return net.Predict(row)
}

// FormatPrediction renders a prediction the way it is written to disk.
func FormatPrediction(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 32)
}
