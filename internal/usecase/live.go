package usecase

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/features"
	applogger "CandleNet/pkg/logger"
)

const predictSample = "predict.csv"

// LivePrediction is a model output turned back into a price.
type LivePrediction struct {
	Prediction *models.Prediction `json:"prediction"`
	FrameAt    time.Time          `json:"frame_at"`
	TargetAt   time.Time          `json:"target_at"`
	Close      float64            `json:"close"`
	Price      float64            `json:"price"`
	Sample     string             `json:"sample"`
}

// LivePredictor builds the interval frame ending at a recent candle, writes it
// as the predict sample and runs the interval model of symbol/tf/forward on it.
type LivePredictor struct {
	exporter  *Exporter
	predictor *Predictor
	dir       string
	log       *applogger.Logger
	now       func() time.Time
}

func NewLivePredictor(exporter *Exporter, predictor *Predictor, log *applogger.Logger) *LivePredictor {
	return &LivePredictor{
		exporter:  exporter,
		predictor: predictor,
		dir:       filepath.Join(exporter.root, exporter.settings.PredictDir),
		log:       log,
		now:       time.Now,
	}
}

// PredictNow predicts from the frame of the current candle.
func (p *LivePredictor) PredictNow(ctx context.Context, symbol string, tf domrepo.Timeframe) (*LivePrediction, error) {
	return p.PredictAgo(ctx, symbol, tf, 0)
}

// PredictAgo predicts from the frame of the candle open ago before now.
func (p *LivePredictor) PredictAgo(ctx context.Context, symbol string, tf domrepo.Timeframe, ago time.Duration) (*LivePrediction, error) {
	s := p.exporter.settings
	if tf == "" {
		tf = s.Timeframe
	}
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if ago < 0 {
		return nil, fmt.Errorf("offset %s is in the future", ago)
	}
	step := tf.Step()
	at := features.Align(p.now().Add(-ago), step)

	f, err := p.exporter.frame(ctx, symbol, tf, at, s.DetailCandles+1)
	if err != nil {
		return nil, fmt.Errorf("build frame: %w", err)
	}
	if err := os.RemoveAll(p.dir); err != nil {
		return nil, fmt.Errorf("clear %s: %w", p.dir, err)
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", p.dir, err)
	}
	sample := filepath.Join(p.dir, predictSample)
	if err := writeCSV(sample, func(w *bufio.Writer) error { return features.WriteFeatures(w, f.rows) }); err != nil {
		return nil, fmt.Errorf("write sample: %w", err)
	}

	pred, err := p.predictor.Predict(ctx, IntervalIdentity(symbol, tf, s.Forward), sample)
	if err != nil {
		return nil, err
	}
	out := &LivePrediction{
		Prediction: pred,
		FrameAt:    f.at,
		TargetAt:   f.at.Add(time.Duration(s.Forward) * step),
		Close:      f.close,
		Price:      f.close + pred.Value*f.peak,
		Sample:     sample,
	}
	p.log.Info("live prediction",
		applogger.String("symbol", symbol),
		applogger.String("interval", string(tf)),
		applogger.String("target_at", out.TargetAt.Format(time.RFC3339)),
		applogger.Float("price", out.Price))
	return out, nil
}
