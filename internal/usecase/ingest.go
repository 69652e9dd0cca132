package usecase

import (
	"context"
	"fmt"
	"time"

	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/features"
	applogger "CandleNet/pkg/logger"
)

// IngestResult reports one ingestion run.
type IngestResult struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	Fetched  int       `json:"fetched"`
	Inserted int       `json:"inserted"`
}

// Ingester copies exchange candles into the candle store. Runs resume from the
// newest stored bucket, which is fetched again because it may have been stored
// while still open.
type Ingester struct {
	source    domrepo.CandleSource
	sink      domrepo.CandleSink
	history   time.Duration
	batchSize int
	metrics   domrepo.Metrics
	log       *applogger.Logger
	now       func() time.Time
}

func NewIngester(
	source domrepo.CandleSource,
	sink domrepo.CandleSink,
	history time.Duration,
	batchSize int,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *Ingester {
	if batchSize <= 0 {
		batchSize = 5000
	}
	return &Ingester{
		source:    source,
		sink:      sink,
		history:   history,
		batchSize: batchSize,
		metrics:   metrics,
		log:       log,
		now:       time.Now,
	}
}

// Ingest fetches symbol candles at tf up to and including the open one.
func (i *Ingester) Ingest(ctx context.Context, symbol string, tf domrepo.Timeframe) (*IngestResult, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	began := time.Now()
	step := tf.Step()
	now := i.now()
	res := &IngestResult{
		From: features.Align(now.Add(-i.history), step),
		To:   features.Align(now, step).Add(step),
	}

	last, ok, err := i.sink.LastBucket(ctx, symbol, tf)
	if err != nil {
		return nil, err
	}
	if ok && last.After(res.From) {
		res.From = last
	}
	log := i.log.With(applogger.String("symbol", symbol), applogger.String("interval", string(tf)))
	if !res.From.Before(res.To) {
		log.Info("candles up to date")
		return res, nil
	}

	candles, err := i.source.FetchCandles(ctx, symbol, tf, res.From, res.To)
	if err != nil {
		i.metrics.RecordError("ingest")
		return res, err
	}
	res.Fetched = len(candles)
	for start := 0; start < len(candles); start += i.batchSize {
		end := min(start+i.batchSize, len(candles))
		if err := i.sink.InsertCandles(ctx, symbol, tf, candles[start:end]); err != nil {
			i.metrics.RecordError("ingest")
			return res, err
		}
		res.Inserted = end
	}

	i.metrics.RecordLatency("ingest", time.Since(began).Seconds())
	log.Info("candles ingested",
		applogger.String("from", res.From.Format(time.RFC3339)),
		applogger.String("to", res.To.Format(time.RFC3339)),
		applogger.Int("candles", res.Inserted),
		applogger.Duration("took", time.Since(began)))
	return res, nil
}
