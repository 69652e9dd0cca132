package usecase

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/dataset"
	"CandleNet/internal/services/features"
	"CandleNet/pkg/config"
	applogger "CandleNet/pkg/logger"
)

const (
	StrategyStrat1   = "strat1"
	StrategyInterval = "interval"
)

const day = 24 * time.Hour

// ExportSettings are the parsed export.* config values.
type ExportSettings struct {
	Strategy       string
	Timeframe      domrepo.Timeframe
	Window         time.Duration
	Step           time.Duration
	History        time.Duration
	EndOffset      time.Duration
	LabelOffset    time.Duration
	LabelTimeframe domrepo.Timeframe
	TrainRatio     float64
	MAs            []features.MA

	// Interval frames.
	DetailCandles  int
	Forward        int
	HistoryCandles int
	PredictDir     string
}

// NewExportSettings parses the span strings of cfg.Export.
func NewExportSettings(cfg *config.Config) (ExportSettings, error) {
	e := cfg.Export
	s := ExportSettings{
		Strategy:       e.Strategy,
		Timeframe:      domrepo.Timeframe(e.Timeframe),
		LabelTimeframe: domrepo.Timeframe(e.LabelTimeframe),
		History:        time.Duration(e.HistoryDays) * day,
		TrainRatio:     e.TrainRatio,
		DetailCandles:  e.Interval.DetailCandles,
		Forward:        e.Interval.Forward,
		HistoryCandles: e.Interval.HistoryCandles,
		PredictDir:     e.PredictDir,
	}
	spans := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"export.window", e.Window, &s.Window},
		{"export.step", e.Step, &s.Step},
		{"export.end_offset", e.EndOffset, &s.EndOffset},
		{"export.label_offset", e.LabelOffset, &s.LabelOffset},
	}
	for _, sp := range spans {
		d, err := domrepo.ParseSpan(sp.raw)
		if err != nil {
			return ExportSettings{}, fmt.Errorf("%s: %w", sp.name, err)
		}
		*sp.dst = d
	}
	for _, m := range e.MovingAverages {
		s.MAs = append(s.MAs, features.MA{Period: m.Period, Exponential: m.Exponential})
	}
	return s, nil
}

// ExportResult counts the files written per split.
type ExportResult struct {
	Train   int `json:"train"`
	Test    int `json:"test"`
	Skipped int `json:"skipped"`
}

// Exporter rebuilds feature files for a symbol from stored candles.
type Exporter struct {
	candles  domrepo.CandleStore
	root     string
	layout   string
	settings ExportSettings
	metrics  domrepo.Metrics
	log      *applogger.Logger
	now      func() time.Time
}

func NewExporter(
	candles domrepo.CandleStore,
	root, layout string,
	settings ExportSettings,
	metrics domrepo.Metrics,
	log *applogger.Logger,
) *Exporter {
	return &Exporter{
		candles:  candles,
		root:     root,
		layout:   layout,
		settings: settings,
		metrics:  metrics,
		log:      log,
		now:      time.Now,
	}
}

// Export writes one file per window cursor into the train and test
// directories of symbol/strategy, replacing what was there. The interval
// strategy delegates to ExportInterval on the configured timeframe.
func (e *Exporter) Export(ctx context.Context, symbol, strategy string) (*ExportResult, error) {
	if strategy == "" {
		strategy = e.settings.Strategy
	}
	switch strategy {
	case StrategyStrat1:
	case StrategyInterval:
		return e.ExportInterval(ctx, symbol, e.settings.Timeframe)
	default:
		return nil, fmt.Errorf("unsupported strategy %q", strategy)
	}
	id := models.Identity{Symbol: symbol, Partition: strategy}
	if err := id.Validate(); err != nil {
		return nil, err
	}
	step := e.settings.Timeframe.Step()
	if e.settings.Window < 2*step {
		return nil, fmt.Errorf("window %s is shorter than two %s candles", e.settings.Window, e.settings.Timeframe)
	}
	if e.settings.Step <= 0 {
		return nil, fmt.Errorf("export step must be positive")
	}

	began := time.Now()
	now := e.now()
	end := features.Align(now.Add(-e.settings.EndOffset), day)
	start := features.Align(now.Add(-e.settings.History+e.settings.Window), day)
	if !start.Before(end) {
		return nil, fmt.Errorf("empty export range %s..%s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}
	trainEnd := features.Align(start.Add(time.Duration(float64(end.Sub(start))*e.settings.TrainRatio)), day)

	trainDir := dataset.RenderDir(e.root, e.layout, id, "train")
	testDir := dataset.RenderDir(e.root, e.layout, id, "test")
	for _, dir := range []string{trainDir, testDir} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("clear %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	log := e.log.With(applogger.String("symbol", symbol), applogger.String("strategy", strategy))
	log.Info("export started",
		applogger.String("start", start.Format(time.RFC3339)),
		applogger.String("train_end", trainEnd.Format(time.RFC3339)),
		applogger.String("end", end.Format(time.RFC3339)))

	res := &ExportResult{}
	for cursor := start; !cursor.After(end); cursor = cursor.Add(e.settings.Step) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		train := cursor.Before(trainEnd)
		dir := testDir
		if train {
			dir = trainDir
		}
		err := e.window(ctx, symbol, cursor, dir)
		switch {
		case err == nil && train:
			res.Train++
		case err == nil:
			res.Test++
		case train:
			res.Skipped++
			e.metrics.RecordError("export")
			log.Warn("skip window", applogger.String("cursor", cursor.Format(time.RFC3339)), applogger.Error(err))
		default:
			e.metrics.RecordError("export")
			return res, fmt.Errorf("window %s: %w", cursor.Format(time.RFC3339), err)
		}
	}

	e.metrics.RecordLatency("export", time.Since(began).Seconds())
	log.Info("export done",
		applogger.Int("train", res.Train),
		applogger.Int("test", res.Test),
		applogger.Int("skipped", res.Skipped))
	return res, nil
}

func (e *Exporter) window(ctx context.Context, symbol string, cursor time.Time, dir string) error {
	s := e.settings
	f, err := e.frame(ctx, symbol, s.Timeframe, cursor, int(s.Window/s.Timeframe.Step())+1)
	if err != nil {
		return err
	}
	later, err := e.candles.PriceAt(ctx, symbol, cursor.Add(s.LabelOffset), s.LabelTimeframe)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, strconv.FormatInt(cursor.UnixMilli(), 10)+".csv")
	return writeCSV(path, func(w *bufio.Writer) error {
		return features.WriteRows(w, f.rows, features.Label(f.close, later))
	})
}

// ExportInterval writes one "<ms>,<label>.csv" frame per tf candle of the
// configured history into the train directory of symbol/tf/forward. The label
// is the open Forward candles later, relative to the frame's last close and
// scaled by its peak move. Frames that cannot be built are skipped.
func (e *Exporter) ExportInterval(ctx context.Context, symbol string, tf domrepo.Timeframe) (*ExportResult, error) {
	s := e.settings
	if tf == "" {
		tf = s.Timeframe
	}
	if !domrepo.IsValidTimeframe(tf) {
		return nil, fmt.Errorf("unsupported timeframe %q", tf)
	}
	if s.DetailCandles < 2 || s.Forward < 1 || s.HistoryCandles < 1 {
		return nil, fmt.Errorf("interval export needs detail_candles >= 2, forward and history_candles >= 1")
	}
	id := IntervalIdentity(symbol, tf, s.Forward)
	if err := id.Validate(); err != nil {
		return nil, err
	}

	dir := dataset.RenderDir(e.root, e.layout, id, "train")
	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clear %s: %w", dir, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	began := time.Now()
	step := tf.Step()
	now := features.Align(e.now(), step)
	from := now.Add(-time.Duration(s.HistoryCandles) * step)
	log := e.log.With(applogger.String("symbol", symbol), applogger.String("interval", string(tf)))
	log.Info("interval export started",
		applogger.String("start", from.Format(time.RFC3339)),
		applogger.String("end", now.Format(time.RFC3339)),
		applogger.Int("forward", s.Forward))

	res := &ExportResult{}
	for at := from; at.Before(now); at = at.Add(step) {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if err := e.intervalFrame(ctx, symbol, tf, at, dir); err != nil {
			res.Skipped++
			e.metrics.RecordError("export")
			log.Debug("skip frame", applogger.String("at", at.Format(time.RFC3339)), applogger.Error(err))
			continue
		}
		res.Train++
	}

	e.metrics.RecordLatency("export", time.Since(began).Seconds())
	log.Info("interval export done", applogger.Int("frames", res.Train), applogger.Int("skipped", res.Skipped))
	return res, nil
}

func (e *Exporter) intervalFrame(ctx context.Context, symbol string, tf domrepo.Timeframe, at time.Time, dir string) error {
	f, err := e.frame(ctx, symbol, tf, at, e.settings.DetailCandles+1)
	if err != nil {
		return err
	}
	later, err := e.candles.PriceAt(ctx, symbol, at.Add(time.Duration(e.settings.Forward)*tf.Step()), tf)
	if err != nil {
		return err
	}
	path := filepath.Join(dir, features.FrameName(at, features.FrameLabel(f.close, later, f.peak)))
	return writeCSV(path, func(w *bufio.Writer) error { return features.WriteFeatures(w, f.rows) })
}

// IntervalIdentity names the dataset and model of interval frames.
func IntervalIdentity(symbol string, tf domrepo.Timeframe, forward int) models.Identity {
	return models.Identity{Symbol: symbol, Partition: string(tf), Horizon: strconv.Itoa(forward)}
}

// frame is n candles ending at the candle that opens at `at`, as normalized rows.
type frame struct {
	at    time.Time
	rows  []features.Row
	close float64
	peak  float64
}

func (e *Exporter) frame(ctx context.Context, symbol string, tf domrepo.Timeframe, at time.Time, n int) (*frame, error) {
	step := tf.Step()
	from := at.Add(-time.Duration(n-1+features.Lookback(e.settings.MAs)) * step)
	candles, err := e.candles.GetCandles(ctx, symbol, from, at, tf)
	if err != nil {
		return nil, err
	}
	if len(candles) == 0 || !candles[len(candles)-1].Bucket.Equal(at) {
		return nil, fmt.Errorf("no %s candle at %s", tf, at.Format(time.RFC3339))
	}
	frames, err := features.BuildFrames(candles, e.settings.MAs, n)
	if err != nil {
		return nil, err
	}
	rows := features.Convert(frames)
	peak, err := features.Peak(rows)
	if err != nil {
		return nil, err
	}
	f := &frame{at: at, rows: rows, close: rows[len(rows)-1].Close, peak: peak}
	if err := features.Normalize(rows); err != nil {
		return nil, err
	}
	return f, nil
}

func writeCSV(path string, write func(*bufio.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	if err := write(w); err != nil {
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
