package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"CandleNet/internal/domain/models"
	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/services/labels"
	"CandleNet/pkg/cache"
	"CandleNet/pkg/logger"
	"CandleNet/pkg/metrics"
)

// Shaping controls how files are turned into samples.
type Shaping struct {
	Flatten     bool
	LabelPolicy LabelPolicy
}

func (s Shaping) String() string {
	return fmt.Sprintf("flatten=%t,label=%s", s.Flatten, s.LabelPolicy)
}

// Progress is reported after each parsed file.
type Progress struct {
	Identity models.Identity
	Done     int
	Total    int
	Percent  float64
}

type ProgressFunc func(Progress)

// Loader turns a directory of feature files into a Dataset.
type Loader struct {
	root     string
	layout   string
	split    string
	cache    domrepo.ArrayCache
	validate bool
	metrics  domrepo.Metrics
	log      *logger.Logger
	progress ProgressFunc
}

type Option func(*Loader)

// WithCache enables the array cache. With validate unset a cached entry is
// used whatever the state of the source directory.
func WithCache(c domrepo.ArrayCache, validate bool) Option {
	return func(l *Loader) {
		l.cache = c
		l.validate = validate
	}
}

func WithMetrics(m domrepo.Metrics) Option {
	return func(l *Loader) { l.metrics = m }
}

func WithLogger(log *logger.Logger) Option {
	return func(l *Loader) { l.log = log }
}

func WithProgress(fn ProgressFunc) Option {
	return func(l *Loader) { l.progress = fn }
}

// NewLoader creates a loader resolving directories as root/layout.
// layout may use {symbol}, {partition}, {horizon} and {split}.
func NewLoader(root, layout, split string, opts ...Option) *Loader {
	l := &Loader{
		root:    root,
		layout:  layout,
		split:   split,
		metrics: metrics.Nop{},
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.progress == nil {
		l.progress = l.defaultProgress
	}
	return l
}

// Dir returns the source directory for id.
func (l *Loader) Dir(id models.Identity) string {
	return RenderDir(l.root, l.layout, id, l.split)
}

// RenderDir fills the {symbol}, {partition}, {horizon} and {split}
// placeholders of layout and joins the result to root.
func RenderDir(root, layout string, id models.Identity, split string) string {
	r := strings.NewReplacer(
		"{symbol}", id.Symbol,
		"{partition}", id.Partition,
		"{horizon}", id.Horizon,
		"{split}", split,
	)
	return filepath.Join(root, filepath.FromSlash(r.Replace(layout)))
}

// Load reads every file of the identity's directory in lexical order.
// An empty directory yields an empty dataset; a missing one is an error.
func (l *Loader) Load(ctx context.Context, id models.Identity, shaping Shaping) (*models.Dataset, error) {
	if err := id.Validate(); err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	start := time.Now()
	dir := l.Dir(id)

	var (
		entries     []fs.FileInfo
		fingerprint string
		err         error
	)
	if l.cache == nil || l.validate {
		entries, err = listFiles(dir)
		if err != nil {
			return nil, err
		}
		fingerprint = Fingerprint(entries, shaping)
	}

	if l.cache != nil {
		cached, ok, err := l.cache.Load(ctx, id)
		if err != nil {
			l.log.Warn("array cache load failed", logger.String("identity", id.Key()), logger.Error(err))
			l.metrics.RecordError("cache_load")
		}
		if ok {
			if !l.validate || cached.Fingerprint == fingerprint {
				l.metrics.RecordCache("hit")
				l.log.Info("loaded cached arrays",
					logger.String("identity", id.Key()),
					logger.Int("samples", cached.Dataset.Len()))
				return cached.Dataset, nil
			}
			l.metrics.RecordCache("stale")
			if err := l.cache.Invalidate(ctx, id); err != nil {
				l.log.Warn("array cache invalidate failed", logger.String("identity", id.Key()), logger.Error(err))
			}
		} else {
			l.metrics.RecordCache("miss")
		}
		if entries == nil {
			entries, err = listFiles(dir)
			if err != nil {
				return nil, err
			}
			fingerprint = Fingerprint(entries, shaping)
		}
	}

	ds, err := l.parse(ctx, id, dir, entries, shaping)
	if err != nil {
		l.metrics.RecordError("load")
		return nil, err
	}

	if l.cache != nil && ds.Len() > 0 {
		if err := l.cache.Store(ctx, &domrepo.CachedArrays{Dataset: ds, Fingerprint: fingerprint}); err != nil {
			l.log.Warn("array cache store failed", logger.String("identity", id.Key()), logger.Error(err))
			l.metrics.RecordError("cache_store")
		}
	}

	l.metrics.RecordLatency("load", time.Since(start).Seconds())
	l.log.Info("dataset loaded",
		logger.String("identity", id.Key()),
		logger.String("dir", dir),
		logger.Int("samples", ds.Len()),
		logger.Duration("took", time.Since(start)))
	return ds, nil
}

func (l *Loader) parse(ctx context.Context, id models.Identity, dir string, entries []fs.FileInfo, shaping Shaping) (*models.Dataset, error) {
	ds := &models.Dataset{Identity: id}
	lbls := make([]models.Label, 0, len(entries))
	total := len(entries)

	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, e.Name())

		records, err := ReadRecords(path)
		if err != nil {
			return nil, err
		}
		label, rest, err := shaping.LabelPolicy.Extract(path, records)
		if err != nil {
			return nil, err
		}
		grid, err := ToGrid(rest)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		data, shape := Shape(grid, shaping.Flatten)

		if ds.Shape == nil {
			ds.Shape = shape
		} else if !sameShape(ds.Shape, shape) {
			return nil, fmt.Errorf("%w: %s has shape %v, expected %v", models.ErrShapeMismatch, path, shape, ds.Shape)
		}

		row := make([]float32, len(data))
		for j, v := range data {
			row[j] = float32(v)
		}
		ds.Features = append(ds.Features, row)
		lbls = append(lbls, label)

		if err := checkRow(path, labels.Encode(label), row); err != nil {
			return nil, err
		}

		l.metrics.RecordFileLoaded(id.Partition)
		l.progress(Progress{
			Identity: id,
			Done:     i + 1,
			Total:    total,
			Percent:  float64(i+1) / float64(total) * 100,
		})
	}

	ds.Labels = labels.EncodeAll(lbls)
	return ds, nil
}

func (l *Loader) defaultProgress(p Progress) {
	l.metrics.RecordLoadProgress(p.Identity.Key(), p.Percent)
	l.log.Debug("loading", logger.String("identity", p.Identity.Key()), logger.Int("percent", int(p.Percent)))
}

// Validate checks the dataset invariants: parallel arrays of equal sample size with no NaN.
func Validate(ds *models.Dataset) error {
	if len(ds.Labels) != len(ds.Features) {
		return fmt.Errorf("%w: %d labels for %d samples", models.ErrShapeMismatch, len(ds.Labels), len(ds.Features))
	}
	size := ds.SampleSize()
	for i, row := range ds.Features {
		if len(row) != size {
			return fmt.Errorf("%w: sample %d has %d values, expected %d", models.ErrShapeMismatch, i, len(row), size)
		}
		if err := checkRow(fmt.Sprintf("sample %d", i), ds.Labels[i], row); err != nil {
			return err
		}
	}
	return nil
}

func checkRow(name string, label float32, row []float32) error {
	if math.IsNaN(float64(label)) {
		return fmt.Errorf("%w: label of %s", models.ErrNaN, name)
	}
	for _, v := range row {
		if math.IsNaN(float64(v)) {
			return fmt.Errorf("%w: features of %s", models.ErrNaN, name)
		}
	}
	return nil
}

func listFiles(dir string) ([]fs.FileInfo, error) {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dataset dir: %w", err)
	}
	out := make([]fs.FileInfo, 0, len(dirents))
	for _, d := range dirents {
		if d.IsDir() {
			continue
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", d.Name(), err)
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out, nil
}

// Fingerprint hashes file names, sizes and modification times together with the shaping.
func Fingerprint(entries []fs.FileInfo, shaping Shaping) string {
	parts := make([]string, 0, len(entries)+1)
	parts = append(parts, shaping.String())
	for _, e := range entries {
		parts = append(parts, fmt.Sprintf("%s:%d:%d", e.Name(), e.Size(), e.ModTime().UnixNano()))
	}
	return cache.Digest(parts...)
}

func sameShape(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
