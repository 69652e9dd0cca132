package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	filesLoaded  *prometheus.CounterVec
	loadProgress *prometheus.GaugeVec
	cacheResults *prometheus.CounterVec
	epochLoss    *prometheus.GaugeVec
	epochs       *prometheus.CounterVec
	training     *prometheus.HistogramVec
	prediction   *prometheus.GaugeVec
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a recorder registered on the default Prometheus registry.
func New() *Recorder {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates a recorder registered on reg.
func NewWithRegistry(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)
	return &Recorder{
		filesLoaded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlenet_files_loaded_total",
				Help: "Total number of feature files parsed",
			},
			[]string{"partition"},
		),
		loadProgress: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlenet_load_progress_percent",
				Help: "Progress of the current dataset load",
			},
			[]string{"identity"},
		),
		cacheResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlenet_array_cache_total",
				Help: "Array cache lookups by result",
			},
			[]string{"result"},
		),
		epochLoss: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlenet_epoch_loss",
				Help: "Training loss after the last completed epoch",
			},
			[]string{"variant"},
		),
		epochs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlenet_epochs_total",
				Help: "Total number of completed training epochs",
			},
			[]string{"variant"},
		),
		training: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlenet_training_duration_seconds",
				Help:    "Duration of complete training runs",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
			[]string{"variant"},
		),
		prediction: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "candlenet_last_prediction",
				Help: "Last predicted value per model",
			},
			[]string{"identity"},
		),
		errorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "candlenet_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "candlenet_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

func (r *Recorder) RecordFileLoaded(partition string) {
	r.filesLoaded.WithLabelValues(partition).Inc()
}

func (r *Recorder) RecordLoadProgress(id string, percent float64) {
	r.loadProgress.WithLabelValues(id).Set(percent)
}

// RecordCache counts a cache lookup; result is hit, miss or stale.
func (r *Recorder) RecordCache(result string) {
	r.cacheResults.WithLabelValues(result).Inc()
}

func (r *Recorder) RecordEpoch(variant string, loss float64) {
	r.epochs.WithLabelValues(variant).Inc()
	r.epochLoss.WithLabelValues(variant).Set(loss)
}

func (r *Recorder) RecordTraining(variant string, seconds float64) {
	r.training.WithLabelValues(variant).Observe(seconds)
}

func (r *Recorder) RecordPrediction(id string, value float64) {
	r.prediction.WithLabelValues(id).Set(value)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// Nop discards every measurement.
type Nop struct{}

func (Nop) RecordFileLoaded(string)            {}
func (Nop) RecordLoadProgress(string, float64) {}
func (Nop) RecordCache(string)                 {}
func (Nop) RecordEpoch(string, float64)        {}
func (Nop) RecordTraining(string, float64)     {}
func (Nop) RecordPrediction(string, float64)   {}
func (Nop) RecordError(string)                 {}
func (Nop) RecordLatency(string, float64)      {}
