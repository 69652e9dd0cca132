package di

import (
	"context"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	domrepo "CandleNet/internal/domain/repository"
	"CandleNet/internal/handler/api"
	internalrepo "CandleNet/internal/repository"
	"CandleNet/internal/service/modelcache"
	"CandleNet/internal/service/ratelimit"
	"CandleNet/internal/services/dataset"
	"CandleNet/internal/services/network"
	"CandleNet/internal/usecase"
	pkgcache "CandleNet/pkg/cache"
	pkgch "CandleNet/pkg/clickhouse"
	"CandleNet/pkg/config"
	xhttp "CandleNet/pkg/http"
	pkgkafka "CandleNet/pkg/kafka"
	applogger "CandleNet/pkg/logger"
	"CandleNet/pkg/metrics"
	"CandleNet/pkg/server"
)

// ProvideLogger builds the application logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics(cfg *config.Config) domrepo.Metrics {
	if !cfg.Metrics.Enabled {
		return metrics.Nop{}
	}
	return metrics.New()
}

// ProvideArrayCache selects the array cache backend; nil when caching is off.
func ProvideArrayCache(ctx context.Context, cfg *config.Config) (domrepo.ArrayCache, func(), error) {
	if !cfg.Cache.Enabled {
		return nil, func() {}, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		rc, err := pkgcache.NewRedisCache(ctx,
			pkgcache.WithRedisURL(cfg.Redis.URL),
			pkgcache.WithRedisAddr(cfg.Redis.Addr),
			pkgcache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			pkgcache.WithRedisTimeouts(cfg.Redis.DialTimeout, 0),
			pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis cache: %w", err)
		}
		return internalrepo.NewKVArrayCache(rc, cfg.Cache.TTL), func() { _ = rc.Close() }, nil
	case "memory":
		return internalrepo.NewKVArrayCache(pkgcache.NewMemoryCache(), cfg.Cache.TTL), func() {}, nil
	default:
		return internalrepo.NewFileArrayCache(cfg.Cache.Dir), func() {}, nil
	}
}

func ProvideDatasetLoader(cfg *config.Config, cache domrepo.ArrayCache, m domrepo.Metrics, l *applogger.Logger) *dataset.Loader {
	opts := []dataset.Option{dataset.WithMetrics(m), dataset.WithLogger(l.Named("dataset"))}
	if cache != nil {
		opts = append(opts, dataset.WithCache(cache, cfg.Cache.Validate))
	}
	return dataset.NewLoader(cfg.Dataset.Root, cfg.Dataset.Layout, cfg.Dataset.Split, opts...)
}

func ProvideNetworkFactory() *network.Factory {
	return network.NewFactory()
}

func ProvideModelStore(cfg *config.Config) *network.Store {
	return network.NewStore(cfg.Models.Root)
}

// ProvideProfiles resolves profiles from the training section.
func ProvideProfiles(cfg *config.Config) usecase.ProfileResolver {
	return func(name string) (network.Profile, error) {
		return network.FromConfig(cfg, name)
	}
}

// ProvideRunStore opens the SQLite run registry; nil when disabled.
func ProvideRunStore(ctx context.Context, cfg *config.Config) (*internalrepo.SQLiteRunStore, func(), error) {
	if !cfg.Runs.Enabled {
		return nil, func() {}, nil
	}
	rs, err := internalrepo.NewSQLiteRunStore(cfg.Runs.Path)
	if err != nil {
		return nil, nil, err
	}
	if err := rs.Init(ctx); err != nil {
		_ = rs.Close()
		return nil, nil, err
	}
	return rs, func() { _ = rs.Close() }, nil
}

func ProvideTrainingDriver(
	cfg *config.Config,
	loader *dataset.Loader,
	factory *network.Factory,
	store *network.Store,
	runs *internalrepo.SQLiteRunStore,
	m domrepo.Metrics,
	profiles usecase.ProfileResolver,
	l *applogger.Logger,
) *usecase.TrainingDriver {
	var rs domrepo.RunStore
	if runs != nil {
		rs = runs
	}
	d := usecase.NewTrainingDriver(loader, factory, store, rs, m, profiles, l.Named("train"))
	if cfg.Dataset.EvalSplit != "" {
		// uncached: the array cache is keyed by identity, not split
		eval := dataset.NewLoader(cfg.Dataset.Root, cfg.Dataset.Layout, cfg.Dataset.EvalSplit,
			dataset.WithMetrics(m), dataset.WithLogger(l.Named("eval")))
		d.WithEvaluation(eval)
	}
	return d
}

// ProvidePredictionPublisher publishes to Kafka when enabled.
func ProvidePredictionPublisher(cfg *config.Config) (domrepo.PredictionPublisher, func(), error) {
	if !cfg.Kafka.Enabled {
		return internalrepo.NopPublisher{}, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(cfg.Kafka.Topic,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithClientID(cfg.Kafka.ClientID),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithDelivery(cfg.Kafka.Producer.MaxAttempts, cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	pub := internalrepo.NewKafkaPredictionPublisher(producer)
	return pub, func() { _ = pub.Close() }, nil
}

// ProvidePredictor serves the predict command, reading models straight from disk.
func ProvidePredictor(cfg *config.Config, store *network.Store, pub domrepo.PredictionPublisher, m domrepo.Metrics, l *applogger.Logger) *usecase.Predictor {
	return usecase.NewPredictor(store, pub, m, l, cfg.Prediction.Output, os.Stdout)
}

func ProvideModelCache(cfg *config.Config, store *network.Store, l *applogger.Logger) (*modelcache.Cache, func(), error) {
	c, err := modelcache.New(store, cfg.Server.ModelCacheSize, l.Named("modelcache"))
	if err != nil {
		return nil, nil, err
	}
	return c, func() { _ = c.Close() }, nil
}

// ProvidePredictHandler serves HTTP predictions from the model cache; it writes no prediction file.
func ProvidePredictHandler(cache *modelcache.Cache, pub domrepo.PredictionPublisher, m domrepo.Metrics, l *applogger.Logger) *api.PredictEchoHandler {
	p := usecase.NewPredictor(cache, pub, m, l, "", nil)
	return api.NewPredictEchoHandler(l, p)
}

func ProvideClickHouseClient(ctx context.Context, cfg *config.Config) (*pkgch.Client, func(), error) {
	client, err := pkgch.NewClient(ctx,
		pkgch.WithAddrs(net.JoinHostPort(cfg.ClickHouse.Host, strconv.Itoa(cfg.ClickHouse.Port))),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithPool(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, func() { _ = client.Close() }, nil
}

// ProvideCandleStore creates the candle table when missing.
func ProvideCandleStore(ctx context.Context, ch *pkgch.Client, cfg *config.Config, l *applogger.Logger) (*internalrepo.CHCandleStore, error) {
	store := internalrepo.NewCHCandleStore(ch, cfg.ClickHouse.Table)
	store.SetLogger(l.Named("candles"))
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func ProvideExporter(cfg *config.Config, candles *internalrepo.CHCandleStore, m domrepo.Metrics, l *applogger.Logger) (*usecase.Exporter, error) {
	settings, err := usecase.NewExportSettings(cfg)
	if err != nil {
		return nil, err
	}
	return usecase.NewExporter(candles, cfg.Dataset.Root, cfg.Dataset.Layout, settings, m, l.Named("export")), nil
}

// ProvideLivePredictor predicts from the latest interval frame.
func ProvideLivePredictor(exporter *usecase.Exporter, predictor *usecase.Predictor, l *applogger.Logger) *usecase.LivePredictor {
	return usecase.NewLivePredictor(exporter, predictor, l.Named("live"))
}

// ProvideHTTPClient is the upstream REST client for the ingest section.
func ProvideHTTPClient(cfg *config.Config) *xhttp.Client {
	return xhttp.NewClient(
		xhttp.WithBaseURL(cfg.Ingest.BaseURL),
		xhttp.WithTimeout(cfg.Ingest.Timeout),
	)
}

func ProvideCandleSource(cfg *config.Config, client *xhttp.Client, l *applogger.Logger) *internalrepo.BinanceCandleSource {
	return internalrepo.NewBinanceCandleSource(client, cfg.Ingest.PageLimit, l.Named("binance"))
}

func ProvideIngester(
	cfg *config.Config,
	source *internalrepo.BinanceCandleSource,
	sink *internalrepo.CHCandleStore,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.Ingester {
	history := time.Duration(cfg.Ingest.HistoryDays) * 24 * time.Hour
	return usecase.NewIngester(source, sink, history, cfg.Ingest.BatchSize, m, l.Named("ingest"))
}

func ProvideRunsHandler(runs *internalrepo.SQLiteRunStore, l *applogger.Logger) *api.RunsEchoHandler {
	if runs == nil {
		return nil
	}
	return api.NewRunsEchoHandler(l, runs)
}

func ProvideHTTPServer(
	cfg *config.Config,
	l *applogger.Logger,
	predict *api.PredictEchoHandler,
	runs *api.RunsEchoHandler,
	rs *internalrepo.SQLiteRunStore,
) *xhttp.Server {
	handlers := xhttp.Handlers{predict}
	if runs != nil {
		handlers = append(handlers, runs)
	}
	opts := []xhttp.ServerOption{
		xhttp.WithLogger(l),
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetricsPath(cfg.Metrics.Path))
	} else {
		opts = append(opts, xhttp.WithMetricsPath(""))
	}
	if cfg.Server.RateLimit.Enabled {
		opts = append(opts, xhttp.WithRateLimit(ratelimit.New(cfg.Server.RateLimit.Burst, cfg.Server.RateLimit.PerSecond)))
	}
	if rs != nil {
		opts = append(opts, xhttp.WithHealthCheck("runs", rs.Ping))
	}
	return xhttp.NewServer(handlers, opts...)
}

// ProvideApp creates the application server with the model watcher as a worker.
func ProvideApp(l *applogger.Logger, srv *xhttp.Server, cache *modelcache.Cache) *server.App {
	app := server.New(l, srv)
	app.AddWorker(cache)
	return app
}
