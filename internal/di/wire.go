//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"CandleNet/internal/usecase"
	"CandleNet/pkg/config"
	applogger "CandleNet/pkg/logger"
	"CandleNet/pkg/server"
)

// InitializeTrainer wires the build command.
func InitializeTrainer(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*usecase.TrainingDriver, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideArrayCache,
		ProvideDatasetLoader,
		ProvideNetworkFactory,
		ProvideModelStore,
		ProvideRunStore,
		ProvideProfiles,
		ProvideTrainingDriver,
	)
	return nil, nil, nil
}

// InitializePredictor wires the predict command.
func InitializePredictor(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*usecase.Predictor, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideModelStore,
		ProvidePredictionPublisher,
		ProvidePredictor,
	)
	return nil, nil, nil
}

// InitializeExporter wires the export command.
func InitializeExporter(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*usecase.Exporter, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCandleStore,
		ProvideExporter,
	)
	return nil, nil, nil
}

// InitializeLivePredictor wires predict -now.
func InitializeLivePredictor(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*usecase.LivePredictor, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvideCandleStore,
		ProvideExporter,
		ProvideModelStore,
		ProvidePredictionPublisher,
		ProvidePredictor,
		ProvideLivePredictor,
	)
	return nil, nil, nil
}

// InitializeIngester wires the ingest command.
func InitializeIngester(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*usecase.Ingester, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideHTTPClient,
		ProvideCandleSource,
		ProvideClickHouseClient,
		ProvideCandleStore,
		ProvideIngester,
	)
	return nil, nil, nil
}

// InitializeApp wires the HTTP server.
func InitializeApp(ctx context.Context, cfg *config.Config, l *applogger.Logger) (*server.App, func(), error) {
	wire.Build(
		ProvideMetrics,
		ProvideModelStore,
		ProvideModelCache,
		ProvidePredictionPublisher,
		ProvidePredictHandler,
		ProvideRunStore,
		ProvideRunsHandler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil, nil
}
