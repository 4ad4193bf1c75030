//go:build wireinject
// +build wireinject

package di

import (
	"DemandCast/pkg/config"
	"DemandCast/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient services
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvidePostgresPool,
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvidePredictionStore,
		ProvideHistoryProvider,
		ProvideForecastEvents,
		ProvideArtifactStore,

		// Model core
		ProvideModelManager,
		ProvideConfidenceEstimator,

		// Use cases
		ProvideForecaster,
		ProvideAccuracyTracker,
		ProvideTrainer,
		ProvideActualsHandler,

		// HTTP
		ProvideBytesCache,
		ProvideForecastHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
