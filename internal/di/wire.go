//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/config"
	"github.com/Harqheem/sol-usdt-trader-app-sub002/pkg/server"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRiskStore,
		ProvideHTTPClient,

		// market data
		ProvideMarketCache,
		ProvideStream,
		ProvideHistory,
		ProvideBootstrapper,

		// detection and risk
		ProvideBank,
		ProvideRiskState,
		ProvideGate,

		// dispatch plumbing
		ProvideSignalLog,
		ProvideNotifier,
		ProvideDispatcher,

		// evaluation pipeline
		ProvideEngine,
		ProvideIngestPipeline,
		ProvideCollector,
		ProvideKlinesHandler,

		// surface
		ProvideStatusHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
