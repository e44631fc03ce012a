//go:build wireinject
// +build wireinject

package di

import (
	"CoinScope/pkg/config"
	"CoinScope/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideLogger,
		ProvideMetrics,
		ProvideClickHouseClient,
		ProvidePostgresClient,
		ProvideRedisClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,

		// Repositories
		ProvideTickStore,
		ProvideBarStore,
		ProvideAdviceStore,
		ProvideTickPublisher,
		ProvideTickStream,

		// Analysis and advisory services
		ProvideWindows,
		ProvideScorer,
		ProvideAnalysisService,
		ProvideOpenAIAdvisor,
		ProvideAdvisor,
		ProvideAttentionSelector,
		ProvideMarketData,
		ProvideCacheService,
		ProvideBytesCache,

		// Use cases
		ProvideBarBuilder,
		ProvideTickProcessor,
		ProvideTickCollector,
		ProvideKafkaTicksHandler,
		ProvideAdvisoryUseCase,
		ProvideAttentionUseCase,
		ProvideBarsUseCase,
		ProvideAdviseQueue,
		ProvideLogQueue,

		// HTTP handlers
		ProvideAdvisoryHandler,
		ProvideAnalysisHandler,
		ProvideHealthHandler,
		ProvideRootHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
