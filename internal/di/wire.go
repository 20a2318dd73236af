//go:build wireinject
// +build wireinject

package di

import (
	"AnalystCouncil/pkg/config"
	"AnalystCouncil/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideRedisCache,
		ProvideQuoteCache,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideHistoryQueue,

		// Repositories
		ProvideHistoryStore,
		ProvideReportPublisher,

		// Model providers
		ProvideModelInvoker,
		ProvideExpertSpecs,

		// Use cases
		ProvideExpertRunner,
		ProvideSynthesizer,
		ProvideHistoryService,
		ProvideReportConsumeHandler,
		ProvideCouncilService,
		ProvideQuoteService,
		ProvideQuoteCollector,

		// HTTP
		ProvideCouncilHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
