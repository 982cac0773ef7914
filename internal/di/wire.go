//go:build wireinject
// +build wireinject

package di

import (
	"FinSage/pkg/config"
	"FinSage/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Market data
		ProvideCacheStore,
		ProvideCalendar,
		ProvideRateLimiter,
		ProvideStream,
		ProvideSources,
		ProvideMarketClient,

		// Retrieval and compliance
		ProvideLexicon,
		ProvideEmbedder,
		ProvideIndex,
		ProvideComplianceEngine,

		// Context cache and audit pipeline
		ProvideContextCache,
		ProvideKafkaProducer,
		ProvideAuditPublisher,
		ProvideClickHouseClient,
		ProvideAuditStorage,
		ProvideKafkaConsumer,
		ProvideKafkaAuditHandler,

		// Use cases
		ProvideOrchestrator,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
