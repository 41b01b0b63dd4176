//go:build wireinject
// +build wireinject

package di

import (
	"AlphaChart/pkg/config"
	"AlphaChart/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideLogger,
		ProvideMetrics,
		ProvidePayloadCache,
		ProvideClickHouseClient,
		ProvideChartAPIClient,
		ProvideMarketCalendar,

		// Repositories
		ProvideRefreshPublisher,
		ProvideBarSource,
		ProvideMarketStatus,

		// Use cases and transport
		ProvideSessionRegistry,
		ProvideSeriesHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
