//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"SignalFlow/pkg/config"
	"SignalFlow/pkg/server"
)

// InitializeApp wires the full application graph from configuration.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvidePostgresClient,
		ProvideClickHouseClient,
		ProvideStore,
		ProvideOperationLog,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvidePublisher,
		ProvideMetrics,
		ProvidePendingTable,
		ProvideCatalog,
		ProvideFreshnessPolicy,
		ProvideAggregator,
		ProvideRouter,
		ProvideScheduler,
		ProvideHTTPServer,
		ProvideApp,
	)
	return nil, nil
}
