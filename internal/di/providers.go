package di

import (
	"context"
	"fmt"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	internalrepo "SignalFlow/internal/repository"
	"SignalFlow/internal/usecase"
	"SignalFlow/pkg/cache"
	pkgch "SignalFlow/pkg/clickhouse"
	"SignalFlow/pkg/config"
	xhttp "SignalFlow/pkg/http"
	pkgkafka "SignalFlow/pkg/kafka"
	"SignalFlow/pkg/logger"
	"SignalFlow/pkg/metrics"
	"SignalFlow/pkg/postgres"
	"SignalFlow/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
}

// ProvidePostgresClient creates the relational store client.
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, error) {
	client, err := postgres.NewClient(
		postgres.WithHost(cfg.Postgres.Host, cfg.Postgres.Port),
		postgres.WithDatabase(cfg.Postgres.Database),
		postgres.WithCredentials(cfg.Postgres.User, cfg.Postgres.Password),
		postgres.WithSSLMode(cfg.Postgres.SSLMode),
	)
	if err != nil {
		return nil, fmt.Errorf("postgres client: %w", err)
	}
	return client, nil
}

// ProvideClickHouseClient creates the operation-log client and ensures the
// schema exists.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host, cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithDialTimeout(cfg.ClickHouse.DialTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stmts := internalrepo.SchemaStatements(cfg.ClickHouse.Database, operationLogTable(cfg))
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

func operationLogTable(cfg *config.Config) string {
	return cfg.ClickHouse.Database + ".operation_log"
}

// ProvideStore builds the persistence gateway: the PostgreSQL store, seeded
// with the default strategy catalog on first start, optionally wrapped in a
// Redis read-through cache.
func ProvideStore(pg *postgres.Client, cfg *config.Config, log *logger.Logger) (domrepo.Store, error) {
	store, err := internalrepo.NewPostgresStore(pg.DB())
	if err != nil {
		return nil, fmt.Errorf("postgres store: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	count, err := store.CountCatalogEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("count catalog: %w", err)
	}
	if count == 0 {
		log.Info("seeding strategy catalog")
		if err := store.SeedCatalog(ctx, models.DefaultCatalog()); err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
	}

	if !cfg.Redis.Enabled {
		return store, nil
	}
	redisCache, err := cache.NewRedisCache(
		cache.WithAddr(cfg.Redis.Addr),
		cache.WithPassword(cfg.Redis.Password),
		cache.WithDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return internalrepo.NewCachedStore(store, redisCache, cfg.Redis.TTL, log), nil
}

// ProvideOperationLog creates the ClickHouse operation log repository.
func ProvideOperationLog(ch *pkgch.Client, cfg *config.Config) domrepo.OperationLog {
	return internalrepo.NewClickHouseOperationLog(ch.DB(), operationLogTable(cfg))
}

// ProvideKafkaProducer creates the shared Kafka producer.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideKafkaConsumer creates the Kafka consumer.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvidePublisher creates the outbound message publisher.
func ProvidePublisher(producer *pkgkafka.Producer, cfg *config.Config) *internalrepo.KafkaPublisher {
	return internalrepo.NewKafkaPublisher(producer, internalrepo.Topics{
		Requests:      cfg.Kafka.Topics.Requests,
		Tasks:         cfg.Kafka.Topics.Tasks,
		Responses:     cfg.Kafka.Topics.Responses,
		Notifications: cfg.Kafka.Topics.Notifications,
	})
}

// ProvideMetrics creates the Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvidePendingTable creates the waiter registry.
func ProvidePendingTable() *usecase.PendingTable {
	return usecase.NewPendingTable()
}

// ProvideCatalog loads the strategy catalog once. The catalog is immutable
// for the process lifetime; its size is the completion oracle for every
// backtest round.
func ProvideCatalog(store domrepo.Store) ([]models.CatalogEntry, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	catalog, err := store.ListCatalogEntries(ctx)
	if err != nil {
		return nil, fmt.Errorf("list catalog: %w", err)
	}
	if len(catalog) == 0 {
		return nil, fmt.Errorf("strategy catalog is empty")
	}
	return catalog, nil
}

// ProvideFreshnessPolicy creates the reuse policy on the wall clock.
func ProvideFreshnessPolicy(store domrepo.Store) *usecase.FreshnessPolicy {
	return usecase.NewFreshnessPolicy(store, nil, nil)
}

// ProvideAggregator creates the response aggregator.
func ProvideAggregator(
	catalog []models.CatalogEntry,
	store domrepo.Store,
	oplog domrepo.OperationLog,
	pub *internalrepo.KafkaPublisher,
	pending *usecase.PendingTable,
	m domrepo.Metrics,
	log *logger.Logger,
) (*usecase.Aggregator, error) {
	return usecase.NewAggregator(catalog, store, oplog, pub, pending, m, log, nil)
}

// ProvideRouter creates the request router.
func ProvideRouter(
	store domrepo.Store,
	oplog domrepo.OperationLog,
	policy *usecase.FreshnessPolicy,
	agg *usecase.Aggregator,
	pending *usecase.PendingTable,
	pub *internalrepo.KafkaPublisher,
	m domrepo.Metrics,
	log *logger.Logger,
) *usecase.Router {
	return usecase.NewRouter(store, oplog, policy, agg, pending, pub, m, log)
}

// ProvideScheduler creates the daily notification sweep.
func ProvideScheduler(store domrepo.Store, pub *internalrepo.KafkaPublisher, log *logger.Logger) *usecase.NotificationScheduler {
	return usecase.NewNotificationScheduler(store, pub, log)
}

// ProvideHTTPServer creates the metrics/health server.
func ProvideHTTPServer(cfg *config.Config, pg *postgres.Client, ch *pkgch.Client) *xhttp.Server {
	return xhttp.NewServer(
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		xhttp.WithHealthCheck("postgres", pg.Health),
		xhttp.WithHealthCheck("clickhouse", ch.Health),
	)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	consumer *pkgkafka.Consumer,
	router *usecase.Router,
	agg *usecase.Aggregator,
	store domrepo.Store,
	m domrepo.Metrics,
	scheduler *usecase.NotificationScheduler,
	httpServer *xhttp.Server,
	pub *internalrepo.KafkaPublisher,
	pg *postgres.Client,
	ch *pkgch.Client,
) *server.App {
	handlers := []pkgkafka.MessageHandler{
		usecase.NewRequestHandler(cfg.Kafka.Topics.Requests, router, m, log),
		usecase.NewResultHandler(cfg.Kafka.Topics.Results, agg, m, log),
		usecase.NewSubscriptionHandler(cfg.Kafka.Topics.Subscriptions, store, m, log),
	}
	return server.New(cfg, log, consumer, handlers, scheduler, httpServer, pub, pg, ch)
}
