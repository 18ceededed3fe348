package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	internalrepo "SignalFlow/internal/repository"
	"SignalFlow/internal/usecase"
	"SignalFlow/pkg/clickhouse"
	"SignalFlow/pkg/config"
	xhttp "SignalFlow/pkg/http"
	pkgkafka "SignalFlow/pkg/kafka"
	"SignalFlow/pkg/logger"
	"SignalFlow/pkg/postgres"
)

// App owns the process lifecycle: it starts the consumer, the notification
// scheduler and the operational HTTP server, then blocks until a termination
// signal and shuts everything down in reverse order.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	consumer   *pkgkafka.Consumer
	handlers   []pkgkafka.MessageHandler
	scheduler  *usecase.NotificationScheduler
	httpServer *xhttp.Server
	publisher  *internalrepo.KafkaPublisher
	pgClient   *postgres.Client
	chClient   *clickhouse.Client
}

// New assembles the application from its wired components.
func New(
	cfg *config.Config,
	log *logger.Logger,
	consumer *pkgkafka.Consumer,
	handlers []pkgkafka.MessageHandler,
	scheduler *usecase.NotificationScheduler,
	httpServer *xhttp.Server,
	publisher *internalrepo.KafkaPublisher,
	pgClient *postgres.Client,
	chClient *clickhouse.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		consumer:   consumer,
		handlers:   handlers,
		scheduler:  scheduler,
		httpServer: httpServer,
		publisher:  publisher,
		pgClient:   pgClient,
		chClient:   chClient,
	}
}

// Run starts every component and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	for _, h := range a.handlers {
		a.consumer.RegisterHandler(h)
	}
	if err := a.consumer.Start(); err != nil {
		return err
	}
	if err := a.scheduler.Start(); err != nil {
		return err
	}
	a.httpServer.Start()

	a.log.Info("signal orchestration engine started",
		logger.String("environment", a.cfg.Environment),
		logger.Int("http_port", a.cfg.Server.Port),
		logger.Strings("brokers", a.cfg.Kafka.Brokers))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	a.log.Info("shutdown signal received", logger.String("signal", sig.String()))

	return a.shutdown()
}

// shutdown stops intake first so no message is half-processed, then releases
// outbound and storage resources. Uncommitted offsets are redelivered after
// restart, so stopping mid-round loses nothing.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.scheduler.Stop()
	if err := a.consumer.Stop(ctx); err != nil {
		a.log.Warn("kafka consumer stop", logger.Error(err))
	}
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Warn("http server stop", logger.Error(err))
	}
	if err := a.publisher.Close(); err != nil {
		a.log.Warn("kafka producer close", logger.Error(err))
	}
	if err := a.pgClient.Close(); err != nil {
		a.log.Warn("postgres close", logger.Error(err))
	}
	if err := a.chClient.Close(); err != nil {
		a.log.Warn("clickhouse close", logger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
