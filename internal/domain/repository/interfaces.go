package repository

import (
	"context"

	"SignalFlow/internal/domain/models"
)

// Store is the persistence gateway for the strategy catalog, the per-ticker
// best-strategy cache, the last-operation table and the subscription table.
// Get methods return (nil, nil) when no row exists.
type Store interface {
	GetBestIndicator(ctx context.Context, ticker string) (*models.BestIndicator, error)
	SaveBestIndicator(ctx context.Context, rec *models.BestIndicator) error

	GetLastOperation(ctx context.Context, ticker string) (*models.OperationRecord, error)
	UpsertLastOperation(ctx context.Context, op *models.OperationRecord) error

	CountCatalogEntries(ctx context.Context) (int, error)
	ListCatalogEntries(ctx context.Context) ([]models.CatalogEntry, error)
	SeedCatalog(ctx context.Context, entries []models.CatalogEntry) error

	GetSubscriptions(ctx context.Context) ([]models.Subscription, error)
	GetUserSubscriptions(ctx context.Context, userID int64) ([]string, error)
	AddSubscription(ctx context.Context, ticker string, userID int64) error
	RemoveSubscription(ctx context.Context, ticker string, userID int64) error
}

// OperationLog is the durable append-only Buy/Sell history.
type OperationLog interface {
	Append(ctx context.Context, op *models.OperationRecord) error
	Latest(ctx context.Context, ticker string) (*models.OperationRecord, error)
}

// Publisher sends outbound messages to the broker.
type Publisher interface {
	PublishTask(ctx context.Context, task models.StrategyTask) error
	PublishReply(ctx context.Context, reply models.TickerReply) error
	PublishNotification(ctx context.Context, reply models.TickerReply) error
	PublishRequest(ctx context.Context, req models.TickerRequest) error
}

// Metrics records engine-level observations.
type Metrics interface {
	RecordRequest(source string)
	RecordRoundStarted()
	RecordRoundCompleted(seconds float64)
	RecordOrphanResponse()
	RecordReply(kind string)
	RecordError(kind string)
	SetOpenRounds(n int)
}
