package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
)

// PostgresStore implements the persistence gateway on PostgreSQL.
type PostgresStore struct {
	db *gorm.DB
}

type catalogEntryRow struct {
	ID        uint   `gorm:"primaryKey"`
	Indicator string `gorm:"size:64;uniqueIndex:idx_catalog_pair"`
	Strategy  string `gorm:"size:64;uniqueIndex:idx_catalog_pair"`
}

func (catalogEntryRow) TableName() string { return "catalog_entries" }

type bestIndicatorRow struct {
	Ticker      string `gorm:"primaryKey;size:16"`
	Indicator   string `gorm:"size:64"`
	Strategy    string `gorm:"size:64"`
	TotalReturn *float64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (bestIndicatorRow) TableName() string { return "best_indicators" }

type lastOperationRow struct {
	Ticker    string `gorm:"primaryKey;size:16"`
	Action    string `gorm:"size:8"`
	Indicator string `gorm:"size:64"`
	Strategy  string `gorm:"size:64"`
	Timestamp time.Time
}

func (lastOperationRow) TableName() string { return "last_operations" }

type subscriptionRow struct {
	ID     uint   `gorm:"primaryKey"`
	Ticker string `gorm:"size:16;uniqueIndex:idx_sub_pair"`
	UserID int64  `gorm:"uniqueIndex:idx_sub_pair"`
}

func (subscriptionRow) TableName() string { return "subscriptions" }

// NewPostgresStore migrates the schema and returns the store.
func NewPostgresStore(db *gorm.DB) (*PostgresStore, error) {
	if err := db.AutoMigrate(
		&catalogEntryRow{},
		&bestIndicatorRow{},
		&lastOperationRow{},
		&subscriptionRow{},
	); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) GetBestIndicator(ctx context.Context, ticker string) (*models.BestIndicator, error) {
	var row bestIndicatorRow
	err := s.db.WithContext(ctx).First(&row, "ticker = ?", ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.BestIndicator{
		Ticker:      row.Ticker,
		Indicator:   row.Indicator,
		Strategy:    row.Strategy,
		TotalReturn: row.TotalReturn,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

func (s *PostgresStore) SaveBestIndicator(ctx context.Context, rec *models.BestIndicator) error {
	row := bestIndicatorRow{
		Ticker:      rec.Ticker,
		Indicator:   rec.Indicator,
		Strategy:    rec.Strategy,
		TotalReturn: rec.TotalReturn,
		CreatedAt:   rec.CreatedAt,
		UpdatedAt:   rec.UpdatedAt,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"indicator", "strategy", "total_return", "updated_at"}),
	}).Create(&row).Error
}

func (s *PostgresStore) GetLastOperation(ctx context.Context, ticker string) (*models.OperationRecord, error) {
	var row lastOperationRow
	err := s.db.WithContext(ctx).First(&row, "ticker = ?", ticker).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.OperationRecord{
		Ticker:    row.Ticker,
		Action:    models.Action(row.Action),
		Indicator: row.Indicator,
		Strategy:  row.Strategy,
		Timestamp: row.Timestamp,
	}, nil
}

func (s *PostgresStore) UpsertLastOperation(ctx context.Context, op *models.OperationRecord) error {
	row := lastOperationRow{
		Ticker:    op.Ticker,
		Action:    string(op.Action),
		Indicator: op.Indicator,
		Strategy:  op.Strategy,
		Timestamp: op.Timestamp,
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "ticker"}},
		DoUpdates: clause.AssignmentColumns([]string{"action", "indicator", "strategy", "timestamp"}),
	}).Create(&row).Error
}

func (s *PostgresStore) CountCatalogEntries(ctx context.Context) (int, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&catalogEntryRow{}).Count(&count).Error
	return int(count), err
}

func (s *PostgresStore) ListCatalogEntries(ctx context.Context) ([]models.CatalogEntry, error) {
	var rows []catalogEntryRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]models.CatalogEntry, len(rows))
	for i, row := range rows {
		out[i] = models.CatalogEntry{Indicator: row.Indicator, Strategy: row.Strategy}
	}
	return out, nil
}

func (s *PostgresStore) SeedCatalog(ctx context.Context, entries []models.CatalogEntry) error {
	rows := make([]catalogEntryRow, len(entries))
	for i, e := range entries {
		rows[i] = catalogEntryRow{Indicator: e.Indicator, Strategy: e.Strategy}
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (s *PostgresStore) GetSubscriptions(ctx context.Context) ([]models.Subscription, error) {
	var rows []subscriptionRow
	if err := s.db.WithContext(ctx).Order("ticker, user_id").Find(&rows).Error; err != nil {
		return nil, err
	}
	var out []models.Subscription
	for _, row := range rows {
		if n := len(out); n > 0 && out[n-1].Ticker == row.Ticker {
			out[n-1].UserIDs = append(out[n-1].UserIDs, row.UserID)
			continue
		}
		out = append(out, models.Subscription{Ticker: row.Ticker, UserIDs: []int64{row.UserID}})
	}
	return out, nil
}

func (s *PostgresStore) GetUserSubscriptions(ctx context.Context, userID int64) ([]string, error) {
	var tickers []string
	err := s.db.WithContext(ctx).
		Model(&subscriptionRow{}).
		Where("user_id = ?", userID).
		Order("ticker").
		Pluck("ticker", &tickers).Error
	return tickers, err
}

func (s *PostgresStore) AddSubscription(ctx context.Context, ticker string, userID int64) error {
	row := subscriptionRow{Ticker: ticker, UserID: userID}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

func (s *PostgresStore) RemoveSubscription(ctx context.Context, ticker string, userID int64) error {
	return s.db.WithContext(ctx).
		Where("ticker = ? AND user_id = ?", ticker, userID).
		Delete(&subscriptionRow{}).Error
}

var _ domrepo.Store = (*PostgresStore)(nil)
