package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
)

// ClickHouseOperationLog is the append-only Buy/Sell history. The log is
// write-heavy and never updated in place, so it lives in ClickHouse instead
// of the relational store.
type ClickHouseOperationLog struct {
	db    *sql.DB
	table string
}

// NewClickHouseOperationLog creates the log repository.
func NewClickHouseOperationLog(db *sql.DB, table string) *ClickHouseOperationLog {
	return &ClickHouseOperationLog{db: db, table: table}
}

// SchemaStatements returns idempotent DDL for the log table.
func SchemaStatements(database, table string) []string {
	return []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			ticker String,
			action String,
			indicator String,
			strategy String,
			ts DateTime64(3)
		) ENGINE = MergeTree ORDER BY (ticker, ts)`, table),
	}
}

func (l *ClickHouseOperationLog) Append(ctx context.Context, op *models.OperationRecord) error {
	q := fmt.Sprintf("INSERT INTO %s (ticker, action, indicator, strategy, ts) VALUES (?, ?, ?, ?, ?)", l.table)
	_, err := l.db.ExecContext(ctx, q,
		op.Ticker,
		string(op.Action),
		op.Indicator,
		op.Strategy,
		op.Timestamp,
	)
	return err
}

func (l *ClickHouseOperationLog) Latest(ctx context.Context, ticker string) (*models.OperationRecord, error) {
	q := fmt.Sprintf("SELECT ticker, action, indicator, strategy, ts FROM %s WHERE ticker = ? ORDER BY ts DESC LIMIT 1", l.table)
	row := l.db.QueryRowContext(ctx, q, ticker)

	var op models.OperationRecord
	var action string
	var ts time.Time
	err := row.Scan(&op.Ticker, &action, &op.Indicator, &op.Strategy, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	op.Action = models.Action(action)
	op.Timestamp = ts
	return &op, nil
}

var _ domrepo.OperationLog = (*ClickHouseOperationLog)(nil)
