package repository

import (
	"context"
	"errors"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/cache"
	"SignalFlow/pkg/logger"
)

// CachedStore is a read-through cache over the best-indicator lookup, which
// runs on every inbound request. All other gateway operations pass through.
// Cache failures degrade to the database and never fail a request.
type CachedStore struct {
	domrepo.Store
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

// NewCachedStore wraps store with a best-indicator cache.
func NewCachedStore(store domrepo.Store, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedStore {
	return &CachedStore{Store: store, cache: c, ttl: ttl, log: log}
}

func bestIndicatorKey(ticker string) string {
	return "best_indicator:" + ticker
}

func (s *CachedStore) GetBestIndicator(ctx context.Context, ticker string) (*models.BestIndicator, error) {
	var cached models.BestIndicator
	err := s.cache.Get(ctx, bestIndicatorKey(ticker), &cached)
	if err == nil {
		return &cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn("best indicator cache read failed", logger.String("ticker", ticker), logger.Error(err))
	}

	rec, err := s.Store.GetBestIndicator(ctx, ticker)
	if err != nil || rec == nil {
		return rec, err
	}
	if err := s.cache.Set(ctx, bestIndicatorKey(ticker), rec, s.ttl); err != nil {
		s.log.Warn("best indicator cache write failed", logger.String("ticker", ticker), logger.Error(err))
	}
	return rec, nil
}

func (s *CachedStore) SaveBestIndicator(ctx context.Context, rec *models.BestIndicator) error {
	if err := s.Store.SaveBestIndicator(ctx, rec); err != nil {
		return err
	}
	// Invalidate rather than write-through: the next read repopulates with
	// whatever the database holds.
	if err := s.cache.Delete(ctx, bestIndicatorKey(rec.Ticker)); err != nil {
		s.log.Warn("best indicator cache invalidation failed", logger.String("ticker", rec.Ticker), logger.Error(err))
	}
	return nil
}

var _ domrepo.Store = (*CachedStore)(nil)
