package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/cache"
	"SignalFlow/pkg/logger"
)

// countingStore tracks how often the database is hit for best-indicator reads.
type countingStore struct {
	domrepo.Store
	best map[string]*models.BestIndicator
	hits int
}

func (s *countingStore) GetBestIndicator(_ context.Context, ticker string) (*models.BestIndicator, error) {
	s.hits++
	return s.best[ticker], nil
}

func (s *countingStore) SaveBestIndicator(_ context.Context, rec *models.BestIndicator) error {
	s.best[rec.Ticker] = rec
	return nil
}

func newCachedStoreFixture(t *testing.T) (*CachedStore, *countingStore) {
	t.Helper()
	srv := miniredis.RunT(t)
	c, err := cache.NewRedisCache(cache.WithAddr(srv.Addr()))
	if err != nil {
		t.Fatalf("redis cache: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })

	inner := &countingStore{best: map[string]*models.BestIndicator{}}
	return NewCachedStore(inner, c, time.Minute, logger.Nop()), inner
}

func TestCachedStoreReadThrough(t *testing.T) {
	cached, inner := newCachedStoreFixture(t)
	ctx := context.Background()

	ret := 4.2
	inner.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold", TotalReturn: &ret,
	}

	for i := 0; i < 3; i++ {
		rec, err := cached.GetBestIndicator(ctx, "AAPL")
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if rec == nil || rec.Indicator != "RSI" {
			t.Fatalf("read %d = %+v, want RSI record", i, rec)
		}
	}
	if inner.hits != 1 {
		t.Errorf("database hits = %d, want 1 with warm cache", inner.hits)
	}
}

func TestCachedStoreMissIsNotCached(t *testing.T) {
	cached, inner := newCachedStoreFixture(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		rec, err := cached.GetBestIndicator(ctx, "AAPL")
		if err != nil {
			t.Fatalf("read %d: %v", i, err)
		}
		if rec != nil {
			t.Fatalf("read %d = %+v, want nil for unknown ticker", i, rec)
		}
	}
	// Absence is never cached, so a freshly written row is visible at once.
	if inner.hits != 2 {
		t.Errorf("database hits = %d, want 2", inner.hits)
	}
}

func TestCachedStoreSaveInvalidates(t *testing.T) {
	cached, inner := newCachedStoreFixture(t)
	ctx := context.Background()

	inner.best["AAPL"] = &models.BestIndicator{Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold"}
	if _, err := cached.GetBestIndicator(ctx, "AAPL"); err != nil {
		t.Fatalf("warm read: %v", err)
	}

	if err := cached.SaveBestIndicator(ctx, &models.BestIndicator{
		Ticker: "AAPL", Indicator: "MACD", Strategy: "Crossover",
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	rec, err := cached.GetBestIndicator(ctx, "AAPL")
	if err != nil {
		t.Fatalf("read after save: %v", err)
	}
	if rec == nil || rec.Indicator != "MACD" {
		t.Errorf("read after save = %+v, want the new MACD record", rec)
	}
}
