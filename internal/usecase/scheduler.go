package usecase

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/logger"
	"SignalFlow/pkg/util"
)

// NotificationScheduler fires once per trading day at market open and pushes
// one notification-mode request per (ticker, subscriber) pair into the same
// request queue user requests arrive on. It holds no aggregation state.
type NotificationScheduler struct {
	store domrepo.Store
	pub   domrepo.Publisher
	log   *logger.Logger
	cron  *cron.Cron
}

// NewNotificationScheduler creates the scheduler in the exchange timezone.
func NewNotificationScheduler(store domrepo.Store, pub domrepo.Publisher, log *logger.Logger) *NotificationScheduler {
	return &NotificationScheduler{
		store: store,
		pub:   pub,
		log:   log,
		cron:  cron.New(cron.WithLocation(util.MarketLocation())),
	}
}

// Start registers the market-open job and starts the cron loop.
func (s *NotificationScheduler) Start() error {
	if _, err := s.cron.AddFunc("30 9 * * MON-FRI", s.run); err != nil {
		return err
	}
	s.cron.Start()
	s.log.Info("notification scheduler started")
	return nil
}

// Stop stops the cron loop, waiting for a running job to finish.
func (s *NotificationScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *NotificationScheduler) run() {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
	defer cancel()

	subs, err := s.store.GetSubscriptions(ctx)
	if err != nil {
		s.log.Error("subscription sweep failed", logger.Error(err))
		return
	}

	sent := 0
	for _, sub := range subs {
		for _, userID := range sub.UserIDs {
			req := models.TickerRequest{
				Ticker: sub.Ticker,
				UserID: userID,
				Source: models.FlagNotification,
			}
			if err := s.pub.PublishRequest(ctx, req); err != nil {
				s.log.Error("notification request publish failed",
					logger.String("ticker", sub.Ticker),
					logger.Int64("user_id", userID),
					logger.Error(err))
				continue
			}
			sent++
		}
	}
	s.log.Info("notification sweep done", logger.Int("tickers", len(subs)), logger.Int("requests", sent))
}
