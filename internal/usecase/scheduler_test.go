package usecase

import (
	"context"
	"testing"

	"SignalFlow/internal/domain/models"
	"SignalFlow/pkg/logger"
)

func TestNotificationSweepPublishesPerSubscriber(t *testing.T) {
	store := newFakeStore()
	pub := &fakePublisher{}
	ctx := context.Background()
	_ = store.AddSubscription(ctx, "AAPL", 1)
	_ = store.AddSubscription(ctx, "AAPL", 2)
	_ = store.AddSubscription(ctx, "TSLA", 1)

	s := NewNotificationScheduler(store, pub, logger.Nop())
	s.run()

	if got := len(pub.requests); got != 3 {
		t.Fatalf("published requests = %d, want 3", got)
	}
	for _, req := range pub.requests {
		if req.Source != models.FlagNotification {
			t.Errorf("request source = %q, want %q", req.Source, models.FlagNotification)
		}
		if req.ChatID != nil {
			t.Errorf("scheduler request must carry no chatId, got %v", *req.ChatID)
		}
		if req.UserID == 0 {
			t.Error("scheduler request missing userId")
		}
	}
}

func TestNotificationSweepWithNoSubscriptions(t *testing.T) {
	s := NewNotificationScheduler(newFakeStore(), &fakePublisher{}, logger.Nop())
	s.run()
}
