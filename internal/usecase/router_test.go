package usecase

import (
	"context"
	"testing"
	"time"

	"SignalFlow/internal/domain/models"
	"SignalFlow/pkg/logger"
)

type routerFixture struct {
	router  *Router
	store   *fakeStore
	oplog   *fakeOplog
	pub     *fakePublisher
	pending *PendingTable
	metrics *fakeMetrics
	now     time.Time
}

// newRouterFixture pins the clock to a Tuesday noon UTC and runs the policy
// in UTC so market-hours checks are deterministic.
func newRouterFixture(t *testing.T) *routerFixture {
	t.Helper()
	f := &routerFixture{
		store:   newFakeStore(),
		oplog:   newFakeOplog(),
		pub:     &fakePublisher{},
		pending: NewPendingTable(),
		metrics: newFakeMetrics(),
		now:     time.Date(2024, 6, 11, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }
	agg, err := NewAggregator(testCatalog(), f.store, f.oplog, f.pub, f.pending, f.metrics, logger.Nop(), clock)
	if err != nil {
		t.Fatalf("NewAggregator: %v", err)
	}
	policy := NewFreshnessPolicy(f.store, time.UTC, clock)
	f.router = NewRouter(f.store, f.oplog, policy, agg, f.pending, f.pub, f.metrics, logger.Nop())
	return f
}

func simpleRequest(ticker string, chatID int64) models.TickerRequest {
	return models.TickerRequest{Ticker: ticker, ChatID: &chatID, Source: models.FlagSimple}
}

func TestUnknownTickerStartsFullBacktest(t *testing.T) {
	f := newRouterFixture(t)

	if err := f.router.HandleIncomingRequest(context.Background(), simpleRequest("AAPL", 5)); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if got := len(f.pub.tasks); got != 3 {
		t.Fatalf("fan-out tasks = %d, want 3", got)
	}
	if f.pending.Len() != 1 {
		t.Errorf("pending = %d, want 1", f.pending.Len())
	}
	if f.metrics.requests["simple"] != 1 {
		t.Errorf("request metric = %d, want 1", f.metrics.requests["simple"])
	}
}

func TestStaleBestIndicatorStartsFullBacktest(t *testing.T) {
	f := newRouterFixture(t)
	f.store.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold",
		UpdatedAt: f.now.Add(-15 * 24 * time.Hour),
	}

	if err := f.router.HandleIncomingRequest(context.Background(), simpleRequest("AAPL", 5)); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if got := len(f.pub.tasks); got != 3 {
		t.Fatalf("fan-out tasks = %d, want 3", got)
	}
}

func TestConcurrentRequestsJoinOneRound(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	for i := int64(1); i <= 3; i++ {
		if err := f.router.HandleIncomingRequest(ctx, simpleRequest("AAPL", i)); err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
	}
	if got := len(f.pub.tasks); got != 3 {
		t.Fatalf("tasks = %d, want one fan-out of 3", got)
	}
	if f.pending.Len() != 3 {
		t.Errorf("pending = %d, want 3", f.pending.Len())
	}
	if f.metrics.roundsStarted != 1 {
		t.Errorf("rounds started = %d, want 1", f.metrics.roundsStarted)
	}
}

func TestFreshRecordAnswersFromLastOperation(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.store.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold",
		TotalReturn: ptr(7), UpdatedAt: f.now.Add(-24 * time.Hour),
	}
	f.store.lastOps["AAPL"] = &models.OperationRecord{
		Ticker: "AAPL", Action: models.ActionBuy, Indicator: "RSI", Strategy: "Oversold",
		Timestamp: f.now.Add(-2 * time.Hour),
	}
	f.oplog.latest["AAPL"] = &models.OperationRecord{Ticker: "AAPL", Action: models.ActionBuy}

	if err := f.router.HandleIncomingRequest(ctx, simpleRequest("AAPL", 5)); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if len(f.pub.tasks) != 0 {
		t.Fatalf("tasks = %d, want 0 for cached answer", len(f.pub.tasks))
	}
	if got := len(f.pub.replies); got != 1 {
		t.Fatalf("replies = %d, want 1", got)
	}
	reply := f.pub.replies[0]
	if reply.ChatID != 5 {
		t.Errorf("reply destination = %d, want 5", reply.ChatID)
	}
	if len(reply.Signals) != 1 || reply.Signals[0].Value != models.SignalBuy {
		t.Errorf("reply signals = %+v, want single Buy", reply.Signals)
	}
	if reply.TotalReturn == nil || *reply.TotalReturn != 7 {
		t.Errorf("reply total return = %v, want 7", reply.TotalReturn)
	}
	if f.metrics.replies["cached"] != 1 {
		t.Errorf("cached replies = %d, want 1", f.metrics.replies["cached"])
	}
}

func TestEmptyOperationLogAnswersHold(t *testing.T) {
	f := newRouterFixture(t)

	f.store.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold", UpdatedAt: f.now.Add(-time.Hour),
	}
	f.store.lastOps["AAPL"] = &models.OperationRecord{
		Ticker: "AAPL", Action: models.ActionHold, Indicator: "RSI", Strategy: "Oversold",
		Timestamp: f.now.Add(-2 * time.Hour),
	}

	if err := f.router.HandleIncomingRequest(context.Background(), simpleRequest("AAPL", 5)); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if got := len(f.pub.replies); got != 1 {
		t.Fatalf("replies = %d, want 1", got)
	}
	if f.pub.replies[0].Signals[0].Value != models.SignalHold {
		t.Errorf("signal = %d, want Hold", f.pub.replies[0].Signals[0].Value)
	}
}

func TestMissingLastOperationTriggersSingleRefresh(t *testing.T) {
	f := newRouterFixture(t)
	ctx := context.Background()

	f.store.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "MACD", Strategy: "Crossover", UpdatedAt: f.now.Add(-time.Hour),
	}

	if err := f.router.HandleIncomingRequest(ctx, simpleRequest("AAPL", 5)); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if got := len(f.pub.tasks); got != 1 {
		t.Fatalf("tasks = %d, want 1 single refresh", got)
	}
	task := f.pub.tasks[0]
	if task.Indicator != "MACD" || task.Strategy != "Crossover" {
		t.Errorf("refresh task = %s/%s, want MACD/Crossover", task.Indicator, task.Strategy)
	}
	if task.Flag != models.FlagSimple {
		t.Errorf("refresh flag = %q, want %q", task.Flag, models.FlagSimple)
	}
	if f.pending.Len() != 1 {
		t.Errorf("pending = %d, want 1", f.pending.Len())
	}

	// A second caller piggybacks on the in-flight refresh.
	if err := f.router.HandleIncomingRequest(ctx, simpleRequest("AAPL", 6)); err != nil {
		t.Fatalf("second request: %v", err)
	}
	if got := len(f.pub.tasks); got != 1 {
		t.Errorf("tasks after second request = %d, want still 1", got)
	}
	if f.pending.Len() != 2 {
		t.Errorf("pending after second request = %d, want 2", f.pending.Len())
	}
}

func TestNotificationRequestRepliesOnNotificationQueue(t *testing.T) {
	f := newRouterFixture(t)

	f.store.best["AAPL"] = &models.BestIndicator{
		Ticker: "AAPL", Indicator: "RSI", Strategy: "Oversold", UpdatedAt: f.now.Add(-time.Hour),
	}
	f.store.lastOps["AAPL"] = &models.OperationRecord{
		Ticker: "AAPL", Action: models.ActionSell, Indicator: "RSI", Strategy: "Oversold",
		Timestamp: f.now.Add(-time.Hour),
	}
	f.oplog.latest["AAPL"] = &models.OperationRecord{Ticker: "AAPL", Action: models.ActionSell}

	req := models.TickerRequest{Ticker: "AAPL", UserID: 77, Source: models.FlagNotification}
	if err := f.router.HandleIncomingRequest(context.Background(), req); err != nil {
		t.Fatalf("HandleIncomingRequest: %v", err)
	}
	if len(f.pub.replies) != 0 {
		t.Errorf("chat replies = %d, want 0", len(f.pub.replies))
	}
	if got := len(f.pub.notifications); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}
	if f.pub.notifications[0].ChatID != 77 {
		t.Errorf("notification destination = %d, want 77", f.pub.notifications[0].ChatID)
	}
}
