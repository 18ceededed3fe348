package usecase

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/logger"
)

// bucket collects the worker responses of one open backtest round.
type bucket struct {
	startedAt time.Time
	// expected is snapshotted at round start; the completion check never
	// re-reads the catalog.
	expected int
	received []models.StrategyResult
	// closing marks a completion in flight so a second qualifying response
	// cannot run it concurrently. Cleared again if completion fails.
	closing bool
}

// Aggregator owns the ticker → bucket map and the full fan-out/fan-in cycle:
// it opens rounds, absorbs worker responses, selects the winner, persists it
// and answers every registered waiter. The bucket-existence check is the
// single source of truth for "is a round already running"; at most one bucket
// exists per ticker.
type Aggregator struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	catalog []models.CatalogEntry
	known   map[models.CatalogEntry]struct{}

	store   domrepo.Store
	oplog   domrepo.OperationLog
	pub     domrepo.Publisher
	pending *PendingTable
	metrics domrepo.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// NewAggregator creates the aggregator over a fixed catalog. An empty catalog
// makes completion undetectable and is rejected.
func NewAggregator(
	catalog []models.CatalogEntry,
	store domrepo.Store,
	oplog domrepo.OperationLog,
	pub domrepo.Publisher,
	pending *PendingTable,
	metrics domrepo.Metrics,
	log *logger.Logger,
	now func() time.Time,
) (*Aggregator, error) {
	if len(catalog) == 0 {
		return nil, fmt.Errorf("strategy catalog is empty")
	}
	if now == nil {
		now = time.Now
	}
	known := make(map[models.CatalogEntry]struct{}, len(catalog))
	for _, e := range catalog {
		known[e] = struct{}{}
	}
	return &Aggregator{
		buckets: make(map[string]*bucket),
		catalog: catalog,
		known:   known,
		store:   store,
		oplog:   oplog,
		pub:     pub,
		pending: pending,
		metrics: metrics,
		log:     log,
		now:     now,
	}, nil
}

// CatalogSize returns the number of strategy candidates.
func (a *Aggregator) CatalogSize() int {
	return len(a.catalog)
}

// OpenRounds returns the number of buckets currently awaiting responses.
func (a *Aggregator) OpenRounds() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.buckets)
}

// StartOrJoin opens a full-catalog backtest round for ticker unless one is
// already running. Only a newly created bucket triggers the fan-out, so work
// is emitted exactly once per round regardless of how many callers pile on.
func (a *Aggregator) StartOrJoin(ctx context.Context, ticker string, chatID int64) error {
	a.mu.Lock()
	if _, ok := a.buckets[ticker]; ok {
		a.mu.Unlock()
		a.log.Debug("round already open, joining", logger.String("ticker", ticker))
		return nil
	}
	a.buckets[ticker] = &bucket{startedAt: a.now(), expected: len(a.catalog)}
	open := len(a.buckets)
	a.mu.Unlock()

	a.metrics.RecordRoundStarted()
	a.metrics.SetOpenRounds(open)
	a.log.Info("backtest round started",
		logger.String("ticker", ticker),
		logger.Int("candidates", len(a.catalog)))

	for _, entry := range a.catalog {
		task := models.StrategyTask{
			Ticker:    ticker,
			Indicator: entry.Indicator,
			Strategy:  entry.Strategy,
			Flag:      models.FlagBacktest,
			ChatID:    chatID,
		}
		if err := a.pub.PublishTask(ctx, task); err != nil {
			a.metrics.RecordError("publish_task")
			// A partial fan-out can never fill the bucket. Drop it so the
			// redelivered request restarts the round instead of joining one
			// that will starve its waiters.
			a.mu.Lock()
			delete(a.buckets, ticker)
			open = len(a.buckets)
			a.mu.Unlock()
			a.metrics.SetOpenRounds(open)
			return fmt.Errorf("publish task %s/%s: %w", entry.Indicator, entry.Strategy, err)
		}
	}
	return nil
}

// HandleResult routes a worker response: backtest responses feed the round's
// bucket, simple and notification responses are recorded and answered
// immediately.
func (a *Aggregator) HandleResult(ctx context.Context, res models.StrategyResult) error {
	pair := models.CatalogEntry{Indicator: res.Indicator, Strategy: res.Strategy}
	if _, ok := a.known[pair]; !ok {
		a.metrics.RecordError("unknown_candidate")
		a.log.Warn("response for unknown catalog pair, discarding",
			logger.String("ticker", res.Ticker),
			logger.String("indicator", res.Indicator),
			logger.String("strategy", res.Strategy))
		return nil
	}

	if res.Flag == models.FlagBacktest {
		return a.aggregate(ctx, res)
	}
	return a.replyDirect(ctx, res)
}

func (a *Aggregator) aggregate(ctx context.Context, res models.StrategyResult) error {
	a.mu.Lock()
	b, ok := a.buckets[res.Ticker]
	if !ok {
		a.mu.Unlock()
		// Late answer for a closed round, or a redelivered response after the
		// round completed. Never reopens a bucket.
		a.metrics.RecordOrphanResponse()
		a.log.Warn("orphan response, discarding", logger.String("ticker", res.Ticker))
		return nil
	}
	b.received = append(b.received, res)
	received, expected := len(b.received), b.expected
	startedAt := b.startedAt
	a.mu.Unlock()

	a.log.Debug("aggregating responses",
		logger.String("ticker", res.Ticker),
		logger.Int("received", received),
		logger.Int("expected", expected),
		logger.Duration("round_age", a.now().Sub(startedAt)))

	if received < expected {
		return nil
	}
	return a.complete(ctx, res.Ticker)
}

// complete closes the round: persists the winner, records its signal history,
// answers all waiters and destroys the bucket. On error the bucket survives
// so the redelivered message drives completion again; every write below is an
// upsert or an at-least-once append, which keeps the retry safe.
func (a *Aggregator) complete(ctx context.Context, ticker string) error {
	a.mu.Lock()
	b, ok := a.buckets[ticker]
	if !ok || b.closing {
		a.mu.Unlock()
		return nil
	}
	b.closing = true
	winner := selectWinner(b.received)
	startedAt := b.startedAt
	a.mu.Unlock()

	now := a.now()
	rec := &models.BestIndicator{
		Ticker:      ticker,
		Indicator:   winner.Indicator,
		Strategy:    winner.Strategy,
		TotalReturn: winner.TotalReturn,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := a.store.SaveBestIndicator(ctx, rec); err != nil {
		a.metrics.RecordError("save_best_indicator")
		a.reopen(ticker)
		return fmt.Errorf("save best indicator: %w", err)
	}
	if err := a.recordSignals(ctx, winner); err != nil {
		a.reopen(ticker)
		return err
	}

	if err := a.answerWaiters(ctx, ticker, winner, rec.TotalReturn); err != nil {
		a.reopen(ticker)
		return err
	}

	a.mu.Lock()
	delete(a.buckets, ticker)
	open := len(a.buckets)
	a.mu.Unlock()

	a.metrics.RecordRoundCompleted(now.Sub(startedAt).Seconds())
	a.metrics.SetOpenRounds(open)
	a.log.Info("backtest round completed",
		logger.String("ticker", ticker),
		logger.String("indicator", winner.Indicator),
		logger.String("strategy", winner.Strategy),
		logger.Any("total_return", winner.TotalReturn))
	return nil
}

// reopen clears the closing mark so a redelivered message can drive
// completion again after a failure.
func (a *Aggregator) reopen(ticker string) {
	a.mu.Lock()
	if b, ok := a.buckets[ticker]; ok {
		b.closing = false
	}
	a.mu.Unlock()
}

// answerWaiters drains the pending table and delivers one reply per waiter.
// Waiters whose delivery fails are re-registered before the error is
// surfaced, so the redelivered message answers them on the next attempt.
func (a *Aggregator) answerWaiters(ctx context.Context, ticker string, winner models.StrategyResult, totalReturn *float64) error {
	var firstErr error
	for _, w := range a.pending.Drain(ticker) {
		reply := models.TickerReply{
			Ticker:      ticker,
			Indicator:   winner.Indicator,
			Strategy:    winner.Strategy,
			Signals:     winner.Signals,
			TotalReturn: totalReturn,
			ChatID:      w.ReplyTo,
		}
		if w.Mode != models.FlagBacktest {
			reply.Signals = winner.Signals.Trimmed()
		}
		if err := a.deliver(ctx, w.Mode, reply); err != nil {
			a.pending.Requeue(w)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// replyDirect handles simple and notification responses: no bucket, no
// waiting. The response's signals are recorded, the reply carries the
// canonical total return when a best record exists.
func (a *Aggregator) replyDirect(ctx context.Context, res models.StrategyResult) error {
	if err := a.recordSignals(ctx, res); err != nil {
		return err
	}

	best, err := a.store.GetBestIndicator(ctx, res.Ticker)
	if err != nil {
		a.metrics.RecordError("get_best_indicator")
		return err
	}
	totalReturn := res.TotalReturn
	if best != nil {
		totalReturn = best.TotalReturn
	}

	waiters := a.pending.Drain(res.Ticker)
	if len(waiters) == 0 {
		reply := models.TickerReply{
			Ticker:      res.Ticker,
			Indicator:   res.Indicator,
			Strategy:    res.Strategy,
			Signals:     res.Signals.Trimmed(),
			TotalReturn: totalReturn,
			ChatID:      res.ChatID,
		}
		return a.deliver(ctx, res.Flag, reply)
	}

	var firstErr error
	for _, w := range waiters {
		reply := models.TickerReply{
			Ticker:      res.Ticker,
			Indicator:   res.Indicator,
			Strategy:    res.Strategy,
			Signals:     res.Signals.Trimmed(),
			TotalReturn: totalReturn,
			ChatID:      w.ReplyTo,
		}
		if err := a.deliver(ctx, w.Mode, reply); err != nil {
			a.pending.Requeue(w)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// recordSignals upserts the last operation for every point of the series and
// appends Buy/Sell points to the durable log. Points run chronologically, so
// the final upsert leaves the latest signal in place.
func (a *Aggregator) recordSignals(ctx context.Context, res models.StrategyResult) error {
	for _, p := range res.Signals {
		op := &models.OperationRecord{
			Ticker:    res.Ticker,
			Action:    models.ActionForSignal(p.Value),
			Indicator: res.Indicator,
			Strategy:  res.Strategy,
			Timestamp: p.Time(),
		}
		if err := a.store.UpsertLastOperation(ctx, op); err != nil {
			a.metrics.RecordError("upsert_last_operation")
			return fmt.Errorf("upsert last operation: %w", err)
		}
		if op.Action != models.ActionHold {
			if err := a.oplog.Append(ctx, op); err != nil {
				a.metrics.RecordError("append_operation_log")
				return fmt.Errorf("append operation log: %w", err)
			}
		}
	}
	return nil
}

func (a *Aggregator) deliver(ctx context.Context, mode models.Flag, reply models.TickerReply) error {
	var err error
	if mode == models.FlagNotification {
		err = a.pub.PublishNotification(ctx, reply)
	} else {
		err = a.pub.PublishReply(ctx, reply)
	}
	if err != nil {
		a.metrics.RecordError("publish_reply")
		return err
	}
	a.metrics.RecordReply(string(mode))
	return nil
}

// selectWinner picks the response with the maximum total return. A nil
// return counts as negative infinity and ties keep the earliest arrival: the
// reduction is stable left to right.
func selectWinner(responses []models.StrategyResult) models.StrategyResult {
	best := responses[0]
	bestVal := returnValue(best.TotalReturn)
	for _, cur := range responses[1:] {
		if v := returnValue(cur.TotalReturn); v > bestVal {
			best = cur
			bestVal = v
		}
	}
	return best
}

func returnValue(v *float64) float64 {
	if v == nil {
		return math.Inf(-1)
	}
	return *v
}
