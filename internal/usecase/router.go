package usecase

import (
	"context"
	"fmt"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/logger"
)

// Router is the entry point for inbound ticker requests. It holds no state of
// its own: the freshness policy decides reuse vs. recompute, the aggregator
// runs rounds, the pending table remembers who is waiting.
type Router struct {
	store   domrepo.Store
	oplog   domrepo.OperationLog
	policy  *FreshnessPolicy
	agg     *Aggregator
	pending *PendingTable
	pub     domrepo.Publisher
	metrics domrepo.Metrics
	log     *logger.Logger
}

// NewRouter creates the router.
func NewRouter(
	store domrepo.Store,
	oplog domrepo.OperationLog,
	policy *FreshnessPolicy,
	agg *Aggregator,
	pending *PendingTable,
	pub domrepo.Publisher,
	metrics domrepo.Metrics,
	log *logger.Logger,
) *Router {
	return &Router{
		store:   store,
		oplog:   oplog,
		policy:  policy,
		agg:     agg,
		pending: pending,
		pub:     pub,
		metrics: metrics,
		log:     log,
	}
}

// HandleIncomingRequest routes one ticker request. Errors bubble up to the
// transport layer, which leaves the message unacknowledged for redelivery.
func (r *Router) HandleIncomingRequest(ctx context.Context, req models.TickerRequest) error {
	r.metrics.RecordRequest(string(req.Source))

	best, err := r.store.GetBestIndicator(ctx, req.Ticker)
	if err != nil {
		r.metrics.RecordError("get_best_indicator")
		return fmt.Errorf("get best indicator: %w", err)
	}

	if r.policy.IsStale(best) {
		if err := r.agg.StartOrJoin(ctx, req.Ticker, req.ReplyTo()); err != nil {
			return err
		}
		r.pending.Append(PendingRequest{Ticker: req.Ticker, ReplyTo: req.ReplyTo(), Mode: req.Source})
		return nil
	}

	decision, err := r.policy.DecideReuse(ctx, req.Ticker)
	if err != nil {
		r.metrics.RecordError("get_last_operation")
		return fmt.Errorf("decide reuse: %w", err)
	}
	r.log.Debug("freshness decision",
		logger.String("ticker", req.Ticker),
		logger.String("decision", decision.Decision.String()))

	switch decision.Decision {
	case TriggerSingleRefresh:
		return r.triggerSingleRefresh(ctx, req, best)
	default:
		return r.replyFromLastOperation(ctx, req, best, decision.LastOp)
	}
}

// triggerSingleRefresh emits one task for the cached winning strategy and
// registers the caller. An already-pending ticker suppresses the duplicate
// task; the caller simply piggybacks on the in-flight evaluation.
func (r *Router) triggerSingleRefresh(ctx context.Context, req models.TickerRequest, best *models.BestIndicator) error {
	if !r.pending.Contains(req.Ticker) {
		task := models.StrategyTask{
			Ticker:    req.Ticker,
			Indicator: best.Indicator,
			Strategy:  best.Strategy,
			Flag:      req.Source,
			ChatID:    req.ReplyTo(),
		}
		if err := r.pub.PublishTask(ctx, task); err != nil {
			r.metrics.RecordError("publish_task")
			return fmt.Errorf("publish refresh task: %w", err)
		}
		r.log.Info("single refresh triggered",
			logger.String("ticker", req.Ticker),
			logger.String("indicator", best.Indicator),
			logger.String("strategy", best.Strategy))
	}
	r.pending.Append(PendingRequest{Ticker: req.Ticker, ReplyTo: req.ReplyTo(), Mode: req.Source})
	return nil
}

// replyFromLastOperation answers immediately from cached state, no worker
// involved. The signal value comes from the durable log's latest Buy/Sell
// row; holding is assumed when the log has none.
func (r *Router) replyFromLastOperation(ctx context.Context, req models.TickerRequest, best *models.BestIndicator, lastOp *models.OperationRecord) error {
	logged, err := r.oplog.Latest(ctx, req.Ticker)
	if err != nil {
		r.metrics.RecordError("read_operation_log")
		return fmt.Errorf("read operation log: %w", err)
	}
	action := models.ActionHold
	if logged != nil {
		action = logged.Action
	}

	reply := models.TickerReply{
		Ticker:    req.Ticker,
		Indicator: lastOp.Indicator,
		Strategy:  lastOp.Strategy,
		Signals: models.SignalSeries{{
			Ts:    lastOp.Timestamp.UnixMilli(),
			Value: models.SignalForAction(action),
		}},
		TotalReturn: best.TotalReturn,
		ChatID:      req.ReplyTo(),
	}

	var deliverErr error
	if req.Source == models.FlagNotification {
		deliverErr = r.pub.PublishNotification(ctx, reply)
	} else {
		deliverErr = r.pub.PublishReply(ctx, reply)
	}
	if deliverErr != nil {
		r.metrics.RecordError("publish_reply")
		return deliverErr
	}
	r.metrics.RecordReply("cached")
	r.log.Info("answered from last operation",
		logger.String("ticker", req.Ticker),
		logger.String("action", string(action)))
	return nil
}
