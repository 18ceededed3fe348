package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	pkgkafka "SignalFlow/pkg/kafka"
	"SignalFlow/pkg/logger"
)

// Malformed messages are logged and acknowledged (handler returns nil) so a
// poison message never loops through redelivery. Storage and publish failures
// return an error, which keeps the offset uncommitted.

// RequestHandler consumes the ticker request queue.
type RequestHandler struct {
	topic   string
	router  *Router
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewRequestHandler(topic string, router *Router, metrics domrepo.Metrics, log *logger.Logger) *RequestHandler {
	return &RequestHandler{topic: topic, router: router, metrics: metrics, log: log}
}

func (h *RequestHandler) Topic() string { return h.topic }

func (h *RequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.TickerRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.drop("ticker request", b, err)
		return nil
	}
	if err := validateRequest(req); err != nil {
		h.drop("ticker request", b, err)
		return nil
	}
	h.log.Info("ticker request received",
		logger.String("ticker", req.Ticker),
		logger.String("source", string(req.Source)),
		logger.Int64("reply_to", req.ReplyTo()))
	return h.router.HandleIncomingRequest(ctx, req)
}

func (h *RequestHandler) drop(kind string, b []byte, err error) {
	h.metrics.RecordError("malformed_message")
	h.log.Warn("malformed "+kind+", dropping", logger.String("payload", string(b)), logger.Error(err))
}

func validateRequest(req models.TickerRequest) error {
	if req.Ticker == "" {
		return fmt.Errorf("missing ticker")
	}
	if req.ChatID == nil && req.UserID == 0 {
		return fmt.Errorf("missing reply destination")
	}
	switch req.Source {
	case models.FlagSimple, models.FlagNotification:
		return nil
	default:
		return fmt.Errorf("invalid source %q", req.Source)
	}
}

// ResultHandler consumes the worker results queue.
type ResultHandler struct {
	topic   string
	agg     *Aggregator
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewResultHandler(topic string, agg *Aggregator, metrics domrepo.Metrics, log *logger.Logger) *ResultHandler {
	return &ResultHandler{topic: topic, agg: agg, metrics: metrics, log: log}
}

func (h *ResultHandler) Topic() string { return h.topic }

func (h *ResultHandler) Handle(ctx context.Context, b []byte) error {
	var res models.StrategyResult
	if err := json.Unmarshal(b, &res); err != nil {
		h.drop(b, err)
		return nil
	}
	if res.Ticker == "" || res.Indicator == "" || res.Strategy == "" {
		h.drop(b, fmt.Errorf("missing ticker or candidate pair"))
		return nil
	}
	h.log.Debug("worker response received",
		logger.String("ticker", res.Ticker),
		logger.String("indicator", res.Indicator),
		logger.String("strategy", res.Strategy),
		logger.String("flag", string(res.Flag)))
	return h.agg.HandleResult(ctx, res)
}

func (h *ResultHandler) drop(b []byte, err error) {
	h.metrics.RecordError("malformed_message")
	h.log.Warn("malformed worker response, dropping", logger.String("payload", string(b)), logger.Error(err))
}

// SubscriptionHandler consumes the subscription action queue.
type SubscriptionHandler struct {
	topic   string
	store   domrepo.Store
	metrics domrepo.Metrics
	log     *logger.Logger
}

func NewSubscriptionHandler(topic string, store domrepo.Store, metrics domrepo.Metrics, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{topic: topic, store: store, metrics: metrics, log: log}
}

func (h *SubscriptionHandler) Topic() string { return h.topic }

func (h *SubscriptionHandler) Handle(ctx context.Context, b []byte) error {
	var msg models.SubscriptionAction
	if err := json.Unmarshal(b, &msg); err != nil {
		h.drop(b, err)
		return nil
	}
	if msg.UserID == 0 {
		h.drop(b, fmt.Errorf("missing userId"))
		return nil
	}

	switch msg.Action {
	case models.ActionSubscribe:
		if msg.Ticker == "" {
			h.drop(b, fmt.Errorf("missing ticker"))
			return nil
		}
		return h.store.AddSubscription(ctx, msg.Ticker, msg.UserID)
	case models.ActionUnsubscribe:
		if msg.Ticker == "" {
			h.drop(b, fmt.Errorf("missing ticker"))
			return nil
		}
		return h.store.RemoveSubscription(ctx, msg.Ticker, msg.UserID)
	case models.ActionUnsubscribeAll:
		tickers, err := h.store.GetUserSubscriptions(ctx, msg.UserID)
		if err != nil {
			return err
		}
		for _, ticker := range tickers {
			if err := h.store.RemoveSubscription(ctx, ticker, msg.UserID); err != nil {
				return err
			}
		}
		return nil
	default:
		h.drop(b, fmt.Errorf("unknown action %q", msg.Action))
		return nil
	}
}

func (h *SubscriptionHandler) drop(b []byte, err error) {
	h.metrics.RecordError("malformed_message")
	h.log.Warn("malformed subscription action, dropping", logger.String("payload", string(b)), logger.Error(err))
}

var (
	_ pkgkafka.MessageHandler = (*RequestHandler)(nil)
	_ pkgkafka.MessageHandler = (*ResultHandler)(nil)
	_ pkgkafka.MessageHandler = (*SubscriptionHandler)(nil)
)
