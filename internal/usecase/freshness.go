package usecase

import (
	"context"
	"time"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	"SignalFlow/pkg/util"
)

// Staleness thresholds. A best-indicator record older than two weeks is not
// trusted without a full re-backtest; a last operation older than a day is
// refreshed outside market hours.
const (
	BestIndicatorStaleness = 14 * 24 * time.Hour
	LastOperationStaleness = 24 * time.Hour
)

// Decision is the freshness policy's verdict for a request.
type Decision int

const (
	ReplyFromLastOperation Decision = iota
	TriggerSingleRefresh
	TriggerFullBacktest
)

func (d Decision) String() string {
	switch d {
	case ReplyFromLastOperation:
		return "reply_from_last_operation"
	case TriggerSingleRefresh:
		return "trigger_single_refresh"
	case TriggerFullBacktest:
		return "trigger_full_backtest"
	default:
		return "unknown"
	}
}

// ReuseDecision carries the verdict and, when known, the last operation the
// reply can be built from.
type ReuseDecision struct {
	Decision Decision
	LastOp   *models.OperationRecord
}

// FreshnessPolicy decides whether a cached best-strategy record can answer a
// request or evaluation work is needed. Once a winning strategy is
// established only that one strategy needs re-evaluation to stay current; a
// full re-backtest is reserved for records past the two-week horizon.
type FreshnessPolicy struct {
	store domrepo.Store
	loc   *time.Location
	now   func() time.Time
}

// NewFreshnessPolicy creates a policy using the exchange timezone.
func NewFreshnessPolicy(store domrepo.Store, loc *time.Location, now func() time.Time) *FreshnessPolicy {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = util.MarketLocation()
	}
	return &FreshnessPolicy{store: store, loc: loc, now: now}
}

// IsStale reports whether rec requires a full backtest round. A missing
// record is stale by definition.
func (p *FreshnessPolicy) IsStale(rec *models.BestIndicator) bool {
	return rec == nil || p.now().Sub(rec.UpdatedAt) > BestIndicatorStaleness
}

// DecideReuse assumes a fresh best-indicator record exists and picks between
// answering from the last known operation and refreshing the single cached
// strategy.
func (p *FreshnessPolicy) DecideReuse(ctx context.Context, ticker string) (ReuseDecision, error) {
	lastOp, err := p.store.GetLastOperation(ctx, ticker)
	if err != nil {
		return ReuseDecision{}, err
	}
	if lastOp == nil {
		return ReuseDecision{Decision: TriggerSingleRefresh}, nil
	}

	now := p.now()
	outsideHours := !util.InMarketHours(now, p.loc)
	if outsideHours && now.Sub(lastOp.Timestamp) > LastOperationStaleness {
		return ReuseDecision{Decision: TriggerSingleRefresh, LastOp: lastOp}, nil
	}
	return ReuseDecision{Decision: ReplyFromLastOperation, LastOp: lastOp}, nil
}
