package usecase

import (
	"sync"

	"SignalFlow/internal/domain/models"
)

// PendingRequest is a deferred reply obligation: a caller waiting for a
// ticker's outcome.
type PendingRequest struct {
	Ticker  string
	ReplyTo int64
	Mode    models.Flag
}

// PendingTable registers callers waiting on a ticker. Several requests may
// accumulate for one ticker while its round is open; they are answered in
// bulk when the round closes. Draining removes them atomically, so waiters
// registered after a drain belong to the next round.
type PendingTable struct {
	mu       sync.Mutex
	byTicker map[string][]PendingRequest
}

// NewPendingTable creates an empty table.
func NewPendingTable() *PendingTable {
	return &PendingTable{byTicker: make(map[string][]PendingRequest)}
}

// Append registers a waiter.
func (t *PendingTable) Append(req PendingRequest) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byTicker[req.Ticker] = append(t.byTicker[req.Ticker], req)
}

// Requeue re-registers a drained waiter whose reply delivery failed, so the
// redelivered completion message answers it on the next attempt. First-time
// registration goes through Append on the request path; this is the only
// other write path.
func (t *PendingTable) Requeue(req PendingRequest) {
	t.Append(req)
}

// Contains reports whether any waiter is registered for ticker. Used to
// avoid emitting a duplicate single-refresh task while one is in flight.
func (t *PendingTable) Contains(ticker string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.byTicker[ticker]) > 0
}

// Drain removes and returns all waiters for ticker, in registration order.
func (t *PendingTable) Drain(ticker string) []PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	reqs := t.byTicker[ticker]
	delete(t.byTicker, ticker)
	return reqs
}

// Len returns the number of registered waiters across all tickers.
func (t *PendingTable) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, reqs := range t.byTicker {
		n += len(reqs)
	}
	return n
}
