package models

// Flag marks what kind of evaluation a message belongs to.
type Flag string

const (
	FlagSimple       Flag = "simple"
	FlagBacktest     Flag = "backtest"
	FlagNotification Flag = "notification"
)

// TickerRequest is the inbound message on the ticker request queue.
// ChatID is null for scheduler-originated requests; UserID then carries the
// reply destination.
type TickerRequest struct {
	Ticker string `json:"ticker"`
	ChatID *int64 `json:"chatId"`
	UserID int64  `json:"userId"`
	Source Flag   `json:"source"`
}

// ReplyTo resolves the destination the caller expects a reply on.
func (r TickerRequest) ReplyTo() int64 {
	if r.ChatID != nil {
		return *r.ChatID
	}
	return r.UserID
}

// StrategyTask is one unit of work for the strategy worker pool.
type StrategyTask struct {
	Ticker    string `json:"ticker"`
	Indicator string `json:"indicator"`
	Strategy  string `json:"strategy"`
	Flag      Flag   `json:"flag"`
	ChatID    int64  `json:"chatId"`
}

// StrategyResult is a worker's answer on the results queue.
type StrategyResult struct {
	Ticker      string       `json:"ticker"`
	Indicator   string       `json:"indicator"`
	Strategy    string       `json:"strategy"`
	Flag        Flag         `json:"flag"`
	Signals     SignalSeries `json:"signals"`
	TotalReturn *float64     `json:"total_return"`
	ChatID      int64        `json:"chatId"`
}

// TickerReply is the outbound message answering a caller, delivered on the
// response or notification queue depending on the request flag.
type TickerReply struct {
	Ticker      string       `json:"ticker"`
	Indicator   string       `json:"indicator"`
	Strategy    string       `json:"strategy"`
	Signals     SignalSeries `json:"signals"`
	TotalReturn *float64     `json:"total_return"`
	ChatID      int64        `json:"chatId"`
}

// SubscriptionAction is the inbound message on the subscription queue.
type SubscriptionAction struct {
	UserID int64  `json:"userId"`
	Ticker string `json:"ticker"`
	ChatID *int64 `json:"chatId"`
	Action string `json:"action"`
}

// Subscription action verbs. The wire spellings are historical.
const (
	ActionSubscribe      = "subscribe"
	ActionUnsubscribe    = "unsuscribe"
	ActionUnsubscribeAll = "unsuscribe_all"
)
