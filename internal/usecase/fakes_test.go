package usecase

import (
	"context"
	"fmt"

	"SignalFlow/internal/domain/models"
)

// In-memory doubles for the gateway interfaces. Single-goroutine tests, no
// locking needed.

type fakeStore struct {
	best    map[string]*models.BestIndicator
	lastOps map[string]*models.OperationRecord
	catalog []models.CatalogEntry
	subs    map[string][]int64

	upserts     []models.OperationRecord
	saveBestErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		best:    map[string]*models.BestIndicator{},
		lastOps: map[string]*models.OperationRecord{},
		subs:    map[string][]int64{},
	}
}

func (s *fakeStore) GetBestIndicator(_ context.Context, ticker string) (*models.BestIndicator, error) {
	return s.best[ticker], nil
}

func (s *fakeStore) SaveBestIndicator(_ context.Context, rec *models.BestIndicator) error {
	if s.saveBestErr != nil {
		return s.saveBestErr
	}
	s.best[rec.Ticker] = rec
	return nil
}

func (s *fakeStore) GetLastOperation(_ context.Context, ticker string) (*models.OperationRecord, error) {
	return s.lastOps[ticker], nil
}

func (s *fakeStore) UpsertLastOperation(_ context.Context, op *models.OperationRecord) error {
	s.upserts = append(s.upserts, *op)
	s.lastOps[op.Ticker] = op
	return nil
}

func (s *fakeStore) CountCatalogEntries(context.Context) (int, error) {
	return len(s.catalog), nil
}

func (s *fakeStore) ListCatalogEntries(context.Context) ([]models.CatalogEntry, error) {
	return s.catalog, nil
}

func (s *fakeStore) SeedCatalog(_ context.Context, entries []models.CatalogEntry) error {
	s.catalog = entries
	return nil
}

func (s *fakeStore) GetSubscriptions(context.Context) ([]models.Subscription, error) {
	out := make([]models.Subscription, 0, len(s.subs))
	for ticker, users := range s.subs {
		out = append(out, models.Subscription{Ticker: ticker, UserIDs: users})
	}
	return out, nil
}

func (s *fakeStore) GetUserSubscriptions(_ context.Context, userID int64) ([]string, error) {
	var out []string
	for ticker, users := range s.subs {
		for _, u := range users {
			if u == userID {
				out = append(out, ticker)
			}
		}
	}
	return out, nil
}

func (s *fakeStore) AddSubscription(_ context.Context, ticker string, userID int64) error {
	s.subs[ticker] = append(s.subs[ticker], userID)
	return nil
}

func (s *fakeStore) RemoveSubscription(_ context.Context, ticker string, userID int64) error {
	users := s.subs[ticker]
	for i, u := range users {
		if u == userID {
			s.subs[ticker] = append(users[:i], users[i+1:]...)
			break
		}
	}
	return nil
}

type fakeOplog struct {
	appends   []models.OperationRecord
	latest    map[string]*models.OperationRecord
	appendErr error
}

func newFakeOplog() *fakeOplog {
	return &fakeOplog{latest: map[string]*models.OperationRecord{}}
}

func (l *fakeOplog) Append(_ context.Context, op *models.OperationRecord) error {
	if l.appendErr != nil {
		return l.appendErr
	}
	l.appends = append(l.appends, *op)
	l.latest[op.Ticker] = op
	return nil
}

func (l *fakeOplog) Latest(_ context.Context, ticker string) (*models.OperationRecord, error) {
	return l.latest[ticker], nil
}

type fakePublisher struct {
	tasks         []models.StrategyTask
	replies       []models.TickerReply
	notifications []models.TickerReply
	requests      []models.TickerRequest

	// failReplies makes the next N PublishReply calls fail.
	failReplies int
	// failTasksAfter, when positive, fails every PublishTask call once that
	// many tasks have been accepted.
	failTasksAfter int
}

func (p *fakePublisher) PublishTask(_ context.Context, task models.StrategyTask) error {
	if p.failTasksAfter > 0 && len(p.tasks) >= p.failTasksAfter {
		return fmt.Errorf("broker unavailable")
	}
	p.tasks = append(p.tasks, task)
	return nil
}

func (p *fakePublisher) PublishReply(_ context.Context, reply models.TickerReply) error {
	if p.failReplies > 0 {
		p.failReplies--
		return fmt.Errorf("broker unavailable")
	}
	p.replies = append(p.replies, reply)
	return nil
}

func (p *fakePublisher) PublishNotification(_ context.Context, reply models.TickerReply) error {
	p.notifications = append(p.notifications, reply)
	return nil
}

func (p *fakePublisher) PublishRequest(_ context.Context, req models.TickerRequest) error {
	p.requests = append(p.requests, req)
	return nil
}

type fakeMetrics struct {
	requests        map[string]int
	roundsStarted   int
	roundsCompleted int
	orphans         int
	replies         map[string]int
	errors          map[string]int
	openRounds      int
}

func newFakeMetrics() *fakeMetrics {
	return &fakeMetrics{
		requests: map[string]int{},
		replies:  map[string]int{},
		errors:   map[string]int{},
	}
}

func (m *fakeMetrics) RecordRequest(source string)  { m.requests[source]++ }
func (m *fakeMetrics) RecordRoundStarted()          { m.roundsStarted++ }
func (m *fakeMetrics) RecordRoundCompleted(float64) { m.roundsCompleted++ }
func (m *fakeMetrics) RecordOrphanResponse()        { m.orphans++ }
func (m *fakeMetrics) RecordReply(kind string)      { m.replies[kind]++ }
func (m *fakeMetrics) RecordError(kind string)      { m.errors[kind]++ }
func (m *fakeMetrics) SetOpenRounds(n int)          { m.openRounds = n }
