package repository

import (
	"context"

	"SignalFlow/internal/domain/models"
	domrepo "SignalFlow/internal/domain/repository"
	pkgkafka "SignalFlow/pkg/kafka"
)

// Topics names the outbound destinations.
type Topics struct {
	Requests      string
	Tasks         string
	Responses     string
	Notifications string
}

// KafkaPublisher implements Publisher on the shared producer. All messages
// are keyed by ticker so one ticker stays on one partition.
type KafkaPublisher struct {
	producer *pkgkafka.Producer
	topics   Topics
}

// NewKafkaPublisher creates the publisher.
func NewKafkaPublisher(producer *pkgkafka.Producer, topics Topics) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topics: topics}
}

func (p *KafkaPublisher) PublishTask(ctx context.Context, task models.StrategyTask) error {
	return p.producer.Publish(ctx, p.topics.Tasks, []byte(task.Ticker), task)
}

func (p *KafkaPublisher) PublishReply(ctx context.Context, reply models.TickerReply) error {
	return p.producer.Publish(ctx, p.topics.Responses, []byte(reply.Ticker), reply)
}

func (p *KafkaPublisher) PublishNotification(ctx context.Context, reply models.TickerReply) error {
	return p.producer.Publish(ctx, p.topics.Notifications, []byte(reply.Ticker), reply)
}

func (p *KafkaPublisher) PublishRequest(ctx context.Context, req models.TickerRequest) error {
	return p.producer.Publish(ctx, p.topics.Requests, []byte(req.Ticker), req)
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

var _ domrepo.Publisher = (*KafkaPublisher)(nil)
