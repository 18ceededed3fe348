package kafka

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
//
// Returning nil acknowledges the message (its offset is committed). Returning
// an error leaves the offset uncommitted: the message is retried with backoff
// and finally parked on the DLQ, so a handler must be idempotent. Handlers
// drop poison input (bad JSON, missing fields) by logging and returning nil.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics through a shared worker pool. At most one
// message per (topic, partition) is in flight at a time, which preserves the
// broker's per-key ordering downstream.
type Consumer struct {
	cfg      *ConsumerConfig
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	dlq      *kafka.Writer

	msgChan  chan *message
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu        sync.Mutex
	partLocks map[string]map[int]*sync.Mutex
}

type message struct {
	topic string
	km    kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "default",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}

	c := &Consumer{
		cfg:       cfg,
		readers:   make(map[string]*kafka.Reader),
		handlers:  make(map[string]MessageHandler),
		msgChan:   make(chan *message, cfg.BufferSize),
		stopChan:  make(chan struct{}),
		partLocks: make(map[string]map[int]*sync.Mutex),
	}
	if cfg.DLQTopic != "" {
		c.dlq = &kafka.Writer{Addr: kafka.TCP(cfg.Brokers...), Balancer: &kafka.LeastBytes{}}
	}
	initConsumerMetricsOnce()
	return c, nil
}

// RegisterHandler registers a message handler for its topic.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		log.Printf("warn: handler already registered for topic %s", topic)
		return
	}
	c.handlers[topic] = handler
}

// Start creates one reader per registered topic and spins up the worker pool.
func (c *Consumer) Start() error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	for topic := range c.handlers {
		c.readers[topic] = kafka.NewReader(kafka.ReaderConfig{
			Brokers: c.cfg.Brokers,
			Topic:   topic,
			GroupID: c.cfg.GroupID,
		})
	}

	for i := 0; i < c.cfg.WorkerCount; i++ {
		c.wg.Add(1)
		go c.worker()
	}
	for topic, reader := range c.readers {
		c.wg.Add(1)
		go c.fetchLoop(topic, reader)
	}
	return nil
}

// Stop stops the consumer gracefully.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.stopOnce.Do(func() {
		close(c.stopChan)
		close(c.msgChan)

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()
		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("waiting for consumer stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				log.Printf("error closing reader for topic %s: %v", topic, err)
			}
		}
		if c.dlq != nil {
			if err := c.dlq.Close(); err != nil {
				log.Printf("error closing dlq writer: %v", err)
			}
		}
	})
	return stopErr
}

func (c *Consumer) fetchLoop(topic string, reader *kafka.Reader) {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopChan:
			return
		default:
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		km, err := reader.FetchMessage(ctx)
		cancel()
		if err != nil {
			if !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
				log.Printf("error fetching message from topic %s: %v", topic, err)
			}
			continue
		}

		select {
		case c.msgChan <- &message{topic: topic, km: km}:
			consumerQueueDepth.WithLabelValues(topic).Set(float64(len(c.msgChan)))
		case <-c.stopChan:
			return
		}
	}
}

func (c *Consumer) worker() {
	defer c.wg.Done()
	for msg := range c.msgChan {
		handler := c.handlers[msg.topic]
		if handler == nil {
			continue
		}
		c.process(handler, msg)
	}
}

func (c *Consumer) process(handler MessageHandler, msg *message) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic in message handler for topic %s: %v", msg.topic, r)
		}
		consumerHandleLatency.WithLabelValues(msg.topic).Observe(time.Since(start).Seconds())
	}()

	// In-flight=1 per (topic, partition) keeps per-ticker processing serial.
	pl := c.partitionLock(msg.topic, msg.km.Partition)
	pl.Lock()
	defer pl.Unlock()

	var err error
	for attempt := 1; ; attempt++ {
		err = handler.Handle(context.Background(), msg.km.Value)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		select {
		case <-time.After(backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)):
		case <-c.stopChan:
			return
		}
	}

	if err != nil {
		consumerFailuresTotal.WithLabelValues(msg.topic).Inc()
		log.Printf("error handling message from topic %s after retries: %v", msg.topic, err)
		if c.dlq == nil {
			// No DLQ configured: leave the offset uncommitted so the broker
			// redelivers after rebalance/restart.
			return
		}
		dlqMsg := kafka.Message{
			Topic:   c.cfg.DLQTopic,
			Value:   msg.km.Value,
			Time:    time.Now(),
			Headers: []kafka.Header{{Key: "source_topic", Value: []byte(msg.topic)}},
		}
		if dlqErr := c.dlq.WriteMessages(context.Background(), dlqMsg); dlqErr != nil {
			log.Printf("error writing to DLQ topic %s: %v", c.cfg.DLQTopic, dlqErr)
			return
		}
	}

	if reader := c.readers[msg.topic]; reader != nil {
		c.commitWithRetry(reader, msg.km, 3)
	}
}

func (c *Consumer) commitWithRetry(reader *kafka.Reader, km kafka.Message, max int) {
	var err error
	for attempt := 1; attempt <= max; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err = reader.CommitMessages(ctx, km)
		cancel()
		if err == nil {
			return
		}
		time.Sleep(backoffWithJitter(50*time.Millisecond, 500*time.Millisecond, attempt))
	}
	log.Printf("error committing offset after %d attempts: %v", max, err)
}

func (c *Consumer) partitionLock(topic string, partition int) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.partLocks[topic]
	if !ok {
		m = make(map[int]*sync.Mutex)
		c.partLocks[topic] = m
	}
	l, ok := m[partition]
	if !ok {
		l = &sync.Mutex{}
		m[partition] = l
	}
	return l
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max {
		exp = max
	}
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}

var (
	consumerQueueDepth    *prometheus.GaugeVec
	consumerFailuresTotal *prometheus.CounterVec
	consumerHandleLatency *prometheus.HistogramVec
	consumerOnce          = make(chan struct{}, 1)
)

func initConsumerMetricsOnce() {
	select {
	case consumerOnce <- struct{}{}:
		consumerQueueDepth = promauto.NewGaugeVec(
			prometheus.GaugeOpts{Name: "signalflow_kafka_consumer_queue_depth", Help: "Messages waiting in the consumer queue"},
			[]string{"topic"},
		)
		consumerFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "signalflow_kafka_consumer_failures_total", Help: "Messages that exhausted handler retries"},
			[]string{"topic"},
		)
		consumerHandleLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "signalflow_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	default:
		// already initialized
	}
}
