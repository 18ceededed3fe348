package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain repository.Metrics using Prometheus.
type Recorder struct {
	requestsTotal   *prometheus.CounterVec
	roundsStarted   prometheus.Counter
	roundsCompleted prometheus.Counter
	roundDuration   prometheus.Histogram
	orphansTotal    prometheus.Counter
	repliesTotal    *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	openRounds      prometheus.Gauge
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_requests_total",
				Help: "Inbound ticker requests by source",
			},
			[]string{"source"},
		),
		roundsStarted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signalflow_backtest_rounds_started_total",
				Help: "Full-catalog backtest rounds started",
			},
		),
		roundsCompleted: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signalflow_backtest_rounds_completed_total",
				Help: "Full-catalog backtest rounds completed",
			},
		),
		roundDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalflow_backtest_round_seconds",
				Help:    "Duration from round start to completion",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		orphansTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "signalflow_orphan_responses_total",
				Help: "Worker responses discarded for lack of an open round",
			},
		),
		repliesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_replies_total",
				Help: "Replies delivered to callers by kind",
			},
			[]string{"kind"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalflow_errors_total",
				Help: "Errors encountered by type",
			},
			[]string{"type"},
		),
		openRounds: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "signalflow_open_rounds",
				Help: "Aggregation rounds currently awaiting worker responses",
			},
		),
	}
}

func (r *Recorder) RecordRequest(source string) {
	r.requestsTotal.WithLabelValues(source).Inc()
}

func (r *Recorder) RecordRoundStarted() {
	r.roundsStarted.Inc()
}

func (r *Recorder) RecordRoundCompleted(seconds float64) {
	r.roundsCompleted.Inc()
	r.roundDuration.Observe(seconds)
}

func (r *Recorder) RecordOrphanResponse() {
	r.orphansTotal.Inc()
}

func (r *Recorder) RecordReply(kind string) {
	r.repliesTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

func (r *Recorder) SetOpenRounds(n int) {
	r.openRounds.Set(float64(n))
}
