// Package metrics exposes Prometheus collectors for settlement runs, message
// consumption and publishing. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "settlement"

const (
	OutcomeCompleted   = "completed"
	OutcomeFailed      = "failed"
	OutcomeDuplicate   = "duplicate"
	OutcomeConfirmed   = "confirmed"
	OutcomeUnroutable  = "unroutable"
	OutcomeDelivered   = "delivered"
	OutcomeUndelivered = "undelivered"
)

type Metrics struct {
	settlementRuns     *prometheus.CounterVec
	settlementDuration *prometheus.HistogramVec
	settledSales       prometheus.Counter
	messages           *prometheus.CounterVec
	handlerDuration    *prometheus.HistogramVec
	published          *prometheus.CounterVec
	notifications      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		settlementRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "runs_total",
				Help:      "Settlement runs by outcome",
			},
			[]string{"outcome"},
		),
		settlementDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "run_duration_seconds",
				Help:      "Settlement run latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		settledSales: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "settled_sales_total",
				Help:      "Sales claimed by completed settlements",
			},
		),
		messages: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "consumed_messages_total",
				Help:      "Consumed messages by queue and disposition",
			},
			[]string{"queue", "disposition"},
		),
		handlerDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "handler_duration_seconds",
				Help:      "Message handler latency in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"queue"},
		),
		published: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "published_events_total",
				Help:      "Published events by exchange, routing key and outcome",
			},
			[]string{"exchange", "routing_key", "outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Operator notifications by severity and outcome",
			},
			[]string{"severity", "outcome"},
		),
	}

	reg.MustRegister(
		m.settlementRuns,
		m.settlementDuration,
		m.settledSales,
		m.messages,
		m.handlerDuration,
		m.published,
		m.notifications,
	)
	return m
}

func (m *Metrics) ObserveSettlement(outcome string, elapsed time.Duration, sales int) {
	if m == nil {
		return
	}
	m.settlementRuns.WithLabelValues(outcome).Inc()
	m.settlementDuration.WithLabelValues(outcome).Observe(elapsed.Seconds())
	if outcome == OutcomeCompleted {
		m.settledSales.Add(float64(sales))
	}
}

func (m *Metrics) ObserveMessage(queue, disposition string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(queue, disposition).Inc()
	m.handlerDuration.WithLabelValues(queue).Observe(elapsed.Seconds())
}

func (m *Metrics) ObservePublish(exchange, routingKey, outcome string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(exchange, routingKey, outcome).Inc()
}

func (m *Metrics) ObserveNotification(severity, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(severity, outcome).Inc()
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
