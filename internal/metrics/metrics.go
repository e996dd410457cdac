// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Inbound message metrics
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articlebot_messages_total",
			Help: "Total number of chat messages handled, by classification",
		},
		[]string{"kind"}, // article, ping, ignored, own
	)

	rateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articlebot_rate_limited_total",
			Help: "Total number of article messages dropped by the per-channel rate limit",
		},
	)

	handlerErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articlebot_handler_errors_total",
			Help: "Total number of message handling failures, by error kind",
		},
		[]string{"kind"}, // auth, topic, publish, reply, panic
	)

	// Publish metrics
	publishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articlebot_publish_total",
			Help: "Total number of article publish attempts",
		},
		[]string{"status"}, // success, error
	)

	publishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "articlebot_publish_duration_seconds",
			Help: "Time from publish to server acknowledgment",
			Buckets: []float64{
				0.01, // 10 ms
				0.05, // 50 ms
				0.1,  // 100 ms
				0.25, // 250 ms
				0.5,  // 500 ms
				1,    // 1 second
				5,    // 5 seconds
				30,   // 30 seconds (default timeout)
			},
		},
	)

	topicsCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "articlebot_topics_created_total",
			Help: "Total number of Pub/Sub topics created by this process",
		},
	)

	publishBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articlebot_publish_breaker_state",
			Help: "Publish circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// Reply metrics
	repliesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "articlebot_replies_total",
			Help: "Total number of chat replies sent",
		},
		[]string{"status"}, // success, error
	)

	// Gateway metrics
	gatewayConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "articlebot_gateway_connected",
			Help: "Whether the chat gateway session is ready (1=ready, 0=not ready)",
		},
	)
)

// RecordMessage records a handled message by classification
func RecordMessage(kind string) {
	messagesTotal.WithLabelValues(kind).Inc()
}

// RecordRateLimited records a message dropped by the rate limiter
func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

// RecordHandlerError records a handling failure
func RecordHandlerError(kind string) {
	handlerErrorsTotal.WithLabelValues(kind).Inc()
}

// RecordPublish records a publish attempt with its duration
func RecordPublish(success bool, durationSeconds float64) {
	publishTotal.WithLabelValues(status(success)).Inc()
	publishDuration.Observe(durationSeconds)
}

// RecordTopicCreated records a topic creation
func RecordTopicCreated() {
	topicsCreatedTotal.Inc()
}

// SetPublishBreakerState sets the circuit breaker state gauge
func SetPublishBreakerState(state int) {
	publishBreakerState.Set(float64(state))
}

// RecordReply records a chat reply attempt
func RecordReply(success bool) {
	repliesTotal.WithLabelValues(status(success)).Inc()
}

// SetGatewayConnected sets the gateway readiness gauge
func SetGatewayConnected(connected bool) {
	value := float64(0)
	if connected {
		value = 1
	}
	gatewayConnected.Set(value)
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
