package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpRequestsTotal     *prometheus.CounterVec
	httpLatencySeconds    *prometheus.HistogramVec
	httpErrorsTotal       *prometheus.CounterVec
	messagesSentTotal     *prometheus.CounterVec
	messagesBlockedTotal  prometheus.Counter
	moderationFlagsTotal  *prometheus.CounterVec
	verificationsTotal    *prometheus.CounterVec
	assistantTokensTotal  prometheus.Counter
	watchConnectionsTotal prometheus.Counter
)

// RegisterMetrics initialises the Prometheus collectors for the chat API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_requests_total",
			Help: "Total number of chat API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "chat_http_latency_seconds",
			Help:    "Latency distribution for chat API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_http_errors_total",
			Help: "Total number of error responses returned by chat API endpoints.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Messages delivered through the transport, by message type.",
		}, []string{"type"})

		messagesBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_messages_blocked_total",
			Help: "Messages rejected by the content safety classifier before delivery.",
		})

		moderationFlagsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_moderation_flags_total",
			Help: "Moderation flags recorded, by severity.",
		}, []string{"severity"})

		verificationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_verifications_total",
			Help: "Verification records persisted, by outcome.",
		}, []string{"outcome"})

		assistantTokensTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_assistant_tokens_total",
			Help: "Tokens relayed to assistant chat clients.",
		})

		watchConnectionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "chat_watch_connections_total",
			Help: "Websocket watch connections accepted.",
		})

		prometheus.MustRegister(
			httpRequestsTotal, httpLatencySeconds, httpErrorsTotal,
			messagesSentTotal, messagesBlockedTotal, moderationFlagsTotal,
			verificationsTotal, assistantTokensTotal, watchConnectionsTotal,
		)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the error counter.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSent exposes the delivered-message counter.
func MessagesSent() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// MessagesBlocked exposes the blocked-message counter.
func MessagesBlocked() prometheus.Counter {
	RegisterMetrics()
	return messagesBlockedTotal
}

// ModerationFlags exposes the moderation flag counter.
func ModerationFlags() *prometheus.CounterVec {
	RegisterMetrics()
	return moderationFlagsTotal
}

// Verifications exposes the verification record counter.
func Verifications() *prometheus.CounterVec {
	RegisterMetrics()
	return verificationsTotal
}

// AssistantTokens exposes the relayed-token counter.
func AssistantTokens() prometheus.Counter {
	RegisterMetrics()
	return assistantTokensTotal
}

// WatchConnections exposes the websocket watch connection counter.
func WatchConnections() prometheus.Counter {
	RegisterMetrics()
	return watchConnectionsTotal
}
