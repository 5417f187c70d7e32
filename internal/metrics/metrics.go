package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redfitchat_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redfitchat_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Delivery metrics
	MessagesSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redfitchat_messages_submitted_total",
			Help: "Total messages accepted for delivery",
		},
		[]string{"room_kind", "sender_kind"}, // sender_kind: "persisted" or "guest"
	)

	BroadcastsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redfitchat_broadcasts_sent_total",
			Help: "Total events fanned out to room subscribers",
		},
		[]string{"room_kind"},
	)

	RateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redfitchat_rate_limit_hits_total",
			Help: "Total sends rejected by the rate limiter",
		},
		[]string{"room_kind"},
	)

	// Connection metrics
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "redfitchat_connections_active",
			Help: "Currently open realtime connections",
		},
	)

	ConnectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "redfitchat_connections_total",
			Help: "Total realtime connections accepted",
		},
	)
)
