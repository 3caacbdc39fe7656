package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrderStatusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_total",
		Help: "Total number of committed order status transitions",
	}, []string{"from", "to"})

	OrderStatusTransitionsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions_rejected_total",
		Help: "Total number of rejected order status transitions",
	}, []string{"reason"})

	ProductsDeactivatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "products_deactivated_total",
		Help: "Total number of products deactivated by out-of-stock transitions",
	})

	NotificationsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_created_total",
		Help: "Total number of notification rows inserted",
	}, []string{"type"})

	FeatureGrantsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_grants_total",
		Help: "Total number of feature grants by period",
	}, []string{"period"})

	FeatureGrantsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feature_grants_rejected_total",
		Help: "Total number of rejected feature grants",
	}, []string{"reason"})

	FeatureRevocationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "feature_revocations_total",
		Help: "Total number of feature revocations",
	})

	PixRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pix_requests_total",
		Help: "Total number of PIX payment requests by outcome",
	}, []string{"provider", "outcome"})

	PixWebhookFallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pix_webhook_fallbacks_total",
		Help: "Total number of calls made to the fallback PIX webhook",
	})

	PixRequestLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pix_request_latency_seconds",
		Help:    "Latency of PIX provider calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})

	DailyReportsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "daily_reports_generated_total",
		Help: "Total number of daily sales report runs",
	}, []string{"trigger", "outcome"})

	WebhookDeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_deliveries_total",
		Help: "Total number of outbound webhook deliveries",
	}, []string{"event_type", "outcome"})

	AuthEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auth_events_total",
		Help: "Total number of inbound auth events handled",
	}, []string{"type", "outcome"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
