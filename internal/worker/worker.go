package worker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-service/internal/broker"
	"storefront-service/internal/models"
	"storefront-service/internal/signature"
	"storefront-service/internal/util"

	"go.uber.org/zap"
)

const deliveryTimeout = 10 * time.Second

// EventStore records which events were already delivered
type EventStore interface {
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
}

// WebhookWorker forwards every domain event to the integration webhook
type WebhookWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	events       EventStore
	url          string
	secret       string
	client       *http.Client
	logger       *zap.Logger
}

// NewWebhookWorker creates a new webhook worker
func NewWebhookWorker(consumer *broker.Consumer, events EventStore, url, secret string, client *http.Client) *WebhookWorker {
	if client == nil {
		client = &http.Client{Timeout: deliveryTimeout}
	}
	w := &WebhookWorker{
		consumer: consumer,
		events:   events,
		url:      url,
		secret:   secret,
		client:   client,
		logger:   util.GetLogger().With(zap.String("worker", "webhook")),
	}

	w.eventHandler = broker.NewEventHandler()
	w.eventHandler.OnAny(w.deliver)
	return w
}

// Start starts the worker
func (w *WebhookWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting webhook worker", zap.String("url", w.url))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *WebhookWorker) Stop() error {
	w.logger.Info("Stopping webhook worker")
	return w.consumer.Close()
}

// deliver posts one event. A failed delivery is logged and the event stays
// unmarked; it is not retried.
func (w *WebhookWorker) deliver(ctx context.Context, base models.BaseEvent, payload []byte) error {
	if base.EventID != "" {
		done, err := w.events.IsEventProcessed(ctx, base.EventID)
		if err != nil {
			return fmt.Errorf("failed to check processed event: %w", err)
		}
		if done {
			util.WebhookDeliveriesTotal.WithLabelValues(base.EventType, "skipped").Inc()
			return nil
		}
	}

	ctx, span := util.StartSpan(ctx, "WebhookWorker.deliver")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Event-Type", base.EventType)
	req.Header.Set("X-Event-Id", base.EventID)
	if w.secret != "" {
		req.Header.Set("X-Signature", signature.Sign(w.secret, payload))
	}
	util.InjectTraceHeaders(ctx, req)

	resp, err := w.client.Do(req)
	if err != nil {
		util.WebhookDeliveriesTotal.WithLabelValues(base.EventType, "error").Inc()
		return fmt.Errorf("webhook delivery failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		util.WebhookDeliveriesTotal.WithLabelValues(base.EventType, "rejected").Inc()
		return fmt.Errorf("webhook answered %d", resp.StatusCode)
	}

	util.WebhookDeliveriesTotal.WithLabelValues(base.EventType, "delivered").Inc()
	if base.EventID != "" {
		if err := w.events.MarkEventProcessed(ctx, base.EventID, base.EventType); err != nil {
			w.logger.Warn("Failed to mark event processed", zap.String("event_id", base.EventID), zap.Error(err))
		}
	}

	w.logger.Debug("Event delivered",
		zap.String("event_id", base.EventID),
		zap.String("event_type", base.EventType))
	return nil
}
