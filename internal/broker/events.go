package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront-service/internal/models"
	"storefront-service/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishOrderStatusChanged publishes OrderStatusChanged event
func (ep *EventPublisher) PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishOrderPaymentStatusChanged publishes OrderPaymentStatusChanged event
func (ep *EventPublisher) PublishOrderPaymentStatusChanged(ctx context.Context, event *models.OrderPaymentStatusChangedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishPixPaymentCreated publishes PixPaymentCreated event
func (ep *EventPublisher) PublishPixPaymentCreated(ctx context.Context, event *models.PixPaymentCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, "order-"+event.OrderID, event)
}

// PublishFeatureGranted publishes FeatureGranted event
func (ep *EventPublisher) PublishFeatureGranted(ctx context.Context, event *models.FeatureGrantedEvent) error {
	return ep.producer.PublishEvent(ctx, "user-"+event.UserID, event)
}

// PublishFeatureRevoked publishes FeatureRevoked event
func (ep *EventPublisher) PublishFeatureRevoked(ctx context.Context, event *models.FeatureRevokedEvent) error {
	return ep.producer.PublishEvent(ctx, "user-"+event.UserID, event)
}

// RawEventHandler receives the decoded envelope plus the original payload
type RawEventHandler func(ctx context.Context, base models.BaseEvent, payload []byte) error

// EventHandler handles incoming events
type EventHandler struct {
	handlers map[string]RawEventHandler
	fallback RawEventHandler
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{handlers: make(map[string]RawEventHandler)}
}

// On registers a handler for one event type
func (eh *EventHandler) On(eventType string, handler RawEventHandler) {
	eh.handlers[eventType] = handler
}

// OnAny registers a handler for every event type without a dedicated handler
func (eh *EventHandler) OnAny(handler RawEventHandler) {
	eh.fallback = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	logger := util.GetLogger()
	logger.Debug("Handling event",
		zap.String("event_type", baseEvent.EventType),
		zap.String("event_id", baseEvent.EventID))

	if h, ok := eh.handlers[baseEvent.EventType]; ok {
		return h(ctx, baseEvent, msg.Value)
	}
	if eh.fallback != nil {
		return eh.fallback(ctx, baseEvent, msg.Value)
	}

	logger.Warn("Unhandled event type", zap.String("event_type", baseEvent.EventType))
	return nil
}
