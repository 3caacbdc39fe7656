package models

import "time"

// Event types
const (
	EventTypeOrderStatusChanged        = "ORDER_STATUS_CHANGED"
	EventTypeOrderPaymentStatusChanged = "ORDER_PAYMENT_STATUS_CHANGED"
	EventTypeFeatureGranted            = "FEATURE_GRANTED"
	EventTypeFeatureRevoked            = "FEATURE_REVOKED"
	EventTypePixPaymentCreated         = "PIX_PAYMENT_CREATED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderStatusChangedEvent published after a committed status transition
type OrderStatusChangedEvent struct {
	BaseEvent
	OrderID             string   `json:"order_id"`
	CustomerID          string   `json:"customer_id"`
	FromStatus          string   `json:"from_status"`
	ToStatus            string   `json:"to_status"`
	ChangedBy           string   `json:"changed_by"`
	Note                string   `json:"note,omitempty"`
	DeactivatedProducts []string `json:"deactivated_products,omitempty"`
}

// OrderPaymentStatusChangedEvent published when payment_status moves
type OrderPaymentStatusChangedEvent struct {
	BaseEvent
	OrderID    string `json:"order_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
}

// FeatureGrantedEvent published when a feature is assigned
type FeatureGrantedEvent struct {
	BaseEvent
	UserID        string     `json:"user_id"`
	FeatureSlug   string     `json:"feature_slug"`
	TipoPeriodo   string     `json:"tipo_periodo"`
	DataExpiracao *time.Time `json:"data_expiracao,omitempty"`
	AtribuidoPor  string     `json:"atribuido_por"`
}

// FeatureRevokedEvent published when a grant is deactivated
type FeatureRevokedEvent struct {
	BaseEvent
	UserID      string `json:"user_id"`
	FeatureSlug string `json:"feature_slug"`
	Reason      string `json:"reason,omitempty"`
	RevokedBy   string `json:"revoked_by"`
}

// PixPaymentCreatedEvent published when a QR code is attached to an order
type PixPaymentCreatedEvent struct {
	BaseEvent
	OrderID     string `json:"order_id"`
	AmountCents int64  `json:"amount_cents"`
	Provider    string `json:"provider"`
}
