// Package pix turns an order into a PIX charge and stores the QR code on it.
package pix

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/orderstatus"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderStore is the persistence the bridge needs
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	SavePixCharge(ctx context.Context, orderID, qrCodeBase64, copyPaste string, createdAt time.Time) error
}

// Locker serializes work on one order across instances
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// Publisher emits the payment-created event
type Publisher interface {
	PublishPixPaymentCreated(ctx context.Context, event *models.PixPaymentCreatedEvent) error
}

// Result is the QR code attached to an order
type Result struct {
	OrderID      string    `json:"order_id"`
	QRCodeBase64 string    `json:"qr_code_base64"`
	CopyPaste    string    `json:"copy_paste"`
	CreatedAt    time.Time `json:"created_at"`
	Reused       bool      `json:"reused"`
}

type Bridge struct {
	orders    OrderStore
	locker    Locker
	provider  Provider
	publisher Publisher
	lockTTL   time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// NewBridge creates a bridge. lockTTL should outlast the provider timeout.
func NewBridge(orders OrderStore, locker Locker, provider Provider, publisher Publisher, lockTTL time.Duration) *Bridge {
	return &Bridge{
		orders:    orders,
		locker:    locker,
		provider:  provider,
		publisher: publisher,
		lockTTL:   lockTTL,
		now:       time.Now,
		logger:    util.GetLogger(),
	}
}

// CreatePayment creates, or returns the already stored, PIX charge of an order
func (b *Bridge) CreatePayment(ctx context.Context, orderID string) (*Result, error) {
	ctx, span := util.StartSpan(ctx, "Bridge.CreatePayment")
	defer span.End()

	lockKey := "pix:" + orderID
	token, ok, err := b.locker.AcquireLock(ctx, lockKey, b.lockTTL)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrOrderLocked
	}
	defer func() {
		if err := b.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			b.logger.Warn("Failed to release pix lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	order, err := b.orders.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order: %w", err)
	}

	switch {
	case order.PaymentStatus == models.PaymentStatusPaid:
		return nil, ErrOrderAlreadyPaid
	case order.Status == string(orderstatus.Cancelled):
		return nil, ErrOrderCancelled
	}

	if order.PaymentStatus == models.PaymentStatusPending && order.PixQRCodeBase64 != nil && order.PixCopyPaste != nil {
		res := &Result{
			OrderID:      order.ID,
			QRCodeBase64: *order.PixQRCodeBase64,
			CopyPaste:    *order.PixCopyPaste,
			Reused:       true,
		}
		if order.PixCreatedAt != nil {
			res.CreatedAt = *order.PixCreatedAt
		}
		return res, nil
	}

	items, err := b.orders.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}

	customer, err := b.orders.GetProfile(ctx, order.CustomerID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("load customer: %w", err)
	}

	provider := b.provider.Name()
	start := time.Now()
	charge, err := b.provider.CreateCharge(ctx, BuildPayload(order, items, customer))
	util.PixRequestLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
	if err != nil {
		util.PixRequestsTotal.WithLabelValues(provider, Code(err)).Inc()
		b.logger.Error("PIX charge failed",
			zap.String("order_id", orderID),
			zap.String("provider", provider),
			zap.Error(err))
		return nil, err
	}
	util.PixRequestsTotal.WithLabelValues(provider, "ok").Inc()

	createdAt := b.now()
	if err := b.orders.SavePixCharge(ctx, orderID, charge.QRCodeBase64, charge.CopyPaste, createdAt); err != nil {
		return nil, fmt.Errorf("save pix charge: %w", err)
	}

	event := &models.PixPaymentCreatedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypePixPaymentCreated,
			Timestamp: createdAt,
		},
		OrderID:     orderID,
		AmountCents: order.TotalCents,
		Provider:    provider,
	}
	if err := b.publisher.PublishPixPaymentCreated(ctx, event); err != nil {
		b.logger.Error("Failed to publish PixPaymentCreated event", zap.Error(err))
	}

	b.logger.Info("PIX charge created", zap.String("order_id", orderID), zap.String("provider", provider))
	return &Result{
		OrderID:      orderID,
		QRCodeBase64: charge.QRCodeBase64,
		CopyPaste:    charge.CopyPaste,
		CreatedAt:    createdAt,
	}, nil
}
