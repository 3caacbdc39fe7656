package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/orderstatus"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const orderLockTTL = 30 * time.Second

// Actor is the authenticated user performing an operation
type Actor struct {
	ID   string
	Role string
}

// OrderService handles order business logic
type OrderService struct {
	store          OrderStore
	locker         Locker
	eventPublisher OrderEventPublisher
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store OrderStore, locker Locker, eventPublisher OrderEventPublisher) *OrderService {
	return &OrderService{
		store:          store,
		locker:         locker,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// StatusChange is the outcome of UpdateStatus
type StatusChange struct {
	Order               *models.Order `json:"order"`
	Changed             bool          `json:"changed"`
	DeactivatedProducts []string      `json:"deactivated_products,omitempty"`
	Notified            []string      `json:"notified,omitempty"`
}

// OrderDetails is an order with its items, history and the moves open to the viewer
type OrderDetails struct {
	Order       *models.Order               `json:"order"`
	Label       orderstatus.Label           `json:"label"`
	Items       []models.OrderItem          `json:"items"`
	History     []models.OrderStatusHistory `json:"history"`
	Transitions []orderstatus.Status        `json:"transitions"`
}

// UpdateStatus moves an order to next. Every write of the transition commits
// or rolls back together.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, actor Actor, next, note string) (*StatusChange, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdateStatus")
	defer span.End()

	if !orderstatus.IsValid(next) {
		util.OrderStatusTransitionsRejected.WithLabelValues("invalid_status").Inc()
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}

	lockKey := "order-status:" + orderID
	token, ok, err := s.locker.AcquireLock(ctx, lockKey, orderLockTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire order lock: %w", err)
	}
	if !ok {
		util.OrderStatusTransitionsRejected.WithLabelValues("locked").Inc()
		return nil, ErrOrderLocked
	}
	defer func() {
		if err := s.locker.ReleaseLock(context.Background(), lockKey, token); err != nil {
			s.logger.Warn("Failed to release order lock", zap.String("order_id", orderID), zap.Error(err))
		}
	}()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if from == next && (models.IsAdminRole(actor.Role) || actor.Role == models.RoleSupplier) {
		return &StatusChange{Order: order}, nil
	}

	if !orderstatus.CanTransition(from, next, actor.Role) {
		util.OrderStatusTransitionsRejected.WithLabelValues("not_allowed").Inc()
		s.logger.Info("Status transition rejected",
			zap.String("order_id", orderID),
			zap.String("from", from),
			zap.String("to", next),
			zap.String("role", actor.Role))
		return nil, fmt.Errorf("%w: %s -> %s for role %s", ErrTransitionNotAllowed, from, next, actor.Role)
	}

	var admins []string
	if next == string(orderstatus.OutOfStock) {
		admins, err = s.store.ListAdminIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
	}

	change := &StatusChange{Changed: true}
	err = s.store.WithTx(ctx, func(tx store.TxWriter) error {
		if err := tx.UpdateOrderStatus(ctx, orderID, next); err != nil {
			return err
		}

		entry := &models.OrderStatusHistory{
			OrderID:   orderID,
			Status:    next,
			Note:      optional(note),
			ChangedBy: optional(actor.ID),
		}
		if err := tx.InsertStatusHistory(ctx, entry); err != nil {
			return err
		}

		if err := tx.InsertNotification(ctx, customerNotification(order, next)); err != nil {
			return err
		}
		change.Notified = append(change.Notified, order.CustomerID)

		if next != string(orderstatus.OutOfStock) {
			return nil
		}

		products, err := tx.DeactivateOrderProducts(ctx, orderID)
		if err != nil {
			return err
		}
		change.DeactivatedProducts = products

		for _, userID := range outOfStockRecipients(order, admins) {
			if err := tx.InsertNotification(ctx, outOfStockNotification(order, userID, len(products))); err != nil {
				return err
			}
			change.Notified = append(change.Notified, userID)
		}
		return nil
	})
	if errors.Is(err, store.ErrNotFound) {
		util.OrderStatusTransitionsRejected.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if err != nil {
		util.OrderStatusTransitionsRejected.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to apply status change: %w", err)
	}

	order.Status = next
	change.Order = order

	util.OrderStatusTransitionsTotal.WithLabelValues(from, next).Inc()
	util.ProductsDeactivatedTotal.Add(float64(len(change.DeactivatedProducts)))
	util.NotificationsCreatedTotal.WithLabelValues(models.NotificationOrderStatus).Inc()
	if n := len(change.Notified) - 1; n > 0 {
		util.NotificationsCreatedTotal.WithLabelValues(models.NotificationOutOfStock).Add(float64(n))
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", orderID),
		zap.String("from", from),
		zap.String("to", next),
		zap.String("changed_by", actor.ID),
		zap.Int("deactivated_products", len(change.DeactivatedProducts)))

	event := &models.OrderStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:             orderID,
		CustomerID:          order.CustomerID,
		FromStatus:          from,
		ToStatus:            next,
		ChangedBy:           actor.ID,
		Note:                note,
		DeactivatedProducts: change.DeactivatedProducts,
	}
	if err := s.eventPublisher.PublishOrderStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderStatusChanged event", zap.Error(err))
	}

	return change, nil
}

// outOfStockRecipients is the reseller of the order plus every admin, each
// once, never the customer
func outOfStockRecipients(order *models.Order, admins []string) []string {
	seen := map[string]bool{order.CustomerID: true}
	var out []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		out = append(out, id)
	}

	if order.ResellerID != nil {
		add(*order.ResellerID)
	}
	for _, id := range admins {
		add(id)
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return strings.ToUpper(id[:8])
	}
	return strings.ToUpper(id)
}

func customerNotification(order *models.Order, next string) *models.Notification {
	return &models.Notification{
		UserID:  order.CustomerID,
		Title:   "Atualização do pedido",
		Message: fmt.Sprintf("Seu pedido #%s agora está: %s", shortID(order.ID), orderstatus.LabelFor(next).Text),
		Type:    models.NotificationOrderStatus,
		OrderID: &order.ID,
	}
}

func outOfStockNotification(order *models.Order, userID string, products int) *models.Notification {
	return &models.Notification{
		UserID:  userID,
		Title:   "Produto sem estoque",
		Message: fmt.Sprintf("O pedido #%s foi marcado sem estoque. %d produto(s) foram desativados.", shortID(order.ID), products),
		Type:    models.NotificationOutOfStock,
		OrderID: &order.ID,
	}
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func (s *OrderService) loadOrder(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

// canView reports whether actor may read order
func canView(order *models.Order, actor Actor) bool {
	switch actor.Role {
	case models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplier:
		return true
	case models.RoleReseller:
		return order.ResellerID != nil && *order.ResellerID == actor.ID
	default:
		return order.CustomerID == actor.ID
	}
}

// GetOrder retrieves an order with items and history. Orders the actor may
// not see are reported as not found.
func (s *OrderService) GetOrder(ctx context.Context, orderID string, actor Actor) (*OrderDetails, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.GetOrder")
	defer span.End()

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !canView(order, actor) {
		return nil, ErrOrderNotFound
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	history, err := s.store.GetOrderHistory(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order history: %w", err)
	}

	return &OrderDetails{
		Order:       order,
		Label:       orderstatus.LabelFor(order.Status),
		Items:       items,
		History:     history,
		Transitions: orderstatus.AvailableTransitions(order.Status, actor.Role),
	}, nil
}

// ListOrders lists orders visible to actor
func (s *OrderService) ListOrders(ctx context.Context, filter store.OrderFilter, actor Actor) ([]models.Order, error) {
	if filter.Status != "" && !orderstatus.IsValid(filter.Status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}

	switch actor.Role {
	case models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplier:
	case models.RoleReseller:
		filter.ResellerID = actor.ID
	default:
		filter.CustomerID = actor.ID
		filter.ResellerID = ""
	}

	return s.store.ListOrders(ctx, filter)
}

// UpdatePaymentStatus sets payment_status. Setting the current value is a no-op.
func (s *OrderService) UpdatePaymentStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.UpdatePaymentStatus")
	defer span.End()

	if !models.IsValidPaymentStatus(status) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentStatus, status)
	}

	order, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	from := order.PaymentStatus
	if from == status {
		return order, nil
	}

	if err := s.store.UpdatePaymentStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update payment status: %w", err)
	}
	order.PaymentStatus = status

	s.logger.Info("Payment status changed",
		zap.String("order_id", orderID),
		zap.String("from", from),
		zap.String("to", status))

	event := &models.OrderPaymentStatusChangedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderPaymentStatusChanged,
			Timestamp: time.Now(),
		},
		OrderID:    orderID,
		FromStatus: from,
		ToStatus:   status,
	}
	if err := s.eventPublisher.PublishOrderPaymentStatusChanged(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderPaymentStatusChanged event", zap.Error(err))
	}

	return order, nil
}

// UpdateTracking stores the shipment tracking code of an order
func (s *OrderService) UpdateTracking(ctx context.Context, orderID, code, carrier string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: tracking code is required", ErrInvalidInput)
	}

	err := s.store.UpdateTracking(ctx, orderID, code, strings.TrimSpace(carrier))
	if errors.Is(err, store.ErrNotFound) {
		return ErrOrderNotFound
	}
	return err
}
