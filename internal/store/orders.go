package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"storefront-service/internal/models"
)

const orderColumns = `id, customer_id, reseller_id, total_cents, status, payment_status, payment_method,
	tracking_code, shipping_carrier, pix_qr_code_base64, pix_copy_paste, pix_created_at, created_at, updated_at`

// OrderFilter narrows ListOrders. Empty fields are ignored.
type OrderFilter struct {
	Status     string
	CustomerID string
	ResellerID string
	Limit      int
	Offset     int
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	if err != nil {
		return nil, notFound("order", id, err)
	}
	return &order, nil
}

// ListOrders retrieves orders newest first
func (s *Store) ListOrders(ctx context.Context, f OrderFilter) ([]models.Order, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != "" {
		add("status = $%d", f.Status)
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", f.CustomerID)
	}
	if f.ResellerID != "" {
		add("reseller_id = $%d", f.ResellerID)
	}

	query := "SELECT " + orderColumns + " FROM orders"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	limit := f.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	args = append(args, limit, f.Offset)
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	orders := []models.Order{}
	err := s.db.SelectContext(ctx, &orders, query, args...)
	return orders, err
}

// GetOrderItems retrieves all items for an order
func (s *Store) GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	items := []models.OrderItem{}
	err := s.db.SelectContext(ctx, &items,
		"SELECT id, order_id, product_id, product_name, quantity, unit_price_cents FROM order_items WHERE order_id = $1",
		orderID)
	return items, err
}

// GetOrderHistory retrieves the status history of an order, oldest first
func (s *Store) GetOrderHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	history := []models.OrderStatusHistory{}
	err := s.db.SelectContext(ctx, &history,
		"SELECT id, order_id, status, note, changed_by, created_at FROM order_status_history WHERE order_id = $1 ORDER BY created_at",
		orderID)
	return history, err
}

// UpdatePaymentStatus sets the payment status of an order
func (s *Store) UpdatePaymentStatus(ctx context.Context, orderID, status string) error {
	return s.execOne(ctx, "order", orderID,
		"UPDATE orders SET payment_status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
}

// UpdateTracking sets the tracking code and carrier of an order
func (s *Store) UpdateTracking(ctx context.Context, orderID, code, carrier string) error {
	return s.execOne(ctx, "order", orderID,
		"UPDATE orders SET tracking_code = $1, shipping_carrier = $2, updated_at = NOW() WHERE id = $3",
		code, carrier, orderID)
}

// SavePixCharge stores the PIX charge returned by the provider on the order
func (s *Store) SavePixCharge(ctx context.Context, orderID, qrCodeBase64, copyPaste string, createdAt time.Time) error {
	return s.execOne(ctx, "order", orderID,
		`UPDATE orders
		SET pix_qr_code_base64 = $1, pix_copy_paste = $2, pix_created_at = $3,
			payment_method = $4, updated_at = NOW()
		WHERE id = $5`,
		qrCodeBase64, copyPaste, createdAt, models.PaymentMethodPix, orderID)
}

func (s *Store) execOne(ctx context.Context, kind, id, query string, args ...interface{}) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
	}
	return nil
}

// UpdateOrderStatus updates order status
func (t *Tx) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	res, err := t.tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// InsertStatusHistory appends an audit entry
func (t *Tx) InsertStatusHistory(ctx context.Context, entry *models.OrderStatusHistory) error {
	err := t.tx.GetContext(ctx, entry,
		`INSERT INTO order_status_history (order_id, status, note, changed_by)
		VALUES ($1, $2, $3, $4)
		RETURNING id, order_id, status, note, changed_by, created_at`,
		entry.OrderID, entry.Status, entry.Note, entry.ChangedBy)
	if err != nil {
		return fmt.Errorf("failed to insert status history: %w", err)
	}
	return nil
}

// InsertNotification inserts a notification row
func (t *Tx) InsertNotification(ctx context.Context, n *models.Notification) error {
	err := t.tx.GetContext(ctx, n,
		`INSERT INTO notifications (user_id, title, message, type, order_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, title, message, type, order_id, read, created_at`,
		n.UserID, n.Title, n.Message, n.Type, n.OrderID)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// DeactivateOrderProducts deactivates every distinct product on the order and
// returns their IDs
func (t *Tx) DeactivateOrderProducts(ctx context.Context, orderID string) ([]string, error) {
	ids := []string{}
	err := t.tx.SelectContext(ctx, &ids,
		`UPDATE products SET active = FALSE, updated_at = NOW()
		WHERE id IN (SELECT DISTINCT product_id FROM order_items WHERE order_id = $1)
		RETURNING id`,
		orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to deactivate products: %w", err)
	}
	return ids, nil
}
