package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocker() *fakeLocker { return &fakeLocker{held: map[string]bool{}} }

func (l *fakeLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return "", false, nil
	}
	l.held[key] = true
	return "tok-" + key, true, nil
}

func (l *fakeLocker) ReleaseLock(_ context.Context, key, _ string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
	return nil
}

type fakeOrderStore struct {
	orders        map[string]*models.Order
	items         map[string][]models.OrderItem
	admins        []string
	history       []models.OrderStatusHistory
	notifications []models.Notification
	inactive      map[string]bool
	failOn        string
	txCount       int
}

func newFakeOrderStore() *fakeOrderStore {
	return &fakeOrderStore{
		orders:   map[string]*models.Order{},
		items:    map[string][]models.OrderItem{},
		inactive: map[string]bool{},
	}
}

func (f *fakeOrderStore) GetOrderByID(_ context.Context, id string) (*models.Order, error) {
	o, ok := f.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, store.ErrNotFound)
	}
	cp := *o
	return &cp, nil
}

func (f *fakeOrderStore) ListOrders(_ context.Context, filter store.OrderFilter) ([]models.Order, error) {
	var out []models.Order
	for _, o := range f.orders {
		if filter.CustomerID != "" && o.CustomerID != filter.CustomerID {
			continue
		}
		if filter.ResellerID != "" && (o.ResellerID == nil || *o.ResellerID != filter.ResellerID) {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeOrderStore) GetOrderItems(_ context.Context, orderID string) ([]models.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeOrderStore) GetOrderHistory(_ context.Context, orderID string) ([]models.OrderStatusHistory, error) {
	var out []models.OrderStatusHistory
	for _, h := range f.history {
		if h.OrderID == orderID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (f *fakeOrderStore) UpdatePaymentStatus(_ context.Context, orderID, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.PaymentStatus = status
	return nil
}

func (f *fakeOrderStore) UpdateTracking(_ context.Context, orderID, code, carrier string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.TrackingCode = &code
	o.ShippingCarrier = &carrier
	return nil
}

func (f *fakeOrderStore) ListAdminIDs(context.Context) ([]string, error) {
	return f.admins, nil
}

// WithTx stages writes and applies them only when fn succeeds
func (f *fakeOrderStore) WithTx(ctx context.Context, fn func(store.TxWriter) error) error {
	f.txCount++
	tx := &fakeTx{store: f, statuses: map[string]string{}}
	if err := fn(tx); err != nil {
		return err
	}
	for id, s := range tx.statuses {
		f.orders[id].Status = s
	}
	f.history = append(f.history, tx.history...)
	f.notifications = append(f.notifications, tx.notifications...)
	for _, id := range tx.deactivated {
		f.inactive[id] = true
	}
	return nil
}

func (f *fakeOrderStore) writes() int {
	return len(f.history) + len(f.notifications) + len(f.inactive)
}

type fakeTx struct {
	store         *fakeOrderStore
	statuses      map[string]string
	history       []models.OrderStatusHistory
	notifications []models.Notification
	deactivated   []string
}

func (t *fakeTx) fail(op string) error {
	if t.store.failOn == op {
		return errors.New(op + " failed")
	}
	return nil
}

func (t *fakeTx) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	if err := t.fail("status"); err != nil {
		return err
	}
	if t.store.failOn == "vanished" {
		return fmt.Errorf("order %s: %w", orderID, store.ErrNotFound)
	}
	t.statuses[orderID] = status
	return nil
}

func (t *fakeTx) InsertStatusHistory(_ context.Context, entry *models.OrderStatusHistory) error {
	if err := t.fail("history"); err != nil {
		return err
	}
	t.history = append(t.history, *entry)
	return nil
}

func (t *fakeTx) InsertNotification(_ context.Context, n *models.Notification) error {
	if err := t.fail("notification"); err != nil {
		return err
	}
	t.notifications = append(t.notifications, *n)
	return nil
}

func (t *fakeTx) DeactivateOrderProducts(_ context.Context, orderID string) ([]string, error) {
	if err := t.fail("deactivate"); err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var ids []string
	for _, it := range t.store.items[orderID] {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	t.deactivated = ids
	return ids, nil
}

type fakePublisher struct {
	statusChanged  []*models.OrderStatusChangedEvent
	paymentChanged []*models.OrderPaymentStatusChangedEvent
	granted        []*models.FeatureGrantedEvent
	revoked        []*models.FeatureRevokedEvent
}

func (p *fakePublisher) PublishOrderStatusChanged(_ context.Context, e *models.OrderStatusChangedEvent) error {
	p.statusChanged = append(p.statusChanged, e)
	return nil
}

func (p *fakePublisher) PublishOrderPaymentStatusChanged(_ context.Context, e *models.OrderPaymentStatusChangedEvent) error {
	p.paymentChanged = append(p.paymentChanged, e)
	return nil
}

func (p *fakePublisher) PublishFeatureGranted(_ context.Context, e *models.FeatureGrantedEvent) error {
	p.granted = append(p.granted, e)
	return nil
}

func (p *fakePublisher) PublishFeatureRevoked(_ context.Context, e *models.FeatureRevokedEvent) error {
	p.revoked = append(p.revoked, e)
	return nil
}
