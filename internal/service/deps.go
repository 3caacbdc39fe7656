package service

import (
	"context"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
)

// Locker serializes work on one aggregate across instances
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

// OrderStore is the persistence OrderService needs
type OrderStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.Order, error)
	ListOrders(ctx context.Context, f store.OrderFilter) ([]models.Order, error)
	GetOrderItems(ctx context.Context, orderID string) ([]models.OrderItem, error)
	GetOrderHistory(ctx context.Context, orderID string) ([]models.OrderStatusHistory, error)
	UpdatePaymentStatus(ctx context.Context, orderID, status string) error
	UpdateTracking(ctx context.Context, orderID, code, carrier string) error
	ListAdminIDs(ctx context.Context) ([]string, error)
	WithTx(ctx context.Context, fn func(store.TxWriter) error) error
}

// OrderEventPublisher emits order events
type OrderEventPublisher interface {
	PublishOrderStatusChanged(ctx context.Context, event *models.OrderStatusChangedEvent) error
	PublishOrderPaymentStatusChanged(ctx context.Context, event *models.OrderPaymentStatusChangedEvent) error
}

// FeatureStore is the persistence FeatureService needs
type FeatureStore interface {
	ListActiveFeatures(ctx context.Context) ([]models.Feature, error)
	GetFeatureBySlug(ctx context.Context, slug string) (*models.Feature, error)
	ListUserFeatures(ctx context.Context, userID string) ([]models.UserFeature, error)
	GetUserFeature(ctx context.Context, userID, slug string) (*models.UserFeature, error)
	UpsertUserFeature(ctx context.Context, g *models.UserFeature) error
	DeactivateUserFeature(ctx context.Context, userID, featureID, status string, reason, actor *string) error
}

// FeatureEventPublisher emits entitlement events
type FeatureEventPublisher interface {
	PublishFeatureGranted(ctx context.Context, event *models.FeatureGrantedEvent) error
	PublishFeatureRevoked(ctx context.Context, event *models.FeatureRevokedEvent) error
}

// ReportStore is the persistence ReportService needs
type ReportStore interface {
	AggregateSales(ctx context.Context, from, to time.Time) (*store.SalesTotals, error)
	UpsertDailyReport(ctx context.Context, r *models.DailySalesReport) error
}

// ProfileStore is the profile persistence used by account and auth-event handling
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.Profile, error)
	CreateProfile(ctx context.Context, p *models.Profile) (bool, error)
	UpdateProfile(ctx context.Context, p *models.Profile) error
	DeleteProfile(ctx context.Context, userID string) error
}
