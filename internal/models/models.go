package models

import (
	"time"

	"github.com/lib/pq"
)

// Product represents a catalog product owned by a supplier
type Product struct {
	ID         string    `db:"id" json:"id"`
	SupplierID *string   `db:"supplier_id" json:"supplier_id,omitempty"`
	Name       string    `db:"name" json:"name"`
	SKU        string    `db:"sku" json:"sku"`
	PriceCents int64     `db:"price_cents" json:"price_cents"`
	Active     bool      `db:"active" json:"active"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Order represents a customer order
type Order struct {
	ID              string     `db:"id" json:"id"`
	CustomerID      string     `db:"customer_id" json:"customer_id"`
	ResellerID      *string    `db:"reseller_id" json:"reseller_id,omitempty"`
	TotalCents      int64      `db:"total_cents" json:"total_cents"`
	Status          string     `db:"status" json:"status"`
	PaymentStatus   string     `db:"payment_status" json:"payment_status"`
	PaymentMethod   *string    `db:"payment_method" json:"payment_method,omitempty"`
	TrackingCode    *string    `db:"tracking_code" json:"tracking_code,omitempty"`
	ShippingCarrier *string    `db:"shipping_carrier" json:"shipping_carrier,omitempty"`
	PixQRCodeBase64 *string    `db:"pix_qr_code_base64" json:"pix_qr_code_base64,omitempty"`
	PixCopyPaste    *string    `db:"pix_copy_paste" json:"pix_copy_paste,omitempty"`
	PixCreatedAt    *time.Time `db:"pix_created_at" json:"pix_created_at,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// OrderItem represents a line item in an order
type OrderItem struct {
	ID             string `db:"id" json:"id"`
	OrderID        string `db:"order_id" json:"order_id"`
	ProductID      string `db:"product_id" json:"product_id"`
	ProductName    string `db:"product_name" json:"product_name"`
	Quantity       int    `db:"quantity" json:"quantity"`
	UnitPriceCents int64  `db:"unit_price_cents" json:"unit_price_cents"`
}

// OrderStatusHistory is an append-only audit row, one per status change
type OrderStatusHistory struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	Status    string    `db:"status" json:"status"`
	Note      *string   `db:"note" json:"note,omitempty"`
	ChangedBy *string   `db:"changed_by" json:"changed_by,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Profile is the application view of an authenticated user
type Profile struct {
	ID        string    `db:"id" json:"id"`
	FullName  string    `db:"full_name" json:"full_name"`
	Email     string    `db:"email" json:"email"`
	Phone     *string   `db:"phone" json:"phone,omitempty"`
	CPF       *string   `db:"cpf" json:"cpf,omitempty"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Notification is an in-app message addressed to one user
type Notification struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Type      string    `db:"type" json:"type"`
	OrderID   *string   `db:"order_id" json:"order_id,omitempty"`
	Read      bool      `db:"read" json:"read"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Feature is a sellable platform capability
type Feature struct {
	ID                 string         `db:"id" json:"id"`
	Slug               string         `db:"slug" json:"slug"`
	Name               string         `db:"name" json:"name"`
	Description        string         `db:"description" json:"description"`
	MonthlyPriceCents  int64          `db:"monthly_price_cents" json:"monthly_price_cents"`
	AnnualPriceCents   int64          `db:"annual_price_cents" json:"annual_price_cents"`
	LifetimePriceCents int64          `db:"lifetime_price_cents" json:"lifetime_price_cents"`
	TrialDays          int            `db:"trial_days" json:"trial_days"`
	Dependencies       pq.StringArray `db:"dependencies" json:"dependencies"`
	Active             bool           `db:"active" json:"active"`
	CreatedAt          time.Time      `db:"created_at" json:"created_at"`
}

// UserFeature is a grant of one feature to one user
type UserFeature struct {
	ID            string     `db:"id" json:"id"`
	UserID        string     `db:"user_id" json:"user_id"`
	FeatureID     string     `db:"feature_id" json:"feature_id"`
	FeatureSlug   string     `db:"feature_slug" json:"feature_slug"`
	Status        string     `db:"status" json:"status"`
	TipoPeriodo   string     `db:"tipo_periodo" json:"tipo_periodo"`
	DataInicio    time.Time  `db:"data_inicio" json:"data_inicio"`
	DataExpiracao *time.Time `db:"data_expiracao" json:"data_expiracao,omitempty"`
	Motivo        *string    `db:"motivo" json:"motivo,omitempty"`
	AtribuidoPor  *string    `db:"atribuido_por" json:"atribuido_por,omitempty"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// DailySalesReport aggregates one calendar day of orders
type DailySalesReport struct {
	ReportDate         time.Time `db:"report_date" json:"report_date"`
	TotalOrders        int       `db:"total_orders" json:"total_orders"`
	PaidOrders         int       `db:"paid_orders" json:"paid_orders"`
	CancelledOrders    int       `db:"cancelled_orders" json:"cancelled_orders"`
	RevenueCents       int64     `db:"revenue_cents" json:"revenue_cents"`
	AverageTicketCents int64     `db:"average_ticket_cents" json:"average_ticket_cents"`
	GeneratedAt        time.Time `db:"generated_at" json:"generated_at"`
}

// Payment statuses
const (
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// Profile roles
const (
	RoleCustomer   = "customer"
	RoleReseller   = "reseller"
	RoleSupplier   = "supplier"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

// Notification types
const (
	NotificationOrderStatus = "order_status"
	NotificationOutOfStock  = "out_of_stock"
)

// PaymentMethodPix is stored on orders paid through the PIX bridge
const PaymentMethodPix = "pix"

// IsAdminRole reports whether role has platform-wide administrative rights
func IsAdminRole(role string) bool {
	return role == RoleAdmin || role == RoleSuperAdmin
}

// IsValidRole reports whether role is a known profile role
func IsValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleReseller, RoleSupplier, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// IsValidPaymentStatus reports whether s is a known payment status
func IsValidPaymentStatus(s string) bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed:
		return true
	}
	return false
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
