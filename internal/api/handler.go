package api

import (
	"context"
	"net/http"
	"time"

	"storefront-service/internal/entitlement"
	"storefront-service/internal/models"
	"storefront-service/internal/pix"
	"storefront-service/internal/service"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderService is the order management used by the handlers
type OrderService interface {
	UpdateStatus(ctx context.Context, orderID string, actor service.Actor, next, note string) (*service.StatusChange, error)
	GetOrder(ctx context.Context, orderID string, actor service.Actor) (*service.OrderDetails, error)
	ListOrders(ctx context.Context, filter store.OrderFilter, actor service.Actor) ([]models.Order, error)
	UpdatePaymentStatus(ctx context.Context, orderID, status string) (*models.Order, error)
	UpdateTracking(ctx context.Context, orderID, code, carrier string) error
}

// FeatureService is the entitlement management used by the handlers
type FeatureService interface {
	ListCatalog(ctx context.Context) ([]models.Feature, error)
	Assign(ctx context.Context, req service.AssignRequest) (*entitlement.View, error)
	Revoke(ctx context.Context, userID, slug, reason, actor string) error
	ListUserFeatures(ctx context.Context, userID string) ([]entitlement.View, error)
	HasFeature(ctx context.Context, userID, slug string) (bool, error)
}

// AccountService is the user administration used by the handlers
type AccountService interface {
	CreateUser(ctx context.Context, actor service.Actor, req service.CreateUserRequest) (*models.Profile, error)
	DeleteUser(ctx context.Context, actor service.Actor, userID string) error
	UnbanUser(ctx context.Context, actor service.Actor, userID string) error
	RequestPasswordReset(ctx context.Context, email string) error
}

// ReportService generates daily sales reports
type ReportService interface {
	GenerateDaily(ctx context.Context, day, trigger string) (*models.DailySalesReport, error)
}

// PixBridge creates PIX charges for orders
type PixBridge interface {
	CreatePayment(ctx context.Context, orderID string) (*pix.Result, error)
}

// AuthEventHandler applies auth database webhooks
type AuthEventHandler interface {
	Handle(ctx context.Context, ev service.AuthEvent) (string, error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Config holds everything the handlers need
type Config struct {
	Orders            OrderService
	Features          FeatureService
	Accounts          AccountService
	Reports           ReportService
	Pix               PixBridge
	AuthEvents        AuthEventHandler
	Auth              *Authenticator
	PublicLimiter     *RateLimiter
	PixLimiter        *RateLimiter
	AuthWebhookSecret string
	Dependencies      map[string]Pinger
}

// Handler contains HTTP handlers
type Handler struct {
	cfg Config
}

// NewHandler creates a new HTTP handler
func NewHandler(cfg Config) *Handler {
	return &Handler{cfg: cfg}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.POST("/webhooks/auth-events", h.authEventWebhook)

	v1 := router.Group("/api/v1")
	v1.GET("/order-statuses", h.listOrderStatuses)
	v1.POST("/auth/reset-password", h.cfg.PublicLimiter.Middleware(), h.resetPassword)

	authed := v1.Group("")
	authed.Use(h.cfg.Auth.Middleware())
	{
		authed.GET("/orders", h.listOrders)
		authed.GET("/orders/:id", h.getOrder)
		authed.GET("/orders/:id/transitions", h.getTransitions)
		authed.PATCH("/orders/:id/status",
			RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplier), h.updateOrderStatus)
		authed.PATCH("/orders/:id/payment-status",
			RequireRoles(models.RoleAdmin, models.RoleSuperAdmin), h.updatePaymentStatus)
		authed.PATCH("/orders/:id/tracking",
			RequireRoles(models.RoleAdmin, models.RoleSuperAdmin, models.RoleSupplier), h.updateTracking)
		authed.POST("/orders/:id/pix", h.cfg.PixLimiter.Middleware(), h.createPixPayment)

		authed.GET("/features", h.listFeatures)
		authed.GET("/users/:id/features", h.listUserFeatures)
		authed.GET("/users/:id/features/:slug", h.hasFeature)
	}

	admin := authed.Group("/admin")
	admin.Use(RequireRoles(models.RoleAdmin, models.RoleSuperAdmin))
	{
		admin.POST("/users", h.createUser)
		admin.DELETE("/users/:id", h.deleteUser)
		admin.POST("/users/:id/unban", h.unbanUser)
		admin.POST("/users/:id/features", h.assignFeature)
		admin.DELETE("/users/:id/features/:slug", h.revokeFeature)
		admin.POST("/reports/daily", h.generateDailyReport)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := make(gin.H, len(h.cfg.Dependencies))
	ready := true
	for name, dep := range h.cfg.Dependencies {
		if err := dep.Ping(ctx); err != nil {
			checks[name] = err.Error()
			ready = false
			continue
		}
		checks[name] = "ok"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}

func actorFrom(c *gin.Context) service.Actor {
	return service.Actor{ID: c.GetString(ctxUserID), Role: c.GetString(ctxRole)}
}
