package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"storefront-service/internal/entitlement"
	"storefront-service/internal/models"
	"storefront-service/internal/orderstatus"
	"storefront-service/internal/pix"
	"storefront-service/internal/service"
	"storefront-service/internal/signature"
	"storefront-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testJWTSecret     = "test-jwt-secret"
	testWebhookSecret = "test-webhook-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type mockOrders struct{ mock.Mock }

func (m *mockOrders) UpdateStatus(ctx context.Context, orderID string, actor service.Actor, next, note string) (*service.StatusChange, error) {
	args := m.Called(ctx, orderID, actor, next, note)
	change, _ := args.Get(0).(*service.StatusChange)
	return change, args.Error(1)
}

func (m *mockOrders) GetOrder(ctx context.Context, orderID string, actor service.Actor) (*service.OrderDetails, error) {
	args := m.Called(ctx, orderID, actor)
	details, _ := args.Get(0).(*service.OrderDetails)
	return details, args.Error(1)
}

func (m *mockOrders) ListOrders(ctx context.Context, filter store.OrderFilter, actor service.Actor) ([]models.Order, error) {
	args := m.Called(ctx, filter, actor)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *mockOrders) UpdatePaymentStatus(ctx context.Context, orderID, status string) (*models.Order, error) {
	args := m.Called(ctx, orderID, status)
	order, _ := args.Get(0).(*models.Order)
	return order, args.Error(1)
}

func (m *mockOrders) UpdateTracking(ctx context.Context, orderID, code, carrier string) error {
	return m.Called(ctx, orderID, code, carrier).Error(0)
}

type mockFeatures struct{ mock.Mock }

func (m *mockFeatures) ListCatalog(ctx context.Context) ([]models.Feature, error) {
	args := m.Called(ctx)
	features, _ := args.Get(0).([]models.Feature)
	return features, args.Error(1)
}

func (m *mockFeatures) Assign(ctx context.Context, req service.AssignRequest) (*entitlement.View, error) {
	args := m.Called(ctx, req)
	view, _ := args.Get(0).(*entitlement.View)
	return view, args.Error(1)
}

func (m *mockFeatures) Revoke(ctx context.Context, userID, slug, reason, actor string) error {
	return m.Called(ctx, userID, slug, reason, actor).Error(0)
}

func (m *mockFeatures) ListUserFeatures(ctx context.Context, userID string) ([]entitlement.View, error) {
	args := m.Called(ctx, userID)
	views, _ := args.Get(0).([]entitlement.View)
	return views, args.Error(1)
}

func (m *mockFeatures) HasFeature(ctx context.Context, userID, slug string) (bool, error) {
	args := m.Called(ctx, userID, slug)
	return args.Bool(0), args.Error(1)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) CreateUser(ctx context.Context, actor service.Actor, req service.CreateUserRequest) (*models.Profile, error) {
	args := m.Called(ctx, actor, req)
	p, _ := args.Get(0).(*models.Profile)
	return p, args.Error(1)
}

func (m *mockAccounts) DeleteUser(ctx context.Context, actor service.Actor, userID string) error {
	return m.Called(ctx, actor, userID).Error(0)
}

func (m *mockAccounts) UnbanUser(ctx context.Context, actor service.Actor, userID string) error {
	return m.Called(ctx, actor, userID).Error(0)
}

func (m *mockAccounts) RequestPasswordReset(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

type mockReports struct{ mock.Mock }

func (m *mockReports) GenerateDaily(ctx context.Context, day, trigger string) (*models.DailySalesReport, error) {
	args := m.Called(ctx, day, trigger)
	r, _ := args.Get(0).(*models.DailySalesReport)
	return r, args.Error(1)
}

type mockPix struct{ mock.Mock }

func (m *mockPix) CreatePayment(ctx context.Context, orderID string) (*pix.Result, error) {
	args := m.Called(ctx, orderID)
	r, _ := args.Get(0).(*pix.Result)
	return r, args.Error(1)
}

type mockAuthEvents struct{ mock.Mock }

func (m *mockAuthEvents) Handle(ctx context.Context, ev service.AuthEvent) (string, error) {
	args := m.Called(ctx, ev)
	return args.String(0), args.Error(1)
}

// fakeRoles serves both as role source and role cache
type fakeRoles struct {
	stored  map[string]string
	cached  map[string]string
	lookups int
}

func (f *fakeRoles) GetProfileRole(_ context.Context, userID string) (string, error) {
	f.lookups++
	role, ok := f.stored[userID]
	if !ok {
		return "", store.ErrNotFound
	}
	return role, nil
}

func (f *fakeRoles) GetCachedRole(_ context.Context, userID string) (string, bool, error) {
	role, ok := f.cached[userID]
	return role, ok, nil
}

func (f *fakeRoles) CacheRole(_ context.Context, userID, role string) error {
	f.cached[userID] = role
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type testServer struct {
	router   *gin.Engine
	orders   *mockOrders
	features *mockFeatures
	accounts *mockAccounts
	reports  *mockReports
	pix      *mockPix
	events   *mockAuthEvents
	roles    *fakeRoles
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ts := &testServer{
		router:   gin.New(),
		orders:   &mockOrders{},
		features: &mockFeatures{},
		accounts: &mockAccounts{},
		reports:  &mockReports{},
		pix:      &mockPix{},
		events:   &mockAuthEvents{},
		roles: &fakeRoles{
			stored: map[string]string{
				"admin-1":    models.RoleAdmin,
				"customer-1": models.RoleCustomer,
				"supplier-1": models.RoleSupplier,
			},
			cached: map[string]string{},
		},
	}

	NewHandler(Config{
		Orders:            ts.orders,
		Features:          ts.features,
		Accounts:          ts.accounts,
		Reports:           ts.reports,
		Pix:               ts.pix,
		AuthEvents:        ts.events,
		Auth:              NewAuthenticator(testJWTSecret, ts.roles, ts.roles),
		PublicLimiter:     NewRateLimiter(1, 1),
		PixLimiter:        NewRateLimiter(100, 100),
		AuthWebhookSecret: testWebhookSecret,
		Dependencies:      map[string]Pinger{"postgres": pinger{}},
	}).SetupRoutes(ts.router)

	t.Cleanup(func() {
		ts.orders.AssertExpectations(t)
		ts.features.AssertExpectations(t)
		ts.accounts.AssertExpectations(t)
		ts.reports.AssertExpectations(t)
		ts.pix.AssertExpectations(t)
		ts.events.AssertExpectations(t)
	})
	return ts
}

func token(t *testing.T, userID string) string {
	t.Helper()
	claims := AccessClaims{
		Role: "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return signed
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID))
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Error.Code
}

var (
	admin    = service.Actor{ID: "admin-1", Role: models.RoleAdmin}
	customer = service.Actor{ID: "customer-1", Role: models.RoleCustomer}
)

func TestHealthAndReadiness(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReadinessReportsFailingDependency(t *testing.T) {
	router := gin.New()
	NewHandler(Config{
		Auth:          NewAuthenticator(testJWTSecret, &fakeRoles{}, &fakeRoles{}),
		PublicLimiter: NewRateLimiter(1, 1),
		PixLimiter:    NewRateLimiter(1, 1),
		Dependencies:  map[string]Pinger{"redis": pinger{err: errors.New("connection refused")}},
	}).SetupRoutes(router)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")
}

func TestListOrderStatusesIsPublic(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/order-statuses", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Statuses []statusView `json:"statuses"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Statuses, 7)
	assert.Equal(t, "Pendente", body.Statuses[0].Text)
}

func TestMissingOrInvalidTokenIsRejected(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "UNAUTHORIZED", errorCode(t, w))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleIsCachedAfterFirstLookup(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("ListOrders", mock.Anything, store.OrderFilter{}, customer).Return([]models.Order{}, nil).Twice()

	ts.do(t, http.MethodGet, "/api/v1/orders", "customer-1", nil)
	ts.do(t, http.MethodGet, "/api/v1/orders", "customer-1", nil)

	assert.Equal(t, 1, ts.roles.lookups)
	assert.Equal(t, models.RoleCustomer, ts.roles.cached["customer-1"])
}

func TestUserWithoutProfileIsCustomer(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("ListOrders", mock.Anything, store.OrderFilter{}, service.Actor{ID: "ghost", Role: models.RoleCustomer}).
		Return([]models.Order{}, nil).Once()

	w := ts.do(t, http.MethodGet, "/api/v1/orders", "ghost", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestListOrdersRejectsBadPagination(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/orders?limit=abc", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCustomerCannotChangeStatus(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPatch, "/api/v1/orders/o-1/status", "customer-1", gin.H{"status": "confirmado"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "FORBIDDEN", errorCode(t, w))
}

func TestUpdateStatusMapsServiceErrors(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("UpdateStatus", mock.Anything, "o-1", admin, "entregue", "").
		Return(nil, service.ErrTransitionNotAllowed).Once()
	ts.orders.On("UpdateStatus", mock.Anything, "o-2", admin, "confirmado", "").
		Return(nil, service.ErrOrderLocked).Once()
	ts.orders.On("UpdateStatus", mock.Anything, "o-3", admin, "confirmado", "ok").
		Return(&service.StatusChange{Order: &models.Order{ID: "o-3", Status: "confirmado"}, Changed: true}, nil).Once()

	w := ts.do(t, http.MethodPatch, "/api/v1/orders/o-1/status", "admin-1", gin.H{"status": "entregue"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "TRANSITION_NOT_ALLOWED", errorCode(t, w))

	w = ts.do(t, http.MethodPatch, "/api/v1/orders/o-2/status", "admin-1", gin.H{"status": "confirmado"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "ORDER_LOCKED", errorCode(t, w))

	w = ts.do(t, http.MethodPatch, "/api/v1/orders/o-3/status", "admin-1", gin.H{"status": "confirmado", "note": "ok"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"changed":true`)
}

func TestTransitionsEndpointLabelsTargets(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("GetOrder", mock.Anything, "o-1", admin).Return(&service.OrderDetails{
		Order:       &models.Order{ID: "o-1", Status: "enviado"},
		Transitions: []orderstatus.Status{"entregue", "cancelado"},
	}, nil).Once()

	w := ts.do(t, http.MethodGet, "/api/v1/orders/o-1/transitions", "admin-1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Current     string       `json:"current"`
		Transitions []statusView `json:"transitions"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "enviado", body.Current)
	require.Len(t, body.Transitions, 2)
	assert.Equal(t, "Entregue", body.Transitions[0].Text)
}

func TestCreatePixPayment(t *testing.T) {
	ts := newTestServer(t)
	ts.orders.On("GetOrder", mock.Anything, "o-hidden", customer).Return(nil, service.ErrOrderNotFound).Once()
	ts.orders.On("GetOrder", mock.Anything, mock.Anything, customer).Return(&service.OrderDetails{Order: &models.Order{}}, nil)
	ts.pix.On("CreatePayment", mock.Anything, "o-1").Return(&pix.Result{OrderID: "o-1", CopyPaste: "000201"}, nil).Once()
	ts.pix.On("CreatePayment", mock.Anything, "o-2").Return(nil, pix.ErrWebhookNotRegistered).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/orders/o-hidden/pix", "customer-1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/orders/o-1/pix", "customer-1", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "000201")

	w = ts.do(t, http.MethodPost, "/api/v1/orders/o-2/pix", "customer-1", nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "WEBHOOK_NOT_REGISTERED", errorCode(t, w))
}

func TestAssignFeatureMissingDependencies(t *testing.T) {
	ts := newTestServer(t)
	req := service.AssignRequest{UserID: "u-1", Slug: "dominio-proprio", Period: "mensal", Actor: "admin-1"}
	ts.features.On("Assign", mock.Anything, req).
		Return(nil, &service.DependencyError{Feature: "dominio-proprio", Missing: []string{"loja-propria"}}).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/admin/users/u-1/features", "admin-1",
		gin.H{"feature_slug": "dominio-proprio", "tipo_periodo": "mensal"})

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "MISSING_DEPENDENCIES", errorCode(t, w))
	assert.Contains(t, w.Body.String(), "loja-propria")
}

func TestRevokeFeature(t *testing.T) {
	ts := newTestServer(t)
	ts.features.On("Revoke", mock.Anything, "u-1", "loja-propria", "", "admin-1").Return(nil).Once()
	ts.features.On("Revoke", mock.Anything, "u-1", "checkout-pix", "fim", "admin-1").Return(service.ErrGrantNotFound).Once()

	w := ts.do(t, http.MethodDelete, "/api/v1/admin/users/u-1/features/loja-propria", "admin-1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/admin/users/u-1/features/checkout-pix", "admin-1", gin.H{"motivo": "fim"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "GRANT_NOT_FOUND", errorCode(t, w))
}

func TestUserFeaturesVisibleToOwnerAndAdmins(t *testing.T) {
	ts := newTestServer(t)
	ts.features.On("ListUserFeatures", mock.Anything, "customer-1").Return([]entitlement.View{}, nil).Twice()

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/users/customer-1/features", "customer-1", nil).Code)
	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/api/v1/users/customer-1/features", "admin-1", nil).Code)
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/api/v1/users/admin-1/features", "customer-1", nil).Code)
}

func TestHasFeature(t *testing.T) {
	ts := newTestServer(t)
	ts.features.On("HasFeature", mock.Anything, "customer-1", "loja-propria").Return(true, nil).Once()

	w := ts.do(t, http.MethodGet, "/api/v1/users/customer-1/features/loja-propria", "customer-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"feature_slug":"loja-propria","active":true}`, w.Body.String())
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/admin/reports/daily", "supplier-1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteSelfIsRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.On("DeleteUser", mock.Anything, admin, "admin-1").Return(service.ErrSelfDelete).Once()

	w := ts.do(t, http.MethodDelete, "/api/v1/admin/users/admin-1", "admin-1", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "SELF_DELETE", errorCode(t, w))
}

func TestGenerateDailyReportDefaultsToYesterday(t *testing.T) {
	ts := newTestServer(t)
	ts.reports.On("GenerateDaily", mock.Anything, "", "manual").Return(&models.DailySalesReport{TotalOrders: 3}, nil).Once()
	ts.reports.On("GenerateDaily", mock.Anything, "2999-01-01", "manual").Return(nil, service.ErrInvalidReportDate).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/admin/reports/daily", "admin-1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/admin/reports/daily", "admin-1", gin.H{"date": "2999-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_DATE", errorCode(t, w))
}

func TestResetPasswordIsRateLimited(t *testing.T) {
	ts := newTestServer(t)
	ts.accounts.On("RequestPasswordReset", mock.Anything, "a@b.com").Return(nil).Once()

	w := ts.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", gin.H{"email": "a@b.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/auth/reset-password", "", gin.H{"email": "a@b.com"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", errorCode(t, w))
}

func TestAuthEventWebhookSignature(t *testing.T) {
	ts := newTestServer(t)
	body := []byte(`{"type":"INSERT","table":"users","schema":"auth","record":{"id":"u-9","email":"x@y.com"}}`)
	ts.events.On("Handle", mock.Anything, mock.MatchedBy(func(ev service.AuthEvent) bool {
		return ev.Type == "INSERT" && ev.Table == "users"
	})).Return(service.AuthEventCreated, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/auth-events", bytes.NewReader(body))
	req.Header.Set(authWebhookSignatureHeader, "sha256=deadbeef")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_SIGNATURE", errorCode(t, w))

	req = httptest.NewRequest(http.MethodPost, "/webhooks/auth-events", bytes.NewReader(body))
	req.Header.Set(authWebhookSignatureHeader, signature.Sign(testWebhookSecret, body))
	w = httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"outcome":"created"`)
}

func TestTranslateMessage(t *testing.T) {
	assert.Equal(t, "Credenciais de login inválidas", translateMessage("Invalid login credentials"))
	assert.Equal(t, "Usuário já cadastrado", translateMessage("USER ALREADY REGISTERED"))
	assert.Equal(t, "something else", translateMessage("something else"))
}

func TestRateLimiterDropsIdleBucketsWhenFull(t *testing.T) {
	rl := NewRateLimiter(1, 1)
	busy := rl.getLimiter("busy")
	require.True(t, busy.Allow())

	for i := 0; i < maxLimiters; i++ {
		rl.getLimiter("idle-" + strconv.Itoa(i))
	}

	assert.Less(t, len(rl.limiters), maxLimiters)
	assert.Same(t, busy, rl.getLimiter("busy"))
}
