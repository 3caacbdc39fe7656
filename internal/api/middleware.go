package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"storefront-service/internal/models"
	"storefront-service/internal/store"
	"storefront-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	ctxUserID = "user_id"
	ctxRole   = "role"
)

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
	}
}

// requestLogger logs one line per request with the trace id of the request context
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		logger := util.LoggerFromContext(c.Request.Context())
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Error("Request failed", fields...)
			return
		}
		logger.Info("Request handled", fields...)
	}
}

// RoleSource reads the stored role of a user
type RoleSource interface {
	GetProfileRole(ctx context.Context, userID string) (string, error)
}

// RoleCache keeps resolved roles between requests
type RoleCache interface {
	GetCachedRole(ctx context.Context, userID string) (string, bool, error)
	CacheRole(ctx context.Context, userID, role string) error
}

// AccessClaims are the claims of a Supabase access token
type AccessClaims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Authenticator validates bearer tokens and resolves the caller's application role
type Authenticator struct {
	secret []byte
	roles  RoleSource
	cache  RoleCache
	logger *zap.Logger
}

// NewAuthenticator creates an authenticator for tokens signed with secret
func NewAuthenticator(secret string, roles RoleSource, cache RoleCache) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		roles:  roles,
		cache:  cache,
		logger: util.GetLogger(),
	}
}

// ParseToken validates an HS256 access token and returns its subject
func (a *Authenticator) ParseToken(tokenString string) (string, error) {
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token")
	}
	return claims.Subject, nil
}

// resolveRole returns the profile role, served from cache when possible.
// A user without a profile row is treated as a customer.
func (a *Authenticator) resolveRole(ctx context.Context, userID string) (string, error) {
	if role, ok, err := a.cache.GetCachedRole(ctx, userID); err != nil {
		a.logger.Warn("Role cache read failed", zap.String("user_id", userID), zap.Error(err))
	} else if ok {
		return role, nil
	}

	role, err := a.roles.GetProfileRole(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return models.RoleCustomer, nil
	}
	if err != nil {
		return "", err
	}

	if err := a.cache.CacheRole(ctx, userID, role); err != nil {
		a.logger.Warn("Role cache write failed", zap.String("user_id", userID), zap.Error(err))
	}
	return role, nil
}

// Middleware rejects requests without a valid token and stores the caller in the context
func (a *Authenticator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(tokenString) == "" {
			abortWithError(c, newAppError("UNAUTHORIZED", "Token de acesso ausente", http.StatusUnauthorized))
			return
		}

		userID, err := a.ParseToken(strings.TrimSpace(tokenString))
		if err != nil {
			abortWithError(c, &AppError{Code: "UNAUTHORIZED", Message: "Token de acesso inválido", HTTPStatus: http.StatusUnauthorized, Err: err})
			return
		}

		role, err := a.resolveRole(c.Request.Context(), userID)
		if err != nil {
			abortWithError(c, internalError(err))
			return
		}

		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// RequireRoles lets through only callers holding one of roles
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		if !allowed[c.GetString(ctxRole)] {
			abortWithError(c, newAppError("FORBIDDEN", "Permissão insuficiente", http.StatusForbidden))
			return
		}
		c.Next()
	}
}

// RateLimiter keeps a token bucket per client key
type RateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

const maxLimiters = 10000

// NewRateLimiter creates a limiter allowing rps requests per second with burst
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	limiter, ok := rl.limiters[key]
	if !ok {
		if len(rl.limiters) >= maxLimiters {
			rl.cleanup()
		}
		limiter = rate.NewLimiter(rl.rate, rl.burst)
		rl.limiters[key] = limiter
	}
	return limiter
}

// cleanup drops buckets that are full again. Caller holds mu.
func (rl *RateLimiter) cleanup() {
	for key, limiter := range rl.limiters {
		if limiter.Tokens() >= float64(rl.burst) {
			delete(rl.limiters, key)
		}
	}
}

// Middleware limits by authenticated user, falling back to client IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetString(ctxUserID)
		if key == "" {
			key = "ip:" + c.ClientIP()
		}
		if !rl.getLimiter(key).Allow() {
			c.Header("Retry-After", "1")
			abortWithError(c, newAppError("RATE_LIMITED", "Muitas requisições, tente novamente em instantes", http.StatusTooManyRequests))
			return
		}
		c.Next()
	}
}
