package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/dhecash/gateway/internal/adapter/http/middleware"
	redisStore "github.com/dhecash/gateway/internal/adapter/storage/redis"
	"github.com/dhecash/gateway/internal/core/ports"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PaymentSvc     ports.PaymentService
	CallbackRecon  ports.CallbackReconciler
	WebhookLogs    ports.WebhookLogRepository
	TokenSvc       ports.TokenService
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
	rules := middleware.DefaultRateLimitRules()

	// rl returns the rate limiter middleware for a group, or a no-op if
	// the store isn't wired (e.g. in a test harness) or the group has no rule.
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/v1")

	// --- Provider callback routes: unauthenticated, unrate-limited.
	// Each provider verifies authenticity of its own payload internally. ---
	callbackHandler := NewCallbackHandler(deps.CallbackRecon)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/moncash", callbackHandler.MonCash)
		webhooks.POST("/natcash", callbackHandler.NatCash)
		webhooks.POST("/stripe", callbackHandler.Stripe)
	}

	// --- Public checkout read: unauthenticated, rate-limited by client IP. ---
	checkoutHandler := NewCheckoutHandler(deps.PaymentSvc)
	v1.GET("/checkout/:ref", rl("checkout"), checkoutHandler.Get)

	// --- Merchant-authenticated payment API. ---
	apiKeyAuth := middleware.APIKeyAuth(deps.TokenSvc, deps.Logger)
	paymentHandler := NewPaymentHandler(deps.PaymentSvc, deps.WebhookLogs)
	payments := v1.Group("/payments", apiKeyAuth)
	{
		payments.POST("", rl("payments"), paymentHandler.Create)
		payments.GET("", rl("payments"), paymentHandler.List)
		payments.GET("/:ref", rl("payments"), paymentHandler.Get)
		payments.POST("/:ref/refund", rl("payments_refund"), paymentHandler.Refund)
		payments.GET("/:ref/webhook-logs", rl("payments"), paymentHandler.WebhookLogs)
	}

	return r
}
