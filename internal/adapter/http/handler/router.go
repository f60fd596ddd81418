package handler

import (
	"net/http"

	"github.com/devtofunmi/fake-bank/internal/adapter/http/middleware"
	redisStore "github.com/devtofunmi/fake-bank/internal/adapter/storage/redis"
	"github.com/devtofunmi/fake-bank/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	WalletSvc      ports.WalletService
	ReportingSvc   ports.ReportingService
	JobSvc         ports.JobService // nil disables the scheduled routes
	Users          ports.UserRepository
	Accounts       ports.AccountRepository
	TokenSvc       ports.TokenService
	SigSvc         ports.SignatureService
	FundingSecret  string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	RateLimitRules map[string]middleware.RateLimitRule
	HealthCheckers []ports.HealthChecker
	AuditSvc       ports.AuditService // nil = audit logging disabled
	Metrics        http.Handler       // nil = no /metrics endpoint
	MaxBodyBytes   int64
	Mode           string
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	}
	r := gin.New()

	maxBody := deps.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(maxBody))

	// Audit logging (after response)
	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	if deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(deps.Metrics))
	}

	rules := deps.RateLimitRules
	if rules == nil {
		rules = middleware.DefaultRateLimitRules()
	}

	// Helper: return rate limiter middleware if store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		rule, ok := rules[group]
		if deps.RateLimitStore == nil || !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)

	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/signup", rl(middleware.GroupAuthSignup), authHandler.Signup)
		auth.POST("/login", rl(middleware.GroupAuthLogin), authHandler.Login)
	}
	v1.GET("/me", jwtAuth, rl(middleware.GroupWalletRead), authHandler.Me)

	walletHandler := NewWalletHandler(deps.WalletSvc, deps.ReportingSvc, deps.JobSvc, deps.Users, deps.Accounts)
	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("", rl(middleware.GroupWalletRead), walletHandler.GetBalance)
		wallet.GET("/transactions", rl(middleware.GroupWalletRead), walletHandler.ListTransactions)
		wallet.GET("/reconcile", rl(middleware.GroupWalletRead), walletHandler.Reconcile)
		wallet.POST("/transfer", rl(middleware.GroupWalletWrite), walletHandler.Transfer)
		wallet.POST("/deposit", rl(middleware.GroupWalletWrite), walletHandler.Deposit)
		if deps.JobSvc != nil {
			wallet.POST("/transfers/scheduled", rl(middleware.GroupWalletWrite), walletHandler.ScheduleTransfer)
			wallet.POST("/deposits/scheduled", rl(middleware.GroupWalletWrite), walletHandler.ScheduleDeposit)
		}
	}

	// Provider callbacks are authenticated by body signature, not JWT.
	fundingHandler := NewFundingHandler(deps.WalletSvc)
	webhooks := v1.Group("/webhooks")
	{
		webhooks.POST("/funding",
			rl(middleware.GroupWebhook),
			middleware.WebhookSignature(deps.SigSvc, deps.FundingSecret, deps.Logger),
			fundingHandler.Webhook,
		)
	}

	return r
}
