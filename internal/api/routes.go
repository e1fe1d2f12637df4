package api

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/nsvirk/financeapi/internal/api/handlers"
	"github.com/nsvirk/financeapi/internal/api/middleware"
	"github.com/nsvirk/financeapi/internal/auth"
	"github.com/nsvirk/financeapi/internal/config"
	"github.com/nsvirk/financeapi/internal/mailer"
	"github.com/nsvirk/financeapi/internal/repository"
	"github.com/nsvirk/financeapi/internal/service"
)

// Deps are the collaborators the routes are built from
type Deps struct {
	Config   *config.Config
	DB       *gorm.DB
	Redis    *redis.Client // optional, enables login rate limiting
	Sessions repository.SessionStore
	Tokens   *auth.TokenIssuer
	Mailer   mailer.Dispatcher
	Notifier service.TransactionNotifier // optional
}

// SetupRoutes configures the routes for the API
func SetupRoutes(e *echo.Echo, deps Deps) {
	cfg := deps.Config

	e.Validator = NewRequestValidator()
	e.Use(middleware.Metrics())
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authService := service.NewAuthService(deps.DB, deps.Sessions, deps.Tokens, deps.Mailer, cfg.TwoFactorMaxAttempts).
		WithSendTimeout(cfg.SMTPTimeout)
	transactionService := service.NewTransactionService(deps.DB, deps.Notifier)
	reportService := service.NewReportService(deps.DB)

	// Create a group for all API routes
	api := e.Group("/api")

	// Index route
	indexHandler := handlers.NewIndexHandler(cfg)
	api.GET("/", indexHandler.Index)

	// Auth routes (unprotected, session cookie)
	authHandler := handlers.NewAuthHandler(authService, cfg.SessionTTL, cfg.SessionCookieSecure)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", authHandler.Login, middleware.RateLimit(deps.Redis, "login", cfg.LoginRateLimitPerMin))
	authGroup.POST("/twofactauthcheck", authHandler.TwoFactorAuthCheck, middleware.RateLimit(deps.Redis, "twofactor", cfg.LoginRateLimitPerMin))
	authGroup.POST("/logout", authHandler.Logout)
	api.POST("/signup", authHandler.Signup)

	// Webhook routes (shared secret when configured)
	webhookHandler := handlers.NewWebhookHandler(transactionService, cfg.WebhookSharedSecret)
	api.POST("/webhook/withdrawals/new-withdrawalTransaction", webhookHandler.NewWithdrawal)
	api.POST("/webhook/deposits/new-depositTransaction", webhookHandler.NewDeposit)

	// Report routes (protected)
	reportHandler := handlers.NewReportHandler(authService, reportService)
	requireAuth := middleware.AuthMiddleware(deps.Tokens)
	ownsUser := middleware.RequireOwnerUser("userId")
	ownsAccount := middleware.RequireOwnerAccount("accountId")

	api.GET("/user/dashboard", reportHandler.Dashboard, requireAuth)

	budgetGroup := api.Group("/budget", requireAuth)
	budgetGroup.GET("/:userId/:year/:month", reportHandler.GetBudgets, ownsUser)
	budgetGroup.POST("/:userId/:year/:month", reportHandler.UpsertBudgets, ownsUser)

	api.GET("/totalSpendByType/:userId/:year/:month", reportHandler.GetTotalSpendByType, requireAuth, ownsUser)

	transactionGroup := api.Group("/transactions", requireAuth)
	transactionGroup.GET("/summary/:accountId", reportHandler.GetSummary, ownsAccount)
	transactionGroup.GET("/spending-by-category/:accountId", reportHandler.GetSpendingByCategory, ownsAccount)
	transactionGroup.GET("/:accountId", reportHandler.GetTransactions, ownsAccount)
}
