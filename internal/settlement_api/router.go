package settlement_api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/streampay-settlement-engine/internal/settlement_api/handler"
	"github.com/streampay-settlement-engine/internal/settlement_api/middleware"
)

// setupRouter configures API routes and middleware for the application
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	walletHandler *handler.WalletHandler,
	sessionHandler *handler.SessionHandler,
	pricingHandler *handler.PricingHandler,
) {
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CorrelationID())

	// API v1 endpoints
	v1 := r.Group("/api/v1")
	{
		// Wallet operations
		wallet := v1.Group("/wallet")
		{
			wallet.POST("/deposits", walletHandler.Deposit)
			wallet.GET("/:userID/balance", walletHandler.GetBalance)
			wallet.GET("/:userID/payments", walletHandler.GetPayments)
		}

		// Session lifecycle
		sessions := v1.Group("/sessions")
		{
			sessions.POST("", sessionHandler.Create)
			sessions.POST("/end-signal", sessionHandler.EndSignal)
			sessions.POST("/:id/start", sessionHandler.Start)
			sessions.POST("/:id/end", sessionHandler.End)
			sessions.GET("/:id", sessionHandler.GetByID)
		}

		// Open-session recovery for clients that lost the session ID
		users := v1.Group("/users")
		{
			users.GET("/:userID/sessions/active", sessionHandler.GetActive)
		}

		// Content pricing
		content := v1.Group("/content")
		{
			content.GET("/:id/pricing", pricingHandler.GetPricing)
		}
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
}
