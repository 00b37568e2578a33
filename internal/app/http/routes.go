package routes

import (
	adminapi "marketplace-payments/internal/api/admin"
	"marketplace-payments/internal/api/billing"
	escrowapi "marketplace-payments/internal/api/escrow"
	"marketplace-payments/internal/api/plans"
	stripewebhooks "marketplace-payments/internal/api/stripewebhook"
	"marketplace-payments/internal/api/users"
	"marketplace-payments/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Billing *billing.Handler
	Escrow  *escrowapi.Handler
	Admin   *adminapi.Handler
	Plans   *plans.Handler
	Users   *users.Handler
	Webhook *stripewebhooks.Handler
}

func RegisterRoutes(r *gin.Engine, h Handlers) {
	// signed payload, must reach the handler untouched
	r.POST("/webhook", h.Webhook.StripeWebhook)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/plans", h.Plans.ListPlans)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware(), middleware.SanitizeAndCleanInputMiddleware("return_url", "token", "document_ref"))
	auth.GET("/me", h.Users.GetCurrentUser)

	auth.POST("/transactions", h.Billing.CreateTransaction)
	auth.POST("/transactions/commit", h.Billing.CommitTransaction)
	auth.GET("/transactions", h.Billing.GetPaymentHistory)
	auth.GET("/transactions/:token", h.Billing.GetTransaction)

	auth.POST("/projects/:id/release", h.Escrow.ReleaseFunds)
	auth.POST("/projects/:id/tax-receipt", h.Escrow.AttachTaxReceipt)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"), middleware.SanitizeAndCleanInputMiddleware())
	admin.GET("/disputes", h.Admin.ListDisputes)
	admin.POST("/disputes/:id/resolve", h.Admin.ResolveDispute)
	admin.GET("/transactions", h.Admin.ListTransactions)
	admin.GET("/payouts", h.Admin.ListPayouts)
	admin.POST("/projects/:id/documents/regenerate", h.Admin.RegenerateDocuments)
}
