package controllers

import (
	"net/http"
	"time"

	"elitehub/web/metrics"
	"elitehub/web/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	Origins    []string
	CronSecret string
	// Limiter guards every API route. Nil disables rate limiting.
	Limiter gin.HandlerFunc
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Content-Length", "Accept", "Authorization", "Cache-Control", "X-Requested-With"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// Router builds the HTTP surface of the marketplace.
func (h *Handler) Router(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(cors.New(corsConfig(cfg.Origins)))
	r.Use(metrics.Middleware())

	limit := cfg.Limiter
	if limit == nil {
		limit = func(c *gin.Context) { c.Next() }
	}
	auth := h.Auth.RequireAuth

	r.GET("/health", h.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	cron := middleware.CronSecret(cfg.CronSecret)
	r.GET("/cron/cleanup", cron, h.RunCleanup)
	r.POST("/cron/cleanup", cron, h.RunCleanup)

	api := r.Group("/", limit)
	api.POST("/signup", h.Signup)
	api.POST("/login", h.Login)
	api.GET("/user", auth, h.User)

	api.GET("/referrals", auth, h.Referrals)
	api.GET("/referrals/qrcode", auth, h.ReferralQRCode)

	api.POST("/applications", auth, h.SubmitApplication)
	api.GET("/applications", auth, h.MyApplications)

	api.POST("/payouts", auth, h.RequestPayout)
	api.GET("/payouts", auth, h.MyPayouts)

	api.GET("/providers/:type", h.ListProviders)
	api.POST("/providers/:type/:id/tier/purchase", auth, h.PurchaseTier)

	api.GET("/notifications", auth, h.Notifications)
	api.POST("/notifications/:id/read", auth, h.MarkNotificationRead)

	api.POST("/chats", auth, h.OpenChat)
	api.GET("/chats/:id/messages", auth, h.ChatMessages)
	api.POST("/chats/:id/messages", auth, h.PostChatMessage)
	api.GET("/chats/:id/ws", h.Auth.RequireSocketAuth, h.ChatSocket)

	api.GET("/exchange/quote", h.ExchangeQuote)
	api.POST("/payments/verify", auth, h.VerifyPayment)

	admin := api.Group("/admin", auth, middleware.RequireAdmin)
	admin.GET("/applications", h.AdminApplications)
	admin.POST("/applications/:type/:id/approve", h.ApproveApplication)
	admin.POST("/applications/:type/:id/reject", h.RejectApplication)
	admin.GET("/payouts", h.AdminPayouts)
	admin.POST("/payouts/:id/decide", h.DecidePayout)
	admin.POST("/providers/:type/:id/tier", h.AssignTier)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not found"})
	})
	return r
}
