package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/agrolink-backend/internal/config"
	"github.com/agrolink/agrolink-backend/internal/http/handlers"
	"github.com/agrolink/agrolink-backend/internal/http/middleware"
	"github.com/agrolink/agrolink-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	contractHandler *handlers.ContractHandler,
	bidHandler *handlers.BidHandler,
	escrowHandler *handlers.EscrowHandler,
	webhookHandler *handlers.WebhookHandler,
	notificationHandler *handlers.NotificationHandler,
	profileHandler *handlers.ProfileHandler,
	conversationHandler *handlers.ConversationHandler,
	mediaHandler *handlers.MediaHandler,
	logisticsHandler *handlers.LogisticsHandler,
	ratingHandler *handlers.RatingHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokens *service.TokenVerifier,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)
	r.StaticFS("/media-files", http.Dir(cfg.MediaStoragePath))

	api := r.Group("/api")

	// Webhook шлюза: без авторизации, подлинность подтверждает подпись.
	// Rate limit отдельный, чтобы ретраи шлюза не упирались в общий.
	api.POST("/payments/webhook",
		middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod),
		webhookHandler.HandlePaymentEvent)

	// Публичные маршруты
	api.GET("/contracts", contractHandler.List)
	api.GET("/contracts/:id", middleware.UUIDValidator("id"), contractHandler.Get)
	api.GET("/contracts/:id/attachments", middleware.UUIDValidator("id"), mediaHandler.ListAttachments)
	api.GET("/media/:id", middleware.UUIDValidator("id"), mediaHandler.Download)
	api.GET("/profiles/:id", middleware.UUIDValidator("id"), profileHandler.Get)
	api.GET("/profiles/:id/ratings", middleware.UUIDValidator("id"), ratingHandler.GetUserRating)
	api.GET("/logistics/providers", logisticsHandler.ListProviders)
	api.GET("/ws", wsHandler.Handle)

	// Защищённые маршруты
	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokens))
	protected.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		protected.GET("/profiles/me", profileHandler.GetMe)
		protected.PUT("/profiles/me", profileHandler.UpsertMe)

		protected.POST("/contracts", contractHandler.Create)
		protected.PUT("/contracts/:id/status", middleware.UUIDValidator("id"), contractHandler.UpdateStatus)

		protected.POST("/contracts/:id/bids", middleware.UUIDValidator("id"), bidHandler.Place)
		protected.GET("/contracts/:id/bids", middleware.UUIDValidator("id"), bidHandler.List)
		protected.PUT("/contracts/:id/bids/:bidId", middleware.UUIDValidator("id"), middleware.UUIDValidator("bidId"), bidHandler.Resolve)

		protected.GET("/contracts/:id/escrow", middleware.UUIDValidator("id"), escrowHandler.GetByContract)
		protected.GET("/contracts/:id/verifications", middleware.UUIDValidator("id"), escrowHandler.ListVerifications)
		protected.POST("/payments/escrow", escrowHandler.Open)
		protected.GET("/payments/escrow", escrowHandler.ListMine)
		protected.GET("/payments/escrow/:id", middleware.UUIDValidator("id"), escrowHandler.Get)
		protected.POST("/payments/create-intent", escrowHandler.CreateIntent)
		protected.POST("/payments/process", escrowHandler.ProcessPayment)
		protected.POST("/payments/release", escrowHandler.Release)

		protected.GET("/notifications", notificationHandler.List)
		protected.GET("/notifications/unread/count", notificationHandler.UnreadCount)
		protected.POST("/notifications/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

		protected.GET("/conversations", conversationHandler.ListMine)
		protected.GET("/contracts/:id/conversation", middleware.UUIDValidator("id"), conversationHandler.GetByContract)
		protected.GET("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.ListMessages)
		protected.POST("/conversations/:id/messages", middleware.UUIDValidator("id"), conversationHandler.SendMessage)

		protected.POST("/media", mediaHandler.Upload)
		protected.POST("/contracts/:id/attachments", middleware.UUIDValidator("id"), mediaHandler.Attach)

		protected.POST("/logistics/quotes", logisticsHandler.RequestQuotes)
		protected.GET("/contracts/:id/quotes", middleware.UUIDValidator("id"), logisticsHandler.ListQuotes)
		protected.POST("/logistics/shipments", logisticsHandler.BookShipment)
		protected.GET("/contracts/:id/shipments", middleware.UUIDValidator("id"), logisticsHandler.ListShipments)

		protected.POST("/ratings", ratingHandler.Create)
	}

	return r
}
