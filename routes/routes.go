package routes

import (
	"net/http"
	"time"

	"molbhav/handlers"
	"molbhav/middleware"
	"molbhav/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterRequestRoutes registers the customer-facing negotiation endpoints.
func RegisterRequestRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/requests")
	{
		api.Use(middleware.JWTAuthUserMiddleware(hb.UserRepo))
		api.POST("", hb.Negotiation.CreateRequestHandler)
		api.POST("/:id/negotiate", hb.Negotiation.StartNegotiationHandler)
		api.GET("/:id", hb.Negotiation.GetRequestStatusHandler)
		api.GET("/:id/offers", hb.Negotiation.ListOffersHandler)
		api.POST("/:id/select", hb.Negotiation.SelectOfferHandler)
		api.DELETE("/:id", hb.Negotiation.CancelRequestHandler)
	}

	sessions := r.Group("/api/negotiations")
	{
		sessions.Use(middleware.JWTAuthUserMiddleware(hb.UserRepo))
		sessions.DELETE("/:sessionId", hb.Negotiation.CancelNegotiationHandler)
	}
}

// RegisterNotificationRoutes registers the in-app notification feed.
func RegisterNotificationRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.Use(middleware.JWTAuthUserMiddleware(hb.UserRepo))
		api.GET("", hb.Notification.ListNotificationsHandler)
		api.POST("/:id/read", hb.Notification.MarkNotificationReadHandler)
	}
}

// RegisterWebhookRoutes registers the chat platform callbacks. They carry
// their own authentication (secret token / request signature), never JWT.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/telegram", hb.Webhook.TelegramWebhookHandler)
		webhooks.POST("/twilio", hb.Webhook.TwilioWebhookHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"message": "Hi, I'm MolBhav",
			"checks":  utils.GetHealthStatus(),
		})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterRequestRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
	RegisterWebhookRoutes(r, hb)
	RegisterHealthRoute(r)
}
