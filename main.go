// File: molbhav/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"molbhav/config"
	"molbhav/cron"
	"molbhav/database"
	bookingRepo "molbhav/database/repository/booking"
	negotiationRepo "molbhav/database/repository/negotiation"
	notificationRepo "molbhav/database/repository/notification"
	providerRepo "molbhav/database/repository/provider"
	requestRepo "molbhav/database/repository/request"
	userRepoPkg "molbhav/database/repository/user"
	"molbhav/handlers"
	"molbhav/middleware"
	"molbhav/routes"
	ai "molbhav/services/intelligence"
	"molbhav/services/matching"
	"molbhav/services/messaging"
	"molbhav/services/negotiation"
	"molbhav/services/notification"
	"molbhav/services/tasks"
	"molbhav/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	utils.InitAuthCache()
	utils.FirebaseInit()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	reqRepo := requestRepo.NewMongoRequestRepo()
	sessRepo := negotiationRepo.NewMongoNegotiationRepo()
	provRepo := providerRepo.NewMongoProviderRepo()
	bookRepo := bookingRepo.NewMongoBookingRepo()
	notifRepo := notificationRepo.NewMongoNotificationRepo()
	userRepo := userRepoPkg.NewMongoUserRepo()

	// Background queue client. The worker side runs in-process, see below.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	dispatcher, err := tasks.NewAsynqDispatcher(asynqClient)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize task dispatcher: %v", err)
	}

	// Messaging channels. A missing token leaves that channel out so local
	// runs work without bot credentials.
	var channels []messaging.Channel
	var telegramChannel *messaging.TelegramChannel
	if token := config.AppConfig.TelegramBotToken; token != "" {
		tc, err := messaging.NewTelegramChannel(token)
		if err != nil {
			logger.Sugar().Fatalf("main: failed to initialize telegram channel: %v", err)
		}
		telegramChannel = tc
		channels = append(channels, tc)
	}
	if sid := config.AppConfig.TwilioAccountSID; sid != "" {
		channels = append(channels, messaging.NewWhatsAppChannel(sid, config.AppConfig.TwilioAuthToken, config.AppConfig.TwilioWhatsAppFrom))
	}
	if len(channels) == 0 {
		logger.Sugar().Warn("main: no messaging channels configured, provider chats will not deliver")
	}
	messenger := messaging.NewRouter(channels...)

	// services.
	notificationService, err := notification.NewDefaultNotificationService(userRepo, provRepo, notifRepo)
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	matchingServiceInstance := &matching.DefaultMatchingService{
		ProviderRepo: provRepo,
	}

	var rephraser ai.Rephraser
	if key := config.AppConfig.GeminiAPIKey; key != "" {
		gemini, err := ai.NewGeminiClient(context.Background(), key)
		if err != nil {
			logger.Sugar().Warnf("main: gemini unavailable, using template replies only: %v", err)
		} else {
			rephraser = gemini
		}
	}

	negotiationService := &negotiation.DefaultNegotiationService{
		Requests:   reqRepo,
		Sessions:   sessRepo,
		Providers:  provRepo,
		Bookings:   bookRepo,
		Matcher:    matchingServiceInstance,
		Messenger:  messenger,
		Notifier:   notificationService,
		Dispatcher: dispatcher,
		Rephraser:  rephraser,
	}

	// Start the in-process worker that consumes fan-out and finalize tasks.
	cron.InitNegotiationWorker(negotiationService)

	utils.StartHealthMonitor(map[string]*redis.Client{
		"cache":     utils.GetCacheClient(),
		"authCache": utils.GetAuthCacheClient(),
	}, database.MongoClient)

	// handlers.
	negotiationHandler := handlers.NewNegotiationHandler(negotiationService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	webhookHandler := handlers.NewWebhookHandler(negotiationService, messenger, telegramChannel)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		UserRepo:     userRepo,
		Negotiation:  negotiationHandler,
		Notification: notificationHandler,
		Webhook:      webhookHandler,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}
	if err := asynqClient.Close(); err != nil {
		logger.Sugar().Warnf("main: failed to close queue client: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
