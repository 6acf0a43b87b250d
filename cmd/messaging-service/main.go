package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	attachmentHandler "marketchat-backend/internal/handler/http/attachment"
	conversationHandler "marketchat-backend/internal/handler/http/conversation"
	messageHandler "marketchat-backend/internal/handler/http/message"
	"marketchat-backend/internal/middleware"
	"marketchat-backend/internal/repository/postgres"
	redisRepo "marketchat-backend/internal/repository/redis"
	conversationService "marketchat-backend/internal/service/conversation"
	messageService "marketchat-backend/internal/service/message"
	"marketchat-backend/internal/service/storage"
	"marketchat-backend/pkg/cache"
	"marketchat-backend/pkg/constants"
	"marketchat-backend/pkg/database"
	"marketchat-backend/pkg/env"
	"marketchat-backend/pkg/jwt"
	"marketchat-backend/pkg/logger"
	"marketchat-backend/pkg/metrics"
)

func main() {
	logger.InitDefault()
	defer logger.Sync()

	ctx := context.Background()

	// 1. JWT manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}
	jwtManager := jwt.NewJWTManager(jwtSecret, constants.AccessTokenExpiry)

	// 2. Postgres
	postgresDB, err := database.NewPostgresDBFromEnv(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer postgresDB.Close()
	logger.Info("connected to Postgres")

	// 3. Redis (optional; the unread cache degrades to SQL counts without it)
	var unreadCache *redisRepo.UnreadRepository
	redisClient, err := database.NewRedisClientFromEnv(ctx)
	if err != nil {
		logger.Warn("Redis unavailable, unread counts will not be cached", zap.Error(err))
	} else {
		defer redisClient.Close()
		unreadCache = redisRepo.NewUnreadRepository(redisClient)
		logger.Info("connected to Redis")
	}

	// 4. MinIO attachment store
	storageSvc, err := storage.NewService(ctx, storage.Config{
		Endpoint:      env.GetString("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey:     env.GetStringFromFile("MINIO_ACCESS_KEY", "minioadmin"),
		SecretKey:     env.GetStringFromFile("MINIO_SECRET_KEY", "minioadmin"),
		BucketName:    env.GetString("MINIO_BUCKET", "marketchat-attachments"),
		UseSSL:        env.GetBool("MINIO_USE_SSL", false),
		PublicBaseURL: env.GetString("MINIO_PUBLIC_URL", ""),
	})
	if err != nil {
		log.Fatalf("Failed to initialize attachment storage: %v", err)
	}
	logger.Info("connected to MinIO")

	// 5. Repositories
	conversationRepo := postgres.NewConversationRepository(postgresDB.Pool)
	messageRepo := postgres.NewMessageRepository(postgresDB.Pool)

	// 6. Metrics
	appMetrics := metrics.NewMetrics("messaging-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 7. Services
	idempotencyCache := cache.NewIdempotencyCache(constants.IdempotencyTokenTTL, 10000)
	stopCleanup := idempotencyCache.StartCleanup(time.Minute)
	defer stopCleanup()

	var unreadGetter conversationService.UnreadCache
	var unreadInvalidator messageService.UnreadInvalidator
	if unreadCache != nil {
		unreadGetter = unreadCache
		unreadInvalidator = unreadCache
	}

	conversationSvc := conversationService.NewService(conversationRepo, messageRepo, unreadGetter, appMetrics)
	messageSvc := messageService.NewService(messageRepo, conversationSvc, idempotencyCache, unreadInvalidator, appMetrics)

	// 8. Handlers
	conversationHdlr := conversationHandler.NewHandler(conversationSvc)
	messageHdlr := messageHandler.NewHandler(messageSvc)
	attachmentHdlr := attachmentHandler.NewHandler(storageSvc, appMetrics)

	// 9. Router
	router := gin.New()

	trustedProxies := []string{"127.0.0.1"}
	if proxies := env.GetString("TRUSTED_PROXIES", ""); proxies != "" {
		for _, proxy := range strings.Split(proxies, ",") {
			trustedProxies = append(trustedProxies, strings.TrimSpace(proxy))
		}
	}
	if err := router.SetTrustedProxies(trustedProxies); err != nil {
		log.Fatalf("Failed to set trusted proxies: %v", err)
	}

	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())
	router.Use(middleware.TimeoutMiddleware(constants.DefaultTimeout))

	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":  "healthy",
			"service": "messaging-service",
			"time":    time.Now().UTC(),
		}
		if err := postgresDB.Ping(c.Request.Context()); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
			body["postgres"] = err.Error()
		}
		c.JSON(status, body)
	})

	router.GET("/metrics", middleware.MetricsHandler(appMetrics))

	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager))
	{
		v1.POST("/conversations", conversationHdlr.Open)
		v1.GET("/conversations", conversationHdlr.List)

		v1.GET("/conversations/:id/messages", messageHdlr.List)
		v1.POST("/conversations/:id/messages", messageHdlr.Append)
		v1.POST("/conversations/:id/read", messageHdlr.MarkRead)
		v1.DELETE("/messages/:id", messageHdlr.Delete)

		v1.POST("/attachments", attachmentHdlr.Upload)
		v1.GET("/attachments/:id/url", attachmentHdlr.DownloadURL)
	}

	// 10. Start server
	port := env.GetString("PORT", "8083")
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: router,
	}

	go func() {
		logger.Info("messaging service starting", zap.String("port", port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 11. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.GracefulShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exited")
}
