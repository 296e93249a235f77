package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"simora-backend/internal/database"
	"simora-backend/internal/device"
	configHandler "simora-backend/internal/handler/http/config"
	preferenceHandler "simora-backend/internal/handler/http/preference"
	pushHandler "simora-backend/internal/handler/http/push"
	scheduleHandler "simora-backend/internal/handler/http/schedule"
	wsHandler "simora-backend/internal/handler/ws"
	"simora-backend/internal/middleware"
	"simora-backend/internal/repository/cockroach"
	redisrepo "simora-backend/internal/repository/redis"
	"simora-backend/internal/scheduler"
	configService "simora-backend/internal/service/config"
	preferenceService "simora-backend/internal/service/preference"
	"simora-backend/pkg/env"
	"simora-backend/pkg/jwt"
	"simora-backend/pkg/logger"
	"simora-backend/pkg/metrics"
	"simora-backend/pkg/push"
)

func main() {
	// 1. Initialize logger
	logger.InitDefault()
	defer logger.Sync()

	// 2. Setup JWT Manager
	jwtSecret := env.GetStringFromFile("JWT_SECRET", "")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable is required")
	}
	if len(jwtSecret) < 32 {
		log.Fatal("JWT_SECRET must be at least 32 characters")
	}

	jwtManager := jwt.NewJWTManager(jwtSecret, 15*time.Minute)

	// 3. Connect to Redis
	redisConfig := &database.RedisConfig{
		Host:     env.GetString("REDIS_HOST", "localhost"),
		Port:     env.GetInt("REDIS_PORT", 6379),
		Password: env.GetStringFromFile("REDIS_PASSWORD", ""),
		DB:       0,
		PoolSize: 10,
	}

	redisDB, err := database.NewRedisDB(redisConfig)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisDB.Close()

	log.Println("✅ Connected to Redis")

	// 4. Connect to CockroachDB
	cockroachConfig := &database.CockroachConfig{
		Host:     env.GetString("COCKROACH_HOST", "localhost"),
		Port:     env.GetInt("COCKROACH_PORT", 26257),
		User:     env.GetString("COCKROACH_USER", "root"),
		Password: env.GetStringFromFile("COCKROACH_PASSWORD", ""),
		Database: env.GetString("COCKROACH_DATABASE", "simora_db"),
		SSLMode:  env.GetString("COCKROACH_SSLMODE", "disable"),
	}

	cockroachDB, err := database.NewCockroachDB(context.Background(), cockroachConfig)
	if err != nil {
		log.Fatalf("Failed to connect to CockroachDB: %v", err)
	}
	defer cockroachDB.Close()

	log.Println("✅ Connected to CockroachDB")

	// 5. Initialize Repositories
	configRepo := cockroach.NewConfigRepository(cockroachDB.Pool)
	preferenceRepo := cockroach.NewPreferenceRepository(cockroachDB.Pool)
	eventPublisher := redisrepo.NewEventPublisher(redisDB.Client)
	pushTokenRepo := redisrepo.NewPushTokenRepository(redisDB.Client)
	scheduleRepo := redisrepo.NewScheduleRepository(redisDB.Client)

	// 6. Initialize Push Delivery
	pushProvider, err := push.NewProvider()
	if err != nil {
		log.Fatalf("Failed to initialize push provider: %v", err)
	}
	pushService := push.NewService(pushProvider, pushTokenRepo)

	// 7. Initialize Services
	configSvc := configService.NewService(configRepo, eventPublisher)
	preferenceSvc := preferenceService.NewService(preferenceRepo, eventPublisher)

	// 8. Initialize Metrics
	appMetrics := metrics.NewMetrics("notification-service")
	prometheusMiddleware := middleware.NewPrometheusMiddleware(appMetrics)

	// 9. Initialize the Scheduling Manager
	// Each attached user gets a server-side schedule port; entries are
	// delivered through push at fire time by the dispatcher below.
	portFactory := func(userID uuid.UUID) device.Port {
		return device.NewRemotePort(scheduleRepo, userID)
	}
	manager := scheduler.NewManager(configSvc, preferenceSvc, portFactory, redisDB.Client, appMetrics)

	// 10. Start the delivery dispatcher
	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	defer stopDispatcher()

	dispatchInterval := env.GetDuration("DISPATCH_INTERVAL", 30*time.Second)
	dispatcher := device.NewDispatcher(scheduleRepo, pushService, appMetrics, dispatchInterval)
	go dispatcher.Run(dispatcherCtx)

	log.Printf("✅ Delivery dispatcher started (%s interval)\n", dispatchInterval)

	// 11. Initialize Handlers
	configHdlr := configHandler.NewHandler(configSvc)
	preferenceHdlr := preferenceHandler.NewHandler(preferenceSvc)
	scheduleHdlr := scheduleHandler.NewHandler(manager)
	pushHdlr := pushHandler.NewHandler(pushService)

	// 12. Initialize WebSocket Hub
	eventHub := wsHandler.NewEventHub(redisDB.Client)

	// 13. Setup Gin Router
	router := gin.New() // Don't use Default() to have full control

	trustedProxies := []string{}
	if environment := os.Getenv("ENV"); environment == "production" {
		trustedProxies = []string{
			"https://api.simora.app",
			"https://*.simora.app",
		}
	} else {
		trustedProxies = []string{
			"http://localhost:3000",
			"http://localhost:8080",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:8080",
		}
	}
	router.SetTrustedProxies(trustedProxies)

	// Apply global middleware
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.CORSMiddleware())
	router.Use(prometheusMiddleware.Handler())

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "notification-service",
			"time":    time.Now().UTC(),
		})
	})

	// Metrics endpoint (for Prometheus scraping)
	router.GET("/metrics", middleware.MetricsHandler())

	// Revocation checker and rate limiter share the Redis client
	revocationChecker := middleware.NewRedisRevocationChecker(redisDB.Client)
	rateLimiter := middleware.NewRateLimiter(redisDB.Client,
		env.GetInt("RATE_LIMIT_REQUESTS", 120),
		env.GetDuration("RATE_LIMIT_WINDOW", time.Minute))

	// Notification routes (all require authentication)
	v1 := router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(jwtManager, revocationChecker))
	v1.Use(rateLimiter.Middleware())

	admin := v1.Group("/admin")
	admin.Use(middleware.AdminOnly())

	configHdlr.RegisterRoutes(v1, admin)
	preferenceHdlr.RegisterRoutes(v1)
	scheduleHdlr.RegisterRoutes(v1)
	pushHdlr.RegisterRoutes(v1)

	// WebSocket endpoint (realtime change events)
	v1.GET("/ws/notifications", eventHub.ServeEventsWS)

	// 14. Start server
	port := env.GetString("PORT", "8084")
	addr := fmt.Sprintf(":%s", port)
	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Printf("🚀 Notification Service starting on port %s\n", port)
		log.Println("📡 WebSocket endpoint: /v1/ws/notifications")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// 15. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	// Stop listeners but keep device schedules so notifications still fire
	manager.Shutdown()
	stopDispatcher()

	log.Println("Server exited")
}
