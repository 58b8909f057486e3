package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/MNhat168/sport-zone-sub003/api/routes"
	"github.com/MNhat168/sport-zone-sub003/internal/bookings"
	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/notifications"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/config"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/database"
	"github.com/MNhat168/sport-zone-sub003/internal/sweeper"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
	"github.com/MNhat168/sport-zone-sub003/pkg/ratelimit"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect:", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Event publisher: Kafka when enabled, otherwise a no-op so every
	// terminal payment outcome still relies on the reconciler's fallback
	// direct write.
	publisher := newPublisher(cfg, appLogger)

	// Rate limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), &ratelimit.Config{
			Enabled:         cfg.RateLimit.Enabled,
			WindowDuration:  cfg.RateLimit.WindowDuration,
			DefaultRequests: cfg.RateLimit.DefaultRequests,
			PublicRequests:  cfg.RateLimit.PublicRequests,
			BookingRequests: cfg.RateLimit.BookingRequests,
			WebhookRequests: cfg.RateLimit.WebhookRequests,
			AdminRequests:   cfg.RateLimit.AdminRequests,
			WhitelistedIPs:  cfg.RateLimit.WhitelistedIPs,
		})
		appLogger.Info("Rate limiter initialized",
			slog.Bool("enabled", cfg.RateLimit.Enabled),
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("default_requests", cfg.RateLimit.DefaultRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	// Routes and the domain services behind them
	appRouter := routes.NewRouter(cfg, db, publisher, appLogger)
	engine := setupEngine(appRouter, rateLimiter, appLogger)

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Event consumer drives booking transitions and emails off the
	// internal topics.
	if cfg.Kafka.Enabled {
		consumer, err := events.NewConsumer(&events.ConsumerConfig{
			Brokers:          cfg.Kafka.Brokers,
			GroupID:          cfg.Kafka.ConsumerGroup,
			TopicPrefix:      cfg.Kafka.TopicPrefix,
			SessionTimeoutMs: 10000,
			HeartbeatMs:      3000,
			RetryBackoffMs:   100,
		})
		if err != nil {
			appLogger.Error("Failed to create event consumer", slog.Any("error", err))
		} else {
			bookings.RegisterEventHandlers(consumer, appRouter.BookingService(), appLogger)

			mailer := newEmailService(appLogger)
			notificationService := notifications.NewService(mailer,
				appRouter.BookingService(), appRouter.UserService(), appRouter.FieldService(), appLogger)
			notificationService.RegisterEventHandlers(consumer)

			go func() {
				if err := consumer.Start(rootCtx); err != nil {
					appLogger.Error("Event consumer stopped", slog.Any("error", err))
				}
			}()
			defer func() {
				if err := consumer.Stop(); err != nil {
					appLogger.Error("Error stopping event consumer", slog.Any("error", err))
				}
			}()
			appLogger.Info("Event consumer started", slog.String("group", cfg.Kafka.ConsumerGroup))
		}
	}

	// Expiration sweeper: stale PENDING payments, inconsistent shapes
	// and unpaid holds.
	sw := sweeper.New(appRouter.PaymentRepository(), appRouter.Reconciler(), appRouter.BookingService(), &sweeper.Config{
		Interval:   cfg.Sweeper.Interval,
		PaymentTTL: cfg.Sweeper.PaymentTTL,
		BatchSize:  cfg.Sweeper.BatchSize,
	})
	sw.Start(rootCtx)
	defer sw.Stop()

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        engine,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("🚀 Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", cfg.APIVersion),
			slog.Bool("redis_cache", (db.Redis != nil)),
			slog.Bool("kafka_events", cfg.Kafka.Enabled),
			slog.Bool("rate_limiting", cfg.RateLimit.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	appLogger.Info("Server exited gracefully")
}

func newPublisher(cfg *config.Config, appLogger *logger.Logger) events.Publisher {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, events will not be published")
		return events.NoopPublisher{}
	}

	producerConfig := events.DefaultProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.TopicPrefix = cfg.Kafka.TopicPrefix

	publisher, err := events.NewKafkaPublisher(producerConfig)
	if err != nil {
		appLogger.Error("Failed to create Kafka publisher, falling back to no-op",
			slog.Any("error", err))
		return events.NoopPublisher{}
	}

	appLogger.Info("Kafka publisher initialized", slog.Any("brokers", cfg.Kafka.Brokers))
	return publisher
}

func newEmailService(appLogger *logger.Logger) notifications.EmailService {
	smtpConfig := notifications.NewSMTPConfigFromEnv()
	if !smtpConfig.IsConfigured() {
		appLogger.Info("SMTP not configured, booking emails disabled")
		return notifications.NoopEmailService{}
	}

	mailer, err := notifications.NewSMTPEmailService(smtpConfig)
	if err != nil {
		appLogger.Error("Failed to initialize email service, booking emails disabled",
			slog.Any("error", err))
		return notifications.NoopEmailService{}
	}
	return mailer
}

func setupEngine(appRouter *routes.Router, rateLimiter *ratelimit.RateLimiter, appLogger *logger.Logger) *gin.Engine {
	engine := gin.New()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	// CORS configuration
	engine.Use(cors.New(cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-RateLimit-*"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
