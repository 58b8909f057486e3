// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/bookings"
	"github.com/MNhat168/sport-zone-sub003/internal/events"
	"github.com/MNhat168/sport-zone-sub003/internal/fields"
	"github.com/MNhat168/sport-zone-sub003/internal/payments"
	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/config"
	"github.com/MNhat168/sport-zone-sub003/internal/shared/database"
	"github.com/MNhat168/sport-zone-sub003/internal/users"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
	"github.com/MNhat168/sport-zone-sub003/pkg/cache"
	"github.com/MNhat168/sport-zone-sub003/pkg/logger"
)

// Router holds all route dependencies
type Router struct {
	config    *config.Config
	db        *database.DB
	publisher events.Publisher
	log       *logger.Logger

	// Built during SetupRoutes; main wires the sweeper and event
	// consumer against these.
	bookingService bookings.Service
	fieldService   fields.Service
	userService    users.Service
	walletService  wallets.Service
	paymentRepo    payments.Repository
	reconciler     payments.Reconciler
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, db *database.DB, publisher events.Publisher, log *logger.Logger) *Router {
	return &Router{
		config:    cfg,
		db:        db,
		publisher: publisher,
		log:       log,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	r.buildServices()

	api := engine.Group(r.config.GetAPIBasePath())
	{
		r.setupFieldRoutes(api)
		r.setupBookingRoutes(api)
		r.setupPaymentRoutes(api)
		r.setupWalletRoutes(api)
	}
}

// BookingService exposes the booking lifecycle for event consumers and
// the expiration sweeper. Valid after SetupRoutes.
func (r *Router) BookingService() bookings.Service {
	return r.bookingService
}

// FieldService exposes the field read model for notification consumers.
func (r *Router) FieldService() fields.Service {
	return r.fieldService
}

// UserService exposes the account directory for notification consumers.
func (r *Router) UserService() users.Service {
	return r.userService
}

// PaymentRepository exposes transaction lookups for the sweeper.
func (r *Router) PaymentRepository() payments.Repository {
	return r.paymentRepo
}

// Reconciler exposes the payment reconciler for the sweeper.
func (r *Router) Reconciler() payments.Reconciler {
	return r.reconciler
}

// buildServices constructs the domain services in dependency order. The
// reconciler is built before the booking service and receives its
// lifecycle hook afterwards.
func (r *Router) buildServices() {
	pg := r.db.GetPostgreSQL()

	var cacheService cache.Service
	if r.db.Redis != nil {
		cacheService = cache.NewService(r.db.GetRedisClient())
	}

	scheduleRepo := schedules.NewRepository(pg)
	scheduleService := schedules.NewService(scheduleRepo, cacheService, r.log)

	fieldRepo := fields.NewRepository(pg)
	r.fieldService = fields.NewService(fieldRepo, scheduleService)

	userRepo := users.NewRepository(pg)
	r.userService = users.NewService(userRepo)

	registry := payments.NewRegistry(
		payments.NewVNPayAdapter(payments.VNPayConfig{
			TmnCode:    r.config.Payment.VNPay.TmnCode,
			HashSecret: r.config.Payment.VNPay.HashSecret,
			PayURL:     r.config.Payment.VNPay.PayURL,
			RefundURL:  r.config.Payment.VNPay.RefundURL,
			ReturnURL:  r.config.Payment.VNPay.ReturnURL,
		}),
		payments.NewPayOSAdapter(payments.PayOSConfig{
			ClientID:    r.config.Payment.PayOS.ClientID,
			APIKey:      r.config.Payment.PayOS.APIKey,
			ChecksumKey: r.config.Payment.PayOS.ChecksumKey,
			BaseURL:     r.config.Payment.PayOS.BaseURL,
			ReturnURL:   r.config.Payment.PayOS.ReturnURL,
			CancelURL:   r.config.Payment.PayOS.CancelURL,
		}),
	)

	r.paymentRepo = payments.NewRepository(pg)
	r.reconciler = payments.NewReconciler(r.paymentRepo, registry, r.publisher,
		payments.ReconcilerConfig{FallbackDelay: r.config.Booking.FallbackDelay}, r.log)

	walletRepo := wallets.NewRepository(pg)
	refundClient := payments.NewRefundClient(registry, r.log)
	walletService := wallets.NewService(pg, walletRepo, refundClient, r.publisher,
		uuid.MustParse(r.config.Booking.PlatformHolderID), r.log)
	r.walletService = walletService

	bookingRepo := bookings.NewRepository(pg)
	r.bookingService = bookings.NewService(pg, bookingRepo, scheduleRepo, r.paymentRepo,
		registry, walletService, r.fieldService, r.userService, r.publisher,
		bookings.Config{PlatformFeeRate: r.config.Booking.PlatformFeeRate}, r.log)

	r.reconciler.SetLifecycle(r.bookingService)
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		if err := r.db.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now(),
				"service":   "sportzone-backend",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"service":   "sportzone-backend",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

// setupFieldRoutes configures field browsing and availability routes
func (r *Router) setupFieldRoutes(rg *gin.RouterGroup) {
	fieldController := fields.NewController(r.fieldService)
	fields.SetupFieldRoutes(rg, fieldController)
}

// setupBookingRoutes configures booking lifecycle routes
func (r *Router) setupBookingRoutes(rg *gin.RouterGroup) {
	bookingController := bookings.NewController(r.bookingService)
	bookings.SetupBookingRoutes(rg, bookingController)
}

// setupPaymentRoutes configures gateway callback and payment status routes
func (r *Router) setupPaymentRoutes(rg *gin.RouterGroup) {
	paymentController := payments.NewController(r.reconciler, r.log)
	payments.SetupPaymentRoutes(rg, paymentController)
}

// setupWalletRoutes configures wallet read and withdraw routes
func (r *Router) setupWalletRoutes(rg *gin.RouterGroup) {
	walletController := wallets.NewController(r.walletService)
	wallets.SetupWalletRoutes(rg, walletController)
}
