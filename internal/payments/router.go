package payments

import (
	"github.com/gin-gonic/gin"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/middleware"
)

// SetupPaymentRoutes configures all payment-related routes
func SetupPaymentRoutes(rg *gin.RouterGroup, controller *Controller) {
	payments := rg.Group("/payments")
	{
		// Provider callbacks are unauthenticated; the HMAC signature on
		// the payload is the authentication.
		payments.GET("/webhook/vnpay", controller.HandleVNPayWebhook) // GET  /api/v1/payments/webhook/vnpay
		payments.POST("/webhook/payos", controller.HandlePayOSWebhook) // POST /api/v1/payments/webhook/payos
		payments.GET("/return/vnpay", controller.HandleVNPayReturn)    // GET  /api/v1/payments/return/vnpay

		authed := payments.Group("")
		authed.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "OWNER", "ADMIN"))
		{
			authed.GET("/status/:orderRef", controller.GetPaymentStatus) // GET /api/v1/payments/status/:orderRef
			authed.GET("/:id", controller.GetTransaction)                // GET /api/v1/payments/:id
		}
	}
}
