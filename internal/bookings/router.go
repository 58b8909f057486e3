package bookings

import (
	"github.com/gin-gonic/gin"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/middleware"
)

// SetupBookingRoutes configures all booking-related routes
func SetupBookingRoutes(rg *gin.RouterGroup, controller *Controller) {
	bookings := rg.Group("/bookings")
	{
		// Guest checkout is public; the guest account is provisioned
		// before any slot mutation.
		bookings.POST("/guest", controller.CreateGuestBooking) // POST /api/v1/bookings/guest

		authed := bookings.Group("")
		authed.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "ADMIN"))
		{
			authed.POST("", controller.CreateBooking)          // POST /api/v1/bookings
			authed.GET("/:id", controller.GetBooking)          // GET  /api/v1/bookings/:id
			authed.POST("/:id/pay", controller.InitiatePayment) // POST /api/v1/bookings/:id/pay
			authed.POST("/:id/cancel", controller.CancelBooking) // POST /api/v1/bookings/:id/cancel
		}

		owner := bookings.Group("")
		owner.Use(middleware.JWTAuth(), middleware.RequireRoles("OWNER", "ADMIN"))
		{
			owner.POST("/:id/check-in", controller.CheckIn) // POST /api/v1/bookings/:id/check-in
		}

		admin := bookings.Group("")
		admin.Use(middleware.JWTAuth(), middleware.RequireRoles("ADMIN"))
		{
			admin.POST("/:id/refund", controller.RefundBooking) // POST /api/v1/bookings/:id/refund
		}
	}

	users := rg.Group("/users")
	users.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "ADMIN"))
	{
		users.GET("/bookings", controller.GetUserBookings) // GET /api/v1/users/bookings
	}
}
