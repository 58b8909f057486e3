package fields

import (
	"github.com/gin-gonic/gin"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/middleware"
)

// SetupFieldRoutes configures all field-related routes
func SetupFieldRoutes(rg *gin.RouterGroup, controller *Controller) {
	fields := rg.Group("/fields")
	{
		// Browse and availability are public
		fields.GET("", controller.ListFields)                      // GET /api/v1/fields
		fields.GET("/:id", controller.GetField)                    // GET /api/v1/fields/:id
		fields.GET("/:id/availability", controller.GetAvailability) // GET /api/v1/fields/:id/availability?date=

		owner := fields.Group("")
		owner.Use(middleware.JWTAuth(), middleware.RequireRoles("OWNER", "ADMIN"))
		{
			owner.POST("/:id/holiday", controller.SetHoliday) // POST /api/v1/fields/:id/holiday
		}
	}
}
