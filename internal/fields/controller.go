package fields

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/schedules"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// ListFields handles GET /api/v1/fields
func (c *Controller) ListFields(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	result, total, err := c.service.ListFields(ctx.Request.Context(), ListQuery{
		Sport:  ctx.Query("sport"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list fields"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Fields retrieved successfully",
		"data": gin.H{
			"fields": result,
			"total":  total,
			"limit":  limit,
			"offset": offset,
		},
	})
}

// GetField handles GET /api/v1/fields/:id
func (c *Controller) GetField(ctx *gin.Context) {
	fieldID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	field, err := c.service.GetField(ctx.Request.Context(), fieldID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Field not found"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Field retrieved successfully",
		"data":    field,
	})
}

// GetAvailability handles GET /api/v1/fields/:id/availability?date=YYYY-MM-DD
func (c *Controller) GetAvailability(ctx *gin.Context) {
	fieldID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	date := ctx.Query("date")
	if _, err := time.Parse(schedules.DateLayout, date); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or missing date, expected YYYY-MM-DD"})
		return
	}

	availability, err := c.service.GetAvailability(ctx.Request.Context(), fieldID, date)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Availability not found", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Availability retrieved successfully",
		"data":    availability,
	})
}

type holidayRequest struct {
	Date    string `json:"date" binding:"required"`
	Holiday bool   `json:"holiday"`
}

// SetHoliday handles POST /api/v1/fields/:id/holiday
func (c *Controller) SetHoliday(ctx *gin.Context) {
	fieldID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid field ID"})
		return
	}

	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req holidayRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}
	if _, err := time.Parse(schedules.DateLayout, req.Date); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid date, expected YYYY-MM-DD"})
		return
	}

	if err := c.service.SetHoliday(ctx.Request.Context(), ownerID, fieldID, req.Date, req.Holiday); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Failed to update holiday", "details": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Holiday updated successfully"})
}

func currentUserID(ctx *gin.Context) (uuid.UUID, bool) {
	userIDInterface, exists := ctx.Get("user_id")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, false
	}

	userIDStr, ok := userIDInterface.(string)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, false
	}
	return userID, true
}
