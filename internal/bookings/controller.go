package bookings

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
	"github.com/MNhat168/sport-zone-sub003/internal/wallets"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateBooking handles POST /api/v1/bookings
func (c *Controller) CreateBooking(ctx *gin.Context) {
	customerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req CreateBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := c.service.CreateBooking(ctx.Request.Context(), customerID, req)
	if err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"data":    response,
	})
}

// CreateGuestBooking handles POST /api/v1/bookings/guest
func (c *Controller) CreateGuestBooking(ctx *gin.Context) {
	var req GuestBookingRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := c.service.CreateGuestBooking(ctx.Request.Context(), req)
	if err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "Booking created successfully",
		"data":    response,
	})
}

type initiatePaymentRequest struct {
	Method string `json:"method" binding:"required"`
}

// InitiatePayment handles POST /api/v1/bookings/:id/pay
func (c *Controller) InitiatePayment(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	customerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req initiatePaymentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	response, err := c.service.InitiatePayment(ctx.Request.Context(), customerID, bookingID, req.Method)
	if err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Payment initiated successfully",
		"data":    response,
	})
}

// GetBooking handles GET /api/v1/bookings/:id
func (c *Controller) GetBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	customerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	booking, err := c.service.GetBooking(ctx.Request.Context(), bookingID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}

	roleInterface, _ := ctx.Get("role")
	role, _ := roleInterface.(string)
	if role != "ADMIN" && booking.CustomerID != customerID && booking.OwnerID != customerID {
		ctx.JSON(http.StatusForbidden, gin.H{"error": "Access denied"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Booking retrieved successfully",
		"data":    booking,
	})
}

// GetUserBookings handles GET /api/v1/users/bookings
func (c *Controller) GetUserBookings(ctx *gin.Context) {
	customerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	result, total, err := c.service.ListUserBookings(ctx.Request.Context(), customerID, BookingListQuery{
		Status: Status(ctx.Query("status")),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get user bookings"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Bookings retrieved successfully",
		"data": gin.H{
			"bookings": result,
			"total":    total,
			"limit":    limit,
			"offset":   offset,
		},
	})
}

// CancelBooking handles POST /api/v1/bookings/:id/cancel
func (c *Controller) CancelBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	customerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	if err := c.service.CancelBooking(ctx.Request.Context(), bookingID, customerID); err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Booking cancelled successfully"})
}

// CheckIn handles POST /api/v1/bookings/:id/check-in
func (c *Controller) CheckIn(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	ownerID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	if err := c.service.CheckIn(ctx.Request.Context(), bookingID, ownerID); err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Check-in recorded successfully"})
}

type refundRequest struct {
	Destination string `json:"destination" binding:"required,oneof=bank credit"`
	Amount      int64  `json:"amount"`
}

// RefundBooking handles POST /api/v1/bookings/:id/refund
func (c *Controller) RefundBooking(ctx *gin.Context) {
	bookingID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID"})
		return
	}

	var req refundRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := c.service.RefundBooking(ctx.Request.Context(), bookingID, wallets.RefundDestination(req.Destination), req.Amount); err != nil {
		respondBookingError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Refund processed successfully"})
}

// respondBookingError maps domain errors onto user-visible responses. A
// slot conflict tells the customer to pick another time, nothing more.
func respondBookingError(ctx *gin.Context, err error) {
	switch {
	case apperrors.IsRetryableByClient(err):
		ctx.JSON(http.StatusConflict, gin.H{
			"error": "this time slot is no longer available, please pick another",
		})
	case errors.Is(err, apperrors.ErrValidation):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrState):
		ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Request failed", "details": err.Error()})
	}
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
