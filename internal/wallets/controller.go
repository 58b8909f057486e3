package wallets

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/apperrors"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// GetMyWallet handles GET /api/v1/wallets/me
func (c *Controller) GetMyWallet(ctx *gin.Context) {
	holderID, role, ok := currentHolder(ctx)
	if !ok {
		return
	}

	wallet, err := c.service.GetWallet(ctx.Request.Context(), holderID, role)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			// No ledger activity yet reads as an empty wallet.
			ctx.JSON(http.StatusOK, gin.H{
				"message": "Wallet retrieved successfully",
				"data":    Wallet{HolderID: holderID, Role: role},
			})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Wallet retrieved successfully",
		"data":    wallet,
	})
}

// GetMyEntries handles GET /api/v1/wallets/me/entries
func (c *Controller) GetMyEntries(ctx *gin.Context) {
	holderID, role, ok := currentHolder(ctx)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(ctx.DefaultQuery("offset", "0"))

	entries, err := c.service.GetEntries(ctx.Request.Context(), holderID, role, limit, offset)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get wallet entries"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "Wallet entries retrieved successfully",
		"data": gin.H{
			"entries": entries,
			"limit":   limit,
			"offset":  offset,
		},
	})
}

type withdrawRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// Withdraw handles POST /api/v1/wallets/withdraw
func (c *Controller) Withdraw(ctx *gin.Context) {
	holderID, _, ok := currentHolder(ctx)
	if !ok {
		return
	}

	var req withdrawRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	if err := c.service.Withdraw(ctx.Request.Context(), holderID, req.Amount); err != nil {
		switch {
		case errors.Is(err, apperrors.ErrInsufficientBalance):
			ctx.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Refund balance does not cover this withdrawal"})
		case errors.Is(err, apperrors.ErrExternalGateway):
			ctx.JSON(http.StatusBadGateway, gin.H{"error": "Transfer could not be initiated", "details": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Withdrawal failed", "details": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Withdrawal initiated successfully"})
}

// currentHolder maps the JWT identity onto a wallet holder. Facility
// owners read their owner wallet; everyone else reads their customer
// wallet.
func currentHolder(ctx *gin.Context) (uuid.UUID, Role, bool) {
	userIDInterface, exists := ctx.Get("user_id")
	if !exists {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return uuid.Nil, "", false
	}

	userIDStr, ok := userIDInterface.(string)
	if !ok {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "Invalid user ID format"})
		return uuid.Nil, "", false
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return uuid.Nil, "", false
	}

	roleInterface, _ := ctx.Get("role")
	jwtRole, _ := roleInterface.(string)

	role := RoleCustomer
	if jwtRole == "OWNER" {
		role = RoleOwner
	}
	return userID, role, true
}
