package wallets

import (
	"github.com/gin-gonic/gin"

	"github.com/MNhat168/sport-zone-sub003/internal/shared/middleware"
)

// SetupWalletRoutes configures all wallet-related routes
func SetupWalletRoutes(rg *gin.RouterGroup, controller *Controller) {
	wallets := rg.Group("/wallets")
	wallets.Use(middleware.JWTAuth(), middleware.RequireRoles("USER", "OWNER", "ADMIN"))
	{
		wallets.GET("/me", controller.GetMyWallet)          // GET  /api/v1/wallets/me
		wallets.GET("/me/entries", controller.GetMyEntries) // GET  /api/v1/wallets/me/entries
		wallets.POST("/withdraw", controller.Withdraw)      // POST /api/v1/wallets/withdraw
	}
}
