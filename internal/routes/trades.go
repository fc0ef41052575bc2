package routes

import (
	"github.com/gin-gonic/gin"

	"tradeboard/internal/handlers"
)

// SetupTradeRoutes wires trade and position queries
func SetupTradeRoutes(r *gin.Engine) {
	r.GET("/trades", handlers.ListTrades)
	r.GET("/positions/:wallet", handlers.GetPositions)
}
