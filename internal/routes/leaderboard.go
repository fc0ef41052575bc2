package routes

import (
	"github.com/gin-gonic/gin"

	"tradeboard/internal/handlers"
)

// SetupLeaderboardRoutes wires the PnL ranking endpoint
func SetupLeaderboardRoutes(r *gin.Engine) {
	r.GET("/leaderboard", handlers.GetLeaderboard)
}
