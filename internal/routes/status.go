package routes

import (
	"github.com/gin-gonic/gin"

	"tradeboard/internal/handlers"
)

// SetupStatusRoutes wires the dashboard polling endpoints
func SetupStatusRoutes(r *gin.Engine) {
	r.GET("/status", handlers.GetStatus)
	r.GET("/logs", handlers.GetLogs)
	r.GET("/runs", handlers.GetRuns)
}
