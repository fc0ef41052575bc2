package routes

import (
	"github.com/gin-gonic/gin"

	"tradeboard/internal/handlers"
)

// SetupSyncRoutes wires the sync trigger endpoint
func SetupSyncRoutes(r *gin.Engine) {
	r.POST("/sync", syncRateLimiter(), handlers.TriggerSync)
}
