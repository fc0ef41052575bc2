package routes

import (
	"github.com/gin-gonic/gin"

	"tradeboard/internal/handlers"
)

// SetupTokenConfigRoutes wires the tracked-token registry
func SetupTokenConfigRoutes(r *gin.Engine) {
	v1 := r.Group("/token-configs")
	{
		v1.POST("", handlers.CreateTokenConfig)
		v1.GET("", handlers.ListTokenConfigs)
		v1.PUT("/:address", handlers.UpdateTokenConfig)
	}
}
