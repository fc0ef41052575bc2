package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// GetStatus returns the ephemeral run status for the polling dashboard.
func GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, sink.Snapshot())
}

// GetLogs returns up to ?limit=N entries of the bounded run log, oldest first.
func GetLogs(c *gin.Context) {
	limit := 0
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = parsed
	}

	c.JSON(http.StatusOK, gin.H{"logs": sink.Logs(limit)})
}
