package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tradeboard/internal/models"
	dbconfig "tradeboard/pkg/config"
)

type CreateTokenConfigRequest struct {
	Address  string `json:"address" binding:"required"`
	Symbol   string `json:"symbol" binding:"required"`
	Name     string `json:"name" binding:"required"`
	Decimals *int   `json:"decimals"`
}

// CreateTokenConfig registers a token for tracking.
func CreateTokenConfig(c *gin.Context) {
	var req CreateTokenConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	decimals := 18
	if req.Decimals != nil {
		decimals = *req.Decimals
	}

	token := models.TokenConfig{
		Address:  strings.ToLower(req.Address),
		Symbol:   req.Symbol,
		Name:     req.Name,
		Decimals: decimals,
		Enabled:  true,
	}
	if err := dbconfig.DB.Create(&token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, token)
}

// ListTokenConfigs returns the tracked-token registry.
func ListTokenConfigs(c *gin.Context) {
	var tokens []models.TokenConfig
	if err := dbconfig.DB.Order("id").Find(&tokens).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

type UpdateTokenConfigRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

// UpdateTokenConfig toggles whether a token participates in sync runs.
func UpdateTokenConfig(c *gin.Context) {
	address := strings.ToLower(c.Param("address"))

	var req UpdateTokenConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := dbconfig.DB.Model(&models.TokenConfig{}).
		Where("address = ?", address).
		Update("enabled", *req.Enabled)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": result.Error.Error()})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "token not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"address": address, "enabled": *req.Enabled})
}
