package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tradeboard/internal/models"
	"tradeboard/internal/store"
)

// ListTrades returns a filtered, paginated trade list. Ordering carries a
// primary-key tie-break so pages stay stable across equal timestamps.
func ListTrades(c *gin.Context) {
	filter := store.TradeFilter{
		Wallet: strings.ToLower(c.Query("wallet")),
		Token:  strings.ToLower(c.Query("token")),
	}

	if side := strings.ToUpper(c.Query("side")); side != "" {
		if side != string(models.SideBuy) && side != string(models.SideSell) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "side must be BUY or SELL"})
			return
		}
		filter.Side = models.TradeSide(side)
	}

	if v := c.Query("registered"); v != "" {
		registered, err := strconv.ParseBool(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "registered must be true or false"})
			return
		}
		filter.Registered = &registered
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "50"))

	trades, total, err := tradeStore.ListTrades(filter, page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trades":   trades,
		"total":    total,
		"page":     page,
		"per_page": perPage,
	})
}
