package handlers

import (
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradeboard/internal/ledger"
	"tradeboard/internal/models"
	dbconfig "tradeboard/pkg/config"
)

// leaderboardEntry ranks one wallet by PnL on the requested token.
type leaderboardEntry struct {
	Rank             int              `json:"rank"`
	Wallet           string           `json:"wallet"`
	RealizedPnlUsd   decimal.Decimal  `json:"realized_pnl_usd"`
	UnrealizedPnlUsd *decimal.Decimal `json:"unrealized_pnl_usd,omitempty"`
	TotalPnlUsd      decimal.Decimal  `json:"total_pnl_usd"`
}

// GetLeaderboard ranks wallets by realized PnL for a token, optionally
// including unrealized PnL against a caller-supplied current price.
func GetLeaderboard(c *gin.Context) {
	token := strings.ToLower(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "token is required"})
		return
	}

	var currentPrice *decimal.Decimal
	if v := c.Query("price_usd"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price_usd must be a non-negative decimal"})
			return
		}
		currentPrice = &price
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if limit < 1 || limit > 1000 {
		limit = 100
	}

	var positions []models.Position
	if err := dbconfig.DB.Where("token = ?", token).Find(&positions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	decimals := tokenDecimals(token)
	entries := make([]leaderboardEntry, 0, len(positions))
	for _, pos := range positions {
		entry := leaderboardEntry{
			Wallet:         pos.Wallet,
			RealizedPnlUsd: pos.RealizedPnlUsd,
			TotalPnlUsd:    pos.RealizedPnlUsd,
		}
		if currentPrice != nil {
			state := ledger.PositionState{
				RemainingAmount: pos.RemainingAmount,
				CostBasisUsd:    pos.CostBasisUsd,
				RealizedPnlUsd:  pos.RealizedPnlUsd,
			}
			unrealized := state.UnrealizedPnl(*currentPrice, decimals)
			entry.UnrealizedPnlUsd = &unrealized
			entry.TotalPnlUsd = entry.TotalPnlUsd.Add(unrealized)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].TotalPnlUsd.Equal(entries[j].TotalPnlUsd) {
			return entries[i].TotalPnlUsd.GreaterThan(entries[j].TotalPnlUsd)
		}
		return entries[i].Wallet < entries[j].Wallet
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "leaderboard": entries})
}
