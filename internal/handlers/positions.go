package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"tradeboard/internal/ledger"
	"tradeboard/internal/models"
	dbconfig "tradeboard/pkg/config"
)

// positionView is one position row plus derived PnL fields.
type positionView struct {
	models.Position
	UnrealizedPnlUsd *decimal.Decimal `json:"unrealized_pnl_usd,omitempty"`
}

// GetPositions returns all positions for a wallet. When ?price_usd= is
// supplied, unrealized PnL is computed against it; the ledger never fetches
// prices itself.
func GetPositions(c *gin.Context) {
	wallet := strings.ToLower(c.Param("wallet"))

	var currentPrice *decimal.Decimal
	if v := c.Query("price_usd"); v != "" {
		price, err := decimal.NewFromString(v)
		if err != nil || price.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "price_usd must be a non-negative decimal"})
			return
		}
		currentPrice = &price
	}

	var positions []models.Position
	if err := dbconfig.DB.Where("wallet = ?", wallet).Order("token").Find(&positions).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, pos := range positions {
		view := positionView{Position: pos}
		if currentPrice != nil {
			state := ledger.PositionState{
				RemainingAmount: pos.RemainingAmount,
				CostBasisUsd:    pos.CostBasisUsd,
				RealizedPnlUsd:  pos.RealizedPnlUsd,
			}
			unrealized := state.UnrealizedPnl(*currentPrice, tokenDecimals(pos.Token))
			view.UnrealizedPnlUsd = &unrealized
		}
		views = append(views, view)
	}

	c.JSON(http.StatusOK, gin.H{"wallet": wallet, "positions": views})
}

// tokenDecimals looks up a token's decimals from the registry, defaulting to
// the EVM-standard 18 when unregistered.
func tokenDecimals(token string) int32 {
	var tc models.TokenConfig
	if err := dbconfig.DB.Where("address = ?", token).First(&tc).Error; err != nil {
		return 18
	}
	return int32(tc.Decimals)
}
