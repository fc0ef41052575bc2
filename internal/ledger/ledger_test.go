package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/models"
)

const testDecimals = 18

// baseUnits returns n whole tokens in 18-decimal base units.
func baseUnits(n int64) decimal.Decimal {
	return decimal.New(n, testDecimals)
}

func usd(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestApplyBuyAccumulatesBasis(t *testing.T) {
	var state PositionState

	state.ApplyBuy(baseUnits(100), usd("1"), testDecimals)

	assert.True(t, state.RemainingAmount.Equal(baseUnits(100)))
	assert.True(t, state.CostBasisUsd.Equal(usd("100")))
	assert.True(t, state.RealizedPnlUsd.IsZero())
}

func TestBuyThenSellRealizesAverageCostPnl(t *testing.T) {
	var state PositionState

	// Buy 100 tokens at $1: basis $100, remaining 100.
	state.ApplyBuy(baseUnits(100), usd("1"), testDecimals)

	// Sell 40 at $2: realized = 40*2 - 40*(100/100) = $40.
	realized := state.ApplySell(baseUnits(40), usd("2"), testDecimals)

	assert.True(t, realized.Equal(usd("40")), "realized = %s", realized)
	assert.True(t, state.RemainingAmount.Equal(baseUnits(60)))
	assert.True(t, state.CostBasisUsd.Equal(usd("60")))
	assert.True(t, state.RealizedPnlUsd.Equal(usd("40")))
}

func TestSellClampsToRemaining(t *testing.T) {
	var state PositionState

	state.ApplyBuy(baseUnits(10), usd("1"), testDecimals)

	// Selling 25 with only 10 tracked realizes PnL on 10 only.
	realized := state.ApplySell(baseUnits(25), usd("3"), testDecimals)

	assert.True(t, realized.Equal(usd("20")), "realized = %s", realized)
	assert.True(t, state.RemainingAmount.IsZero(), "remaining never goes negative")
	assert.True(t, state.CostBasisUsd.IsZero(), "closed position carries no basis")
}

func TestSellWithNothingTrackedRealizesNothing(t *testing.T) {
	var state PositionState

	realized := state.ApplySell(baseUnits(5), usd("2"), testDecimals)

	assert.True(t, realized.IsZero())
	assert.True(t, state.RemainingAmount.IsZero())
	assert.True(t, state.CostBasisUsd.IsZero())
}

func TestAverageCostInvariants(t *testing.T) {
	var state PositionState

	state.ApplyBuy(baseUnits(100), usd("1.5"), testDecimals)
	state.ApplySell(baseUnits(30), usd("0.5"), testDecimals) // a losing sale
	state.ApplyBuy(baseUnits(50), usd("2"), testDecimals)
	state.ApplySell(baseUnits(120), usd("1"), testDecimals)
	state.ApplySell(baseUnits(500), usd("4"), testDecimals) // over-sell clamps

	assert.False(t, state.RemainingAmount.IsNegative())
	assert.False(t, state.CostBasisUsd.IsNegative())
	// Fully drained: zero basis goes with zero remaining.
	assert.True(t, state.RemainingAmount.IsZero())
	assert.True(t, state.CostBasisUsd.IsZero())
}

func TestUnrealizedPnl(t *testing.T) {
	var state PositionState

	state.ApplyBuy(baseUnits(100), usd("1"), testDecimals)
	state.ApplySell(baseUnits(40), usd("2"), testDecimals)

	// 60 tokens held at basis $60; at $3 they are worth $180.
	unrealized := state.UnrealizedPnl(usd("3"), testDecimals)
	assert.True(t, unrealized.Equal(usd("120")), "unrealized = %s", unrealized)
}

func foldAll(trades []models.Trade) PositionState {
	SortTrades(trades)
	var state PositionState
	for _, tr := range trades {
		switch tr.Side {
		case models.SideBuy:
			state.ApplyBuy(tr.Amount, tr.PriceUsd, testDecimals)
		case models.SideSell:
			state.ApplySell(tr.Amount, tr.PriceUsd, testDecimals)
		}
	}
	return state
}

func TestFoldIsOrderInsensitiveAfterSorting(t *testing.T) {
	mk := func(ts int64, side models.TradeSide, amount int64, price string) models.Trade {
		return models.Trade{
			Wallet: "0xabc", Token: "0xtoken", TxHash: "0xhash",
			Timestamp: ts, Side: side,
			Amount: baseUnits(amount), PriceUsd: usd(price),
		}
	}

	trades := []models.Trade{
		mk(1, models.SideBuy, 100, "1"),
		mk(2, models.SideSell, 50, "2"),
		mk(3, models.SideBuy, 20, "3"),
		mk(4, models.SideSell, 60, "4"),
	}
	reversed := []models.Trade{trades[3], trades[1], trades[2], trades[0]}

	a := foldAll(trades)
	b := foldAll(reversed)

	require.True(t, a.RemainingAmount.Equal(b.RemainingAmount))
	require.True(t, a.CostBasisUsd.Equal(b.CostBasisUsd))
	require.True(t, a.RealizedPnlUsd.Equal(b.RealizedPnlUsd))
}

func TestSortTradesTieBreaks(t *testing.T) {
	trades := []models.Trade{
		{ID: 3, Timestamp: 10, BlockNumber: 2},
		{ID: 2, Timestamp: 10, BlockNumber: 1},
		{ID: 1, Timestamp: 5, BlockNumber: 9},
	}

	SortTrades(trades)

	assert.Equal(t, uint(1), trades[0].ID, "earliest timestamp first")
	assert.Equal(t, uint(2), trades[1].ID, "block number breaks timestamp ties")
	assert.Equal(t, uint(3), trades[2].ID)
}
