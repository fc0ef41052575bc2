package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeSide represents the direction of a swap leg
type TradeSide string

const (
	SideBuy  TradeSide = "BUY"
	SideSell TradeSide = "SELL"
)

// Trade represents one side of one swap for a tracked token.
// Rows are append-only: the unique index on (wallet, tx_hash, token, side)
// makes re-ingestion of the same window a no-op.
type Trade struct {
	ID          uint            `gorm:"primarykey" json:"id"`
	Wallet      string          `gorm:"size:64;not null;uniqueIndex:idx_trades_dedup,priority:1" json:"wallet"`
	TxHash      string          `gorm:"size:80;not null;uniqueIndex:idx_trades_dedup,priority:2" json:"tx_hash"`
	Token       string          `gorm:"size:64;not null;uniqueIndex:idx_trades_dedup,priority:3" json:"token"`
	Side        TradeSide       `gorm:"size:8;not null;uniqueIndex:idx_trades_dedup,priority:4" json:"side"`
	BlockNumber uint64          `gorm:"not null" json:"block_number"`
	Timestamp   int64           `gorm:"not null;index" json:"timestamp"`
	Amount      decimal.Decimal `gorm:"type:numeric(78,0);not null" json:"amount"` // token base units
	PriceUsd    decimal.Decimal `gorm:"column:price_usd;type:numeric(38,18);not null" json:"price_usd"`
	ValueUsd    decimal.Decimal `gorm:"column:value_usd;type:numeric(38,18);not null" json:"value_usd"`
	Source      string          `gorm:"size:32;default:''" json:"source"`
	CreatedAt   time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Trade) TableName() string {
	return "trades"
}

// TokenAmount returns the trade amount scaled from base units to whole tokens.
func (t *Trade) TokenAmount(decimals int32) decimal.Decimal {
	return t.Amount.Shift(-decimals)
}
