package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is the mutable cost-basis aggregate per (wallet, token).
// A zero-remaining position is a valid terminal state and is never deleted.
type Position struct {
	ID              uint            `gorm:"primarykey" json:"id"`
	Wallet          string          `gorm:"size:64;not null;uniqueIndex:idx_positions_key,priority:1" json:"wallet"`
	Token           string          `gorm:"size:64;not null;uniqueIndex:idx_positions_key,priority:2" json:"token"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(78,0);not null;default:0" json:"remaining_amount"` // token base units
	CostBasisUsd    decimal.Decimal `gorm:"column:cost_basis_usd;type:numeric(38,18);not null;default:0" json:"cost_basis_usd"`
	RealizedPnlUsd  decimal.Decimal `gorm:"column:realized_pnl_usd;type:numeric(38,18);not null;default:0" json:"realized_pnl_usd"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Position) TableName() string {
	return "positions"
}
