package models

import "time"

// Holder discovery strategies
const (
	HolderSourceTransfers = "transfers"
	HolderSourceAPI       = "api"
)

// HolderSnapshot records one wallet seen holding a token during discovery,
// tagged with the strategy that found it so divergence between strategies
// can be audited later.
type HolderSnapshot struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Token      string    `gorm:"size:64;not null;index" json:"token"`
	Wallet     string    `gorm:"size:64;not null" json:"wallet"`
	Source     string    `gorm:"size:16;not null" json:"source"`
	CapturedAt time.Time `gorm:"not null;index" json:"captured_at"`
}

func (HolderSnapshot) TableName() string {
	return "holder_snapshots"
}
