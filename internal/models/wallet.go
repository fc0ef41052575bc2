package models

import "time"

// Wallet is the tracking record for any address observed as a trader or holder.
type Wallet struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Address      string     `gorm:"size:64;uniqueIndex;not null" json:"address"`
	LastSyncedAt *time.Time `json:"last_synced_at"`
	CreatedAt    time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}
