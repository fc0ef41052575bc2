package models

import "time"

// TokenConfig is the registry of tracked tokens. Sync runs iterate enabled
// tokens when no explicit token address is supplied.
type TokenConfig struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	Address   string    `gorm:"size:64;uniqueIndex;not null" json:"address"`
	Symbol    string    `gorm:"size:16;not null" json:"symbol"`
	Name      string    `gorm:"size:64;not null" json:"name"`
	Decimals  int       `gorm:"not null;default:18" json:"decimals"`
	Enabled   bool      `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TokenConfig) TableName() string {
	return "token_configs"
}
