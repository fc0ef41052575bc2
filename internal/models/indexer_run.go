package models

import "time"

// Run status values
const (
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Sync modes
const (
	SyncTypeIncremental = "incremental"
	SyncTypeFull        = "full"
)

// IndexerRun is the durable audit record of one sync execution.
// It is created when a run starts and updated exactly once at completion.
type IndexerRun struct {
	ID             uint       `gorm:"primarykey" json:"id"`
	Initiator      string     `gorm:"size:32;not null" json:"initiator"`
	SyncType       string     `gorm:"size:16;not null" json:"sync_type"`
	TokensScanned  int        `gorm:"default:0" json:"tokens_scanned"`
	Status         string     `gorm:"size:16;not null;index" json:"status"`
	StartedAt      time.Time  `gorm:"not null" json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
	PagesFetched   int        `gorm:"default:0" json:"pages_fetched"`
	ApiCalls       int        `gorm:"column:api_calls;default:0" json:"api_calls"`
	SwapsProcessed int        `gorm:"default:0" json:"swaps_processed"`
	WalletsFound   int        `gorm:"default:0" json:"wallets_found"`
	ErrorMessage   string     `gorm:"type:text;default:''" json:"error_message"`
}

func (IndexerRun) TableName() string {
	return "indexer_runs"
}
