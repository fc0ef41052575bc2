package store

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeboard/internal/models"
)

// ErrRunActive is returned by CreateRun when another run row is already in
// the running state. The partial unique index on indexer_runs(status)
// enforces this across every process sharing the database, not just within
// one process.
var ErrRunActive = errors.New("another sync run is already recorded as running")

// staleRunAge is how long a running row may sit without completion before it
// is presumed abandoned by a crashed process and expired.
const staleRunAge = 2 * time.Hour

// Store is the sole writer of trades and wallet tracking records.
type Store struct {
	db *gorm.DB
}

// New creates a Store over the given database handle.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// InsertTrades persists trades idempotently and returns the rows that were
// actually written. Rows conflicting on (wallet, tx_hash, token, side) are
// silently skipped and excluded from the result, so a clean resync returns
// nothing and callers fold only genuinely new history into positions.
func (s *Store) InsertTrades(trades []models.Trade) ([]models.Trade, error) {
	if len(trades) == 0 {
		return nil, nil
	}

	keys := make([][]interface{}, 0, len(trades))
	for _, t := range trades {
		keys = append(keys, []interface{}{t.Wallet, t.TxHash, t.Token, string(t.Side)})
	}

	var existing []models.Trade
	err := s.db.Select("wallet", "tx_hash", "token", "side").
		Where("(wallet, tx_hash, token, side) IN ?", keys).
		Find(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing trades: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, t := range existing {
		seen[dedupKey(t)] = struct{}{}
	}

	fresh := make([]models.Trade, 0, len(trades))
	for _, t := range trades {
		key := dedupKey(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{} // also drops in-batch duplicates
		fresh = append(fresh, t)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	result := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "wallet"}, {Name: "tx_hash"}, {Name: "token"}, {Name: "side"},
		},
		DoNothing: true,
	}).Create(&fresh)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to insert trades: %w", result.Error)
	}

	return fresh, nil
}

func dedupKey(t models.Trade) string {
	return t.Wallet + "|" + t.TxHash + "|" + t.Token + "|" + string(t.Side)
}

// TradeFilter narrows ListTrades results. Zero values mean "no filter".
// Registered selects trades whose wallet is (or is not) in the tracked
// wallets table.
type TradeFilter struct {
	Wallet     string
	Token      string
	Side       models.TradeSide
	Registered *bool
}

// ListTrades returns a page of trades. Ordering is ts DESC with an id DESC
// tie-break so pagination stays deterministic across equal timestamps.
func (s *Store) ListTrades(filter TradeFilter, page, perPage int) ([]models.Trade, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 500 {
		perPage = 50
	}

	query := s.db.Model(&models.Trade{})
	if filter.Wallet != "" {
		query = query.Where("wallet = ?", filter.Wallet)
	}
	if filter.Token != "" {
		query = query.Where("token = ?", filter.Token)
	}
	if filter.Side != "" {
		query = query.Where("side = ?", filter.Side)
	}
	if filter.Registered != nil {
		sub := s.db.Model(&models.Wallet{}).Select("address")
		if *filter.Registered {
			query = query.Where("wallet IN (?)", sub)
		} else {
			query = query.Where("wallet NOT IN (?)", sub)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trades: %w", err)
	}

	var trades []models.Trade
	err := query.
		Order("timestamp DESC, id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&trades).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list trades: %w", err)
	}

	return trades, total, nil
}

// UpsertWallet records an address as tracked and stamps its sync marker.
func (s *Store) UpsertWallet(address string, syncedAt time.Time) error {
	wallet := models.Wallet{Address: address, LastSyncedAt: &syncedAt}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"last_synced_at", "updated_at"}),
	}).Create(&wallet).Error
	if err != nil {
		return fmt.Errorf("failed to upsert wallet %s: %w", address, err)
	}
	return nil
}

// TruncateAll wipes trades, positions and wallets ahead of a full sync.
// Irreversible; callers gate it behind an explicit opt-in.
func (s *Store) TruncateAll() error {
	err := s.db.Exec("TRUNCATE TABLE trades, positions, wallets RESTART IDENTITY").Error
	if err != nil {
		return fmt.Errorf("failed to truncate stores: %w", err)
	}
	return nil
}

// EnabledTokens returns the tracked-token registry entries sync iterates.
func (s *Store) EnabledTokens() ([]models.TokenConfig, error) {
	var tokens []models.TokenConfig
	if err := s.db.Where("enabled = ?", true).Order("id").Find(&tokens).Error; err != nil {
		return nil, fmt.Errorf("failed to list enabled tokens: %w", err)
	}
	return tokens, nil
}

// TokenByAddress looks up one registry entry.
func (s *Store) TokenByAddress(address string) (*models.TokenConfig, error) {
	var token models.TokenConfig
	if err := s.db.Where("address = ?", address).First(&token).Error; err != nil {
		return nil, fmt.Errorf("failed to find token %s: %w", address, err)
	}
	return &token, nil
}

// CreateRun opens the audit record for a sync execution. At most one row may
// be running at a time database-wide; a second concurrent opener gets
// ErrRunActive.
func (s *Store) CreateRun(initiator, syncType string) (*models.IndexerRun, error) {
	// Expire runs abandoned by a crashed process so a stale running row
	// cannot block new runs forever.
	now := time.Now().UTC()
	err := s.db.Model(&models.IndexerRun{}).
		Where("status = ? AND started_at < ?", models.RunStatusRunning, now.Add(-staleRunAge)).
		Updates(map[string]interface{}{
			"status":        models.RunStatusFailed,
			"error_message": "expired: no completion recorded",
			"finished_at":   now,
		}).Error
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale runs: %w", err)
	}

	run := &models.IndexerRun{
		Initiator: initiator,
		SyncType:  syncType,
		Status:    models.RunStatusRunning,
		StartedAt: now,
	}
	if err := s.db.Create(run).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrRunActive
		}
		return nil, fmt.Errorf("failed to create indexer run: %w", err)
	}
	return run, nil
}

// CompleteRun writes the terminal state of a run exactly once.
func (s *Store) CompleteRun(run *models.IndexerRun) error {
	now := time.Now().UTC()
	run.FinishedAt = &now
	if err := s.db.Save(run).Error; err != nil {
		return fmt.Errorf("failed to complete indexer run %d: %w", run.ID, err)
	}
	return nil
}

// LastSuccessfulRun returns the most recent succeeded run, used to pick the
// lower time bound of an incremental sync.
func (s *Store) LastSuccessfulRun() (*models.IndexerRun, error) {
	var run models.IndexerRun
	err := s.db.Where("status = ?", models.RunStatusSucceeded).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find last successful run: %w", err)
	}
	return &run, nil
}

// ListRuns returns the newest runs for the audit endpoint.
func (s *Store) ListRuns(limit int) ([]models.IndexerRun, error) {
	if limit < 1 || limit > 200 {
		limit = 20
	}
	var runs []models.IndexerRun
	if err := s.db.Order("started_at DESC, id DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// InsertHolderSnapshots persists discovery audit rows; best-effort data, so
// conflicts are not expected and plain inserts are fine.
func (s *Store) InsertHolderSnapshots(snapshots []models.HolderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	if err := s.db.Create(&snapshots).Error; err != nil {
		return fmt.Errorf("failed to insert holder snapshots: %w", err)
	}
	return nil
}
