package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tradeboard/internal/models"

	log "github.com/sirupsen/logrus"
)

// PositionState is the in-memory cost-basis aggregate the fold operates on.
// RemainingAmount is in token base units; USD fields are decimals.
//
// The accounting method is average cost: all held units share one pooled
// basis. It is not lot-queue FIFO, even though upstream documentation calls
// it that.
type PositionState struct {
	RemainingAmount decimal.Decimal
	CostBasisUsd    decimal.Decimal
	RealizedPnlUsd  decimal.Decimal
}

// ApplyBuy adds the bought amount to the pool and its USD value to the basis.
func (s *PositionState) ApplyBuy(amountBase, unitPriceUsd decimal.Decimal, decimals int32) {
	s.RemainingAmount = s.RemainingAmount.Add(amountBase)
	s.CostBasisUsd = s.CostBasisUsd.Add(amountBase.Shift(-decimals).Mul(unitPriceUsd))
}

// ApplySell realizes PnL against the average cost of the pooled basis and
// returns the realized USD amount. Selling more than the tracked remaining
// clamps to remaining: PnL cannot be realized on holdings acquired before
// the tracking window.
func (s *PositionState) ApplySell(amountBase, unitPriceUsd decimal.Decimal, decimals int32) decimal.Decimal {
	sellAmount := amountBase
	if sellAmount.GreaterThan(s.RemainingAmount) {
		sellAmount = s.RemainingAmount
	}
	if !sellAmount.IsPositive() {
		return decimal.Zero
	}

	remainingTokens := s.RemainingAmount.Shift(-decimals)
	var avgCost decimal.Decimal
	if remainingTokens.IsPositive() {
		avgCost = s.CostBasisUsd.Div(remainingTokens)
	}

	sellTokens := sellAmount.Shift(-decimals)
	sellValue := sellTokens.Mul(unitPriceUsd)
	costOfSold := sellTokens.Mul(avgCost)
	realized := sellValue.Sub(costOfSold)

	s.RemainingAmount = s.RemainingAmount.Sub(sellAmount)
	s.CostBasisUsd = s.CostBasisUsd.Sub(costOfSold)
	if s.CostBasisUsd.IsNegative() || s.RemainingAmount.IsZero() {
		// Rounding drift: a fully closed position must carry no basis.
		s.CostBasisUsd = decimal.Zero
	}
	s.RealizedPnlUsd = s.RealizedPnlUsd.Add(realized)

	return realized
}

// UnrealizedPnl is the paper profit of the held amount against a
// caller-supplied current price. Pure: no price fetching here.
func (s *PositionState) UnrealizedPnl(currentPriceUsd decimal.Decimal, decimals int32) decimal.Decimal {
	currentValue := s.RemainingAmount.Shift(-decimals).Mul(currentPriceUsd)
	return currentValue.Sub(s.CostBasisUsd)
}

// SortTrades orders trades for folding: PnL is path-dependent, so trades must
// be applied in non-decreasing timestamp order, ties broken by block number
// then insert id for determinism.
func SortTrades(trades []models.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].Timestamp != trades[j].Timestamp {
			return trades[i].Timestamp < trades[j].Timestamp
		}
		if trades[i].BlockNumber != trades[j].BlockNumber {
			return trades[i].BlockNumber < trades[j].BlockNumber
		}
		return trades[i].ID < trades[j].ID
	})
}

// Ledger owns all Position mutation. Folding for a given (wallet, token) key
// is serialized through a per-key mutex so parallel token syncs cannot
// interleave on the same position.
type Ledger struct {
	db *gorm.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New creates a Ledger over the given database handle.
func New(db *gorm.DB) *Ledger {
	return &Ledger{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

func (l *Ledger) keyLock(wallet, token string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := wallet + "|" + token
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[key] = lock
	}
	return lock
}

// FoldTrades groups trades by (wallet, token), sorts each group by timestamp
// and folds it into the stored position. The trade store does not guarantee
// ordering, so sorting here is mandatory.
func (l *Ledger) FoldTrades(trades []models.Trade, decimals int32) error {
	byKey := make(map[string][]models.Trade)
	for _, t := range trades {
		key := t.Wallet + "|" + t.Token
		byKey[key] = append(byKey[key], t)
	}

	for _, group := range byKey {
		SortTrades(group)
		if err := l.foldGroup(group, decimals); err != nil {
			return err
		}
	}
	return nil
}

// foldGroup applies one (wallet, token) group under its key lock.
func (l *Ledger) foldGroup(group []models.Trade, decimals int32) error {
	wallet, token := group[0].Wallet, group[0].Token

	lock := l.keyLock(wallet, token)
	lock.Lock()
	defer lock.Unlock()

	pos, err := l.loadPosition(wallet, token)
	if err != nil {
		return err
	}

	state := PositionState{
		RemainingAmount: pos.RemainingAmount,
		CostBasisUsd:    pos.CostBasisUsd,
		RealizedPnlUsd:  pos.RealizedPnlUsd,
	}

	for _, t := range group {
		switch t.Side {
		case models.SideBuy:
			state.ApplyBuy(t.Amount, t.PriceUsd, decimals)
		case models.SideSell:
			realized := state.ApplySell(t.Amount, t.PriceUsd, decimals)
			log.Debugf("Realized %s USD on %s/%s tx %s", realized.StringFixed(8), wallet, token, t.TxHash)
		default:
			return fmt.Errorf("unknown trade side %q for tx %s", t.Side, t.TxHash)
		}
	}

	pos.RemainingAmount = state.RemainingAmount
	pos.CostBasisUsd = state.CostBasisUsd
	pos.RealizedPnlUsd = state.RealizedPnlUsd

	return l.savePosition(pos)
}

func (l *Ledger) loadPosition(wallet, token string) (*models.Position, error) {
	var pos models.Position
	err := l.db.Where("wallet = ? AND token = ?", wallet, token).First(&pos).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.Position{Wallet: wallet, Token: token}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load position %s/%s: %w", wallet, token, err)
	}
	return &pos, nil
}

func (l *Ledger) savePosition(pos *models.Position) error {
	err := l.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "wallet"}, {Name: "token"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"remaining_amount", "cost_basis_usd", "realized_pnl_usd", "updated_at",
		}),
	}).Create(pos).Error
	if err != nil {
		return fmt.Errorf("failed to upsert position %s/%s: %w", pos.Wallet, pos.Token, err)
	}
	return nil
}
