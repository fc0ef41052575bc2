package dexfeed

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tradeboard/internal/models"
)

// ValidationError marks a malformed feed record. Callers drop and log the
// record instead of failing the run.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid swap record: %s %s", e.Field, e.Reason)
}

// Normalize converts a raw feed swap into a canonical trade for the tracked
// token. The side is derived from which leg the tracked token is on: the
// wallet receiving the token is buying, the wallet sending it is selling.
func Normalize(raw RawSwap, token string, decimals int32) (models.Trade, error) {
	if raw.TxHash == "" {
		return models.Trade{}, &ValidationError{Field: "txHash", Reason: "is empty"}
	}
	if raw.WalletAddress == "" {
		return models.Trade{}, &ValidationError{Field: "walletAddress", Reason: "is empty"}
	}

	tokenLower := strings.ToLower(token)
	var side models.TradeSide
	var rawAmount string

	switch {
	case strings.ToLower(raw.TokenOut) == tokenLower:
		side = models.SideBuy
		rawAmount = raw.AmountOut
	case strings.ToLower(raw.TokenIn) == tokenLower:
		side = models.SideSell
		rawAmount = raw.AmountIn
	default:
		return models.Trade{}, &ValidationError{Field: "token", Reason: "not on either swap leg"}
	}

	// Amounts are base units; a fractional value cannot be stored in the
	// integer amount column.
	amount, err := decimal.NewFromString(rawAmount)
	if err != nil || !amount.IsPositive() || !amount.IsInteger() {
		return models.Trade{}, &ValidationError{Field: "amount", Reason: "not a positive integer"}
	}

	price, err := decimal.NewFromString(raw.PriceUsd)
	if err != nil || price.IsNegative() {
		return models.Trade{}, &ValidationError{Field: "priceUsd", Reason: "not a valid decimal"}
	}

	return models.Trade{
		Wallet:      strings.ToLower(raw.WalletAddress),
		TxHash:      strings.ToLower(raw.TxHash),
		Token:       tokenLower,
		Side:        side,
		BlockNumber: raw.BlockNumber,
		Timestamp:   raw.Timestamp,
		Amount:      amount,
		PriceUsd:    price,
		ValueUsd:    amount.Shift(-decimals).Mul(price),
		Source:      raw.Source,
	}, nil
}
