package dexfeed

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/models"
)

const trackedToken = "0xAAAA00000000000000000000000000000000AAAA"

func validRaw() RawSwap {
	return RawSwap{
		TxHash:        "0xDEADBEEF",
		BlockNumber:   12345,
		Timestamp:     1700000000,
		WalletAddress: "0xWallet1",
		TokenIn:       "0xweth",
		TokenOut:      trackedToken,
		AmountIn:      "500000000000000000",
		AmountOut:     "2000000000000000000",
		PriceUsd:      "1.5",
		Source:        "uniswap",
	}
}

func TestNormalizeBuySide(t *testing.T) {
	trade, err := Normalize(validRaw(), trackedToken, 18)
	require.NoError(t, err)

	assert.Equal(t, models.SideBuy, trade.Side)
	assert.Equal(t, "0xdeadbeef", trade.TxHash)
	assert.Equal(t, "0xwallet1", trade.Wallet)
	assert.Equal(t, "0xaaaa00000000000000000000000000000000aaaa", trade.Token)
	assert.True(t, trade.Amount.Equal(decimal.New(2, 18)), "buy amount comes from the out leg")
	// 2 tokens at $1.50
	assert.True(t, trade.ValueUsd.Equal(decimal.RequireFromString("3")), "value = %s", trade.ValueUsd)
}

func TestNormalizeSellSide(t *testing.T) {
	raw := validRaw()
	raw.TokenIn = trackedToken
	raw.TokenOut = "0xweth"
	raw.AmountIn = "4000000000000000000"

	trade, err := Normalize(raw, trackedToken, 18)
	require.NoError(t, err)

	assert.Equal(t, models.SideSell, trade.Side)
	assert.True(t, trade.Amount.Equal(decimal.New(4, 18)), "sell amount comes from the in leg")
}

func TestNormalizeMatchesTokenCaseInsensitively(t *testing.T) {
	raw := validRaw()
	raw.TokenOut = "0xaAaA00000000000000000000000000000000AaAa"

	trade, err := Normalize(raw, trackedToken, 18)
	require.NoError(t, err)
	assert.Equal(t, models.SideBuy, trade.Side)
}

func TestNormalizeRejectsMalformedRecords(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RawSwap)
		field  string
	}{
		{"missing tx hash", func(r *RawSwap) { r.TxHash = "" }, "txHash"},
		{"missing wallet", func(r *RawSwap) { r.WalletAddress = "" }, "walletAddress"},
		{"token on neither leg", func(r *RawSwap) { r.TokenOut = "0xother" }, "token"},
		{"zero amount", func(r *RawSwap) { r.AmountOut = "0" }, "amount"},
		{"garbage amount", func(r *RawSwap) { r.AmountOut = "lots" }, "amount"},
		{"fractional amount", func(r *RawSwap) { r.AmountOut = "1000000000000000000.5" }, "amount"},
		{"negative price", func(r *RawSwap) { r.PriceUsd = "-1" }, "priceUsd"},
		{"garbage price", func(r *RawSwap) { r.PriceUsd = "cheap" }, "priceUsd"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := validRaw()
			tc.mutate(&raw)

			_, err := Normalize(raw, trackedToken, 18)
			require.Error(t, err)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestNormalizeZeroPriceIsAllowed(t *testing.T) {
	// Airdrop-style swaps report zero price; they are valid trades with no
	// USD value.
	raw := validRaw()
	raw.PriceUsd = "0"

	trade, err := Normalize(raw, trackedToken, 18)
	require.NoError(t, err)
	assert.True(t, trade.ValueUsd.IsZero())
}
