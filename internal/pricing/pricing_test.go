package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestQuote_SizeSurcharges(t *testing.T) {
	base := decimal.RequireFromString("25.00")

	tests := []struct {
		name string
		size string
		want string
	}{
		{"2X adds two", "2X", "27.00"},
		{"3X adds two", "3X", "27.00"},
		{"4X adds three, not five", "4X", "28.00"},
		{"adult large has no surcharge", "AL", "25.00"},
		{"youth medium has no surcharge", "YM", "25.00"},
		{"5X has no surcharge", "5X", "25.00"},
		{"one size has no surcharge", "One Size", "25.00"},
		{"unknown code has no surcharge", "??", "25.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Quote(base, tt.size, false)
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
				"Quote(%s, %q, false) = %s, want %s", base, tt.size, got, tt.want)
		})
	}
}

func TestQuote_CustomizationStacksWithSize(t *testing.T) {
	base := decimal.RequireFromString("25.00")

	tests := []struct {
		size string
		want string
	}{
		{"AL", "27.00"},
		{"2X", "29.00"},
		{"3X", "29.00"},
		{"4X", "30.00"},
	}

	for _, tt := range tests {
		got := Quote(base, tt.size, true)
		assert.True(t, got.Equal(decimal.RequireFromString(tt.want)),
			"Quote(%s, %q, true) = %s, want %s", base, tt.size, got, tt.want)
	}
}

func TestQuote_RoundsToCurrencyPrecision(t *testing.T) {
	base := decimal.RequireFromString("19.999")

	got := Quote(base, "AM", false)
	assert.Equal(t, "20.00", got.StringFixed(2))
}

func TestQuote_Deterministic(t *testing.T) {
	base := decimal.RequireFromString("25.00")

	first := Quote(base, "2X", true)
	second := Quote(base, "2X", true)
	assert.True(t, first.Equal(second))
}
