package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFinalPrice(t *testing.T) {
	tests := []struct {
		name     string
		price    string
		discount string
		want     string
	}{
		{"no discount", "100", "0", "100"},
		{"full discount", "100", "100", "0"},
		{"quarter off", "80", "25", "60"},
		{"fractional", "19.99", "10", "17.991"},
		{"zero price", "0", "50", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FinalPrice(decimal.RequireFromString(tt.price), decimal.RequireFromString(tt.discount))
			assert.True(t, got.Equal(decimal.RequireFromString(tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestFinalPriceMatchesFormulaAndIsNonIncreasing(t *testing.T) {
	one := decimal.NewFromInt(1)
	for _, p := range []string{"0", "1", "9.5", "250.75", "100000"} {
		price := decimal.RequireFromString(p)
		prev := FinalPrice(price, decimal.Zero)
		for d := int64(0); d <= 100; d += 5 {
			discount := decimal.NewFromInt(d)
			got := FinalPrice(price, discount)

			want := price.Mul(one.Sub(discount.Div(hundred)))
			assert.True(t, got.Equal(want), "price=%s discount=%d", p, d)
			assert.True(t, got.LessThanOrEqual(prev), "price=%s discount=%d", p, d)
			prev = got
		}
	}
}
