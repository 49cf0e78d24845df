package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// FinalPrice returns price reduced by discount percent. Discount is expected
// to be within [0, 100]; range checks happen when the product is written.
func FinalPrice(price, discount decimal.Decimal) decimal.Decimal {
	return price.Sub(price.Mul(discount).Div(hundred))
}
