package domain

import "github.com/shopspring/decimal"

// MoneyPlaces matches the NUMERIC(12, 2) money columns.
const MoneyPlaces = 2

func init() {
	// The storefront client reads prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// RoundMoney rounds half away from zero to whole paise.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}
