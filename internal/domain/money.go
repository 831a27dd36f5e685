package domain

import "github.com/shopspring/decimal"

const DefaultCurrency = "NPR"

// MoneyPlaces is the number of fractional digits kept by every ledger write.
const MoneyPlaces = 2

func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyPlaces)
}

// Percent returns amount*rate/100 rounded to ledger precision.
func Percent(amount decimal.Decimal, rate decimal.Decimal) decimal.Decimal {
	return Round(amount.Mul(rate).Div(decimal.NewFromInt(100)))
}
