package payroll

import "github.com/shopspring/decimal"

type taxBracket struct {
	width decimal.Decimal // zero means unbounded
	rate  decimal.Decimal
}

var (
	hundred = decimal.NewFromInt(100)

	flatTaxRate = decimal.RequireFromString("0.10")

	taxBrackets = []taxBracket{
		{width: decimal.NewFromInt(5_000_000), rate: decimal.RequireFromString("0.05")},
		{width: decimal.NewFromInt(5_000_000), rate: decimal.RequireFromString("0.10")},
		{width: decimal.NewFromInt(8_000_000), rate: decimal.RequireFromString("0.15")},
		{width: decimal.NewFromInt(14_000_000), rate: decimal.RequireFromString("0.20")},
		{width: decimal.NewFromInt(20_000_000), rate: decimal.RequireFromString("0.25")},
		{width: decimal.NewFromInt(28_000_000), rate: decimal.RequireFromString("0.30")},
		{width: decimal.Zero, rate: decimal.RequireFromString("0.35")},
	}
)

// ProgressiveTax applies the seven marginal brackets
// [0,5M) 5%, [5M,10M) 10%, [10M,18M) 15%, [18M,32M) 20%, [32M,52M) 25%,
// [52M,80M) 30%, [80M,inf) 35%.
func ProgressiveTax(taxable decimal.Decimal) decimal.Decimal {
	tax := decimal.Zero
	remaining := taxable
	for _, b := range taxBrackets {
		if !remaining.IsPositive() {
			break
		}
		portion := remaining
		if !b.width.IsZero() {
			portion = decimal.Min(remaining, b.width)
		}
		tax = tax.Add(portion.Mul(b.rate))
		remaining = remaining.Sub(portion)
	}
	return tax
}

// FlatTax is 10% of a non-negative base.
func FlatTax(base decimal.Decimal) decimal.Decimal {
	if !base.IsPositive() {
		return decimal.Zero
	}
	return base.Mul(flatTaxRate)
}
