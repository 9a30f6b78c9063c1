package domain

import (
	"github.com/shopspring/decimal"
)

// Totals holds the tax breakdown for a pre-tax subtotal, formatted as fixed
// 2-decimal-place currency strings.
type Totals struct {
	TaxToBeCollected string `json:"tax_to_be_collected"`
	TotalAfterTax    string `json:"total_after_tax"`
}

// ComputeTotals converts a pre-tax subtotal into a tax amount and grand total
// at the given rate. Both values are rounded to 2 decimal places and formatted
// with exactly two fractional digits.
func ComputeTotals(subtotal, taxRate decimal.Decimal) Totals {
	tax := subtotal.Mul(taxRate).Round(2)
	total := subtotal.Add(tax).Round(2)
	return Totals{
		TaxToBeCollected: tax.StringFixed(2),
		TotalAfterTax:    total.StringFixed(2),
	}
}

// FixDecimal normalizes a numeric string so the fractional part always has
// exactly two digits: "420" becomes "420.00" and "420.1" becomes "420.10".
// The function is idempotent; a string that does not parse as a number is
// returned unchanged.
func FixDecimal(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	return d.StringFixed(2)
}
