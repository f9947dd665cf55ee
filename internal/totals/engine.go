// Package totals recomputes the derived monetary fields of a commercial
// document (line totals, subtotal, tax amount, discount amount, grand total)
// from its raw inputs. Every function is pure and total: malformed numeric
// input coerces to zero and nothing here returns an error, so the engine can
// run on every keystroke of a document form.
package totals

import "github.com/shopspring/decimal"

// LineItem is one product row of a commercial document. Total is derived and
// always overwritten by the engine; it is never user input.
type LineItem struct {
	ProductID   string  `json:"productId,omitempty"`
	ProductName string  `json:"productName"`
	Quantity    Numeric `json:"quantity"`
	UnitPrice   Numeric `json:"unitPrice"`
	Total       float64 `json:"total"`
}

// Summary holds the aggregate derived fields of one document.
type Summary struct {
	Subtotal       float64 `json:"subtotal"`
	TaxAmount      float64 `json:"taxAmount"`
	DiscountAmount float64 `json:"discountAmount"`
	GrandTotal     float64 `json:"grandTotal"`
}

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary value to two decimal places, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// amount coerces a raw quantity or unit price input. Negative and non-finite
// values count as zero, the same way the form treats a half-edited row.
func amount(n Numeric) decimal.Decimal {
	v := n.Float()
	if v < 0 {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v)
}

// ItemTotal computes the derived total for the item at index:
// quantity times unit price, rounded to two decimals. An out-of-range index
// yields 0 so callers need no bounds guard mid-edit.
func ItemTotal(items []LineItem, index int) float64 {
	if index < 0 || index >= len(items) {
		return 0
	}
	it := items[index]
	f, _ := amount(it.Quantity).Mul(amount(it.UnitPrice)).Round(2).Float64()
	return f
}

// Aggregates computes subtotal, tax amount, discount amount, and grand total.
// The subtotal is derived from quantity and unit price directly, never from
// the per-item Total field, so it is correct even when item totals have not
// been flushed in the current cycle. Each derived value is rounded to two
// decimals immediately after its own derivation; this chained rounding is
// what the stored data reflects and must not be collapsed into one final
// rounding.
func Aggregates(items []LineItem, taxRate, discountRate Numeric) Summary {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(amount(it.Quantity).Mul(amount(it.UnitPrice)))
	}
	subtotal := sum.Round(2)
	tax := subtotal.Mul(decimal.NewFromFloat(taxRate.Float())).Div(hundred).Round(2)
	discount := subtotal.Mul(decimal.NewFromFloat(discountRate.Float())).Div(hundred).Round(2)
	grand := subtotal.Add(tax).Sub(discount).Round(2)

	sub, _ := subtotal.Float64()
	taxF, _ := tax.Float64()
	discF, _ := discount.Float64()
	grandF, _ := grand.Float64()
	return Summary{
		Subtotal:       sub,
		TaxAmount:      taxF,
		DiscountAmount: discF,
		GrandTotal:     grandF,
	}
}

// Recompute refreshes every item total in place and then computes the
// aggregates in the same pass. Item totals always settle before aggregates,
// so a caller that mutates a quantity and a rate in one logical update never
// observes aggregates built from the previous cycle's line totals.
func Recompute(items []LineItem, taxRate, discountRate Numeric) Summary {
	for i := range items {
		items[i].Total = ItemTotal(items, i)
	}
	return Aggregates(items, taxRate, discountRate)
}
