package services

import (
	"foodies-telegram/models"

	"github.com/shopspring/decimal"
)

// Pricing holds the display-side pricing rules. The backend stays authoritative for final amounts.
type Pricing struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

func DefaultPricing() Pricing {
	return Pricing{
		ShippingFee: decimal.RequireFromString("40.00"),
		TaxRate:     decimal.RequireFromString("0.10"),
	}
}

// CartLine is a catalog item joined with its cart quantity.
type CartLine struct {
	Item     models.FoodItem
	Quantity int
}

func (l CartLine) LineTotal() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// CartTotals keeps full precision; round with Money when presenting.
type CartTotals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// CartLines joins the catalog with the quantity map, in catalog order. Items with no quantity are skipped.
func CartLines(catalog []models.FoodItem, quantities models.QuantityMap) []CartLine {
	var lines []CartLine
	for _, item := range catalog {
		if n := quantities[item.ID]; n > 0 {
			lines = append(lines, CartLine{Item: item, Quantity: n})
		}
	}
	return lines
}

// ComputeTotals prices the lines using the quantities from the map.
// Shipping is only charged when the subtotal is positive.
func ComputeTotals(lines []CartLine, quantities models.QuantityMap, p Pricing) CartTotals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Item.Price.Mul(decimal.NewFromInt(int64(quantities[l.Item.ID]))))
	}

	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = p.ShippingFee
	}
	tax := subtotal.Mul(p.TaxRate)

	return CartTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Money formats an amount with two fraction digits.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
