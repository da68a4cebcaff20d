// Package pricing computes the chargeable unit price for a line item.
//
// Prices are advisory everywhere except at checkout and finalization: the cart
// may show a quote to the customer, but the amount sent to the payment
// processor is always recomputed here from the live size code and
// customization flag. A price captured earlier (or supplied by a client) is
// never trusted for the final charge.
package pricing

import "github.com/shopspring/decimal"

// Extended sizes carry a flat surcharge on top of the base variant price.
var (
	surchargeExtended = decimal.NewFromInt(2) // 2X and 3X
	surcharge4X       = decimal.NewFromInt(3) // 4X only, replaces the extended surcharge
	surchargeCustom   = decimal.NewFromInt(2) // printed customization, e.g. a back name
)

// Quote returns the unit price for one item: base variant price plus size and
// customization surcharges, rounded to currency precision.
//
// The 4X surcharge is exclusive with the 2X/3X one; the customization
// surcharge stacks with either.
func Quote(base decimal.Decimal, sizeCode string, customized bool) decimal.Decimal {
	price := base

	switch sizeCode {
	case "2X", "3X":
		price = price.Add(surchargeExtended)
	case "4X":
		price = price.Add(surcharge4X)
	}

	if customized {
		price = price.Add(surchargeCustom)
	}

	return price.Round(2)
}
