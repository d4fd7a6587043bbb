// Package pricing computes order totals. Every function is pure: identical
// inputs produce identical quotes, and nothing here touches storage.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/glamlocks/storefront/internal/domain/coupon"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	// taxRate is the flat sales tax applied to the discounted subtotal.
	taxRate = decimal.RequireFromString("0.08")
)

// Shipping methods known to the rate table. Unknown methods fall back to the
// standard rate rather than failing the order.
const (
	ShippingExpress    = "express_24h"
	ShippingStandard   = "standard_48h"
	ShippingPickupHub  = "point_relais"
	defaultShippingKey = ShippingStandard
)

var shippingRates = map[string]decimal.Decimal{
	ShippingExpress:   decimal.NewFromInt(5000),
	ShippingStandard:  decimal.NewFromInt(3000),
	ShippingPickupHub: decimal.NewFromInt(2000),
}

// Line is a priced order line: the frozen unit price times the quantity.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// Quote holds the computed monetary breakdown of an order.
type Quote struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Compute prices an order: subtotal over the lines, the coupon discount
// (nil coupon means none), shipping from the rate table, 8% tax on the
// discounted subtotal, and the final total.
//
// Tax and total are rounded to 2 decimal places. A fixed discount may exceed
// the subtotal; the total is clamped at zero in that case while the discount
// and tax keep their computed values.
func Compute(lines []Line, c *coupon.Coupon, shippingMethod string) Quote {
	subtotal := Subtotal(lines)
	discount := Discount(c, subtotal)
	shipping := ShippingCost(shippingMethod)

	tax := subtotal.Sub(discount).Mul(taxRate).Round(2)

	total := subtotal.Sub(discount).Add(shipping).Add(tax)
	if total.IsNegative() {
		total = zero
	}

	return Quote{
		Subtotal: subtotal,
		Discount: discount,
		Shipping: shipping,
		Tax:      tax,
		Total:    total.Round(2),
	}
}

// Subtotal returns the sum of unit price times quantity across all lines.
func Subtotal(lines []Line) decimal.Decimal {
	sum := zero
	for _, l := range lines {
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return sum
}

// Discount computes the monetary discount a coupon grants on the given
// subtotal. Percentage discounts are capped by the coupon's MaximumDiscount
// when set; fixed discounts are taken as-is, even past the subtotal.
func Discount(c *coupon.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	if c == nil {
		return zero
	}

	switch c.Type {
	case coupon.TypePercentage:
		d := subtotal.Mul(c.Value).Div(hundred)
		if c.MaximumDiscount.IsPositive() && d.GreaterThan(c.MaximumDiscount) {
			d = c.MaximumDiscount
		}
		return floorAtZero(d)
	case coupon.TypeFixed:
		return floorAtZero(c.Value)
	default:
		return zero
	}
}

// ShippingCost looks up the rate for a shipping method. Unrecognized methods
// get the standard rate.
func ShippingCost(method string) decimal.Decimal {
	if rate, ok := shippingRates[method]; ok {
		return rate
	}
	return shippingRates[defaultShippingKey]
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
