package checkout

import "math"

// OrderTotal is the priced result of a cart. All arithmetic happens in
// integer cents; the float accessors convert back to major currency units
// only at the boundary.
type OrderTotal struct {
	SubtotalCents  int64 `json:"subtotal_cents"`
	BumpTotalCents int64 `json:"bump_total_cents"`
	DiscountCents  int64 `json:"discount_cents"`
	TotalCents     int64 `json:"total_cents"`
}

// Subtotal returns the main-item subtotal in major currency units.
func (t OrderTotal) Subtotal() float64 {
	return fromCents(t.SubtotalCents)
}

// BumpTotal returns the add-on total in major currency units.
func (t OrderTotal) BumpTotal() float64 {
	return fromCents(t.BumpTotalCents)
}

// Discount returns the accumulated discount in major currency units.
func (t OrderTotal) Discount() float64 {
	return fromCents(t.DiscountCents)
}

// Total returns the final total in major currency units.
func (t OrderTotal) Total() float64 {
	return fromCents(t.TotalCents)
}

// ComputeOrder prices a cart. Items are partitioned by role, every price is
// rounded to integer cents before summing, and the total is the sum of both
// partitions. An empty cart yields an all-zero total. Items are not
// filtered here; run ValidateCart first.
func ComputeOrder(items []CartItem) OrderTotal {
	var total OrderTotal
	for _, item := range items {
		cents := toCents(item.Price)
		switch item.Role {
		case ItemRoleBump:
			total.BumpTotalCents += cents
		default:
			total.SubtotalCents += cents
		}
	}
	total.TotalCents = total.SubtotalCents + total.BumpTotalCents
	return total
}

// toCents converts a 2-decimal price to integer cents. Rounding here is what
// keeps 19.90 + 9.97 from drifting to 29.869999999999997.
func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

// fromCents converts integer cents back to major currency units.
func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
