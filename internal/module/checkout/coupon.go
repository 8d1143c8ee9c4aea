package checkout

import (
	"math"
	"strings"
)

// coupons maps known coupon codes to their percentage discount.
// Codes are stored uppercase; lookup is case-insensitive.
var coupons = map[string]float64{
	"DESCONTO10": 0.10,
	"DESCONTO20": 0.20,
}

// ApplyCoupon applies a percentage coupon to an order total. Unknown codes
// return the total unchanged without error. The discount is computed on the
// current total in integer cents and accumulates into DiscountCents, so
// stacking coupons compounds rather than overwriting.
func ApplyCoupon(total OrderTotal, code string) OrderTotal {
	pct, ok := coupons[strings.ToUpper(strings.TrimSpace(code))]
	if !ok {
		return total
	}

	discount := int64(math.Round(float64(total.TotalCents) * pct))
	total.DiscountCents += discount
	total.TotalCents -= discount
	return total
}

// KnownCoupon reports whether a coupon code is recognized.
func KnownCoupon(code string) bool {
	_, ok := coupons[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}
