package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComputeOrder_NoFloatDrift(t *testing.T) {
	items := []CartItem{
		{ID: "prod_1", Name: "Curso", Price: 19.90, Role: ItemRoleMain},
		{ID: "bump_1", Name: "Bônus", Price: 9.97, Role: ItemRoleBump},
	}

	total := ComputeOrder(items)

	assert.Equal(t, int64(1990), total.SubtotalCents)
	assert.Equal(t, int64(997), total.BumpTotalCents)
	assert.Equal(t, int64(2987), total.TotalCents)
	assert.Equal(t, 29.87, total.Total())
}

func TestComputeOrder_EmptyCart(t *testing.T) {
	total := ComputeOrder(nil)

	assert.Equal(t, OrderTotal{}, total)
	assert.Equal(t, 0.0, total.Total())
}

func TestComputeOrder_PartitionsByRole(t *testing.T) {
	items := []CartItem{
		{ID: "a", Name: "Main A", Price: 100.00, Role: ItemRoleMain},
		{ID: "b", Name: "Main B", Price: 50.50, Role: ItemRoleMain},
		{ID: "c", Name: "Bump C", Price: 10.10, Role: ItemRoleBump},
	}

	total := ComputeOrder(items)

	assert.Equal(t, int64(15050), total.SubtotalCents)
	assert.Equal(t, int64(1010), total.BumpTotalCents)
	assert.Equal(t, int64(16060), total.TotalCents)
}

func TestApplyCoupon_KnownCode(t *testing.T) {
	total := OrderTotal{SubtotalCents: 19700, TotalCents: 19700}

	discounted := ApplyCoupon(total, "DESCONTO10")

	assert.Equal(t, int64(1970), discounted.DiscountCents)
	assert.Equal(t, int64(17730), discounted.TotalCents)
	// Subtotal is untouched, only the final total moves
	assert.Equal(t, int64(19700), discounted.SubtotalCents)
}

func TestApplyCoupon_CaseInsensitive(t *testing.T) {
	total := OrderTotal{TotalCents: 10000}

	discounted := ApplyCoupon(total, "desconto10")

	assert.Equal(t, int64(1000), discounted.DiscountCents)
	assert.Equal(t, int64(9000), discounted.TotalCents)
}

func TestKnownCoupon(t *testing.T) {
	assert.True(t, KnownCoupon("DESCONTO20"))
	assert.True(t, KnownCoupon(" desconto10 "))
	assert.False(t, KnownCoupon("NADA"))
}

func TestApplyCoupon_UnknownCodeIsNoop(t *testing.T) {
	total := OrderTotal{SubtotalCents: 2987, TotalCents: 2987}

	unchanged := ApplyCoupon(total, "UNKNOWN")

	assert.Equal(t, total, unchanged)
}

func TestApplyCoupon_DiscountAccumulates(t *testing.T) {
	total := OrderTotal{TotalCents: 10000}

	total = ApplyCoupon(total, "DESCONTO10")
	total = ApplyCoupon(total, "DESCONTO10")

	// Second application discounts the already-reduced total
	assert.Equal(t, int64(1900), total.DiscountCents)
	assert.Equal(t, int64(8100), total.TotalCents)
}

func TestApplyCoupon_RoundsDiscountCents(t *testing.T) {
	// 10% of 2987 cents is 298.7, rounds to 299
	total := OrderTotal{TotalCents: 2987}

	discounted := ApplyCoupon(total, "DESCONTO10")

	assert.Equal(t, int64(299), discounted.DiscountCents)
	assert.Equal(t, int64(2688), discounted.TotalCents)
}

func TestCartItem_Validate(t *testing.T) {
	tests := []struct {
		name    string
		item    CartItem
		wantErr error
	}{
		{"valid main", CartItem{ID: "p1", Name: "Curso", Price: 197.00, Role: ItemRoleMain}, nil},
		{"valid bump", CartItem{ID: "b1", Name: "Bônus", Price: 9.90, Role: ItemRoleBump}, nil},
		{"empty id", CartItem{Name: "Curso", Price: 1, Role: ItemRoleMain}, ErrEmptyItemID},
		{"empty name", CartItem{ID: "p1", Price: 1, Role: ItemRoleMain}, ErrEmptyItemName},
		{"zero price", CartItem{ID: "p1", Name: "Curso", Price: 0, Role: ItemRoleMain}, ErrInvalidPrice},
		{"negative price", CartItem{ID: "p1", Name: "Curso", Price: -5, Role: ItemRoleMain}, ErrInvalidPrice},
		{"bad role", CartItem{ID: "p1", Name: "Curso", Price: 1, Role: "upsell"}, ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCart_RequiresMainItem(t *testing.T) {
	items := []CartItem{
		{ID: "b1", Name: "Bônus", Price: 9.90, Role: ItemRoleBump},
	}

	assert.ErrorIs(t, ValidateCart(items), ErrNoMainItem)
}
