package checkout

import "errors"

// ItemRole distinguishes the main product from order-bump add-ons.
type ItemRole string

const (
	ItemRoleMain ItemRole = "main"
	ItemRoleBump ItemRole = "bump"
)

// IsValid checks if the role is a known item role.
func (r ItemRole) IsValid() bool {
	return r == ItemRoleMain || r == ItemRoleBump
}

// CartItem is one priced line of a checkout attempt. Cart items are
// ephemeral: they exist only for the duration of a submission and are
// never persisted by this module.
type CartItem struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Price float64  `json:"price"` // Major currency units, 2-decimal
	Role  ItemRole `json:"role"`
}

// Validation errors.
var (
	ErrEmptyItemID   = errors.New("cart item id is empty")
	ErrEmptyItemName = errors.New("cart item name is empty")
	ErrInvalidPrice  = errors.New("cart item price must be positive")
	ErrInvalidRole   = errors.New("cart item role is invalid")
	ErrNoMainItem    = errors.New("cart has no main item")
)

// Validate reports whether the item is usable in a checkout. Callers must
// validate items before handing them to ComputeOrder.
func (i CartItem) Validate() error {
	if i.ID == "" {
		return ErrEmptyItemID
	}
	if i.Name == "" {
		return ErrEmptyItemName
	}
	if i.Price <= 0 {
		return ErrInvalidPrice
	}
	if !i.Role.IsValid() {
		return ErrInvalidRole
	}
	return nil
}

// ValidateCart validates every item and requires at least one main item.
func ValidateCart(items []CartItem) error {
	hasMain := false
	for _, item := range items {
		if err := item.Validate(); err != nil {
			return err
		}
		if item.Role == ItemRoleMain {
			hasMain = true
		}
	}
	if !hasMain {
		return ErrNoMainItem
	}
	return nil
}
