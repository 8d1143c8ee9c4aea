package order

import (
	"time"

	"github.com/google/uuid"
)

// PaymentMethod is how the customer chose to pay.
type PaymentMethod string

const (
	MethodPix        PaymentMethod = "pix"
	MethodCreditCard PaymentMethod = "credit_card"
	MethodBoleto     PaymentMethod = "boleto"
)

// IsValid checks if the method is a supported payment method.
func (m PaymentMethod) IsValid() bool {
	return m == MethodPix || m == MethodCreditCard || m == MethodBoleto
}

// Order (venda) is one checkout attempt and its settlement status.
type Order struct {
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	// ExternalReference is the caller-chosen correlation key. It is
	// propagated to the gateway as metadata and anchors webhook idempotency.
	ExternalReference string        `json:"external_reference" gorm:"uniqueIndex;not null"`
	CheckoutID        string        `json:"checkout_id" gorm:"index"`
	GatewayID         uuid.UUID     `json:"gateway_id" gorm:"type:uuid;index"`
	Status            OrderStatus   `json:"status" gorm:"not null;default:pending;index"`
	PaymentMethod     PaymentMethod `json:"payment_method" gorm:"not null"`

	// Amounts in integer cents
	SubtotalCents  int64 `json:"subtotal_cents"`
	BumpTotalCents int64 `json:"bump_total_cents"`
	DiscountCents  int64 `json:"discount_cents"`
	TotalCents     int64 `json:"total_cents"`

	CustomerName     string `json:"customer_name"`
	CustomerEmail    string `json:"customer_email" gorm:"index"`
	CustomerDocument string `json:"customer_document,omitempty"`

	// LastCheckedAt is when the status poller last re-fetched this order
	// from the gateway; callers use it to throttle polling.
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`

	PaidAt     *time.Time `json:"paid_at,omitempty"`
	FailedAt   *time.Time `json:"failed_at,omitempty"`
	RefundedAt *time.Time `json:"refunded_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// TableName returns the database table name.
func (Order) TableName() string {
	return "orders"
}

// Total returns the order total in major currency units.
func (o *Order) Total() float64 {
	return float64(o.TotalCents) / 100
}

// IsPending returns true if the order is awaiting settlement.
func (o *Order) IsPending() bool {
	return o.Status == StatusPending
}

// IsPaid returns true if the order settled successfully.
func (o *Order) IsPaid() bool {
	return o.Status == StatusPaid
}
