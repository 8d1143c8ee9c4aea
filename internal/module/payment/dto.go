package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendaflow/server/internal/module/checkout"
	"github.com/vendaflow/server/internal/module/gateway"
	"github.com/vendaflow/server/internal/module/order"
)

// Customer is the buyer identity supplied by the checkout page.
type Customer struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Document string `json:"document,omitempty"`
}

// SubmitRequest is the public checkout submission payload.
type SubmitRequest struct {
	CheckoutID string    `json:"checkout_id"`
	GatewayID  uuid.UUID `json:"gateway_id,omitempty"`
	// Environment optionally pins sandbox or production credentials.
	Environment gateway.Environment `json:"environment,omitempty"`
	// ExternalReference is the caller-chosen idempotency and correlation
	// key; it is forwarded to the gateway as the idempotency header and
	// echoed back on every reconciliation re-fetch.
	ExternalReference string              `json:"external_reference" binding:"required"`
	PaymentMethod     order.PaymentMethod `json:"payment_method" binding:"required"`
	CardToken         string              `json:"card_token,omitempty"`
	CardBrand         string              `json:"card_brand,omitempty"`
	Installments      int                 `json:"installments,omitempty"`
	CouponCode        string              `json:"coupon_code,omitempty"`
	Customer          Customer            `json:"customer" binding:"required"`
	Items             []checkout.CartItem `json:"items" binding:"required"`
}

// Redirect tells the checkout front-end where to send the customer next.
// PIX carries its QR/copy-paste payload; other methods get the generic
// confirmation path.
type Redirect struct {
	Type         string `json:"type"` // pix | confirmation
	Path         string `json:"path"`
	QRCode       string `json:"qr_code,omitempty"`
	QRCodeBase64 string `json:"qr_code_base64,omitempty"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

// SubmitResponse is the successful submission result.
type SubmitResponse struct {
	OrderID       uuid.UUID         `json:"order_id"`
	Status        order.OrderStatus `json:"status"`
	TransactionID string            `json:"transaction_id"`
	Total         float64           `json:"total"`
	// CouponApplied tells the storefront whether the submitted coupon code
	// was recognized and priced in; unknown codes are silently a no-op on
	// the total, so the flag is the only signal the buyer gets.
	CouponApplied bool     `json:"coupon_applied"`
	Redirect      Redirect `json:"redirect"`
}

// StatusResponse is the poller's answer.
type StatusResponse struct {
	OrderID       uuid.UUID         `json:"order_id"`
	Status        order.OrderStatus `json:"status"`
	RawStatus     string            `json:"raw_status,omitempty"`
	LastCheckedAt *time.Time        `json:"last_checked_at,omitempty"`
}

// ReconcileOutcome classifies what a reconciliation pass did.
type ReconcileOutcome string

const (
	// OutcomeApplied means a status transition was written.
	OutcomeApplied ReconcileOutcome = "applied"
	// OutcomeReplay means the order already had the target status.
	OutcomeReplay ReconcileOutcome = "replay"
	// OutcomeAnomaly means the target transition is disallowed and was not applied.
	OutcomeAnomaly ReconcileOutcome = "anomaly"
	// OutcomeOrderNotFound means no order matches the notification.
	OutcomeOrderNotFound ReconcileOutcome = "order_not_found"
	// OutcomeIgnored means the event carried nothing actionable
	// (e.g. a stale pending status for a settled order).
	OutcomeIgnored ReconcileOutcome = "ignored"
)

// ReconcileResult reports one reconciliation pass.
type ReconcileResult struct {
	Outcome   ReconcileOutcome
	OrderID   uuid.UUID
	RawStatus string
	From      order.OrderStatus
	To        order.OrderStatus
}
