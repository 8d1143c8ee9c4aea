package payment

import (
	"time"

	"github.com/google/uuid"

	"github.com/vendaflow/server/internal/module/gateway"
	"github.com/vendaflow/server/internal/module/order"
)

// Payment is one gateway-side charge attempt backing an order. The schema
// permits several per order; the most recently created one is authoritative
// for reconciliation.
type Payment struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OrderID uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index"`
	// GatewayID records which configured credential set created the charge,
	// so reconciliation re-fetches with the same credentials.
	GatewayID   uuid.UUID           `json:"gateway_id" gorm:"type:uuid;index"`
	Environment gateway.Environment `json:"environment"`
	// TransactionID is assigned by the gateway; empty until it answers.
	TransactionID string `json:"transaction_id" gorm:"index"`
	// RawStatus is the gateway's own status string; MappedStatus is always
	// derived from it via MapGatewayStatus, never set ad hoc.
	RawStatus    string            `json:"raw_status"`
	MappedStatus order.OrderStatus `json:"mapped_status"`
	StatusDetail string            `json:"status_detail,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name.
func (Payment) TableName() string {
	return "payments"
}

// WebhookEvent is an audit record of a received gateway notification.
// Correctness does not depend on it: the reconciliation path re-fetches
// ground truth and applies a conditional update regardless.
type WebhookEvent struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	EventType     string    `gorm:"not null"`
	TransactionID string    `gorm:"index"`
	Body          string    `gorm:"type:jsonb"`
	Processed     bool      `gorm:"default:false"`
	ProcessedAt   *time.Time
	Outcome       string
	Error         *string
	CreatedAt     time.Time
}

// TableName returns the database table name.
func (WebhookEvent) TableName() string {
	return "payment_webhook_events"
}
