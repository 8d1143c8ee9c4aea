package payment

import (
	"github.com/vendaflow/server/internal/module/order"
	"github.com/vendaflow/server/internal/module/payment/mercadopago"
)

// MapGatewayStatus maps the gateway's raw status string to an internal
// order status. The mapping is deterministic and total: anything
// unrecognized stays pending so a later notification can settle it.
func MapGatewayStatus(raw string) order.OrderStatus {
	switch raw {
	case mercadopago.StatusApproved:
		return order.StatusPaid
	case mercadopago.StatusRejected, mercadopago.StatusCancelled:
		return order.StatusFailed
	case mercadopago.StatusRefunded:
		return order.StatusRefunded
	default:
		return order.StatusPending
	}
}
