package payment

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Module errors.
var (
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrMissingCardToken    = errors.New("card token is required for credit card payments")
	ErrInvalidInstallments = errors.New("installment count must be at least 1")
	ErrMissingCustomer     = errors.New("customer name and email are required")
	ErrInvalidMethod       = errors.New("unsupported payment method")
	ErrMissingReference    = errors.New("external reference is required")
	ErrGatewayTimeout      = errors.New("gateway timed out; retry with the same idempotency key")
	// ErrGatewayUnavailable means the gateway answered 5xx: the charge may
	// or may not exist on its side, so the outcome is ambiguous.
	ErrGatewayUnavailable = errors.New("gateway error; the charge may have been created")
)

// AmbiguousChargeError reports a submission whose gateway outcome is
// unknown. The pending order anchors the charge so webhook reconciliation
// can settle it later; callers should poll that order's status instead of
// retrying with new payment details.
type AmbiguousChargeError struct {
	OrderID uuid.UUID
	Err     error
}

// Error implements the error interface.
func (e *AmbiguousChargeError) Error() string {
	return fmt.Sprintf("gateway outcome unknown for order %s: %v", e.OrderID, e.Err)
}

// Unwrap returns the underlying gateway error.
func (e *AmbiguousChargeError) Unwrap() error {
	return e.Err
}

// GatewayRejectedError carries the gateway's rejection verbatim so the
// checkout UI can tell "definitely failed" apart from "may have succeeded".
type GatewayRejectedError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *GatewayRejectedError) Error() string {
	return e.Message
}
