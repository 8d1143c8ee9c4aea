package order

// OrderStatus represents the settlement status of an order.
type OrderStatus string

const (
	StatusPending  OrderStatus = "pending"
	StatusPaid     OrderStatus = "paid"
	StatusFailed   OrderStatus = "failed"
	StatusRefunded OrderStatus = "refunded"
)

// String returns the string representation of the status.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid checks if the status is a valid order status.
func (s OrderStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusFailed, StatusRefunded:
		return true
	}
	return false
}

// IsTerminal returns true if the status is a terminal state.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusPaid || s == StatusFailed || s == StatusRefunded
}

// transitions defines valid state transitions. Status moves only forward:
// a pending order settles exactly once, and the only terminal-to-terminal
// move is a paid order being refunded. Retrying a failed charge is a new
// order with a new external reference, never a reused row.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:  {StatusPaid, StatusFailed, StatusRefunded},
	StatusPaid:     {StatusRefunded},
	StatusFailed:   {},
	StatusRefunded: {},
}

// CanTransitionTo checks if moving from the current status to target is valid.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, a := range transitions[s] {
		if a == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns all allowed transitions from the current status.
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	allowed := transitions[s]
	result := make([]OrderStatus, len(allowed))
	copy(result, allowed)
	return result
}
