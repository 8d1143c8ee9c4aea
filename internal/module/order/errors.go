package order

import "errors"

// Module errors.
var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrDuplicateReference = errors.New("external reference already exists")
	ErrInvalidTransition  = errors.New("invalid order status transition")
)
