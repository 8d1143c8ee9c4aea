package gateway

import "errors"

// Module errors.
var (
	ErrNoGateway          = errors.New("no matching payment gateway configured")
	ErrMissingCredentials = errors.New("gateway has no complete credential pair")
	ErrGatewayNotFound    = errors.New("gateway not found")
)
