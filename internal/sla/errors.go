package sla

import "errors"

var (
	// ErrInvalidPolicy is returned when a policy change carries non-positive hours
	// or an unknown mode.
	ErrInvalidPolicy = errors.New("invalid sla policy")
	// ErrInvalidTicket is returned when a ticket lacks the fields deadline math needs.
	ErrInvalidTicket = errors.New("invalid ticket")
)
