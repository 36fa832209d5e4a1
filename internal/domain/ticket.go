package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen       TicketStatus = "open"
	TicketStatusInProgress TicketStatus = "in_progress"
	TicketStatusResolved   TicketStatus = "resolved"
	TicketStatusClosed     TicketStatus = "closed"
)

// IsTerminal reports whether the status ends the SLA clock.
func (s TicketStatus) IsTerminal() bool {
	return s == TicketStatusResolved || s == TicketStatusClosed
}

// Ticket carries the fields the SLA engine reads from a support request.
type Ticket struct {
	ID               string
	SectorID         string
	Title            string
	Priority         Priority
	Status           TicketStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
	InternalDeadline *time.Time
	ResolvedAt       *time.Time
}
