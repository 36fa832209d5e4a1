package domain

import "time"

// TicketChangeType captures what changed in a history entry.
type TicketChangeType string

const (
	ChangeTypeDeadline TicketChangeType = "DEADLINE_CHANGE"
	ChangeTypeBreach   TicketChangeType = "SLA_BREACH"
)

// TicketHistory is an immutable audit trail entry.
type TicketHistory struct {
	ID          string
	TicketID    string
	ChangedByID *string
	ChangeType  TicketChangeType
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}

// PolicyAudit records a change applied to a sector's SLA policy.
type PolicyAudit struct {
	ID          string
	PolicyID    string
	SectorID    string
	ChangedByID string
	OldValue    map[string]any
	NewValue    map[string]any
	CreatedAt   time.Time
}
