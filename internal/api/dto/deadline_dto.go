package dto

import (
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// DeadlineResponse is the effective deadline of a ticket.
type DeadlineResponse struct {
	TicketID         string              `json:"ticket_id"`
	SectorID         string              `json:"sector_id"`
	Priority         domain.Priority     `json:"priority"`
	Status           domain.TicketStatus `json:"status"`
	Deadline         time.Time           `json:"deadline"`
	Source           string              `json:"source"`
	Overdue          bool                `json:"overdue"`
	Mode             domain.PolicyMode   `json:"mode"`
	InternalDeadline *time.Time          `json:"internal_deadline"`
}

// OverrideDeadlineRequest sets or clears a manual deadline. A null deadline
// clears the override.
type OverrideDeadlineRequest struct {
	Deadline *time.Time `json:"deadline"`
	Reason   string     `json:"reason"`
}

// TicketHistoryResponse is one SLA history entry of a ticket.
type TicketHistoryResponse struct {
	ID          string                  `json:"id"`
	ChangedByID *string                 `json:"changed_by_id"`
	ChangeType  domain.TicketChangeType `json:"change_type"`
	OldValue    map[string]any          `json:"old_value"`
	NewValue    map[string]any          `json:"new_value"`
	CreatedAt   time.Time               `json:"created_at"`
}
