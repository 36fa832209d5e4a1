package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/sla-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventPolicyUpserted     EventType = "sla_policy_upserted"
	EventDeadlineOverridden EventType = "ticket_deadline_overridden"
	EventTicketSLABreached  EventType = "ticket_sla_breached"
)

// AllTypes lists every event the service emits.
var AllTypes = []EventType{EventPolicyUpserted, EventDeadlineOverridden, EventTicketSLABreached}

// Actor encapsulates actor metadata for an event. System events carry no id.
type Actor struct {
	ID   *string          `json:"id,omitempty"`
	Role domain.StaffRole `json:"role,omitempty"`
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SectorID  string      `json:"sector_id,omitempty"`
	TicketID  string      `json:"ticket_id,omitempty"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// NewEvent stamps an event with a fresh id and the current time.
func NewEvent(eventType EventType, actor Actor, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Actor:     actor,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// ActorFrom converts an authenticated caller into event metadata.
func ActorFrom(actor domain.Actor) Actor {
	id := actor.ID
	return Actor{ID: &id, Role: actor.Role}
}

// PolicyUpsertedPayload payload.
type PolicyUpsertedPayload struct {
	PolicyID                string            `json:"policy_id"`
	Created                 bool              `json:"created"`
	Mode                    domain.PolicyMode `json:"mode"`
	P0Hours                 int               `json:"p0_hours"`
	P1Hours                 int               `json:"p1_hours"`
	P2Hours                 int               `json:"p2_hours"`
	P3Hours                 int               `json:"p3_hours"`
	AllowSuperadminOverride bool              `json:"allow_superadmin_override"`
}

// DeadlineOverriddenPayload payload.
type DeadlineOverriddenPayload struct {
	OldDeadline *time.Time `json:"old_deadline,omitempty"`
	NewDeadline *time.Time `json:"new_deadline,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

// TicketSLABreachedPayload payload.
type TicketSLABreachedPayload struct {
	Priority     domain.Priority `json:"priority"`
	Deadline     time.Time       `json:"deadline"`
	Source       string          `json:"source"`
	OverdueHours float64         `json:"overdue_hours"`
}
