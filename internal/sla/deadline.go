// Package sla holds the SLA rules: policy caching, deadline computation,
// compliance aggregation and policy merging. Everything here except
// PolicyStore.Refresh is free of I/O.
package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// DeadlineSource tells where a computed deadline came from.
type DeadlineSource string

const (
	SourceManual  DeadlineSource = "manual"
	SourcePolicy  DeadlineSource = "policy"
	SourceDefault DeadlineSource = "default"
)

// ComputeDeadline returns the deadline that applies to ticket under policy.
// A nil policy means the sector has none and system defaults apply.
func ComputeDeadline(ticket domain.Ticket, policy *domain.SLAPolicy) (time.Time, error) {
	deadline, _, err := ResolveDeadline(ticket, policy)
	return deadline, err
}

// ResolveDeadline is ComputeDeadline plus the source of the value.
func ResolveDeadline(ticket domain.Ticket, policy *domain.SLAPolicy) (time.Time, DeadlineSource, error) {
	if ticket.CreatedAt.IsZero() {
		return time.Time{}, "", fmt.Errorf("%w: ticket %q has no created_at", ErrInvalidTicket, ticket.ID)
	}
	if ticket.InternalDeadline != nil {
		return *ticket.InternalDeadline, SourceManual, nil
	}

	hours, source := domain.DefaultHours.For(ticket.Priority), SourceDefault
	if policy != nil {
		hours, source = policy.Hours.For(ticket.Priority), SourcePolicy
	}
	return ticket.CreatedAt.Add(time.Duration(hours) * time.Hour), source, nil
}

// IsOverdue reports whether an unresolved ticket has passed its deadline at now.
// Tickets with a resolution timestamp are never overdue.
func IsOverdue(ticket domain.Ticket, policy *domain.SLAPolicy, now time.Time) (bool, error) {
	if ticket.Status.IsTerminal() && ticket.ResolvedAt != nil {
		return false, nil
	}
	deadline, err := ComputeDeadline(ticket, policy)
	if err != nil {
		return false, err
	}
	return now.After(deadline), nil
}
