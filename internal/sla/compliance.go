package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

type tierTotals struct {
	total           int
	resolved        int
	withinSLA       int
	resolutionHours float64
}

// Evaluate computes a compliance snapshot for tickets. policies may be nil, in
// which case every ticket uses the default hour table. now is only used to flag
// unresolved tickets as overdue. Inputs are not modified.
func Evaluate(tickets []domain.Ticket, policies PolicyLookup, now time.Time) (domain.ComplianceSnapshot, error) {
	snapshot := domain.ComplianceSnapshot{
		TotalTickets: len(tickets),
		PerPriority:  make(map[domain.Priority]domain.PriorityBreakdown, len(domain.Priorities)),
		EvaluatedAt:  now,
	}

	tiers := make(map[domain.Priority]*tierTotals, len(domain.Priorities))
	for _, p := range domain.Priorities {
		tiers[p] = &tierTotals{}
	}

	for i := range tickets {
		ticket := tickets[i]
		deadline, err := ComputeDeadline(ticket, lookupPolicy(policies, ticket.SectorID))
		if err != nil {
			return domain.ComplianceSnapshot{}, err
		}

		tier := tiers[ticket.Priority.Tier()]
		tier.total++

		if ticket.Status.IsTerminal() && ticket.ResolvedAt != nil {
			if ticket.ResolvedAt.Before(ticket.CreatedAt) {
				return domain.ComplianceSnapshot{}, fmt.Errorf("%w: ticket %q resolved before it was created", ErrInvalidTicket, ticket.ID)
			}
			snapshot.ResolvedTickets++
			tier.resolved++
			tier.resolutionHours += ticket.ResolvedAt.Sub(ticket.CreatedAt).Hours()
			if !ticket.ResolvedAt.After(deadline) {
				snapshot.ResolvedWithinSLA++
				tier.withinSLA++
			}
			continue
		}

		if now.After(deadline) {
			snapshot.OverdueCount++
		}
	}

	if snapshot.ResolvedTickets > 0 {
		snapshot.ComplianceRatePercent = float64(snapshot.ResolvedWithinSLA) / float64(snapshot.ResolvedTickets) * 100
	}

	for p, totals := range tiers {
		breakdown := domain.PriorityBreakdown{
			Total:     totals.total,
			Resolved:  totals.resolved,
			WithinSLA: totals.withinSLA,
		}
		if totals.resolved > 0 {
			breakdown.AvgResolutionHours = totals.resolutionHours / float64(totals.resolved)
		}
		snapshot.PerPriority[p] = breakdown
	}

	return snapshot, nil
}

func lookupPolicy(policies PolicyLookup, sectorID string) *domain.SLAPolicy {
	if policies == nil {
		return nil
	}
	return policies.GetPolicy(sectorID)
}
