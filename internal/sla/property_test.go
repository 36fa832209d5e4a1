package sla

import (
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/spec-kit/sla-service/internal/domain"
)

var propertyEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func genPriority() gopter.Gen {
	return gen.OneConstOf(domain.PriorityP0, domain.PriorityP1, domain.PriorityP2, domain.PriorityP3)
}

func genStatus() gopter.Gen {
	return gen.OneConstOf(
		domain.TicketStatusOpen,
		domain.TicketStatusInProgress,
		domain.TicketStatusResolved,
		domain.TicketStatusClosed,
	)
}

// genTicket builds tickets spread over a year with optional resolution and
// manual deadline offsets. Negative offsets mean "unset".
func genTicket() gopter.Gen {
	return gopter.CombineGens(
		genPriority(),
		genStatus(),
		gen.OneConstOf("support", "billing", "unknown"),
		gen.Int64Range(0, 365*24),
		gen.Int64Range(-1, 400),
		gen.Int64Range(-1, 400),
	).Map(func(values []interface{}) domain.Ticket {
		created := propertyEpoch.Add(time.Duration(values[3].(int64)) * time.Hour)
		ticket := domain.Ticket{
			ID:        "t",
			SectorID:  values[2].(string),
			Priority:  values[0].(domain.Priority),
			Status:    values[1].(domain.TicketStatus),
			CreatedAt: created,
		}
		if offset := values[4].(int64); offset >= 0 {
			resolved := created.Add(time.Duration(offset) * time.Hour)
			ticket.ResolvedAt = &resolved
		}
		if offset := values[5].(int64); offset >= 0 {
			deadline := created.Add(time.Duration(offset) * time.Hour)
			ticket.InternalDeadline = &deadline
		}
		return ticket
	})
}

func propertyPolicies() mapLookup {
	billing := supportPolicy
	billing.SectorID = "billing"
	billing.Hours = domain.HoursByPriority{P0: 1, P1: 2, P2: 3, P3: 4}
	return mapLookup{"support": supportPolicy, "billing": billing}
}

func TestDeadlineProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("sectors without a policy use the default hours", prop.ForAll(
		func(p domain.Priority, createdOffset int64) bool {
			created := propertyEpoch.Add(time.Duration(createdOffset) * time.Minute)
			ticket := domain.Ticket{ID: "t", SectorID: "missing", Priority: p, CreatedAt: created}
			deadline, err := ComputeDeadline(ticket, propertyPolicies().GetPolicy(ticket.SectorID))
			if err != nil {
				return false
			}
			return deadline.Equal(created.Add(time.Duration(domain.DefaultHours.For(p)) * time.Hour))
		},
		genPriority(),
		gen.Int64Range(0, 1_000_000),
	))

	properties.Property("manual deadline wins over any policy", prop.ForAll(
		func(p domain.Priority, sector string, overrideOffset int64) bool {
			override := propertyEpoch.Add(time.Duration(overrideOffset) * time.Minute)
			ticket := domain.Ticket{ID: "t", SectorID: sector, Priority: p, CreatedAt: propertyEpoch, InternalDeadline: &override}
			deadline, err := ComputeDeadline(ticket, propertyPolicies().GetPolicy(sector))
			return err == nil && deadline.Equal(override)
		},
		genPriority(),
		gen.OneConstOf("support", "billing", "missing"),
		gen.Int64Range(-100_000, 100_000),
	))

	properties.TestingRun(t)
}

func TestComplianceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	now := propertyEpoch.Add(200 * 24 * time.Hour)

	properties.Property("compliance rate stays within 0 and 100", prop.ForAll(
		func(tickets []domain.Ticket) bool {
			snapshot, err := Evaluate(tickets, propertyPolicies(), now)
			if err != nil {
				return false
			}
			return snapshot.ComplianceRatePercent >= 0 && snapshot.ComplianceRatePercent <= 100
		},
		gen.SliceOf(genTicket()),
	))

	properties.Property("counters are consistent", prop.ForAll(
		func(tickets []domain.Ticket) bool {
			snapshot, err := Evaluate(tickets, propertyPolicies(), now)
			if err != nil {
				return false
			}
			if snapshot.ResolvedWithinSLA > snapshot.ResolvedTickets || snapshot.ResolvedTickets > snapshot.TotalTickets {
				return false
			}
			if snapshot.OverdueCount > snapshot.TotalTickets-snapshot.ResolvedTickets {
				return false
			}
			total, within := 0, 0
			for _, breakdown := range snapshot.PerPriority {
				total += breakdown.Total
				within += breakdown.WithinSLA
			}
			return total == snapshot.TotalTickets && within == snapshot.ResolvedWithinSLA
		},
		gen.SliceOf(genTicket()),
	))

	properties.Property("evaluate is idempotent and leaves inputs untouched", prop.ForAll(
		func(tickets []domain.Ticket) bool {
			before := make([]domain.Ticket, len(tickets))
			copy(before, tickets)
			policies := propertyPolicies()

			first, err1 := Evaluate(tickets, policies, now)
			second, err2 := Evaluate(tickets, policies, now)
			if err1 != nil || err2 != nil {
				return false
			}
			return reflect.DeepEqual(first, second) && reflect.DeepEqual(before, tickets)
		},
		gen.SliceOf(genTicket()),
	))

	properties.Property("empty input yields a zero snapshot", prop.ForAll(
		func(offset int64) bool {
			snapshot, err := Evaluate([]domain.Ticket{}, nil, propertyEpoch.Add(time.Duration(offset)*time.Hour))
			return err == nil &&
				snapshot.TotalTickets == 0 &&
				snapshot.ComplianceRatePercent == 0 &&
				snapshot.OverdueCount == 0 &&
				snapshot.ResolvedWithinSLA == 0
		},
		gen.Int64Range(0, 10_000),
	))

	properties.TestingRun(t)
}
