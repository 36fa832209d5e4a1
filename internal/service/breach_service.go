package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/sla"
)

const defaultSweepBatchSize = 5000

// BreachDeduper remembers reported breaches across sweeps and replicas.
type BreachDeduper interface {
	MarkBreached(ctx context.Context, ticketID string, deadline time.Time) (bool, error)
}

// BreachDependencies wires BreachService.
type BreachDependencies struct {
	Tickets    repository.TicketRepository
	History    repository.TicketHistoryRepository
	Store      *sla.PolicyStore
	Deduper    BreachDeduper
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Lookback   time.Duration
	BatchSize  int
	Now        func() time.Time
}

// BreachService detects unresolved tickets that passed their deadline.
type BreachService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	store      *sla.PolicyStore
	deduper    BreachDeduper
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	lookback   time.Duration
	batchSize  int
	now        func() time.Time
}

// NewBreachService builds the service.
func NewBreachService(deps BreachDependencies) *BreachService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	batchSize := deps.BatchSize
	if batchSize <= 0 {
		batchSize = defaultSweepBatchSize
	}
	return &BreachService{
		tickets:    deps.Tickets,
		history:    deps.History,
		store:      deps.Store,
		deduper:    deps.Deduper,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		lookback:   deps.Lookback,
		batchSize:  batchSize,
		now:        now,
	}
}

// Sweep evaluates unresolved tickets created within the lookback window and
// reports each newly breached one once. The window is read page by page so
// every unresolved ticket is checked on each sweep. It returns the number
// reported.
func (s *BreachService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	since := time.Time{}
	if s.lookback > 0 {
		since = now.Add(-s.lookback)
	}
	ensureFresh(ctx, s.store, s.logger)

	reported := 0
	var cursor *repository.TicketCursor
	for {
		tickets, err := s.tickets.ListUnresolvedSince(ctx, since, cursor, s.batchSize)
		if err != nil {
			return reported, err
		}
		count, err := s.sweepPage(ctx, tickets, now)
		reported += count
		if err != nil {
			return reported, err
		}
		if len(tickets) < s.batchSize {
			return reported, nil
		}
		cursor = repository.CursorAfter(tickets[len(tickets)-1])
		if err := ctx.Err(); err != nil {
			return reported, err
		}
	}
}

func (s *BreachService) sweepPage(ctx context.Context, tickets []domain.Ticket, now time.Time) (int, error) {
	reported := 0
	for i := range tickets {
		ticket := tickets[i]
		policy := s.store.GetPolicy(ticket.SectorID)

		overdue, err := sla.IsOverdue(ticket, policy, now)
		if err != nil {
			s.logger.Warn("skipping ticket with invalid sla data", zap.String("ticket_id", ticket.ID), zap.Error(err))
			continue
		}
		if !overdue {
			continue
		}

		deadline, source, err := sla.ResolveDeadline(ticket, policy)
		if err != nil {
			continue
		}

		first := true
		if s.deduper != nil {
			first, err = s.deduper.MarkBreached(ctx, ticket.ID, deadline)
			if err != nil {
				return reported, err
			}
		}
		if !first {
			continue
		}

		s.report(ctx, ticket, deadline, source, now)
		reported++
	}
	return reported, nil
}

func (s *BreachService) report(ctx context.Context, ticket domain.Ticket, deadline time.Time, source sla.DeadlineSource, now time.Time) {
	s.metrics.RecordBreach()
	overdueHours := now.Sub(deadline).Hours()

	s.logger.Warn("sla breached",
		zap.String("ticket_id", ticket.ID),
		zap.String("sector_id", ticket.SectorID),
		zap.String("priority", string(ticket.Priority)),
		zap.Time("deadline", deadline),
		zap.Float64("overdue_hours", overdueHours))

	if s.history != nil {
		entry := &domain.TicketHistory{
			TicketID:   ticket.ID,
			ChangeType: domain.ChangeTypeBreach,
			NewValue: map[string]any{
				"deadline": deadline,
				"source":   string(source),
			},
		}
		if err := s.history.Create(ctx, entry); err != nil {
			s.logger.Warn("failed to record breach history", zap.String("ticket_id", ticket.ID), zap.Error(err))
		}
	}

	if s.dispatcher == nil {
		return
	}
	event := events.NewEvent(events.EventTicketSLABreached, events.Actor{}, events.TicketSLABreachedPayload{
		Priority:     ticket.Priority.Tier(),
		Deadline:     deadline,
		Source:       string(source),
		OverdueHours: overdueHours,
	})
	event.TicketID = ticket.ID
	event.SectorID = ticket.SectorID
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}
