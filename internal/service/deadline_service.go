package service

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/sla"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

// DeadlineDependencies wires DeadlineService.
type DeadlineDependencies struct {
	Tickets    repository.TicketRepository
	History    repository.TicketHistoryRepository
	Store      *sla.PolicyStore
	Dispatcher events.Dispatcher
	Cache      SnapshotCache
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// DeadlineService resolves and overrides ticket deadlines.
type DeadlineService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	store      *sla.PolicyStore
	dispatcher events.Dispatcher
	cache      SnapshotCache
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewDeadlineService builds the service.
func NewDeadlineService(deps DeadlineDependencies) *DeadlineService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeadlineService{
		tickets:    deps.Tickets,
		history:    deps.History,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// DeadlineView is the resolved deadline of one ticket.
type DeadlineView struct {
	Ticket   domain.Ticket
	Deadline time.Time
	Source   sla.DeadlineSource
	Overdue  bool
	Mode     domain.PolicyMode
}

// OverrideInput carries a manual deadline change. A nil Deadline clears the
// override.
type OverrideInput struct {
	Deadline *time.Time
	Reason   string
}

// GetDeadline resolves the effective deadline of a ticket.
func (s *DeadlineService) GetDeadline(ctx context.Context, ticketID string) (*DeadlineView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ensureFresh(ctx, s.store, s.logger)
	return s.view(*ticket, s.store.GetPolicy(ticket.SectorID))
}

// OverrideDeadline sets or clears a ticket's manual deadline. CUSTOM sectors
// accept changes from any staff member of the sector; FIXED sectors only from a
// superadmin when the policy allows it.
func (s *DeadlineService) OverrideDeadline(ctx context.Context, actor domain.Actor, ticketID string, input OverrideInput) (*DeadlineView, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	ensureFresh(ctx, s.store, s.logger)
	policy := s.store.GetPolicy(ticket.SectorID)

	if err := authorizeOverride(actor, *ticket, policy); err != nil {
		return nil, err
	}
	if input.Deadline != nil && !input.Deadline.After(ticket.CreatedAt) {
		return nil, apperrors.NewValidationError("deadline must be after ticket creation", map[string]any{
			"created_at": ticket.CreatedAt,
		})
	}

	previous := ticket.InternalDeadline
	if err := s.tickets.UpdateInternalDeadline(ctx, ticket.ID, input.Deadline); err != nil {
		return nil, apperrors.MapError(err)
	}
	ticket.InternalDeadline = input.Deadline
	s.metrics.RecordDeadlineOverride()

	reason := strings.TrimSpace(input.Reason)
	s.recordHistory(ctx, actor, ticket.ID, previous, input.Deadline, reason)
	invalidateSnapshots(ctx, s.cache, s.logger)

	event := events.NewEvent(events.EventDeadlineOverridden, events.ActorFrom(actor), events.DeadlineOverriddenPayload{
		OldDeadline: previous,
		NewDeadline: input.Deadline,
		Reason:      reason,
	})
	event.TicketID = ticket.ID
	event.SectorID = ticket.SectorID
	if s.dispatcher != nil {
		if err := s.dispatcher.Publish(ctx, event); err != nil {
			s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
		}
	}

	return s.view(*ticket, policy)
}

// ListHistory returns the SLA history entries of a ticket, oldest first.
func (s *DeadlineService) ListHistory(ctx context.Context, ticketID string) ([]domain.TicketHistory, error) {
	if _, err := s.tickets.GetByID(ctx, ticketID); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.history == nil {
		return nil, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticketID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

func (s *DeadlineService) view(ticket domain.Ticket, policy *domain.SLAPolicy) (*DeadlineView, error) {
	deadline, source, err := sla.ResolveDeadline(ticket, policy)
	if err != nil {
		return nil, mapSLAError(err)
	}
	overdue, err := sla.IsOverdue(ticket, policy, s.now())
	if err != nil {
		return nil, mapSLAError(err)
	}
	mode := domain.PolicyModeFixed
	if policy != nil {
		mode = policy.Mode
	}
	return &DeadlineView{Ticket: ticket, Deadline: deadline, Source: source, Overdue: overdue, Mode: mode}, nil
}

func (s *DeadlineService) recordHistory(ctx context.Context, actor domain.Actor, ticketID string, before, after *time.Time, reason string) {
	if s.history == nil {
		return
	}
	actorID := actor.ID
	entry := &domain.TicketHistory{
		TicketID:    ticketID,
		ChangedByID: &actorID,
		ChangeType:  domain.ChangeTypeDeadline,
		OldValue:    map[string]any{"internal_deadline": before},
		NewValue:    map[string]any{"internal_deadline": after, "reason": reason},
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record deadline history", zap.String("ticket_id", ticketID), zap.Error(err))
	}
}

func authorizeOverride(actor domain.Actor, ticket domain.Ticket, policy *domain.SLAPolicy) error {
	mode := domain.PolicyModeFixed
	allowSuperadmin := false
	if policy != nil {
		mode = policy.Mode
		allowSuperadmin = policy.AllowSuperadminOverride
	}

	if mode == domain.PolicyModeCustom {
		if actor.Role == domain.StaffRoleSuperadmin || actor.Role == domain.StaffRoleAdmin {
			return nil
		}
		if actor.Role == domain.StaffRoleAgent && (actor.SectorID == nil || *actor.SectorID == ticket.SectorID) {
			return nil
		}
		return apperrors.NewForbidden("staff of the ticket's sector required")
	}

	if actor.Role != domain.StaffRoleSuperadmin {
		return apperrors.NewForbidden("sector uses fixed sla deadlines")
	}
	if !allowSuperadmin {
		return apperrors.NewForbidden("sector policy does not allow superadmin overrides")
	}
	return nil
}
