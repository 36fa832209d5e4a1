package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/sla"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

type deadlineFixture struct {
	service *DeadlineService
	tickets *fakeTicketRepo
	history *fakeHistoryRepo
	events  *recordingDispatcher
	cache   *memoryCache
}

func newDeadlineFixture(policies []domain.SLAPolicy, tickets ...domain.Ticket) *deadlineFixture {
	f := &deadlineFixture{
		tickets: newFakeTicketRepo(tickets...),
		history: &fakeHistoryRepo{},
		events:  newRecordingDispatcher(),
		cache:   newMemoryCache(),
	}
	f.service = NewDeadlineService(DeadlineDependencies{
		Tickets:    f.tickets,
		History:    f.history,
		Store:      sla.NewPolicyStore(newFakePolicyRepo(policies...), time.Hour),
		Dispatcher: f.events,
		Cache:      f.cache,
		Metrics:    observability.NewMetrics(nil),
		Now:        func() time.Time { return fixedNow },
	})
	return f
}

func strPtr(s string) *string { return &s }

var (
	customPolicy = domain.SLAPolicy{ID: "pc", SectorID: "custom", Mode: domain.PolicyModeCustom, Hours: domain.DefaultHours}
	fixedPolicy  = domain.SLAPolicy{ID: "pf", SectorID: "fixed", Mode: domain.PolicyModeFixed, Hours: domain.HoursByPriority{P0: 2, P1: 8, P2: 24, P3: 48}, AllowSuperadminOverride: true}
	lockedPolicy = domain.SLAPolicy{ID: "pl", SectorID: "locked", Mode: domain.PolicyModeFixed, Hours: domain.DefaultHours}
)

func TestGetDeadlineResolvesSources(t *testing.T) {
	created := fixedNow.Add(-10 * time.Hour)
	manual := fixedNow.Add(time.Hour)
	f := newDeadlineFixture([]domain.SLAPolicy{fixedPolicy},
		domain.Ticket{ID: "policy", SectorID: "fixed", Priority: domain.PriorityP1, Status: domain.TicketStatusOpen, CreatedAt: created},
		domain.Ticket{ID: "default", SectorID: "none", Priority: domain.PriorityP0, Status: domain.TicketStatusOpen, CreatedAt: created},
		domain.Ticket{ID: "manual", SectorID: "fixed", Priority: domain.PriorityP0, Status: domain.TicketStatusOpen, CreatedAt: created, InternalDeadline: &manual},
	)

	view, err := f.service.GetDeadline(context.Background(), "policy")
	require.NoError(t, err)
	assert.Equal(t, sla.SourcePolicy, view.Source)
	assert.Equal(t, created.Add(8*time.Hour), view.Deadline)
	assert.True(t, view.Overdue)

	view, err = f.service.GetDeadline(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, sla.SourceDefault, view.Source)
	assert.True(t, view.Overdue)
	assert.Equal(t, domain.PolicyModeFixed, view.Mode)

	view, err = f.service.GetDeadline(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, sla.SourceManual, view.Source)
	assert.False(t, view.Overdue)
}

func TestGetDeadlineNotFound(t *testing.T) {
	f := newDeadlineFixture(nil)
	_, err := f.service.GetDeadline(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}

func TestOverrideDeadlineCustomSectorAllowsSectorAgent(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	f := newDeadlineFixture([]domain.SLAPolicy{customPolicy},
		domain.Ticket{ID: "t", SectorID: "custom", Priority: domain.PriorityP2, Status: domain.TicketStatusOpen, CreatedAt: created})
	agent := domain.Actor{ID: "agent-1", Role: domain.StaffRoleAgent, SectorID: strPtr("custom")}
	deadline := fixedNow.Add(5 * time.Hour)

	view, err := f.service.OverrideDeadline(context.Background(), agent, "t", OverrideInput{Deadline: &deadline, Reason: " customer request "})
	require.NoError(t, err)
	assert.Equal(t, sla.SourceManual, view.Source)
	assert.Equal(t, deadline, view.Deadline)

	stored, _ := f.tickets.GetByID(context.Background(), "t")
	require.NotNil(t, stored.InternalDeadline)
	assert.Equal(t, deadline, *stored.InternalDeadline)

	require.Len(t, f.history.entries, 1)
	assert.Equal(t, domain.ChangeTypeDeadline, f.history.entries[0].ChangeType)
	assert.Equal(t, "customer request", f.history.entries[0].NewValue["reason"])
	assert.Equal(t, []events.EventType{events.EventDeadlineOverridden}, f.events.types())
	assert.Equal(t, 1, f.cache.deletes)
}

func TestOverrideDeadlineCustomSectorRejectsOtherSectorAgent(t *testing.T) {
	f := newDeadlineFixture([]domain.SLAPolicy{customPolicy},
		domain.Ticket{ID: "t", SectorID: "custom", Priority: domain.PriorityP2, Status: domain.TicketStatusOpen, CreatedAt: fixedNow.Add(-time.Hour)})
	agent := domain.Actor{ID: "agent-2", Role: domain.StaffRoleAgent, SectorID: strPtr("billing")}
	deadline := fixedNow.Add(time.Hour)

	_, err := f.service.OverrideDeadline(context.Background(), agent, "t", OverrideInput{Deadline: &deadline})
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestOverrideDeadlineFixedSectorRules(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	f := newDeadlineFixture([]domain.SLAPolicy{fixedPolicy, lockedPolicy},
		domain.Ticket{ID: "fixed", SectorID: "fixed", Priority: domain.PriorityP1, Status: domain.TicketStatusOpen, CreatedAt: created},
		domain.Ticket{ID: "locked", SectorID: "locked", Priority: domain.PriorityP1, Status: domain.TicketStatusOpen, CreatedAt: created},
		domain.Ticket{ID: "default", SectorID: "nowhere", Priority: domain.PriorityP1, Status: domain.TicketStatusOpen, CreatedAt: created},
	)
	superadmin := domain.Actor{ID: "root", Role: domain.StaffRoleSuperadmin}
	deadline := fixedNow.Add(72 * time.Hour)

	_, err := f.service.OverrideDeadline(context.Background(), admin, "fixed", OverrideInput{Deadline: &deadline})
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = f.service.OverrideDeadline(context.Background(), superadmin, "locked", OverrideInput{Deadline: &deadline})
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	_, err = f.service.OverrideDeadline(context.Background(), superadmin, "default", OverrideInput{Deadline: &deadline})
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	view, err := f.service.OverrideDeadline(context.Background(), superadmin, "fixed", OverrideInput{Deadline: &deadline})
	require.NoError(t, err)
	assert.Equal(t, deadline, view.Deadline)
}

func TestOverrideDeadlineClearAndValidate(t *testing.T) {
	created := fixedNow.Add(-time.Hour)
	manual := fixedNow.Add(time.Hour)
	f := newDeadlineFixture([]domain.SLAPolicy{customPolicy},
		domain.Ticket{ID: "t", SectorID: "custom", Priority: domain.PriorityP0, Status: domain.TicketStatusOpen, CreatedAt: created, InternalDeadline: &manual})

	tooEarly := created.Add(-time.Minute)
	_, err := f.service.OverrideDeadline(context.Background(), admin, "t", OverrideInput{Deadline: &tooEarly})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	view, err := f.service.OverrideDeadline(context.Background(), admin, "t", OverrideInput{})
	require.NoError(t, err)
	assert.Equal(t, sla.SourcePolicy, view.Source)
	assert.Equal(t, created.Add(4*time.Hour), view.Deadline)
	assert.Equal(t, &manual, f.history.entries[0].OldValue["internal_deadline"])
}

func TestListHistoryReturnsDeadlineChanges(t *testing.T) {
	f := newDeadlineFixture([]domain.SLAPolicy{customPolicy},
		domain.Ticket{ID: "t", SectorID: "custom", Priority: domain.PriorityP1, Status: domain.TicketStatusOpen, CreatedAt: fixedNow.Add(-time.Hour)})
	deadline := fixedNow.Add(2 * time.Hour)
	_, err := f.service.OverrideDeadline(context.Background(), admin, "t", OverrideInput{Deadline: &deadline})
	require.NoError(t, err)

	entries, err := f.service.ListHistory(context.Background(), "t")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "staff-admin", *entries[0].ChangedByID)

	_, err = f.service.ListHistory(context.Background(), "missing")
	assert.Equal(t, "NOT_FOUND", apperrors.ToDomainError(err).Code)
}
