package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/sla-service/internal/cache"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/repository"
)

type fakePolicyRepo struct {
	mu       sync.Mutex
	policies map[string]domain.SLAPolicy
	seq      int
	listErr  error
}

func newFakePolicyRepo(policies ...domain.SLAPolicy) *fakePolicyRepo {
	repo := &fakePolicyRepo{policies: map[string]domain.SLAPolicy{}}
	for _, p := range policies {
		repo.policies[p.SectorID] = p
	}
	return repo
}

func (r *fakePolicyRepo) ListAll(context.Context) ([]domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.listErr != nil {
		return nil, r.listErr
	}
	result := make([]domain.SLAPolicy, 0, len(r.policies))
	for _, p := range r.policies {
		result = append(result, p)
	}
	return result, nil
}

func (r *fakePolicyRepo) GetBySector(_ context.Context, sectorID string) (*domain.SLAPolicy, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.policies[sectorID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &p, nil
}

func (r *fakePolicyRepo) Create(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	policy.ID = fmt.Sprintf("pol-%d", r.seq)
	r.policies[policy.SectorID] = *policy
	return nil
}

func (r *fakePolicyRepo) Update(_ context.Context, policy *domain.SLAPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.policies[policy.SectorID]; !ok {
		return pgx.ErrNoRows
	}
	r.policies[policy.SectorID] = *policy
	return nil
}

type fakeSectorRepo struct {
	sectors []domain.Sector
}

func (r *fakeSectorRepo) GetByID(_ context.Context, id string) (*domain.Sector, error) {
	for _, s := range r.sectors {
		if s.ID == id {
			sector := s
			return &sector, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeSectorRepo) ListActive(context.Context) ([]domain.Sector, error) {
	var result []domain.Sector
	for _, s := range r.sectors {
		if s.IsActive {
			result = append(result, s)
		}
	}
	return result, nil
}

type fakeAuditRepo struct {
	mu      sync.Mutex
	entries []domain.PolicyAudit
}

func (r *fakeAuditRepo) Create(_ context.Context, audit *domain.PolicyAudit) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	audit.ID = fmt.Sprintf("audit-%d", len(r.entries)+1)
	r.entries = append(r.entries, *audit)
	return nil
}

func (r *fakeAuditRepo) ListBySector(_ context.Context, sectorID string, _ int) ([]domain.PolicyAudit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.PolicyAudit
	for _, e := range r.entries {
		if e.SectorID == sectorID {
			result = append(result, e)
		}
	}
	return result, nil
}

type fakeTicketRepo struct {
	mu       sync.Mutex
	tickets   map[string]domain.Ticket
	listCall  int
	pageCalls int
}

func newFakeTicketRepo(tickets ...domain.Ticket) *fakeTicketRepo {
	repo := &fakeTicketRepo{tickets: map[string]domain.Ticket{}}
	for _, t := range tickets {
		repo.tickets[t.ID] = t
	}
	return repo
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &t, nil
}

func (r *fakeTicketRepo) ListForEvaluation(_ context.Context, filter repository.EvaluationFilter) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCall++
	var result []domain.Ticket
	for _, t := range r.tickets {
		if filter.SectorID != nil && t.SectorID != *filter.SectorID {
			continue
		}
		if filter.CreatedFrom != nil && t.CreatedAt.Before(*filter.CreatedFrom) {
			continue
		}
		if filter.CreatedTo != nil && t.CreatedAt.After(*filter.CreatedTo) {
			continue
		}
		result = append(result, t)
	}
	return result, nil
}

func (r *fakeTicketRepo) ListUnresolvedSince(_ context.Context, since time.Time, after *repository.TicketCursor, limit int) ([]domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pageCalls++
	var result []domain.Ticket
	for _, t := range r.tickets {
		if t.CreatedAt.Before(since) {
			continue
		}
		if t.Status.IsTerminal() && t.ResolvedAt != nil {
			continue
		}
		if after != nil && !ticketAfter(t, *after) {
			continue
		}
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		return ticketAfter(result[j], *repository.CursorAfter(result[i]))
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func ticketAfter(t domain.Ticket, cursor repository.TicketCursor) bool {
	if !t.CreatedAt.Equal(cursor.CreatedAt) {
		return t.CreatedAt.After(cursor.CreatedAt)
	}
	return t.ID > cursor.ID
}

func (r *fakeTicketRepo) UpdateInternalDeadline(_ context.Context, id string, deadline *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	t.InternalDeadline = deadline
	r.tickets[id] = t
	return nil
}

type fakeHistoryRepo struct {
	mu      sync.Mutex
	entries []domain.TicketHistory
}

func (r *fakeHistoryRepo) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, *history)
	return nil
}

func (r *fakeHistoryRepo) ListByTicket(_ context.Context, ticketID string) ([]domain.TicketHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []domain.TicketHistory
	for _, e := range r.entries {
		if e.TicketID == ticketID {
			result = append(result, e)
		}
	}
	return result, nil
}

type memoryCache struct {
	mu      sync.Mutex
	values  map[string]domain.ComplianceSnapshot
	deletes int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]domain.ComplianceSnapshot{}}
}

func (c *memoryCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	*(dest.(*domain.ComplianceSnapshot)) = v
	return nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value.(domain.ComplianceSnapshot)
	return nil
}

func (c *memoryCache) DeletePattern(_ context.Context, pattern string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deletes++
	prefix := strings.TrimSuffix(pattern, "*")
	for key := range c.values {
		if strings.HasPrefix(key, prefix) {
			delete(c.values, key)
		}
	}
	return nil
}

type memoryDeduper struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func (d *memoryDeduper) MarkBreached(_ context.Context, ticketID string, deadline time.Time) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[string]struct{}{}
	}
	key := cache.BreachKey(ticketID, deadline)
	if _, ok := d.seen[key]; ok {
		return false, nil
	}
	d.seen[key] = struct{}{}
	return true, nil
}

type recordingDispatcher struct {
	events.Dispatcher
	mu        sync.Mutex
	published []events.Event
}

func newRecordingDispatcher() *recordingDispatcher {
	return &recordingDispatcher{Dispatcher: events.NewInMemoryDispatcher()}
}

func (d *recordingDispatcher) Publish(ctx context.Context, event events.Event) error {
	d.mu.Lock()
	d.published = append(d.published, event)
	d.mu.Unlock()
	return d.Dispatcher.Publish(ctx, event)
}

func (d *recordingDispatcher) types() []events.EventType {
	d.mu.Lock()
	defer d.mu.Unlock()
	result := make([]events.EventType, 0, len(d.published))
	for _, e := range d.published {
		result = append(result, e.Type)
	}
	return result
}
