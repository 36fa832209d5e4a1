package sla

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// PolicyLoader fetches every persisted policy. It is the only point where the
// store touches external persistence.
type PolicyLoader interface {
	ListAll(ctx context.Context) ([]domain.SLAPolicy, error)
}

// PolicyLookup resolves the policy for a sector, nil when none is configured.
type PolicyLookup interface {
	GetPolicy(sectorID string) *domain.SLAPolicy
}

// Policies is an immutable sector->policy table.
type Policies struct {
	bySector map[string]domain.SLAPolicy
	loadedAt time.Time
}

// NewPolicies indexes list by sector. When a sector appears twice the most
// recently updated entry wins.
func NewPolicies(list []domain.SLAPolicy, loadedAt time.Time) *Policies {
	bySector := make(map[string]domain.SLAPolicy, len(list))
	for _, policy := range list {
		if existing, ok := bySector[policy.SectorID]; ok && existing.UpdatedAt.After(policy.UpdatedAt) {
			continue
		}
		bySector[policy.SectorID] = policy
	}
	return &Policies{bySector: bySector, loadedAt: loadedAt}
}

// GetPolicy returns a copy of the sector's policy or nil.
func (p *Policies) GetPolicy(sectorID string) *domain.SLAPolicy {
	if p == nil {
		return nil
	}
	policy, ok := p.bySector[sectorID]
	if !ok {
		return nil
	}
	return &policy
}

// All returns the policies ordered by sector id.
func (p *Policies) All() []domain.SLAPolicy {
	if p == nil {
		return nil
	}
	result := make([]domain.SLAPolicy, 0, len(p.bySector))
	for _, policy := range p.bySector {
		result = append(result, policy)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SectorID < result[j].SectorID
	})
	return result
}

// Len returns the number of cached sectors.
func (p *Policies) Len() int {
	if p == nil {
		return 0
	}
	return len(p.bySector)
}

// LoadedAt returns when the table was fetched.
func (p *Policies) LoadedAt() time.Time {
	if p == nil {
		return time.Time{}
	}
	return p.loadedAt
}

// PolicyStore caches all policies for the process. Readers always see a
// complete table; Refresh swaps the table wholesale.
type PolicyStore struct {
	loader    PolicyLoader
	staleness time.Duration
	now       func() time.Time

	current     atomic.Pointer[Policies]
	invalidated atomic.Bool
	refreshMu   sync.Mutex
}

// StoreOption customizes a PolicyStore.
type StoreOption func(*PolicyStore)

// WithClock overrides the wall clock used for staleness checks.
func WithClock(now func() time.Time) StoreOption {
	return func(s *PolicyStore) {
		s.now = now
	}
}

// NewPolicyStore builds an empty store. The first EnsureFresh or Refresh call
// populates it.
func NewPolicyStore(loader PolicyLoader, staleness time.Duration, opts ...StoreOption) *PolicyStore {
	s := &PolicyStore{
		loader:    loader,
		staleness: staleness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(NewPolicies(nil, time.Time{}))
	s.invalidated.Store(true)
	return s
}

// GetPolicy returns the cached policy for sectorID or nil when the sector has
// none, in which case callers use domain.DefaultHours.
func (s *PolicyStore) GetPolicy(sectorID string) *domain.SLAPolicy {
	return s.current.Load().GetPolicy(sectorID)
}

// Snapshot returns the current immutable table.
func (s *PolicyStore) Snapshot() *Policies {
	return s.current.Load()
}

// Refresh reloads every policy and replaces the cache. On failure the previous
// table stays in place.
func (s *PolicyStore) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	return s.refreshLocked(ctx)
}

// EnsureFresh refreshes only when the cache is stale. Concurrent callers share
// a single reload.
func (s *PolicyStore) EnsureFresh(ctx context.Context) error {
	if !s.Stale() {
		return nil
	}
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	if !s.Stale() {
		return nil
	}
	return s.refreshLocked(ctx)
}

// Invalidate marks the cache stale so the next EnsureFresh reloads it.
func (s *PolicyStore) Invalidate() {
	s.invalidated.Store(true)
}

// Stale reports whether the cache was invalidated or is older than the
// staleness window. A zero window never expires by age.
func (s *PolicyStore) Stale() bool {
	if s.invalidated.Load() {
		return true
	}
	if s.staleness <= 0 {
		return false
	}
	return s.now().Sub(s.current.Load().LoadedAt()) > s.staleness
}

// StalenessWindow returns the configured window.
func (s *PolicyStore) StalenessWindow() time.Duration {
	return s.staleness
}

func (s *PolicyStore) refreshLocked(ctx context.Context) error {
	list, err := s.loader.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load sla policies: %w", err)
	}
	s.current.Store(NewPolicies(list, s.now()))
	s.invalidated.Store(false)
	return nil
}
