package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/cache"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/events"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/sla"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

// SnapshotCache is the cache-aside store for compliance snapshots.
type SnapshotCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	DeletePattern(ctx context.Context, pattern string) error
}

// PolicyDependencies wires PolicyService.
type PolicyDependencies struct {
	Policies   repository.SLAPolicyRepository
	Audits     repository.PolicyAuditRepository
	Sectors    repository.SectorRepository
	Store      *sla.PolicyStore
	Dispatcher events.Dispatcher
	Cache      SnapshotCache
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// PolicyService manages per-sector SLA policies.
type PolicyService struct {
	policies   repository.SLAPolicyRepository
	audits     repository.PolicyAuditRepository
	sectors    repository.SectorRepository
	store      *sla.PolicyStore
	dispatcher events.Dispatcher
	cache      SnapshotCache
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewPolicyService builds the service.
func NewPolicyService(deps PolicyDependencies) *PolicyService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyService{
		policies:   deps.Policies,
		audits:     deps.Audits,
		sectors:    deps.Sectors,
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		cache:      deps.Cache,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// UpsertResult describes a persisted policy change.
type UpsertResult struct {
	Policy  domain.SLAPolicy
	Created bool
}

// ListPolicies returns every cached policy ordered by sector.
func (s *PolicyService) ListPolicies(ctx context.Context) []domain.SLAPolicy {
	ensureFresh(ctx, s.store, s.logger)
	return s.store.Snapshot().All()
}

// GetEffectivePolicy returns the sector's policy, or the defaults with
// SourceDefault when none is configured.
func (s *PolicyService) GetEffectivePolicy(ctx context.Context, sectorID string) (domain.SLAPolicy, sla.DeadlineSource) {
	ensureFresh(ctx, s.store, s.logger)
	if policy := s.store.GetPolicy(sectorID); policy != nil {
		return *policy, sla.SourcePolicy
	}
	return sla.DefaultPolicy(sectorID), sla.SourceDefault
}

// UpsertPolicy merges patch into the sector's policy and persists it. The
// policy cache is left untouched; callers refresh it explicitly.
func (s *PolicyService) UpsertPolicy(ctx context.Context, actor domain.Actor, sectorID string, patch sla.PolicyPatch) (*UpsertResult, error) {
	if !actor.Role.CanManagePolicies() {
		return nil, apperrors.NewForbidden("admin role required to change sla policies")
	}
	if patch.Empty() {
		return nil, apperrors.NewValidationError("no policy fields supplied", nil)
	}
	if err := patch.Validate(); err != nil {
		return nil, mapSLAError(err)
	}

	existing, err := s.policies.GetBySector(ctx, sectorID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.MapError(err)
		}
		existing = nil
		if _, err := s.sectors.GetByID(ctx, sectorID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewNotFound("sector", map[string]any{"sector_id": sectorID})
			}
			return nil, apperrors.MapError(err)
		}
	}

	merged, err := sla.MergePolicy(existing, sectorID, patch, s.now())
	if err != nil {
		return nil, mapSLAError(err)
	}

	created := existing == nil
	if created {
		err = s.policies.Create(ctx, &merged)
	} else {
		err = s.policies.Update(ctx, &merged)
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	s.metrics.RecordPolicyUpsert()

	s.recordAudit(ctx, actor, existing, merged)
	s.invalidateSnapshots(ctx)

	event := events.NewEvent(events.EventPolicyUpserted, events.ActorFrom(actor), events.PolicyUpsertedPayload{
		PolicyID:                merged.ID,
		Created:                 created,
		Mode:                    merged.Mode,
		P0Hours:                 merged.Hours.P0,
		P1Hours:                 merged.Hours.P1,
		P2Hours:                 merged.Hours.P2,
		P3Hours:                 merged.Hours.P3,
		AllowSuperadminOverride: merged.AllowSuperadminOverride,
	})
	event.SectorID = sectorID
	s.publish(ctx, event)

	return &UpsertResult{Policy: merged, Created: created}, nil
}

// RefreshPolicies reloads the policy cache from the database.
func (s *PolicyService) RefreshPolicies(ctx context.Context) error {
	err := s.store.Refresh(ctx)
	s.metrics.RecordPolicyRefresh(err)
	if err != nil {
		return apperrors.MapError(err)
	}
	s.logger.Debug("sla policies refreshed", zap.Int("count", s.store.Snapshot().Len()))
	return nil
}

// ListAudit returns the most recent policy changes for a sector.
func (s *PolicyService) ListAudit(ctx context.Context, sectorID string, limit int) ([]domain.PolicyAudit, error) {
	entries, err := s.audits.ListBySector(ctx, sectorID, limit)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// EnsureDefaultPolicies creates the default policy for every active sector
// that has none and reloads the cache. It returns the number created.
func (s *PolicyService) EnsureDefaultPolicies(ctx context.Context) (int, error) {
	sectors, err := s.sectors.ListActive(ctx)
	if err != nil {
		return 0, err
	}
	existing, err := s.policies.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	configured := make(map[string]struct{}, len(existing))
	for _, policy := range existing {
		configured[policy.SectorID] = struct{}{}
	}

	created := 0
	for _, sector := range sectors {
		if _, ok := configured[sector.ID]; ok {
			continue
		}
		policy := sla.DefaultPolicy(sector.ID)
		if err := s.policies.Create(ctx, &policy); err != nil {
			return created, err
		}
		created++
		s.logger.Info("default sla policy created",
			zap.String("sector_id", sector.ID),
			zap.String("sector", sector.Name))
	}

	if created > 0 {
		s.invalidateSnapshots(ctx)
	}
	return created, s.RefreshPolicies(ctx)
}

func (s *PolicyService) recordAudit(ctx context.Context, actor domain.Actor, before *domain.SLAPolicy, after domain.SLAPolicy) {
	if s.audits == nil {
		return
	}
	audit := &domain.PolicyAudit{
		PolicyID:    after.ID,
		SectorID:    after.SectorID,
		ChangedByID: actor.ID,
		NewValue:    policyValues(after),
	}
	if before != nil {
		audit.OldValue = policyValues(*before)
	}
	if err := s.audits.Create(ctx, audit); err != nil {
		s.logger.Warn("failed to record policy audit", zap.String("policy_id", after.ID), zap.Error(err))
	}
}

func (s *PolicyService) invalidateSnapshots(ctx context.Context) {
	invalidateSnapshots(ctx, s.cache, s.logger)
}

func (s *PolicyService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handlers failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func policyValues(policy domain.SLAPolicy) map[string]any {
	return map[string]any{
		"mode":                      policy.Mode.StorageValue(),
		"p0_hours":                  policy.Hours.P0,
		"p1_hours":                  policy.Hours.P1,
		"p2_hours":                  policy.Hours.P2,
		"p3_hours":                  policy.Hours.P3,
		"allow_superadmin_override": policy.AllowSuperadminOverride,
	}
}

// ensureFresh reloads stale policies. A failed reload keeps serving the
// previous table.
func ensureFresh(ctx context.Context, store *sla.PolicyStore, logger *zap.Logger) {
	if err := store.EnsureFresh(ctx); err != nil {
		logger.Warn("serving stale sla policies", zap.Error(err))
	}
}

func invalidateSnapshots(ctx context.Context, snapshots SnapshotCache, logger *zap.Logger) {
	if snapshots == nil {
		return
	}
	if err := snapshots.DeletePattern(ctx, cache.CompliancePattern()); err != nil {
		logger.Warn("failed to invalidate compliance snapshots", zap.Error(err))
	}
}

func mapSLAError(err error) error {
	switch {
	case errors.Is(err, sla.ErrInvalidPolicy):
		return apperrors.NewValidationError(err.Error(), nil)
	case errors.Is(err, sla.ErrInvalidTicket):
		return apperrors.NewInvalidTicket(err, nil)
	default:
		return apperrors.MapError(err)
	}
}
