package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/sla-service/internal/cache"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/observability"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/sla"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

// ComplianceDependencies wires ComplianceService.
type ComplianceDependencies struct {
	Tickets repository.TicketRepository
	Store   *sla.PolicyStore
	Cache   SnapshotCache
	Metrics *observability.Metrics
	Logger  *zap.Logger
	Now     func() time.Time
}

// ComplianceService computes SLA compliance snapshots.
type ComplianceService struct {
	tickets repository.TicketRepository
	store   *sla.PolicyStore
	cache   SnapshotCache
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewComplianceService builds the service.
func NewComplianceService(deps ComplianceDependencies) *ComplianceService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ComplianceService{
		tickets: deps.Tickets,
		store:   deps.Store,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		logger:  logger,
		now:     now,
	}
}

// ComplianceResult is a snapshot plus whether it came from the cache.
type ComplianceResult struct {
	Snapshot domain.ComplianceSnapshot
	Cached   bool
}

// Evaluate returns the compliance snapshot for the tickets matching filter.
// Snapshots are served from the cache when present.
func (s *ComplianceService) Evaluate(ctx context.Context, filter repository.EvaluationFilter) (*ComplianceResult, error) {
	if filter.CreatedFrom != nil && filter.CreatedTo != nil && filter.CreatedFrom.After(*filter.CreatedTo) {
		return nil, apperrors.NewValidationError("created_from must not be after created_to", nil)
	}

	key := cache.ComplianceKey(filter.CacheKey())
	if s.cache != nil {
		var cached domain.ComplianceSnapshot
		err := s.cache.Get(ctx, key, &cached)
		if err == nil {
			s.metrics.RecordCompliance(true)
			return &ComplianceResult{Snapshot: cached, Cached: true}, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("compliance cache read failed", zap.String("key", key), zap.Error(err))
		}
	}

	var tickets []domain.Ticket
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ensureFresh(gctx, s.store, s.logger)
		return nil
	})
	g.Go(func() error {
		loaded, err := s.tickets.ListForEvaluation(gctx, filter)
		if err != nil {
			return err
		}
		tickets = loaded
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, apperrors.MapError(err)
	}

	snapshot, err := sla.Evaluate(tickets, s.store.Snapshot(), s.now())
	if err != nil {
		return nil, mapSLAError(err)
	}
	s.metrics.RecordCompliance(false)

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, snapshot); err != nil {
			s.logger.Warn("compliance cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return &ComplianceResult{Snapshot: snapshot}, nil
}
