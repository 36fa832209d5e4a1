package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/repository"
	"github.com/spec-kit/sla-service/internal/service"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

// ComplianceReader evaluates compliance snapshots.
type ComplianceReader interface {
	Evaluate(ctx context.Context, filter repository.EvaluationFilter) (*service.ComplianceResult, error)
}

// ComplianceHandler exposes the compliance dashboard endpoint.
type ComplianceHandler struct {
	compliance ComplianceReader
}

// NewComplianceHandler constructs handler.
func NewComplianceHandler(compliance ComplianceReader) *ComplianceHandler {
	return &ComplianceHandler{compliance: compliance}
}

// Get GET /sla/compliance.
func (h *ComplianceHandler) Get(c *fiber.Ctx) error {
	filter, err := parseEvaluationFilter(c)
	if err != nil {
		return err
	}
	result, err := h.compliance.Evaluate(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewComplianceResponse(result.Snapshot, result.Cached)})
}

func parseEvaluationFilter(c *fiber.Ctx) (repository.EvaluationFilter, error) {
	filter := repository.EvaluationFilter{}
	if sectorID := c.Query("sector_id"); sectorID != "" {
		id, err := uuid.Parse(sectorID)
		if err != nil {
			return filter, apperrors.NewValidationError("invalid sector_id", map[string]any{"sector_id": sectorID})
		}
		value := id.String()
		filter.SectorID = &value
	}
	from, err := parseTimeQuery(c, "created_from", false)
	if err != nil {
		return filter, err
	}
	to, err := parseTimeQuery(c, "created_to", true)
	if err != nil {
		return filter, err
	}
	filter.CreatedFrom = from
	filter.CreatedTo = to
	return filter, nil
}

// parseTimeQuery accepts RFC3339 timestamps or plain dates. A plain date used
// as an upper bound covers the whole day.
func parseTimeQuery(c *fiber.Ctx, name string, endOfDay bool) (*time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts, nil
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	if endOfDay {
		day = day.Add(24*time.Hour - time.Nanosecond)
	}
	return &day, nil
}
