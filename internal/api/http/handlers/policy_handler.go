package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/sla-service/internal/api/dto"
	"github.com/spec-kit/sla-service/internal/auth"
	"github.com/spec-kit/sla-service/internal/domain"
	"github.com/spec-kit/sla-service/internal/service"
	"github.com/spec-kit/sla-service/internal/sla"
	apperrors "github.com/spec-kit/sla-service/pkg/util/errorutil"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// PolicyAdmin is the policy surface used by the HTTP layer.
type PolicyAdmin interface {
	ListPolicies(ctx context.Context) []domain.SLAPolicy
	GetEffectivePolicy(ctx context.Context, sectorID string) (domain.SLAPolicy, sla.DeadlineSource)
	UpsertPolicy(ctx context.Context, actor domain.Actor, sectorID string, patch sla.PolicyPatch) (*service.UpsertResult, error)
	RefreshPolicies(ctx context.Context) error
	ListAudit(ctx context.Context, sectorID string, limit int) ([]domain.PolicyAudit, error)
}

// PolicyHandler exposes SLA policy endpoints.
type PolicyHandler struct {
	policies PolicyAdmin
	logger   *zap.Logger
}

// NewPolicyHandler constructs handler.
func NewPolicyHandler(policies PolicyAdmin, logger *zap.Logger) *PolicyHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PolicyHandler{policies: policies, logger: logger}
}

// List GET /sla/policies.
func (h *PolicyHandler) List(c *fiber.Ctx) error {
	policies := h.policies.ListPolicies(c.UserContext())
	items := make([]dto.PolicyResponse, 0, len(policies))
	for _, policy := range policies {
		items = append(items, dto.NewPolicyResponse(policy, string(sla.SourcePolicy)))
	}
	return c.JSON(fiber.Map{"data": items})
}

// Get GET /sla/policies/:sectorId.
func (h *PolicyHandler) Get(c *fiber.Ctx) error {
	sectorID, err := uuidParam(c, "sectorId")
	if err != nil {
		return err
	}
	policy, source := h.policies.GetEffectivePolicy(c.UserContext(), sectorID)
	return c.JSON(fiber.Map{"data": dto.NewPolicyResponse(policy, string(source))})
}

// Upsert PUT /sla/policies/:sectorId.
func (h *PolicyHandler) Upsert(c *fiber.Ctx) error {
	actor, err := actorPrincipal(c)
	if err != nil {
		return err
	}
	sectorID, err := uuidParam(c, "sectorId")
	if err != nil {
		return err
	}
	var req dto.UpsertPolicyRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, "invalid payload")
	}

	result, err := h.policies.UpsertPolicy(c.UserContext(), *actor, sectorID, sla.PolicyPatch{
		Mode:                    req.Mode,
		P0Hours:                 req.P0Hours,
		P1Hours:                 req.P1Hours,
		P2Hours:                 req.P2Hours,
		P3Hours:                 req.P3Hours,
		AllowSuperadminOverride: req.AllowSuperadminOverride,
	})
	if err != nil {
		return err
	}
	if err := h.policies.RefreshPolicies(c.UserContext()); err != nil {
		h.logger.Warn("policy refresh after upsert failed", zap.String("sector_id", sectorID), zap.Error(err))
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"data": dto.NewPolicyResponse(result.Policy, string(sla.SourcePolicy))})
}

// Refresh POST /sla/policies/refresh.
func (h *PolicyHandler) Refresh(c *fiber.Ctx) error {
	if err := h.policies.RefreshPolicies(c.UserContext()); err != nil {
		return err
	}
	policies := h.policies.ListPolicies(c.UserContext())
	return c.JSON(fiber.Map{"data": fiber.Map{"count": len(policies)}})
}

// Audit GET /sla/policies/:sectorId/audit.
func (h *PolicyHandler) Audit(c *fiber.Ctx) error {
	sectorID, err := uuidParam(c, "sectorId")
	if err != nil {
		return err
	}
	limit := defaultAuditLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return apperrors.NewValidationError("limit must be a positive integer", nil)
		}
		limit = min(parsed, maxAuditLimit)
	}
	entries, err := h.policies.ListAudit(c.UserContext(), sectorID, limit)
	if err != nil {
		return err
	}
	items := make([]dto.PolicyAuditResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, dto.NewPolicyAuditResponse(entry))
	}
	return c.JSON(fiber.Map{"data": items})
}

func actorPrincipal(c *fiber.Ctx) (*domain.Actor, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal == nil {
		return nil, fiber.NewError(http.StatusUnauthorized, "staff required")
	}
	return principal, nil
}

func uuidParam(c *fiber.Ctx, name string) (string, error) {
	raw := c.Params(name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", apperrors.NewValidationError("invalid "+name, map[string]any{name: raw})
	}
	return id.String(), nil
}
