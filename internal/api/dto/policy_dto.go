package dto

import (
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// HoursByPriority is the per-tier resolution window in hours.
type HoursByPriority struct {
	P0 int `json:"p0"`
	P1 int `json:"p1"`
	P2 int `json:"p2"`
	P3 int `json:"p3"`
}

// PolicyResponse represents a sector SLA policy.
type PolicyResponse struct {
	ID                      string            `json:"id,omitempty"`
	SectorID                string            `json:"sector_id"`
	Mode                    domain.PolicyMode `json:"mode"`
	Hours                   HoursByPriority   `json:"hours"`
	AllowSuperadminOverride bool              `json:"allow_superadmin_override"`
	Source                  string            `json:"source,omitempty"`
	CreatedAt               *time.Time        `json:"created_at,omitempty"`
	UpdatedAt               *time.Time        `json:"updated_at,omitempty"`
}

// UpsertPolicyRequest is a partial policy; omitted fields keep their value.
type UpsertPolicyRequest struct {
	Mode                    *domain.PolicyMode `json:"mode"`
	P0Hours                 *int               `json:"p0_hours"`
	P1Hours                 *int               `json:"p1_hours"`
	P2Hours                 *int               `json:"p2_hours"`
	P3Hours                 *int               `json:"p3_hours"`
	AllowSuperadminOverride *bool              `json:"allow_superadmin_override"`
}

// PolicyAuditResponse is one recorded policy change.
type PolicyAuditResponse struct {
	ID          string         `json:"id"`
	PolicyID    string         `json:"policy_id"`
	SectorID    string         `json:"sector_id"`
	ChangedByID string         `json:"changed_by_id"`
	OldValue    map[string]any `json:"old_value"`
	NewValue    map[string]any `json:"new_value"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewPolicyResponse maps a domain policy.
func NewPolicyResponse(policy domain.SLAPolicy, source string) PolicyResponse {
	resp := PolicyResponse{
		ID:       policy.ID,
		SectorID: policy.SectorID,
		Mode:     policy.Mode,
		Hours: HoursByPriority{
			P0: policy.Hours.P0,
			P1: policy.Hours.P1,
			P2: policy.Hours.P2,
			P3: policy.Hours.P3,
		},
		AllowSuperadminOverride: policy.AllowSuperadminOverride,
		Source:                  source,
	}
	if !policy.CreatedAt.IsZero() {
		createdAt := policy.CreatedAt
		resp.CreatedAt = &createdAt
	}
	if !policy.UpdatedAt.IsZero() {
		updatedAt := policy.UpdatedAt
		resp.UpdatedAt = &updatedAt
	}
	return resp
}

// NewPolicyAuditResponse maps an audit entry.
func NewPolicyAuditResponse(audit domain.PolicyAudit) PolicyAuditResponse {
	return PolicyAuditResponse{
		ID:          audit.ID,
		PolicyID:    audit.PolicyID,
		SectorID:    audit.SectorID,
		ChangedByID: audit.ChangedByID,
		OldValue:    audit.OldValue,
		NewValue:    audit.NewValue,
		CreatedAt:   audit.CreatedAt,
	}
}
