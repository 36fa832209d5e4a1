package dto

import (
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// PriorityBreakdownResponse aggregates one tier.
type PriorityBreakdownResponse struct {
	Total              int     `json:"total"`
	Resolved           int     `json:"resolved"`
	WithinSLA          int     `json:"within_sla"`
	AvgResolutionHours float64 `json:"avg_resolution_hours"`
}

// ComplianceResponse is a compliance snapshot.
type ComplianceResponse struct {
	TotalTickets          int                                           `json:"total_tickets"`
	ResolvedTickets       int                                           `json:"resolved_tickets"`
	ResolvedWithinSLA     int                                           `json:"resolved_within_sla"`
	OverdueCount          int                                           `json:"overdue_count"`
	ComplianceRatePercent float64                                       `json:"compliance_rate_percent"`
	PerPriority           map[domain.Priority]PriorityBreakdownResponse `json:"per_priority"`
	EvaluatedAt           time.Time                                     `json:"evaluated_at"`
	Cached                bool                                          `json:"cached"`
}

// NewComplianceResponse maps a snapshot.
func NewComplianceResponse(snapshot domain.ComplianceSnapshot, cached bool) ComplianceResponse {
	perPriority := make(map[domain.Priority]PriorityBreakdownResponse, len(snapshot.PerPriority))
	for tier, b := range snapshot.PerPriority {
		perPriority[tier] = PriorityBreakdownResponse{
			Total:              b.Total,
			Resolved:           b.Resolved,
			WithinSLA:          b.WithinSLA,
			AvgResolutionHours: b.AvgResolutionHours,
		}
	}
	return ComplianceResponse{
		TotalTickets:          snapshot.TotalTickets,
		ResolvedTickets:       snapshot.ResolvedTickets,
		ResolvedWithinSLA:     snapshot.ResolvedWithinSLA,
		OverdueCount:          snapshot.OverdueCount,
		ComplianceRatePercent: snapshot.ComplianceRatePercent,
		PerPriority:           perPriority,
		EvaluatedAt:           snapshot.EvaluatedAt,
		Cached:                cached,
	}
}
