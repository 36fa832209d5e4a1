package domain

import "time"

// PriorityBreakdown aggregates compliance for one tier.
type PriorityBreakdown struct {
	Total              int
	Resolved           int
	WithinSLA          int
	AvgResolutionHours float64
}

// ComplianceSnapshot is derived from a ticket set and a policy snapshot. It is
// never persisted by the engine.
type ComplianceSnapshot struct {
	TotalTickets          int
	ResolvedTickets       int
	ResolvedWithinSLA     int
	OverdueCount          int
	ComplianceRatePercent float64
	PerPriority           map[Priority]PriorityBreakdown
	EvaluatedAt           time.Time
}
