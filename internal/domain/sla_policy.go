package domain

import (
	"fmt"
	"time"
)

// Priority enumerates ticket urgency tiers. P0 is the most urgent.
type Priority string

const (
	PriorityP0 Priority = "P0"
	PriorityP1 Priority = "P1"
	PriorityP2 Priority = "P2"
	PriorityP3 Priority = "P3"
)

// Priorities lists every tier from most to least urgent.
var Priorities = []Priority{PriorityP0, PriorityP1, PriorityP2, PriorityP3}

// Valid reports whether p is one of the four known tiers.
func (p Priority) Valid() bool {
	switch p {
	case PriorityP0, PriorityP1, PriorityP2, PriorityP3:
		return true
	default:
		return false
	}
}

// Tier returns the tier used for SLA math. Unknown values resolve to P3 so an
// unclassified ticket is never flagged as urgent.
func (p Priority) Tier() Priority {
	if p.Valid() {
		return p
	}
	return PriorityP3
}

// PolicyMode selects how deadlines are set for a sector.
type PolicyMode string

const (
	PolicyModeFixed  PolicyMode = "FIXED"
	PolicyModeCustom PolicyMode = "CUSTOM"
)

const (
	storedModeFixed  = "FIXO"
	storedModeCustom = "PERSONALIZADO"
)

// Valid reports whether m is a known mode.
func (m PolicyMode) Valid() bool {
	return m == PolicyModeFixed || m == PolicyModeCustom
}

// StorageValue returns the value persisted in sla_policies.mode.
func (m PolicyMode) StorageValue() string {
	if m == PolicyModeCustom {
		return storedModeCustom
	}
	return storedModeFixed
}

// ParseStoredPolicyMode maps the persisted column value back to a PolicyMode.
func ParseStoredPolicyMode(value string) (PolicyMode, error) {
	switch value {
	case storedModeFixed:
		return PolicyModeFixed, nil
	case storedModeCustom:
		return PolicyModeCustom, nil
	default:
		return "", fmt.Errorf("unknown policy mode %q", value)
	}
}

// HoursByPriority maps each tier to a resolution window in hours.
type HoursByPriority struct {
	P0 int
	P1 int
	P2 int
	P3 int
}

// DefaultHours applies to sectors without a configured policy.
var DefaultHours = HoursByPriority{P0: 4, P1: 24, P2: 72, P3: 168}

// For returns the window for p, using the P3 entry for unknown tiers.
func (h HoursByPriority) For(p Priority) int {
	switch p.Tier() {
	case PriorityP0:
		return h.P0
	case PriorityP1:
		return h.P1
	case PriorityP2:
		return h.P2
	default:
		return h.P3
	}
}

// SLAPolicy is the per-sector SLA configuration.
type SLAPolicy struct {
	ID                      string
	SectorID                string
	Mode                    PolicyMode
	Hours                   HoursByPriority
	AllowSuperadminOverride bool
	CreatedAt               time.Time
	UpdatedAt               time.Time
}
