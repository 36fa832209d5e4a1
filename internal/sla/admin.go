package sla

import (
	"fmt"
	"time"

	"github.com/spec-kit/sla-service/internal/domain"
)

// PolicyPatch carries the fields supplied by an administrator. Nil fields keep
// their current (or default) value.
type PolicyPatch struct {
	Mode                    *domain.PolicyMode
	P0Hours                 *int
	P1Hours                 *int
	P2Hours                 *int
	P3Hours                 *int
	AllowSuperadminOverride *bool
}

// Empty reports whether the patch changes nothing.
func (p PolicyPatch) Empty() bool {
	return p.Mode == nil && p.P0Hours == nil && p.P1Hours == nil && p.P2Hours == nil &&
		p.P3Hours == nil && p.AllowSuperadminOverride == nil
}

// Validate rejects non-positive hours and unknown modes. Tier ordering is not
// checked.
func (p PolicyPatch) Validate() error {
	if p.Mode != nil && !p.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidPolicy, *p.Mode)
	}
	hours := []struct {
		tier  domain.Priority
		value *int
	}{
		{domain.PriorityP0, p.P0Hours},
		{domain.PriorityP1, p.P1Hours},
		{domain.PriorityP2, p.P2Hours},
		{domain.PriorityP3, p.P3Hours},
	}
	for _, h := range hours {
		if h.value != nil && *h.value <= 0 {
			return fmt.Errorf("%w: %s hours must be positive, got %d", ErrInvalidPolicy, h.tier, *h.value)
		}
	}
	return nil
}

// DefaultPolicy returns the FIXED policy a sector gets when none is configured.
func DefaultPolicy(sectorID string) domain.SLAPolicy {
	return domain.SLAPolicy{
		SectorID: sectorID,
		Mode:     domain.PolicyModeFixed,
		Hours:    domain.DefaultHours,
	}
}

// MergePolicy applies patch over existing, or over DefaultPolicy when existing
// is nil. The returned policy carries now as UpdatedAt, and as CreatedAt when it
// is new. Persisting the result and refreshing PolicyStore is up to the caller.
func MergePolicy(existing *domain.SLAPolicy, sectorID string, patch PolicyPatch, now time.Time) (domain.SLAPolicy, error) {
	if sectorID == "" {
		return domain.SLAPolicy{}, fmt.Errorf("%w: sector id is required", ErrInvalidPolicy)
	}
	if err := patch.Validate(); err != nil {
		return domain.SLAPolicy{}, err
	}

	merged := DefaultPolicy(sectorID)
	merged.CreatedAt = now
	if existing != nil {
		merged = *existing
		merged.SectorID = sectorID
	}

	if patch.Mode != nil {
		merged.Mode = *patch.Mode
	}
	if patch.P0Hours != nil {
		merged.Hours.P0 = *patch.P0Hours
	}
	if patch.P1Hours != nil {
		merged.Hours.P1 = *patch.P1Hours
	}
	if patch.P2Hours != nil {
		merged.Hours.P2 = *patch.P2Hours
	}
	if patch.P3Hours != nil {
		merged.Hours.P3 = *patch.P3Hours
	}
	if patch.AllowSuperadminOverride != nil {
		merged.AllowSuperadminOverride = *patch.AllowSuperadminOverride
	}
	merged.UpdatedAt = now

	return merged, nil
}
