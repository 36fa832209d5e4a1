package domain

import "time"

// Sector represents the organizational unit that owns tickets and SLA policies.
type Sector struct {
	ID        string
	Name      string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
