package domain

// StaffRole enumerates roles carried in platform-issued tokens.
type StaffRole string

const (
	StaffRoleAgent      StaffRole = "agent"
	StaffRoleAdmin      StaffRole = "admin"
	StaffRoleSuperadmin StaffRole = "superadmin"
)

// CanManagePolicies reports whether the role may change SLA policies.
func (r StaffRole) CanManagePolicies() bool {
	return r == StaffRoleAdmin || r == StaffRoleSuperadmin
}

// Actor identifies the authenticated caller of a mutation.
type Actor struct {
	ID       string
	Role     StaffRole
	SectorID *string
}
