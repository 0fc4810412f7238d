package auth

import "strings"

// Role is a tenant member's role, carried in the token's role claim.
type Role string

const (
	// RoleViewer reads cost standards and runs forecasts.
	RoleViewer Role = "viewer"
	// RoleOperator additionally maintains and exports cost standards.
	RoleOperator Role = "operator"
	// RoleAdmin may do anything, including writes to routes without a dedicated permission.
	RoleAdmin Role = "admin"
)

// Permission names one guarded action.
type Permission string

const (
	PermReadStandards   Permission = "cost_standard:read"
	PermWriteStandards  Permission = "cost_standard:write"
	PermExportStandards Permission = "cost_standard:export"
	PermRunForecast     Permission = "forecast:run"
	PermAdminAPI        Permission = "api:admin"
)

var rolePermissions = map[Role]map[Permission]bool{
	RoleViewer: {
		PermReadStandards: true,
		PermRunForecast:   true,
	},
	RoleOperator: {
		PermReadStandards:   true,
		PermWriteStandards:  true,
		PermExportStandards: true,
		PermRunForecast:     true,
	},
	RoleAdmin: {
		PermReadStandards:   true,
		PermWriteStandards:  true,
		PermExportStandards: true,
		PermRunForecast:     true,
		PermAdminAPI:        true,
	},
}

// ParseRole accepts a role claim in any case and surrounding space.
func ParseRole(value string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := rolePermissions[role]; !ok {
		return "", false
	}
	return role, true
}

// Allows reports whether r grants p.
func (r Role) Allows(p Permission) bool {
	return rolePermissions[r][p]
}
