package domain

// Role is the side of the marketplace a user acts as.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDriver   Role = "driver"
	RoleBusiness Role = "business"
	RoleAdmin    Role = "admin"
)

// ParseRole converts a raw role. Unknown roles are rejected.
func ParseRole(raw string) (Role, bool) {
	switch r := Role(raw); r {
	case RoleCustomer, RoleDriver, RoleBusiness, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

// RequestsRides reports whether the role is on the ordering side.
func (r Role) RequestsRides() bool {
	return r == RoleCustomer || r == RoleBusiness
}
