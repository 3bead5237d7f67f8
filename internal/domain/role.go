package domain

import "strings"

// Role is an application privilege level. Roles form a total order used for
// every access-control comparison.
type Role string

const (
	RoleGuest   Role = "guest"
	RoleUser    Role = "user"
	RoleManager Role = "manager"
	RoleAdmin   Role = "admin"
)

var roleRank = map[Role]int{
	RoleGuest:   0,
	RoleUser:    1,
	RoleManager: 2,
	RoleAdmin:   3,
}

// Valid reports whether the role is one of the known levels.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// HasAtLeast reports whether r grants at least the privilege of required.
// Unknown roles rank below Guest.
func (r Role) HasAtLeast(required Role) bool {
	return roleRank[r] >= roleRank[required]
}

// ResolveRole maps raw role strings from a trust source onto the hierarchy.
// Highest privilege wins; an authenticated principal with no recognized role
// string is a plain User, never Guest.
func ResolveRole(rawRoles []string) Role {
	resolved := RoleUser
	for _, raw := range rawRoles {
		switch Role(strings.ToLower(strings.TrimSpace(raw))) {
		case RoleAdmin:
			return RoleAdmin
		case RoleManager:
			resolved = RoleManager
		}
	}
	return resolved
}
