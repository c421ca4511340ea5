package domain

import "fmt"

// Role is the caller role carried by a bearer token.
type Role int

const (
	RoleAdmin Role = iota + 1
	RoleManager
	RoleSystem
)

// ParseRole maps a claim value onto a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "system":
		return RoleSystem, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleManager:
		return "manager"
	case RoleSystem:
		return "system"
	default:
		return fmt.Sprintf("Role(%d)", int(r))
	}
}

// RoleSet is a set of roles allowed on a route. An empty set admits no one.
type RoleSet []Role

// Allows reports whether r is in the set.
func (s RoleSet) Allows(r Role) bool {
	for _, allowed := range s {
		if allowed == r {
			return true
		}
	}
	return false
}
