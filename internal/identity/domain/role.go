package domain

import (
	"fmt"
	"strings"
)

// Role is a closed set of authorization levels.
type Role string

const (
	RoleStandard Role = "user"
	RoleStaff    Role = "staff"
	RoleElevated Role = "admin"
)

// Roles lists every valid role.
var Roles = []Role{RoleStandard, RoleStaff, RoleElevated}

// ParseRole accepts a role name in any case.
func ParseRole(s string) (Role, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, r := range Roles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) String() string { return string(r) }

// Valid reports whether r is one of Roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// RoleNames converts roles to the plain names used on the wire.
func RoleNames(roles ...Role) []string {
	out := make([]string, len(roles))
	for i, r := range roles {
		out[i] = string(r)
	}
	return out
}
