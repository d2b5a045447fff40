package model

import (
	"fmt"
	"strings"
)

// Role is the account category chosen at sign-up and stored as identity
// provider metadata. The set is closed; free text is rejected at the boundary.
type Role string

const (
	RoleHospital   Role = "Hospital"
	RoleDoctor     Role = "Doctor"
	RoleGovernment Role = "Government"
	RoleAdmin      Role = "Admin"

	// RoleUnknown is assigned when the provider returns no role, or a role
	// outside the enumeration, for an existing account.
	RoleUnknown Role = ""
)

// Roles lists the selectable roles in display order.
var Roles = []Role{RoleHospital, RoleDoctor, RoleGovernment, RoleAdmin}

// ParseRole validates s against the role enumeration. Matching is
// case-insensitive and surrounding whitespace is ignored.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	for _, r := range Roles {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// RoleFromMetadata maps a provider metadata value onto a Role, falling back
// to RoleUnknown instead of failing.
func RoleFromMetadata(v any) Role {
	s, ok := v.(string)
	if !ok {
		return RoleUnknown
	}
	r, err := ParseRole(s)
	if err != nil {
		return RoleUnknown
	}
	return r
}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	for _, known := range Roles {
		if r == known {
			return true
		}
	}
	return false
}

// String returns the display name; RoleUnknown renders as "Unknown".
func (r Role) String() string {
	if r == RoleUnknown {
		return "Unknown"
	}
	return string(r)
}
