// Package authz maps authenticated roles to the set of scheduling actions
// they may perform. The mapping is total: every input string resolves to a
// known role, and every role resolves to a capability set.
package authz

import "strings"

// Role is a closed enumeration of the roles the console recognizes.
type Role int

const (
	RoleUnknown Role = iota
	RoleAdmin
	RoleReception
	RoleDoctor
)

// ParseRole resolves a raw role claim to a Role. Unrecognized values map to
// RoleUnknown rather than erroring, so a misspelled claim degrades to zero
// capabilities instead of crashing or silently granting access.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "admin":
		return RoleAdmin
	case "reception":
		return RoleReception
	case "doctor":
		return RoleDoctor
	default:
		return RoleUnknown
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleReception:
		return "reception"
	case RoleDoctor:
		return "doctor"
	default:
		return "unknown"
	}
}

// Capabilities is the set of mutating calendar actions a role is allowed to
// trigger. Viewing is not gated here; read access is enforced server-side.
type Capabilities struct {
	CanCreate     bool
	CanReschedule bool
	CanDelete     bool
}

// CapabilitiesFor returns the capability set for a role. Admin and reception
// staff hold full scheduling rights; every other role holds none.
func CapabilitiesFor(role Role) Capabilities {
	switch role {
	case RoleAdmin, RoleReception:
		return Capabilities{CanCreate: true, CanReschedule: true, CanDelete: true}
	default:
		return Capabilities{}
	}
}
