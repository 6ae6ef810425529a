package authstack

import "github.com/samber/lo"

// A Layer tags the resource category a protected object belongs to.
// Unknown layers are permitted; they simply have no default policy domain.
type Layer string

const (
	LayerComponent Layer = "component"
	LayerWeb       Layer = "web"
)

// RolesKey is the well-known resource attribute under which callers may embed
// the [RoleGroup] resolved for the current request.
const RolesKey = "authstack.roles"

// A Resource is the protected object an authorization decision is made for.
// It is owned by the caller and read-only to the engine; modules receive it
// as-is.
type Resource struct {
	Layer      Layer
	Attributes map[string]any
}

// Roles returns the role-group embedded under [RolesKey], if any.
func (r Resource) Roles() (RoleGroup, bool) {
	group, ok := r.Attributes[RolesKey].(RoleGroup)
	return group, ok
}

// An Identity names the caller an authorization decision is made on behalf of.
type Identity struct {
	Name       string
	Attributes map[string]string
}

// Anonymous is used by [Context.Authorize] when the privilege scope reports
// no ambient identity.
var Anonymous = Identity{Name: "anonymous"}

// A RoleGroup is the caller's resolved set of roles for one decision.
// The engine passes it through to modules untouched.
type RoleGroup struct {
	Name  string
	Roles []string
}

// HasRole reports whether the group contains the named role.
func (g RoleGroup) HasRole(name string) bool {
	return lo.Contains(g.Roles, name)
}

// HasAll reports whether the group contains every one of the named roles.
func (g RoleGroup) HasAll(names ...string) bool {
	return lo.Every(g.Roles, names)
}

// HasAny reports whether the group contains at least one of the named roles.
func (g RoleGroup) HasAny(names ...string) bool {
	return lo.Some(g.Roles, names)
}
