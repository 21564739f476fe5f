package rbac

import (
	"strings"

	"golang.org/x/text/cases"
)

var administrativeRoleNames = map[string]struct{}{
	"super admin":   {},
	"administrator": {},
}

// IsAdministrativeRole reports whether a role name matches the administrative
// pattern: case-insensitive substring "admin", or exactly "super admin" or
// "administrator".
func IsAdministrativeRole(name string) bool {
	folded := fold(name)
	if folded == "" {
		return false
	}
	if _, ok := administrativeRoleNames[folded]; ok {
		return true
	}
	return strings.Contains(folded, "admin")
}

// HasPermission reports whether perms grant action on resource. A nil or empty
// collection, an empty resource, or an unknown action is always denied.
func HasPermission(perms []Permission, resource string, action Action) bool {
	if len(perms) == 0 || resource == "" || !action.Valid() {
		return false
	}
	for _, p := range perms {
		if p.Resource != resource {
			continue
		}
		// Resources are unique within a set, so the first match decides.
		return p.Allows(action)
	}
	return false
}

// HasAnyPermission reports whether at least one of actions is granted.
// An empty action list grants nothing.
func HasAnyPermission(perms []Permission, resource string, actions []Action) bool {
	for _, a := range actions {
		if HasPermission(perms, resource, a) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every action is granted. An empty action
// list is vacuously true.
func HasAllPermissions(perms []Permission, resource string, actions []Action) bool {
	for _, a := range actions {
		if !HasPermission(perms, resource, a) {
			return false
		}
	}
	return true
}

func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
