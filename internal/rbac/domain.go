package rbac

import (
	"time"
)

// Action is an operation a principal may perform on a resource.
type Action string

// Supported actions. ActionManage implies every other action on its resource.
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionManage Action = "manage"
)

// AllActions returns the fixed action enumeration in display order.
func AllActions() []Action {
	return []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage}
}

// Valid reports whether a belongs to the action enumeration.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionManage:
		return true
	}
	return false
}

// Permission grants a set of actions on a single resource.
type Permission struct {
	Resource string   `json:"resource"`
	Actions  []Action `json:"actions"`
}

// Allows reports whether the permission covers action, directly or via manage.
func (p Permission) Allows(action Action) bool {
	for _, a := range p.Actions {
		if a == action || a == ActionManage {
			return true
		}
	}
	return false
}

// Role is a named bundle of permissions.
type Role struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	SuperAdmin  bool         `json:"super_admin"`
	Permissions []Permission `json:"permissions"`
	CreatedAt   time.Time    `json:"created_at,omitempty"`
	UpdatedAt   time.Time    `json:"updated_at,omitempty"`
}

// Elevated reports whether the role bypasses permission checks entirely.
// Roles created before the super_admin flag existed are still recognised by name.
func (r Role) Elevated() bool {
	return r.SuperAdmin || IsAdministrativeRole(r.Name)
}

// Principal is the read-only snapshot of an authenticated user held for the
// lifetime of a session.
type Principal struct {
	UserID    int64     `json:"user_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name,omitempty"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the session validity window has closed at now.
// A zero ExpiresAt never expires.
func (p *Principal) Expired(now time.Time) bool {
	if p == nil {
		return true
	}
	if p.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(p.ExpiresAt)
}

// Can reports whether the principal may perform action on resource.
func (p *Principal) Can(resource string, action Action) bool {
	return p.CanAt(time.Now(), resource, action)
}

// CanAt is Can evaluated at a fixed instant.
func (p *Principal) CanAt(now time.Time, resource string, action Action) bool {
	if p == nil || p.Expired(now) {
		return false
	}
	if p.Role.Elevated() {
		return true
	}
	return HasPermission(p.Role.Permissions, resource, action)
}

// CanAny reports whether at least one of actions is permitted on resource.
func (p *Principal) CanAny(resource string, actions ...Action) bool {
	now := time.Now()
	for _, a := range actions {
		if p.CanAt(now, resource, a) {
			return true
		}
	}
	return false
}

// CanAll reports whether every action is permitted on resource. An empty
// action list is satisfied by any loaded, unexpired principal.
func (p *Principal) CanAll(resource string, actions ...Action) bool {
	now := time.Now()
	if p == nil || p.Expired(now) {
		return false
	}
	for _, a := range actions {
		if !p.CanAt(now, resource, a) {
			return false
		}
	}
	return true
}
