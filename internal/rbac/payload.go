package rbac

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrMalformedPayload indicates the principal payload failed validation.
	ErrMalformedPayload = errors.New("rbac: malformed principal payload")
	// ErrDuplicateResource indicates more than one entry for the same resource.
	ErrDuplicateResource = errors.New("rbac: duplicate resource")
)

var validate = validator.New()

// Length limits shared by the session payload and role administration.
const (
	MaxRoleNameLength = 128
	MaxResourceLength = 64
)

type permissionPayload struct {
	Resource string   `json:"resource" validate:"required,max=64"`
	Actions  []string `json:"actions" validate:"required,min=1,dive,oneof=create read update delete manage"`
}

type rolePayload struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name" validate:"required,max=128"`
	Description string              `json:"description"`
	SuperAdmin  bool                `json:"super_admin"`
	Permissions []permissionPayload `json:"permissions" validate:"dive"`
}

type principalPayload struct {
	UserID    int64       `json:"user_id" validate:"gt=0"`
	Email     string      `json:"email" validate:"omitempty,email"`
	Name      string      `json:"name"`
	Role      rolePayload `json:"role"`
	IssuedAt  time.Time   `json:"issued_at"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// ParsePrincipal decodes and validates a principal payload. Any structural
// defect rejects the whole payload; callers must treat an error as "no
// permissions".
func ParsePrincipal(data []byte) (Principal, error) {
	var raw principalPayload
	if err := json.Unmarshal(data, &raw); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	raw.Role.Name = strings.TrimSpace(raw.Role.Name)
	for i := range raw.Role.Permissions {
		raw.Role.Permissions[i].Resource = normalizeResource(raw.Role.Permissions[i].Resource)
		for j, a := range raw.Role.Permissions[i].Actions {
			raw.Role.Permissions[i].Actions[j] = strings.ToLower(strings.TrimSpace(a))
		}
	}
	if err := validate.Struct(raw); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	perms := make([]Permission, 0, len(raw.Role.Permissions))
	for _, p := range raw.Role.Permissions {
		actions := make([]Action, 0, len(p.Actions))
		for _, a := range p.Actions {
			actions = append(actions, Action(a))
		}
		perms = append(perms, Permission{Resource: p.Resource, Actions: actions})
	}
	perms, err := NormalizePermissions(perms)
	if err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	return Principal{
		UserID: raw.UserID,
		Email:  raw.Email,
		Name:   raw.Name,
		Role: Role{
			ID:          raw.Role.ID,
			Name:        raw.Role.Name,
			Description: raw.Role.Description,
			SuperAdmin:  raw.Role.SuperAdmin,
			Permissions: perms,
		},
		IssuedAt:  raw.IssuedAt,
		ExpiresAt: raw.ExpiresAt,
	}, nil
}

// NormalizePermissions lower-cases resources, removes duplicate actions and
// enforces one entry per resource with a non-empty, known action set. The
// input is not modified.
func NormalizePermissions(perms []Permission) ([]Permission, error) {
	out := make([]Permission, 0, len(perms))
	seen := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		resource := normalizeResource(p.Resource)
		if resource == "" {
			return nil, errors.New("rbac: resource required")
		}
		if utf8.RuneCountInString(resource) > MaxResourceLength {
			return nil, fmt.Errorf("rbac: resource longer than %d characters", MaxResourceLength)
		}
		if _, dup := seen[resource]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateResource, resource)
		}
		seen[resource] = struct{}{}

		actions := make([]Action, 0, len(p.Actions))
		known := make(map[Action]struct{}, len(p.Actions))
		for _, a := range p.Actions {
			a = Action(strings.ToLower(strings.TrimSpace(string(a))))
			if !a.Valid() {
				return nil, fmt.Errorf("rbac: unknown action %q on %s", a, resource)
			}
			if _, ok := known[a]; ok {
				continue
			}
			known[a] = struct{}{}
			actions = append(actions, a)
		}
		if len(actions) == 0 {
			return nil, fmt.Errorf("rbac: no actions for %s", resource)
		}
		out = append(out, Permission{Resource: resource, Actions: actions})
	}
	return out, nil
}

func normalizeResource(resource string) string {
	return fold(resource)
}
