package rbac

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peopledesk/peopledesk/internal/shared"
)

type memoryRepo struct {
	roles       map[int64]Role
	assignments map[int64]int64
	nextID      int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{roles: map[int64]Role{}, assignments: map[int64]int64{}}
}

func (m *memoryRepo) ListRoles(ctx context.Context) ([]Role, error) {
	out := make([]Role, 0, len(m.roles))
	for _, r := range m.roles {
		out = append(out, r)
	}
	return out, nil
}

func (m *memoryRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	r, ok := m.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return r, nil
}

func (m *memoryRepo) CreateRole(ctx context.Context, role Role) (Role, error) {
	for _, r := range m.roles {
		if r.Name == role.Name {
			return Role{}, ErrDuplicate
		}
	}
	m.nextID++
	role.ID = m.nextID
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) UpdateRole(ctx context.Context, role Role) (Role, error) {
	existing, ok := m.roles[role.ID]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Permissions = existing.Permissions
	m.roles[role.ID] = role
	return role, nil
}

func (m *memoryRepo) ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error {
	r, ok := m.roles[roleID]
	if !ok {
		return ErrNotFound
	}
	r.Permissions = perms
	m.roles[roleID] = r
	return nil
}

func (m *memoryRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := m.roles[id]; !ok {
		return ErrNotFound
	}
	delete(m.roles, id)
	return nil
}

func (m *memoryRepo) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, ok := m.roles[roleID]; !ok {
		return ErrNotFound
	}
	m.assignments[userID] = roleID
	return nil
}

func (m *memoryRepo) RoleForUser(ctx context.Context, userID int64) (Role, error) {
	id, ok := m.assignments[userID]
	if !ok {
		return Role{}, ErrNotFound
	}
	return m.GetRole(ctx, id)
}

type auditSpy struct {
	entries []shared.AuditLog
	err     error
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.entries = append(a.entries, log)
	return a.err
}

func TestServiceCreateRoleNormalizes(t *testing.T) {
	audit := &auditSpy{}
	svc := NewService(newMemoryRepo(), audit, nil)

	role, err := svc.CreateRole(context.Background(), 1, RoleInput{
		Name:        "  Leave Approver ",
		Permissions: []Permission{{Resource: "Leave", Actions: []Action{"READ", ActionUpdate}}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Leave Approver", role.Name)
	assert.Equal(t, []Permission{{Resource: "leave", Actions: []Action{ActionRead, ActionUpdate}}}, role.Permissions)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, "role.create", audit.entries[0].Action)
	assert.Equal(t, "role", audit.entries[0].Entity)
	assert.Equal(t, int64(1), audit.entries[0].ActorID)
}

func TestServiceCreateRoleRejectsInvalid(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, 1, RoleInput{Name: " "})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateRole(ctx, 1, RoleInput{Name: "X", Permissions: []Permission{{Resource: "payroll", Actions: []Action{"approve"}}}})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateRole(ctx, 1, RoleInput{Name: "Y", Permissions: []Permission{
		{Resource: "payroll", Actions: []Action{ActionRead}},
		{Resource: "payroll", Actions: []Action{ActionUpdate}},
	}})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestServiceEnforcesSessionLengthLimits(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, 1, RoleInput{Name: strings.Repeat("r", MaxRoleNameLength+1)})
	assert.ErrorIs(t, err, ErrInvalidRole)

	_, err = svc.CreateRole(ctx, 1, RoleInput{Name: "Z", Permissions: []Permission{
		{Resource: strings.Repeat("x", MaxResourceLength+1), Actions: []Action{ActionRead}},
	}})
	assert.ErrorIs(t, err, ErrInvalidRole)

	role, err := svc.CreateRole(ctx, 1, RoleInput{Name: strings.Repeat("r", MaxRoleNameLength)})
	require.NoError(t, err)
	_, err = svc.UpdateRole(ctx, 1, role.ID, RoleInput{Name: strings.Repeat("é", MaxRoleNameLength+1)})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAcceptedRoleSurvivesSessionRoundTrip(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	role, err := svc.CreateRole(context.Background(), 1, RoleInput{
		Name: strings.Repeat("é", MaxRoleNameLength),
		Permissions: []Permission{
			{Resource: strings.Repeat("x", MaxResourceLength), Actions: []Action{ActionManage}},
		},
	})
	require.NoError(t, err)

	data, err := json.Marshal(Principal{UserID: 7, Email: "hr@peopledesk.local", Role: role})
	require.NoError(t, err)
	parsed, err := ParsePrincipal(data)
	require.NoError(t, err)
	assert.Equal(t, role.Name, parsed.Role.Name)
	assert.Equal(t, role.Permissions, parsed.Role.Permissions)
}

func TestServiceSetRolePermissions(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	role, err := svc.CreateRole(ctx, 1, RoleInput{Name: "Clerk"})
	require.NoError(t, err)

	updated, err := svc.SetRolePermissions(ctx, 1, role.ID, []Permission{{Resource: "loans", Actions: []Action{ActionManage}}})
	require.NoError(t, err)
	assert.Equal(t, []Permission{{Resource: "loans", Actions: []Action{ActionManage}}}, updated.Permissions)

	_, err = svc.SetRolePermissions(ctx, 1, 404, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceRoleForUser(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)
	ctx := context.Background()

	role, err := svc.RoleForUser(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "unassigned", role.Name)
	assert.False(t, role.Elevated())
	assert.Empty(t, role.Permissions)

	admin, err := svc.CreateRole(ctx, 1, RoleInput{Name: "Owner", SuperAdmin: true})
	require.NoError(t, err)
	require.NoError(t, svc.AssignRole(ctx, 1, 42, admin.ID))

	role, err = svc.RoleForUser(ctx, 42)
	require.NoError(t, err)
	assert.True(t, role.Elevated())
}

func TestServiceAssignRoleValidates(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil)
	assert.ErrorIs(t, svc.AssignRole(context.Background(), 1, 0, 3), ErrInvalidRole)
	assert.ErrorIs(t, svc.AssignRole(context.Background(), 1, 3, 99), ErrNotFound)
}

func TestServiceAuditFailureDoesNotFail(t *testing.T) {
	svc := NewService(newMemoryRepo(), &auditSpy{err: errors.New("db down")}, nil)
	_, err := svc.CreateRole(context.Background(), 1, RoleInput{Name: "Temp"})
	assert.NoError(t, err)
}
