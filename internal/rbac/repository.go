package rbac

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peopledesk/peopledesk/internal/platform/db"
)

// Repository defines persistence operations for roles and assignments.
type Repository interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, role Role) (Role, error)
	UpdateRole(ctx context.Context, role Role) (Role, error)
	ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error
	DeleteRole(ctx context.Context, id int64) error
	AssignRole(ctx context.Context, userID, roleID int64) error
	RoleForUser(ctx context.Context, userID int64) (Role, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const roleColumns = `id, name, description, super_admin, created_at, updated_at`

func scanRole(row pgx.Row) (Role, error) {
	var role Role
	err := row.Scan(&role.ID, &role.Name, &role.Description, &role.SuperAdmin, &role.CreatedAt, &role.UpdatedAt)
	return role, err
}

// ListRoles returns all roles ordered by name with their permissions.
func (r *PGRepository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	roles, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Role, error) {
		return scanRole(row)
	})
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		return roles, nil
	}
	ids := make([]int64, len(roles))
	for i, role := range roles {
		ids[i] = role.ID
	}
	perms, err := r.permissionsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range roles {
		roles[i].Permissions = perms[roles[i].ID]
	}
	return roles, nil
}

// GetRole fetches a role by ID.
func (r *PGRepository) GetRole(ctx context.Context, id int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	perms, err := r.permissionsFor(ctx, []int64{id})
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms[id]
	return role, nil
}

// CreateRole inserts a role together with its permissions.
func (r *PGRepository) CreateRole(ctx context.Context, role Role) (Role, error) {
	var created Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		created, err = scanRole(tx.QueryRow(ctx,
			`INSERT INTO roles (name, description, super_admin) VALUES ($1, $2, $3) RETURNING `+roleColumns,
			role.Name, role.Description, role.SuperAdmin))
		if err != nil {
			return mapWriteError(err)
		}
		if err := insertPermissions(ctx, tx, created.ID, role.Permissions); err != nil {
			return err
		}
		created.Permissions = role.Permissions
		return nil
	})
	return created, err
}

// UpdateRole updates role metadata. Permissions are left untouched.
func (r *PGRepository) UpdateRole(ctx context.Context, role Role) (Role, error) {
	updated, err := scanRole(r.pool.QueryRow(ctx,
		`UPDATE roles SET name = $2, description = $3, super_admin = $4, updated_at = NOW() WHERE id = $1 RETURNING `+roleColumns,
		role.ID, role.Name, role.Description, role.SuperAdmin))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, mapWriteError(err)
	}
	perms, err := r.permissionsFor(ctx, []int64{updated.ID})
	if err != nil {
		return Role{}, err
	}
	updated.Permissions = perms[updated.ID]
	return updated, nil
}

// ReplacePermissions swaps the whole permission set of a role atomically.
func (r *PGRepository) ReplacePermissions(ctx context.Context, roleID int64, perms []Permission) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `UPDATE roles SET updated_at = NOW() WHERE id = $1`, roleID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		return insertPermissions(ctx, tx, roleID, perms)
	})
}

// DeleteRole removes a role by ID. Returns ErrNotFound if nothing was deleted.
func (r *PGRepository) DeleteRole(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AssignRole sets the single role held by a user.
func (r *PGRepository) AssignRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO user_roles (user_id, role_id) VALUES ($1, $2)
		 ON CONFLICT (user_id) DO UPDATE SET role_id = EXCLUDED.role_id, created_at = NOW()`,
		userID, roleID)
	return mapWriteError(err)
}

// RoleForUser returns the role assigned to a user.
func (r *PGRepository) RoleForUser(ctx context.Context, userID int64) (Role, error) {
	role, err := scanRole(r.pool.QueryRow(ctx,
		`SELECT r.id, r.name, r.description, r.super_admin, r.created_at, r.updated_at
		 FROM roles r JOIN user_roles ur ON ur.role_id = r.id WHERE ur.user_id = $1`, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Role{}, ErrNotFound
		}
		return Role{}, err
	}
	perms, err := r.permissionsFor(ctx, []int64{role.ID})
	if err != nil {
		return Role{}, err
	}
	role.Permissions = perms[role.ID]
	return role, nil
}

func (r *PGRepository) permissionsFor(ctx context.Context, roleIDs []int64) (map[int64][]Permission, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id, resource, actions FROM role_permissions WHERE role_id = ANY($1) ORDER BY role_id, resource`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64][]Permission, len(roleIDs))
	for rows.Next() {
		var (
			roleID   int64
			resource string
			actions  []string
		)
		if err := rows.Scan(&roleID, &resource, &actions); err != nil {
			return nil, err
		}
		perm := Permission{Resource: resource, Actions: make([]Action, 0, len(actions))}
		for _, a := range actions {
			perm.Actions = append(perm.Actions, Action(strings.ToLower(a)))
		}
		out[roleID] = append(out[roleID], perm)
	}
	return out, rows.Err()
}

func insertPermissions(ctx context.Context, tx pgx.Tx, roleID int64, perms []Permission) error {
	if len(perms) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, p := range perms {
		actions := make([]string, len(p.Actions))
		for i, a := range p.Actions {
			actions[i] = string(a)
		}
		batch.Queue(`INSERT INTO role_permissions (role_id, resource, actions) VALUES ($1, $2, $3)`, roleID, p.Resource, actions)
	}
	return mapWriteError(tx.SendBatch(ctx, batch).Close())
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return ErrNotFound
		}
	}
	return err
}

var _ Repository = (*PGRepository)(nil)
