package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/peopledesk/peopledesk/internal/platform/db"
	"github.com/peopledesk/peopledesk/internal/table"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var sortColumns = map[string]string{
	"email": "u.email",
	"name":  "u.name",
	"role":  "r.name",
}

// ListUsers returns one page of users with their role.
func (r *Repository) ListUsers(ctx context.Context, st table.State) ([]User, int, error) {
	var (
		conds []string
		args  []any
	)
	if v := st.Filters["email"]; v != "" {
		args = append(args, db.ContainsPattern(v))
		conds = append(conds, fmt.Sprintf("u.email ILIKE $%d", len(args)))
	}
	if v := st.Filters["role"]; v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("r.name = $%d", len(args)))
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	from := ` FROM users u LEFT JOIN user_roles ur ON ur.user_id = u.id LEFT JOIN roles r ON r.id = ur.role_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+from+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	order, ok := sortColumns[st.SortBy]
	if !ok {
		order = "u.email"
	}
	if st.SortDesc {
		order += " DESC"
	}
	args = append(args, st.PageSize, st.Offset())
	rows, err := r.pool.Query(ctx,
		`SELECT u.id, u.email, u.name, u.is_active, r.id, COALESCE(r.name, ''), u.created_at, u.updated_at`+from+where+
			` ORDER BY `+order+`, u.id`+fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args)),
		args...)
	if err != nil {
		return nil, 0, err
	}
	users, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (User, error) {
		var u User
		err := row.Scan(&u.ID, &u.Email, &u.Name, &u.IsActive, &u.RoleID, &u.RoleName, &u.CreatedAt, &u.UpdatedAt)
		return u, err
	})
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}
