package employees

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

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
	"code":       "e.code",
	"name":       "e.full_name",
	"email":      "e.email",
	"department": "d.name",
	"position":   "e.position",
	"status":     "e.status",
	"hired_at":   "e.hired_at",
}

const selectEmployee = `SELECT e.id, e.code, e.full_name, e.email, e.department_id, COALESCE(d.name, ''), e.position, e.status, e.hired_at, e.created_at, e.updated_at
FROM employees e LEFT JOIN departments d ON d.id = e.department_id`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Code, &e.FullName, &e.Email, &e.DepartmentID, &e.DepartmentName, &e.Position, &e.Status, &e.HiredAt, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

// whereClause builds the filter predicate for st. Unknown filters are ignored.
func whereClause(st table.State) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if v := st.Filters["name"]; v != "" {
		args = append(args, db.ContainsPattern(v))
		conds = append(conds, fmt.Sprintf("(e.full_name ILIKE $%d OR e.code ILIKE $%d)", len(args), len(args)))
	}
	if v := st.Filters["department_id"]; v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			args = append(args, id)
			conds = append(conds, fmt.Sprintf("e.department_id = $%d", len(args)))
		}
	}
	if v := st.Filters["status"]; v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("e.status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(st table.State) string {
	col, ok := sortColumns[st.SortBy]
	if !ok {
		col = "e.full_name"
	}
	dir := "ASC"
	if st.SortDesc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", e.id ASC"
}

// List returns one page of employees matching st and the total match count.
// Count and page are queried concurrently.
func (r *Repository) List(ctx context.Context, st table.State) ([]Employee, int, error) {
	where, args := whereClause(st)

	var (
		rows  []Employee
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM employees e`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), st.PageSize, st.Offset())
		query := selectEmployee + where + orderClause(st) +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(pageArgs)-1, len(pageArgs))
		result, err := r.pool.Query(gctx, query, pageArgs...)
		if err != nil {
			return err
		}
		rows, err = pgx.CollectRows(result, func(row pgx.CollectableRow) (Employee, error) {
			return scanEmployee(row)
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("employees: list: %w", err)
	}
	return rows, total, nil
}

// Get fetches a single employee.
func (r *Repository) Get(ctx context.Context, id int64) (Employee, error) {
	e, err := scanEmployee(r.pool.QueryRow(ctx, selectEmployee+` WHERE e.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Employee{}, ErrNotFound
		}
		return Employee{}, err
	}
	return e, nil
}

// Create inserts an employee.
func (r *Repository) Create(ctx context.Context, in Input) (Employee, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO employees (code, full_name, email, department_id, position, status, hired_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		in.Code, in.FullName, in.Email, in.DepartmentID, in.Position, in.Status, in.HiredAt).Scan(&id)
	if err != nil {
		return Employee{}, mapWriteError(err)
	}
	return r.Get(ctx, id)
}

// Update overwrites an employee.
func (r *Repository) Update(ctx context.Context, id int64, in Input) (Employee, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE employees SET code = $2, full_name = $3, email = $4, department_id = $5, position = $6, status = $7, hired_at = $8, updated_at = NOW()
		 WHERE id = $1`,
		id, in.Code, in.FullName, in.Email, in.DepartmentID, in.Position, in.Status, in.HiredAt)
	if err != nil {
		return Employee{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return Employee{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Delete removes an employee.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return ErrDuplicate
		case "23503":
			return fmt.Errorf("%w: unknown department", ErrInvalid)
		}
	}
	return err
}
