package departments

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListAll returns every department with its current headcount.
func (r *Repository) ListAll(ctx context.Context) ([]Department, error) {
	rows, err := r.pool.Query(ctx, `SELECT d.id, d.code, d.name, COUNT(e.id), d.created_at
		FROM departments d LEFT JOIN employees e ON e.department_id = d.id AND e.status <> 'terminated'
		GROUP BY d.id ORDER BY d.name`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (Department, error) {
		var d Department
		err := row.Scan(&d.ID, &d.Code, &d.Name, &d.Headcount, &d.CreatedAt)
		return d, err
	})
}

// Create inserts a department.
func (r *Repository) Create(ctx context.Context, in Input) (Department, error) {
	var d Department
	err := r.pool.QueryRow(ctx,
		`INSERT INTO departments (code, name) VALUES ($1, $2) RETURNING id, code, name, created_at`,
		in.Code, in.Name).Scan(&d.ID, &d.Code, &d.Name, &d.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Department{}, ErrDuplicate
		}
		return Department{}, err
	}
	return d, nil
}
