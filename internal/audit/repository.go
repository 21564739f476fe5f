package audit

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/peopledesk/peopledesk/internal/platform/db"
	"github.com/peopledesk/peopledesk/internal/table"
)

// Repository reads audit_logs.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var sortColumns = map[string]string{
	"occurred_at": "a.occurred_at",
	"action":      "a.action",
	"entity":      "a.entity",
	"actor":       "u.email",
}

const selectEntry = `SELECT a.id, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta, a.occurred_at
FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id`

func whereClause(w Window, st table.State) (string, []any) {
	args := []any{w.From, w.To}
	conds := []string{"a.occurred_at BETWEEN $1 AND $2"}
	if v := st.Filters["actor_id"]; v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			args = append(args, id)
			conds = append(conds, fmt.Sprintf("a.actor_id = $%d", len(args)))
		}
	}
	if v := st.Filters["actor"]; v != "" {
		args = append(args, db.ContainsPattern(v))
		conds = append(conds, fmt.Sprintf("u.email ILIKE $%d", len(args)))
	}
	if v := st.Filters["entity"]; v != "" {
		args = append(args, strings.ToLower(v))
		conds = append(conds, fmt.Sprintf("a.entity = $%d", len(args)))
	}
	if v := st.Filters["entity_id"]; v != "" {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf("a.entity_id = $%d", len(args)))
	}
	if v := st.Filters["action"]; v != "" {
		args = append(args, db.PrefixPattern(v))
		conds = append(conds, fmt.Sprintf("a.action LIKE $%d", len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func orderClause(st table.State) string {
	col, ok := sortColumns[st.SortBy]
	if !ok {
		col = "a.occurred_at"
	}
	dir := "ASC"
	if st.SortDesc {
		dir = "DESC"
	}
	return " ORDER BY " + col + " " + dir + ", a.id DESC"
}

// List returns one page of entries inside w matching st and the total count.
func (r *Repository) List(ctx context.Context, w Window, st table.State) ([]Entry, int, error) {
	where, args := whereClause(w, st)

	var (
		rows  []Entry
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return r.pool.QueryRow(gctx, `SELECT COUNT(*) FROM audit_logs a LEFT JOIN users u ON u.id = a.actor_id`+where, args...).Scan(&total)
	})
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), st.PageSize, st.Offset())
		query := selectEntry + where + orderClause(st) +
			fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(pageArgs)-1, len(pageArgs))
		var err error
		rows, err = r.query(gctx, query, pageArgs...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, 0, fmt.Errorf("audit: list: %w", err)
	}
	return rows, total, nil
}

// Export returns every entry inside w matching st, capped at limit rows.
func (r *Repository) Export(ctx context.Context, w Window, st table.State, limit int) ([]Entry, error) {
	where, args := whereClause(w, st)
	args = append(args, limit)
	query := selectEntry + where + orderClause(st) + fmt.Sprintf(" LIMIT $%d", len(args))
	rows, err := r.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: export: %w", err)
	}
	return rows, nil
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	result, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(result, func(row pgx.CollectableRow) (Entry, error) {
		var e Entry
		err := row.Scan(&e.ID, &e.ActorID, &e.ActorEmail, &e.Action, &e.Entity, &e.EntityID, &e.Meta, &e.OccurredAt)
		return e, err
	})
}
