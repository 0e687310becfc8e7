package mirror

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"eam/internal/portfolio/store"
	"eam/pkg/platform/tx"
)

// Postgres upserts mirrored rows on their natural key.
type Postgres[T any] struct {
	db     *sql.DB
	kind   Kind[T]
	upsert string
	now    func() time.Time
}

func NewPostgres[T any](db *sql.DB, kind Kind[T]) *Postgres[T] {
	return &Postgres[T]{
		db:     db,
		kind:   kind,
		upsert: upsertQuery(kind),
		now:    func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *Postgres[T]) Kind() Kind[T] { return s.kind }

func (s *Postgres[T]) Upsert(ctx context.Context, items []T) (int, error) {
	at := s.now()
	exec := tx.Executor(ctx, s.db)
	for i := range items {
		row := items[i]
		s.kind.Stamp(&row, at)
		if _, err := exec.ExecContext(ctx, s.upsert, s.kind.Values(&row)...); err != nil {
			return i, fmt.Errorf("upsert %s: %w", s.kind.Table, err)
		}
	}
	return len(items), nil
}

func (s *Postgres[T]) List(ctx context.Context, q store.Query) ([]T, int, error) {
	q = q.Normalized()
	where, args, err := s.where(q.Filters)
	if err != nil {
		return nil, 0, err
	}
	exec := tx.Executor(ctx, s.db)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.kind.Table, where)
	if err := exec.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", s.kind.Table, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY %s`,
		strings.Join(s.kind.Columns, ", "), s.kind.Table, where, s.kind.Order)
	if !q.All {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.PerPage, q.Offset())
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", s.kind.Table, err)
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var row T
		if err := rows.Scan(s.kind.Fields(&row)...); err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", s.kind.Table, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", s.kind.Table, err)
	}
	return out, total, nil
}

func (s *Postgres[T]) where(filters map[string]string) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for key, value := range filters {
		col, ok := s.kind.Filters[key]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter %q for %s", key, s.kind.Name)
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("LOWER(COALESCE(%s::text, '')) = LOWER($%d)", col, len(args)))
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func upsertQuery[T any](kind Kind[T]) string {
	key := make(map[string]bool, len(kind.Key))
	for _, col := range kind.Key {
		key[col] = true
	}
	params := make([]string, len(kind.Columns))
	sets := make([]string, 0, len(kind.Columns))
	for i, col := range kind.Columns {
		params[i] = fmt.Sprintf("$%d", i+1)
		if !key[col] {
			sets = append(sets, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
		}
	}
	return fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s`,
		kind.Table,
		strings.Join(kind.Columns, ", "),
		strings.Join(params, ", "),
		strings.Join(kind.Key, ", "),
		strings.Join(sets, ", "),
	)
}
