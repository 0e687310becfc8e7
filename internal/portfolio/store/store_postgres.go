package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"eam/internal/platform/postgres"
	"eam/internal/portfolio/models"
	"eam/pkg/platform/sentinel"
	"eam/pkg/platform/tx"
)

// Table maps an entity onto its PostgreSQL table. Columns excludes the
// id, created_at and updated_at bookkeeping columns, which every table has.
type Table[T any] struct {
	Name    string
	Columns []string
	// Values returns the column values of rec in Columns order.
	Values func(rec *T) []any
	// Fields returns scan destinations of rec in Columns order.
	Fields func(rec *T) []any
	// Filters maps filter keys onto columns.
	Filters map[string]string
	// Search lists the text columns matched by Query.Search.
	Search []string
}

// Postgres persists records of one kind through a Table descriptor.
// Foreign key clean-up is left to ON DELETE SET NULL in the schema.
type Postgres[T any, P models.Entity[T]] struct {
	db    *sql.DB
	table Table[T]
}

func NewPostgres[T any, P models.Entity[T]](db *sql.DB, table Table[T]) *Postgres[T, P] {
	return &Postgres[T, P]{db: db, table: table}
}

func (s *Postgres[T, P]) Create(ctx context.Context, rec P) error {
	meta := rec.Meta()
	cols := append([]string{"id", "created_at", "updated_at"}, s.table.Columns...)
	args := append([]any{meta.ID, meta.CreatedAt, meta.UpdatedAt}, s.table.Values((*T)(rec))...)

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`,
		s.table.Name, strings.Join(cols, ", "), placeholders(1, len(cols)))
	if _, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, args...); err != nil {
		return s.translate("insert", err)
	}
	return nil
}

func (s *Postgres[T, P]) Update(ctx context.Context, rec P) error {
	meta := rec.Meta()
	sets := make([]string, 0, len(s.table.Columns)+1)
	sets = append(sets, "updated_at = $2")
	for i, col := range s.table.Columns {
		sets = append(sets, fmt.Sprintf("%s = $%d", col, i+3))
	}
	args := append([]any{meta.ID, meta.UpdatedAt}, s.table.Values((*T)(rec))...)

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, s.table.Name, strings.Join(sets, ", "))
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, args...)
	if err != nil {
		return s.translate("update", err)
	}
	return requireRow(res)
}

func (s *Postgres[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, s.table.Name)
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query, id)
	if err != nil {
		return s.translate("delete", err)
	}
	return requireRow(res)
}

func (s *Postgres[T, P]) FindByID(ctx context.Context, id uuid.UUID) (P, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, s.selectColumns(), s.table.Name)
	rec, err := s.scan(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find %s: %w", s.table.Name, err)
	}
	return rec, nil
}

func (s *Postgres[T, P]) List(ctx context.Context, q Query) ([]P, int, error) {
	q = q.Normalized()
	where, args, err := s.where(q)
	if err != nil {
		return nil, 0, err
	}
	exec := tx.Executor(ctx, s.db)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s%s`, s.table.Name, where)
	if err := exec.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count %s: %w", s.table.Name, err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY created_at DESC, id ASC`,
		s.selectColumns(), s.table.Name, where)
	if !q.All {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", q.PerPage, q.Offset())
	}
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list %s: %w", s.table.Name, err)
	}
	defer rows.Close()

	out := make([]P, 0, q.PerPage)
	for rows.Next() {
		rec, err := s.scan(rows.Scan)
		if err != nil {
			return nil, 0, fmt.Errorf("scan %s: %w", s.table.Name, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate %s: %w", s.table.Name, err)
	}
	return out, total, nil
}

// DetachReferences is a no-op: the schema declares ON DELETE SET NULL.
func (s *Postgres[T, P]) DetachReferences(context.Context, models.Kind, uuid.UUID) error {
	return nil
}

func (s *Postgres[T, P]) where(q Query) (string, []any, error) {
	var (
		clauses []string
		args    []any
	)
	for key, value := range q.Filters {
		col, ok := s.table.Filters[key]
		if !ok {
			return "", nil, fmt.Errorf("unknown filter %q for %s", key, s.table.Name)
		}
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("LOWER(COALESCE(%s::text, '')) = LOWER($%d)", col, len(args)))
	}
	if q.Search != "" && len(s.table.Search) > 0 {
		args = append(args, "%"+escapeLike(strings.ToLower(q.Search))+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(concat_ws(' ', %s)) LIKE $%d",
			strings.Join(s.table.Search, ", "), len(args)))
	}
	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (s *Postgres[T, P]) selectColumns() string {
	return "id, created_at, updated_at, " + strings.Join(s.table.Columns, ", ")
}

func (s *Postgres[T, P]) scan(scan func(dest ...any) error) (P, error) {
	rec := new(T)
	meta := P(rec).Meta()
	dest := append([]any{&meta.ID, &meta.CreatedAt, &meta.UpdatedAt}, s.table.Fields(rec)...)
	if err := scan(dest...); err != nil {
		return nil, err
	}
	return P(rec), nil
}

func (s *Postgres[T, P]) translate(op string, err error) error {
	switch {
	case postgres.IsUniqueViolation(err):
		return sentinel.ErrAlreadyUsed
	case postgres.IsForeignKeyViolation(err):
		return sentinel.ErrReferenceMissing
	}
	return fmt.Errorf("%s %s: %w", op, s.table.Name, err)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
