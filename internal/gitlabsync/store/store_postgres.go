package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eam/internal/gitlabsync/models"
	"eam/internal/platform/postgres"
	"eam/pkg/platform/sentinel"
	"eam/pkg/platform/tx"
)

const jobColumns = `id, kind, status, total, processed, percent, logs, errors,
	cancel_requested, requested_by, created_at, started_at, finished_at`

// Postgres persists sync jobs in the sync_jobs table.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Create(ctx context.Context, job *models.Job) error {
	query := `INSERT INTO sync_jobs (` + jobColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		job.ID, job.Kind, job.Status, job.Total, job.Processed, job.Percent,
		pq.Array(nonNil(job.Logs)), pq.Array(nonNil(job.Errors)),
		job.CancelRequested, job.RequestedBy, job.CreatedAt, job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("insert sync job: %w", err)
	}
	return nil
}

// Save writes progress and status. The cancel flag is owned by RequestCancel.
func (s *Postgres) Save(ctx context.Context, job *models.Job) error {
	query := `UPDATE sync_jobs SET status = $2, total = $3, processed = $4, percent = $5,
		logs = $6, errors = $7, started_at = $8, finished_at = $9
		WHERE id = $1`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		job.ID, job.Status, job.Total, job.Processed, job.Percent,
		pq.Array(nonNil(job.Logs)), pq.Array(nonNil(job.Errors)), job.StartedAt, job.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save sync job: %w", err)
	}
	return requireRow(res)
}

func (s *Postgres) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs WHERE id = $1`
	job, err := scanJob(tx.Executor(ctx, s.db).QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find sync job: %w", err)
	}
	return job, nil
}

func (s *Postgres) List(ctx context.Context, limit int) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM sync_jobs ORDER BY created_at DESC, id ASC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list sync jobs: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Job, 0)
	for rows.Next() {
		job, err := scanJob(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sync job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sync jobs: %w", err)
	}
	return out, nil
}

func (s *Postgres) RequestCancel(ctx context.Context, id uuid.UUID) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE sync_jobs SET cancel_requested = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("request cancel: %w", err)
	}
	return requireRow(res)
}

// FailUnfinished fails the pending and running jobs of the given kinds. The
// error list keeps its last models.MaxErrorLines entries.
func (s *Postgres) FailUnfinished(ctx context.Context, kinds []models.Kind, reason string, at time.Time) (int, error) {
	names := make([]string, 0, len(kinds))
	for _, k := range kinds {
		names = append(names, string(k))
	}
	query := `UPDATE sync_jobs
		SET status = $1, finished_at = $2,
			errors = (array_append(errors, $3::text))[greatest(cardinality(errors) + 2 - $4::int, 1):]
		WHERE status IN ($5, $6) AND kind = ANY($7)`
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx, query,
		models.StatusFailed, at, reason, models.MaxErrorLines,
		models.StatusPending, models.StatusRunning, pq.Array(names))
	if err != nil {
		return 0, fmt.Errorf("fail unfinished sync jobs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func scanJob(scan func(dest ...any) error) (*models.Job, error) {
	var job models.Job
	err := scan(&job.ID, &job.Kind, &job.Status, &job.Total, &job.Processed, &job.Percent,
		pq.Array(&job.Logs), pq.Array(&job.Errors),
		&job.CancelRequested, &job.RequestedBy, &job.CreatedAt, &job.StartedAt, &job.FinishedAt)
	if err != nil {
		return nil, err
	}
	job.Logs = nonNil(job.Logs)
	job.Errors = nonNil(job.Errors)
	return &job, nil
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

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
