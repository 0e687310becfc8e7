package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eam/internal/gitlab"
	"eam/internal/gitlabsync/models"
	"eam/internal/mirror"
)

// JobStore persists sync jobs.
type JobStore interface {
	Create(ctx context.Context, job *models.Job) error
	Save(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, limit int) ([]*models.Job, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
	FailUnfinished(ctx context.Context, kinds []models.Kind, reason string, at time.Time) (int, error)
}

// RunnerConfig bounds what a sync run fetches.
type RunnerConfig struct {
	// CommitsSince limits commit history; zero fetches everything.
	CommitsSince time.Duration
	// GroupIDs narrows project enumeration to these groups and their subgroups.
	GroupIDs []int
}

var errCancelled = errors.New("sync cancelled")

type pageFunc func(ctx context.Context, page int) (int, gitlab.Page, error)

// Runner executes sync jobs against a GitLab source and the local mirror.
// The job row is saved after every page or project so progress is visible
// while the run is in flight.
type Runner struct {
	source gitlab.Source
	mirror *mirror.Mirror
	jobs   JobStore
	cfg    RunnerConfig
	options
}

func NewRunner(source gitlab.Source, m *mirror.Mirror, jobs JobStore, cfg RunnerConfig, opts ...Option) *Runner {
	return &Runner{
		source:  source,
		mirror:  m,
		jobs:    jobs,
		cfg:     cfg,
		options: buildOptions(opts),
	}
}

// Run executes job to completion and returns it in its terminal state.
func (r *Runner) Run(ctx context.Context, job *models.Job) *models.Job {
	ctx, span := r.tracer.Start(ctx, "gitlabsync.run", trace.WithAttributes(
		attribute.String("sync.kind", string(job.Kind)),
		attribute.String("sync.job_id", job.ID.String()),
	))
	defer span.End()

	if r.metrics != nil {
		r.metrics.SyncJobsRunning.Inc()
		defer r.metrics.SyncJobsRunning.Dec()
	}

	started := r.clock()
	job.Status = models.StatusRunning
	job.StartedAt = &started
	job.Logf(started, "%s sync started by %s", job.Kind, job.RequestedBy)
	r.save(ctx, job)
	r.logger.InfoContext(ctx, "sync job started", "job_id", job.ID, "kind", job.Kind)

	err := r.runKind(ctx, job)
	r.finish(ctx, job, err)

	span.SetAttributes(attribute.String("sync.status", string(job.Status)))
	if job.Status == models.StatusFailed {
		span.SetStatus(codes.Error, "sync failed")
	}
	return job
}

func (r *Runner) runKind(ctx context.Context, job *models.Job) error {
	if job.Kind != models.KindAll {
		return r.sync(ctx, job, job.Kind, true)
	}
	job.ResetProgress(len(models.Sequence))
	for _, kind := range models.Sequence {
		if err := r.checkCancel(ctx, job); err != nil {
			return err
		}
		job.Logf(r.clock(), "starting %s", kind)
		if err := r.sync(ctx, job, kind, false); err != nil {
			return fmt.Errorf("%s: %w", kind, err)
		}
		job.Advance(1)
		r.save(ctx, job)
	}
	return nil
}

func (r *Runner) sync(ctx context.Context, job *models.Job, kind models.Kind, track bool) error {
	switch kind {
	case models.KindGroups:
		return r.pages(ctx, job, track, kind, func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := r.source.ListGroups(ctx, page)
			return upsert(ctx, r.mirror.Groups, items, p, err)
		})
	case models.KindProjects:
		if len(r.cfg.GroupIDs) > 0 {
			return r.each(ctx, job, track, kind, "group", r.cfg.GroupIDs, func(groupID int) pageFunc {
				return func(ctx context.Context, page int) (int, gitlab.Page, error) {
					items, p, err := r.source.ListGroupProjects(ctx, groupID, page)
					return upsert(ctx, r.mirror.Projects, items, p, err)
				}
			})
		}
		return r.pages(ctx, job, track, kind, func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := r.source.ListProjects(ctx, page)
			return upsert(ctx, r.mirror.Projects, items, p, err)
		})
	case models.KindEpics:
		ids, err := r.mirror.GroupIDs(ctx)
		if err != nil {
			return fmt.Errorf("load mirrored groups: %w", err)
		}
		return r.each(ctx, job, track, kind, "group", ids, func(groupID int) pageFunc {
			return func(ctx context.Context, page int) (int, gitlab.Page, error) {
				items, p, err := r.source.ListEpics(ctx, groupID, page)
				return upsert(ctx, r.mirror.Epics, items, p, err)
			}
		})
	default:
		ids, err := r.mirror.ProjectIDs(ctx)
		if err != nil {
			return fmt.Errorf("load mirrored projects: %w", err)
		}
		return r.each(ctx, job, track, kind, "project", ids, func(projectID int) pageFunc {
			return r.projectPages(kind, projectID)
		})
	}
}

func (r *Runner) projectPages(kind models.Kind, projectID int) pageFunc {
	src, m := r.source, r.mirror
	switch kind {
	case models.KindBranches:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListBranches(ctx, projectID, page)
			return upsert(ctx, m.Branches, items, p, err)
		}
	case models.KindCommits:
		var since time.Time
		if r.cfg.CommitsSince > 0 {
			since = r.clock().Add(-r.cfg.CommitsSince)
		}
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListCommits(ctx, projectID, since, page)
			return upsert(ctx, m.Commits, items, p, err)
		}
	case models.KindIssues:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListIssues(ctx, projectID, page)
			return upsert(ctx, m.Issues, items, p, err)
		}
	case models.KindMergeRequests:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListMergeRequests(ctx, projectID, page)
			return upsert(ctx, m.MergeRequests, items, p, err)
		}
	case models.KindPipelines:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListPipelines(ctx, projectID, page)
			return upsert(ctx, m.Pipelines, items, p, err)
		}
	case models.KindJobs:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListJobs(ctx, projectID, page)
			return upsert(ctx, m.Jobs, items, p, err)
		}
	case models.KindMilestones:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListMilestones(ctx, projectID, page)
			return upsert(ctx, m.Milestones, items, p, err)
		}
	case models.KindVulnerabilities:
		return func(ctx context.Context, page int) (int, gitlab.Page, error) {
			items, p, err := src.ListVulnerabilities(ctx, projectID, page)
			return upsert(ctx, m.Vulnerabilities, items, p, err)
		}
	}
	return func(context.Context, int) (int, gitlab.Page, error) {
		return 0, gitlab.Page{}, fmt.Errorf("kind %s is not project scoped", kind)
	}
}

// pages walks a top-level listing. Any failure fails the job.
func (r *Runner) pages(ctx context.Context, job *models.Job, track bool, kind models.Kind, fetch pageFunc) error {
	if track {
		job.ResetProgress(0)
	}
	for page := 1; ; {
		if err := r.checkCancel(ctx, job); err != nil {
			return err
		}
		n, p, err := fetch(ctx, page)
		if err != nil {
			return fmt.Errorf("list %s page %d: %w", kind, page, err)
		}
		r.countUpserted(kind, n)
		if track {
			job.Advance(1)
			total := p.TotalPages
			if total == 0 {
				total = job.Processed
				if !p.Done() {
					total++
				}
			}
			job.SetTotal(total)
		}
		job.Logf(r.clock(), "%s page %d: %d rows", kind, page, n)
		r.save(ctx, job)
		if p.Done() {
			return nil
		}
		page = p.Next
	}
}

// each walks a listing per project or group. Inaccessible scopes are skipped
// and other GitLab failures are recorded before moving on.
func (r *Runner) each(ctx context.Context, job *models.Job, track bool, kind models.Kind, scope string, ids []int, fetchFor func(id int) pageFunc) error {
	if track {
		job.ResetProgress(len(ids))
	}
	job.Logf(r.clock(), "%s: %d %ss to visit", kind, len(ids), scope)
	r.save(ctx, job)

	for _, id := range ids {
		if err := r.checkCancel(ctx, job); err != nil {
			return err
		}
		rows, err := r.drain(ctx, kind, fetchFor(id))
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			gErr, ok := gitlab.AsError(err)
			if !ok {
				return err
			}
			if gErr.Skippable() {
				job.Logf(r.clock(), "skipping %s %d: %s", scope, id, gErr.Type)
				if r.metrics != nil {
					r.metrics.SyncProjectsSkipped.WithLabelValues(string(gErr.Type)).Inc()
				}
			} else {
				msg := fmt.Sprintf("%s %s %d: %v", kind, scope, id, err)
				job.AddError(msg)
				job.Logf(r.clock(), "error: %s", msg)
				r.logger.WarnContext(ctx, "sync scope failed", "job_id", job.ID, "kind", kind, scope+"_id", id, "error", err)
			}
		} else {
			job.Logf(r.clock(), "%s %s %d: %d rows", kind, scope, id, rows)
		}
		if track {
			job.Advance(1)
		}
		r.save(ctx, job)
	}
	return nil
}

func (r *Runner) drain(ctx context.Context, kind models.Kind, fetch pageFunc) (int, error) {
	total := 0
	for page := 1; ; {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		n, p, err := fetch(ctx, page)
		total += n
		r.countUpserted(kind, n)
		if err != nil {
			return total, err
		}
		if p.Done() {
			return total, nil
		}
		page = p.Next
	}
}

func (r *Runner) checkCancel(ctx context.Context, job *models.Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	stored, err := r.jobs.FindByID(ctx, job.ID)
	if err != nil {
		r.logger.WarnContext(ctx, "failed to reload sync job", "job_id", job.ID, "error", err)
		return nil
	}
	if stored.CancelRequested {
		job.CancelRequested = true
		return errCancelled
	}
	return nil
}

func (r *Runner) finish(ctx context.Context, job *models.Job, err error) {
	if cause := context.Cause(ctx); err != nil && cause != nil && !errors.Is(cause, context.Canceled) {
		err = cause
	}
	ctx = context.WithoutCancel(ctx)
	now := r.clock()
	var status models.Status
	switch {
	case err == nil && len(job.Errors) > 0:
		status = models.StatusCompletedWithErrors
		job.Logf(now, "%s sync finished with %d errors", job.Kind, len(job.Errors))
	case err == nil:
		status = models.StatusCompleted
		job.Logf(now, "%s sync finished", job.Kind)
	case errors.Is(err, errCancelled), errors.Is(err, context.Canceled):
		status = models.StatusCancelled
		job.Logf(now, "%s sync cancelled", job.Kind)
	default:
		status = models.StatusFailed
		job.AddError(err.Error())
		job.Logf(now, "%s sync failed: %v", job.Kind, err)
	}
	job.Finish(status, now)
	r.save(ctx, job)

	if r.metrics != nil {
		r.metrics.SyncJobs.WithLabelValues(string(job.Kind), string(status)).Inc()
	}
	attrs := []any{"job_id", job.ID, "kind", job.Kind, "status", status, "errors", len(job.Errors)}
	if status == models.StatusFailed {
		r.logger.ErrorContext(ctx, "sync job failed", append(attrs, "error", err)...)
		return
	}
	r.logger.InfoContext(ctx, "sync job finished", attrs...)
}

func (r *Runner) save(ctx context.Context, job *models.Job) {
	if err := r.jobs.Save(ctx, job); err != nil {
		r.logger.ErrorContext(ctx, "failed to save sync job", "job_id", job.ID, "error", err)
	}
	if r.progress != nil {
		r.progress(job.Clone())
	}
}

func (r *Runner) countUpserted(kind models.Kind, n int) {
	if r.metrics != nil && n > 0 {
		r.metrics.SyncItemsUpserted.WithLabelValues(string(kind)).Add(float64(n))
	}
}

func upsert[T any](ctx context.Context, repo mirror.Repository[T], items []T, p gitlab.Page, err error) (int, gitlab.Page, error) {
	if err != nil {
		return 0, p, err
	}
	n, err := repo.Upsert(ctx, items)
	if err != nil {
		return n, p, fmt.Errorf("store %s: %w", repo.Kind().Name, err)
	}
	return n, p, nil
}
