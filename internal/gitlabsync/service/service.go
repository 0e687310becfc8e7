// Package service runs GitLab sync jobs. Each job runs in its own goroutine
// behind a per-kind lock so that two jobs of the same kind never overlap.
// The lock is extended while the job runs; a job whose lock is lost stops.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"eam/internal/gitlabsync/lock"
	"eam/internal/gitlabsync/models"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/sentinel"
	"eam/pkg/requestcontext"
)

const (
	listLimit        = 100
	interruptedError = "interrupted: the server stopped while the job was running"
)

type Service struct {
	jobs    JobStore
	runner  *Runner
	locker  lock.Locker
	lockTTL time.Duration
	options

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup
}

// NewService wires the job API. A nil runner disables starting jobs while
// keeping the job history readable.
func NewService(jobs JobStore, runner *Runner, locker lock.Locker, lockTTL time.Duration, opts ...Option) *Service {
	root, stop := context.WithCancel(context.Background())
	return &Service{
		jobs:    jobs,
		runner:  runner,
		locker:  locker,
		lockTTL: lockTTL,
		options: buildOptions(opts),
		root:    root,
		stop:    stop,
	}
}

// Start creates a job and runs it in the background.
func (s *Service) Start(ctx context.Context, rawKind string) (*models.Job, error) {
	job, lease, err := s.prepare(ctx, rawKind)
	if err != nil {
		return nil, err
	}
	snapshot := job.Clone()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(s.root, job, lease)
	}()
	return snapshot, nil
}

// Run creates a job and runs it on the caller's goroutine. Used by the CLI.
func (s *Service) Run(ctx context.Context, rawKind string) (*models.Job, error) {
	job, lease, err := s.prepare(ctx, rawKind)
	if err != nil {
		return nil, err
	}
	return s.run(ctx, job, lease).Clone(), nil
}

// run executes job while keeping its lease alive, then releases the lease.
func (s *Service) run(ctx context.Context, job *models.Job, lease lock.Lease) *models.Job {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	var heartbeat sync.WaitGroup
	heartbeat.Add(1)
	go func() {
		defer heartbeat.Done()
		s.keepAlive(ctx, job, lease, cancel)
	}()

	done := s.runner.Run(ctx, job)
	cancel(nil)
	heartbeat.Wait()
	s.release(lease, job)
	return done
}

// keepAlive extends the lease every third of its ttl until ctx is done. A
// lost lease cancels the job with lock.ErrLost as the cause.
func (s *Service) keepAlive(ctx context.Context, job *models.Job, lease lock.Lease, cancel context.CancelCauseFunc) {
	interval := s.lockTTL / 3
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := lease.Extend(ctx, s.lockTTL)
		switch {
		case err == nil, ctx.Err() != nil:
		case errors.Is(err, lock.ErrLost):
			s.logger.ErrorContext(ctx, "sync lock lost, stopping job", "job_id", job.ID, "kind", job.Kind)
			cancel(err)
			return
		default:
			s.logger.WarnContext(ctx, "failed to extend sync lock", "job_id", job.ID, "kind", job.Kind, "error", err)
		}
	}
}

func (s *Service) prepare(ctx context.Context, rawKind string) (*models.Job, lock.Lease, error) {
	if s.runner == nil {
		return nil, nil, dErrors.New(dErrors.CodeUnavailable, "GitLab sync is not configured")
	}
	kind, err := models.ParseKind(rawKind)
	if err != nil {
		return nil, nil, dErrors.New(dErrors.CodeBadRequest, err.Error())
	}

	lease, err := s.locker.Acquire(ctx, string(kind), s.lockTTL)
	if err != nil {
		if errors.Is(err, sentinel.ErrLocked) {
			return nil, nil, dErrors.Newf(dErrors.CodeConflict, "a %s sync is already running", kind)
		}
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to acquire sync lock")
	}

	// Holding the lock means no earlier job of this kind is still alive.
	if _, err := s.jobs.FailUnfinished(ctx, []models.Kind{kind}, interruptedError, s.clock()); err != nil {
		_ = lease.Release(context.WithoutCancel(ctx))
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to settle interrupted sync jobs")
	}
	job := models.NewJob(kind, requestcontext.Username(ctx), s.clock())
	if err := s.jobs.Create(ctx, job); err != nil {
		_ = lease.Release(context.WithoutCancel(ctx))
		return nil, nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create sync job")
	}
	s.logger.InfoContext(ctx, "sync job queued",
		"job_id", job.ID,
		"kind", kind,
		"requested_by", job.RequestedBy,
		"request_id", requestcontext.RequestID(ctx),
	)
	return job, lease, nil
}

func (s *Service) release(lease lock.Lease, job *models.Job) {
	if err := lease.Release(context.Background()); err != nil {
		s.logger.Warn("failed to release sync lock", "job_id", job.ID, "kind", job.Kind, "error", err)
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.jobs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "sync job not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load sync job")
	}
	return job, nil
}

// List returns the most recent jobs, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Job, error) {
	jobs, err := s.jobs.List(ctx, listLimit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sync jobs")
	}
	return jobs, nil
}

// Cancel flags a running job; the runner stops at its next checkpoint.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	job, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status.Finished() {
		return nil, dErrors.Newf(dErrors.CodeConflict, "sync job already %s", job.Status)
	}
	if err := s.jobs.RequestCancel(ctx, id); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to cancel sync job")
	}
	job.CancelRequested = true
	s.logger.InfoContext(ctx, "sync job cancel requested",
		"job_id", id,
		"requested_by", requestcontext.Username(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	return job, nil
}

// RecoverInterrupted fails jobs left pending or running by a process that is
// gone. A kind whose lock is still held has a live job on some replica and
// is skipped; a crashed holder's lock lapses after one ttl and the next Start
// of that kind settles its jobs.
func (s *Service) RecoverInterrupted(ctx context.Context) (int, error) {
	total := 0
	for _, kind := range append([]models.Kind{models.KindAll}, models.Sequence...) {
		lease, err := s.locker.Acquire(ctx, string(kind), s.lockTTL)
		if errors.Is(err, sentinel.ErrLocked) {
			s.logger.InfoContext(ctx, "sync lock held, leaving jobs alone", "kind", kind)
			continue
		}
		if err != nil {
			return total, fmt.Errorf("acquire %s lock: %w", kind, err)
		}
		n, err := s.jobs.FailUnfinished(ctx, []models.Kind{kind}, interruptedError, s.clock())
		if relErr := lease.Release(context.WithoutCancel(ctx)); relErr != nil {
			s.logger.WarnContext(ctx, "failed to release sync lock", "kind", kind, "error", relErr)
		}
		if err != nil {
			return total, err
		}
		total += n
	}
	if total > 0 {
		s.logger.WarnContext(ctx, "marked interrupted sync jobs as failed", "count", total)
	}
	return total, nil
}

// Shutdown cancels running jobs and waits for them to record their final state.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
