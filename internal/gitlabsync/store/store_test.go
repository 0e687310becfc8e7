package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"eam/internal/gitlabsync/models"
	"eam/pkg/platform/sentinel"
)

type jobStore interface {
	Create(ctx context.Context, job *models.Job) error
	Save(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context, limit int) ([]*models.Job, error)
	RequestCancel(ctx context.Context, id uuid.UUID) error
	FailUnfinished(ctx context.Context, kinds []models.Kind, reason string, at time.Time) (int, error)
}

// JobStoreSuite runs against every job store; newStore returns an empty one.
type JobStoreSuite struct {
	suite.Suite
	newStore func() jobStore
	store    jobStore
	ctx      context.Context
	base     time.Time
}

func TestInMemoryJobStore(t *testing.T) {
	suite.Run(t, &JobStoreSuite{newStore: func() jobStore { return NewInMemory() }})
}

func (s *JobStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore()
	s.base = time.Date(2026, 4, 1, 8, 0, 0, 0, time.UTC)
}

func (s *JobStoreSuite) job(kind models.Kind, offset time.Duration) *models.Job {
	job := models.NewJob(kind, "admin", s.base.Add(offset))
	s.Require().NoError(s.store.Create(s.ctx, job))
	return job
}

func (s *JobStoreSuite) TestCreateAndFind() {
	job := s.job(models.KindIssues, 0)

	found, err := s.store.FindByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Equal(models.KindIssues, found.Kind)
	s.Equal(models.StatusPending, found.Status)
	s.Equal("admin", found.RequestedBy)
	s.Empty(found.Logs)
	s.NotNil(found.Logs)
	s.True(s.base.Equal(found.CreatedAt))

	s.ErrorIs(s.store.Create(s.ctx, job), sentinel.ErrAlreadyUsed)
	_, err = s.store.FindByID(s.ctx, uuid.New())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *JobStoreSuite) TestSaveKeepsCancelFlag() {
	job := s.job(models.KindProjects, 0)
	s.Require().NoError(s.store.RequestCancel(s.ctx, job.ID))

	started := s.base.Add(time.Second)
	job.Status = models.StatusRunning
	job.StartedAt = &started
	job.SetTotal(4)
	job.Advance(1)
	job.Logf(started, "page %d", 1)
	s.Require().NoError(s.store.Save(s.ctx, job))

	found, err := s.store.FindByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.True(found.CancelRequested)
	s.Equal(models.StatusRunning, found.Status)
	s.Equal(25, found.Percent)
	s.Equal([]string{"2026-04-01T08:00:01Z page 1"}, found.Logs)
	s.Require().NotNil(found.StartedAt)
	s.True(started.Equal(*found.StartedAt))

	s.ErrorIs(s.store.Save(s.ctx, models.NewJob(models.KindJobs, "x", s.base)), sentinel.ErrNotFound)
	s.ErrorIs(s.store.RequestCancel(s.ctx, uuid.New()), sentinel.ErrNotFound)
}

func (s *JobStoreSuite) TestListNewestFirst() {
	old := s.job(models.KindGroups, 0)
	mid := s.job(models.KindProjects, time.Minute)
	latest := s.job(models.KindIssues, 2*time.Minute)

	jobs, err := s.store.List(s.ctx, 0)
	s.Require().NoError(err)
	s.Require().Len(jobs, 3)
	s.Equal([]uuid.UUID{latest.ID, mid.ID, old.ID}, []uuid.UUID{jobs[0].ID, jobs[1].ID, jobs[2].ID})

	jobs, err = s.store.List(s.ctx, 2)
	s.Require().NoError(err)
	s.Len(jobs, 2)
}

func (s *JobStoreSuite) TestFailUnfinished() {
	pending := s.job(models.KindGroups, 0)
	done := s.job(models.KindProjects, time.Minute)
	done.Finish(models.StatusCompleted, s.base.Add(2*time.Minute))
	s.Require().NoError(s.store.Save(s.ctx, done))
	elsewhere := s.job(models.KindIssues, 3*time.Minute)

	n, err := s.store.FailUnfinished(s.ctx, []models.Kind{models.KindGroups, models.KindProjects},
		"interrupted", s.base.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	found, err := s.store.FindByID(s.ctx, elsewhere.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, found.Status, "kinds outside the list are left alone")

	found, err = s.store.FindByID(s.ctx, pending.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusFailed, found.Status)
	s.Equal([]string{"interrupted"}, found.Errors)
	s.Require().NotNil(found.FinishedAt)

	found, err = s.store.FindByID(s.ctx, done.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, found.Status)
	s.Empty(found.Errors)
}

func (s *JobStoreSuite) TestFailUnfinishedCapsErrors() {
	job := s.job(models.KindCommits, 0)
	for i := range models.MaxErrorLines {
		job.AddError(fmt.Sprintf("project %d", i))
	}
	s.Require().NoError(s.store.Save(s.ctx, job))

	n, err := s.store.FailUnfinished(s.ctx, []models.Kind{models.KindCommits}, "interrupted", s.base.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(1, n)

	found, err := s.store.FindByID(s.ctx, job.ID)
	s.Require().NoError(err)
	s.Require().Len(found.Errors, models.MaxErrorLines)
	s.Equal("project 1", found.Errors[0])
	s.Equal("interrupted", found.Errors[len(found.Errors)-1])
}

func TestInMemoryReturnsCopies(t *testing.T) {
	st := NewInMemory()
	job := models.NewJob(models.KindBranches, "admin", time.Now())
	if err := st.Create(context.Background(), job); err != nil {
		t.Fatal(err)
	}
	job.Logs = append(job.Logs, "local only")

	found, err := st.FindByID(context.Background(), job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(found.Logs) != 0 {
		t.Fatalf("stored job shares its log slice: %v", found.Logs)
	}
}
