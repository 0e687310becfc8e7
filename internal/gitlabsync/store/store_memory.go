package store

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"eam/internal/gitlabsync/models"
	"eam/pkg/platform/sentinel"
)

// InMemory keeps sync jobs in a map. Stored jobs are copies, so callers may
// keep mutating their own instance.
type InMemory struct {
	mu   sync.RWMutex
	jobs map[uuid.UUID]*models.Job
}

func NewInMemory() *InMemory {
	return &InMemory{jobs: make(map[uuid.UUID]*models.Job)}
}

func (s *InMemory) Create(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return sentinel.ErrAlreadyUsed
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Save writes progress and status. The cancel flag is owned by RequestCancel.
func (s *InMemory) Save(_ context.Context, job *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.jobs[job.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	next := job.Clone()
	next.CancelRequested = stored.CancelRequested
	s.jobs[job.ID] = next
	return nil
}

func (s *InMemory) FindByID(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return job.Clone(), nil
}

func (s *InMemory) List(_ context.Context, limit int) ([]*models.Job, error) {
	s.mu.RLock()
	out := make([]*models.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemory) RequestCancel(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	job.CancelRequested = true
	return nil
}

func (s *InMemory) FailUnfinished(_ context.Context, kinds []models.Kind, reason string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, job := range s.jobs {
		if job.Status.Finished() || !slices.Contains(kinds, job.Kind) {
			continue
		}
		job.AddError(reason)
		job.Finish(models.StatusFailed, at)
		n++
	}
	return n, nil
}
