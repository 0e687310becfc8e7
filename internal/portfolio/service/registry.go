package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"eam/internal/portfolio/models"
)

// Member is the slice of a kind's service the registry needs.
type Member interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	DetachReferences(ctx context.Context, kind models.Kind, id uuid.UUID) error
}

// Registry resolves references between kinds. Every Service registers itself
// on construction.
type Registry struct {
	mu      sync.RWMutex
	members map[models.Kind]Member
}

func NewRegistry() *Registry {
	return &Registry{members: make(map[models.Kind]Member)}
}

func (r *Registry) Register(kind models.Kind, m Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.members[kind] = m
}

// Exists reports whether a record of kind with id exists.
func (r *Registry) Exists(ctx context.Context, kind models.Kind, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	m, ok := r.members[kind]
	r.mu.RUnlock()
	if !ok {
		return false, fmt.Errorf("no service registered for %s", kind)
	}
	return m.Exists(ctx, id)
}

// Detach clears references to (kind, id) held by any registered kind.
func (r *Registry) Detach(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	r.mu.RLock()
	members := make([]Member, 0, len(r.members))
	for _, m := range r.members {
		members = append(members, m)
	}
	r.mu.RUnlock()

	for _, m := range members {
		if err := m.DetachReferences(ctx, kind, id); err != nil {
			return err
		}
	}
	return nil
}
