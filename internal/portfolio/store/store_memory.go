package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"eam/internal/portfolio/models"
	"eam/pkg/platform/sentinel"
)

// InMemory keeps records of one kind in a map. It emulates the relational
// behaviour the postgres store gets from the schema: unique keys and
// ON DELETE SET NULL through DetachReferences. Records are deep-copied on the
// way in and out, so callers never share state with the stored rows.
type InMemory[T any, P models.Entity[T]] struct {
	mu   sync.RWMutex
	rows map[uuid.UUID]T
}

func NewInMemory[T any, P models.Entity[T]]() *InMemory[T, P] {
	return &InMemory[T, P]{rows: make(map[uuid.UUID]T)}
}

func (s *InMemory[T, P]) Create(_ context.Context, rec P) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := rec.Meta().ID
	if _, ok := s.rows[id]; ok {
		return sentinel.ErrAlreadyUsed
	}
	if err := s.checkUnique(rec, id); err != nil {
		return err
	}
	s.rows[id] = *rec.Clone()
	return nil
}

func (s *InMemory[T, P]) Update(_ context.Context, rec P) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := rec.Meta().ID
	if _, ok := s.rows[id]; !ok {
		return sentinel.ErrNotFound
	}
	if err := s.checkUnique(rec, id); err != nil {
		return err
	}
	s.rows[id] = *rec.Clone()
	return nil
}

func (s *InMemory[T, P]) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

func (s *InMemory[T, P]) FindByID(_ context.Context, id uuid.UUID) (P, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.rows[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return P(P(&row).Clone()), nil
}

func (s *InMemory[T, P]) List(_ context.Context, q Query) ([]P, int, error) {
	q = q.Normalized()
	search := strings.ToLower(q.Search)

	s.mu.RLock()
	matched := make([]P, 0, len(s.rows))
	for _, row := range s.rows {
		rec := P(P(&row).Clone())
		if !matches(rec, q.Filters, search) {
			continue
		}
		matched = append(matched, rec)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i].Meta(), matched[j].Meta()
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID.String() < b.ID.String()
		}
		return a.CreatedAt.After(b.CreatedAt)
	})

	start, end := q.Window(len(matched))
	return matched[start:end], len(matched), nil
}

// DetachReferences nulls every reference to (kind, id), mirroring ON DELETE SET NULL.
func (s *InMemory[T, P]) DetachReferences(_ context.Context, kind models.Kind, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, row := range s.rows {
		if models.Detach(P(&row), kind, id) {
			s.rows[key] = row
		}
	}
	return nil
}

func (s *InMemory[T, P]) checkUnique(rec P, self uuid.UUID) error {
	field, value := rec.UniqueKey()
	if field == "" {
		return nil
	}
	for id, row := range s.rows {
		if id == self {
			continue
		}
		if _, other := P(&row).UniqueKey(); other == value {
			return sentinel.ErrAlreadyUsed
		}
	}
	return nil
}

func matches(rec models.Record, filters map[string]string, search string) bool {
	for key, want := range filters {
		got, ok := rec.FilterValue(key)
		if !ok || !strings.EqualFold(got, want) {
			return false
		}
	}
	if search != "" && !strings.Contains(rec.SearchText(), search) {
		return false
	}
	return true
}
