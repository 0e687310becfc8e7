package mirror

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"eam/internal/portfolio/store"
)

// InMemory keeps mirrored rows in a map keyed by natural key.
type InMemory[T any] struct {
	kind Kind[T]
	mu   sync.RWMutex
	rows map[string]T
	now  func() time.Time
}

func NewInMemory[T any](kind Kind[T]) *InMemory[T] {
	return &InMemory[T]{
		kind: kind,
		rows: make(map[string]T),
		now:  func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
}

func (s *InMemory[T]) Kind() Kind[T] { return s.kind }

func (s *InMemory[T]) Upsert(_ context.Context, items []T) (int, error) {
	at := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		row := items[i]
		s.kind.Stamp(&row, at)
		s.rows[s.kind.KeyOf(&row)] = row
	}
	return len(items), nil
}

func (s *InMemory[T]) List(_ context.Context, q store.Query) ([]T, int, error) {
	q = q.Normalized()
	for key := range q.Filters {
		if !s.kind.Filterable(key) {
			return nil, 0, fmt.Errorf("unknown filter %q for %s", key, s.kind.Name)
		}
	}

	s.mu.RLock()
	matched := make([]T, 0, len(s.rows))
	for _, row := range s.rows {
		if s.matches(&row, q.Filters) {
			matched = append(matched, row)
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b T) int {
		switch {
		case s.kind.Less(&a, &b):
			return -1
		case s.kind.Less(&b, &a):
			return 1
		}
		return 0
	})
	total := len(matched)
	start, end := q.Window(total)
	return matched[start:end], total, nil
}

func (s *InMemory[T]) matches(row *T, filters map[string]string) bool {
	for key, want := range filters {
		if !strings.EqualFold(s.kind.Filter(row, key), want) {
			return false
		}
	}
	return true
}
