// Package mirror stores the GitLab data copied locally by the sync jobs and
// serves it back to the KPI, scrum and read-only HTTP surfaces.
package mirror

import (
	"slices"
	"strconv"
	"time"
)

// Kind describes how one mirrored GitLab resource is keyed, stored and filtered.
type Kind[T any] struct {
	// Name is the resource name used in routes and sync kinds, e.g. "merge_requests".
	Name  string
	Table string
	// Key lists the natural key columns used for ON CONFLICT.
	Key []string
	// Columns lists every column in Values/Fields order.
	Columns []string
	Values  func(rec *T) []any
	Fields  func(rec *T) []any
	KeyOf   func(rec *T) string
	Stamp   func(rec *T, at time.Time)
	// Filters maps filter keys onto columns.
	Filters map[string]string
	// Filter returns the value of a filter key for in-memory matching.
	Filter func(rec *T, key string) string
	Order  string
	Less   func(a, b *T) bool
}

// Filterable reports whether key is a supported filter.
func (k Kind[T]) Filterable(key string) bool {
	_, ok := k.Filters[key]
	return ok
}

// FilterKeys lists the supported filters in sorted order.
func (k Kind[T]) FilterKeys() []string {
	keys := make([]string, 0, len(k.Filters))
	for key := range k.Filters {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys
}

func itoa(n int) string { return strconv.Itoa(n) }

func optItoa(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// newerFirst orders nil timestamps last, then falls back to the tie-break.
func newerFirst(a, b *time.Time, tie bool) bool {
	switch {
	case a == nil && b == nil:
		return tie
	case a == nil:
		return false
	case b == nil:
		return true
	case a.Equal(*b):
		return tie
	}
	return a.After(*b)
}
