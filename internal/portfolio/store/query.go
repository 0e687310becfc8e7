package store

import "strings"

const (
	DefaultPerPage = 50
	MaxPerPage     = 200
)

// Query describes a filtered, searched, paginated listing.
type Query struct {
	// Filters match exact field values by filter key (see models.Record.FilterValue).
	Filters map[string]string
	// Search is matched case-insensitively against the record's search text.
	Search  string
	Page    int
	PerPage int
	// All disables pagination; used by internal aggregations.
	All bool
}

// Normalized clamps paging and trims the search term.
func (q Query) Normalized() Query {
	q.Search = strings.TrimSpace(q.Search)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// Offset is the number of rows skipped for the current page.
func (q Query) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// Window returns the [start, end) slice bounds of the page within total rows.
func (q Query) Window(total int) (int, int) {
	if q.All {
		return 0, total
	}
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.PerPage
	if end > total {
		end = total
	}
	return start, end
}
