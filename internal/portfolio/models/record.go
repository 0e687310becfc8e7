// Package models defines the portfolio entities tracked by eam and the
// Record contract the generic stores, services and handlers are written against.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names an entity type. It doubles as the URL segment and history kind.
type Kind string

const (
	KindApplication Kind = "applications"
	KindProposal    Kind = "proposals"
	KindApproval    Kind = "approvals"
	KindEstimation  Kind = "estimations"
	KindMeeting     Kind = "meetings"
	KindAction      Kind = "actions"
)

// Kinds lists every portfolio kind in dependency order.
var Kinds = []Kind{KindApplication, KindProposal, KindApproval, KindEstimation, KindMeeting, KindAction}

// Base carries the bookkeeping columns shared by every entity.
type Base struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Meta exposes the bookkeeping fields for generic code.
func (b *Base) Meta() *Base { return b }

// Reference is a nullable foreign key held by a record. Target points at the
// record's field so generic code can read and clear it.
type Reference struct {
	Field  string
	Kind   Kind
	Target **uuid.UUID
}

// ID returns the referenced id, if set.
func (r Reference) ID() (uuid.UUID, bool) {
	if r.Target == nil || *r.Target == nil {
		return uuid.Nil, false
	}
	return **r.Target, true
}

// Record is implemented by a pointer to each entity.
type Record interface {
	Kind() Kind
	Meta() *Base
	// Label is the human-readable name used in HTML views and logs.
	Label() string
	// References returns pointers to the record's foreign keys so they can be
	// checked on write and cleared when the target is deleted.
	References() []Reference
	// FilterValue returns the string form of a filterable field.
	FilterValue(key string) (string, bool)
	// SearchText is matched case-insensitively against the list "q" parameter.
	SearchText() string
	// UniqueKey returns the field and normalised value that must be unique
	// across the kind, or empty strings when the kind has none.
	UniqueKey() (field, value string)
	// Normalize trims input and fills defaults before validation.
	Normalize()
}

// Detach clears every reference of rec that points at (kind, id) and reports
// whether anything changed.
func Detach(rec Record, kind Kind, id uuid.UUID) bool {
	changed := false
	for _, ref := range rec.References() {
		if got, ok := ref.ID(); ok && ref.Kind == kind && got == id {
			*ref.Target = nil
			changed = true
		}
	}
	return changed
}

func uuidString(id *uuid.UUID) string {
	if id == nil || *id == uuid.Nil {
		return ""
	}
	return id.String()
}

// normalizeRef turns the zero UUID into a nil reference.
func normalizeRef(id **uuid.UUID) {
	if *id != nil && **id == uuid.Nil {
		*id = nil
	}
}

func joinSearch(parts ...string) string {
	return strings.ToLower(strings.Join(parts, " "))
}

// Entity constrains generic code to pointer-to-entity types.
type Entity[T any] interface {
	*T
	Record
	// Clone returns a deep copy of the record.
	Clone() *T
}
