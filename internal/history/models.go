package history

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Change marks what happened to a record.
type Change string

const (
	Created Change = "+"
	Changed Change = "~"
	Deleted Change = "-"
)

// Entry is one historical record of a mutation. Snapshot holds the record as
// it was after the change, or before it for deletes.
type Entry struct {
	ID            uuid.UUID       `json:"id"`
	Kind          string          `json:"kind"`
	RecordID      uuid.UUID       `json:"record_id"`
	Change        Change          `json:"change"`
	ChangedBy     string          `json:"changed_by"`
	ChangedAt     time.Time       `json:"changed_at"`
	RequestID     string          `json:"request_id,omitempty"`
	Client        string          `json:"client,omitempty"`
	ChangedFields []string        `json:"changed_fields"`
	Snapshot      json.RawMessage `json:"snapshot"`
}
