package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into coded domain errors:
//   - ErrNotFound: no row for the key
//   - ErrAlreadyUsed: a unique key (application code, username) is taken
//   - ErrReferenceMissing: a foreign key points at a row that does not exist
//   - ErrLocked: a lock held by another owner
//   - ErrUnavailable: backing service temporarily unreachable
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyUsed      = errors.New("already used")
	ErrReferenceMissing = errors.New("referenced record missing")
	ErrLocked           = errors.New("locked")
	ErrUnavailable      = errors.New("unavailable")
)
