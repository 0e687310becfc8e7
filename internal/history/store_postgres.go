package history

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eam/pkg/platform/tx"
)

// PostgresStore writes entries through the transaction carried by ctx, so an
// entry commits or rolls back with the mutation it describes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry Entry) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO history (id, kind, record_id, change, changed_by, changed_at, request_id, client, changed_fields, snapshot)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.Kind, entry.RecordID, string(entry.Change), entry.ChangedBy, entry.ChangedAt,
		entry.RequestID, entry.Client, pq.Array(entry.ChangedFields), string(entry.Snapshot),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByRecord(ctx context.Context, kind string, recordID uuid.UUID) ([]Entry, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT id, kind, record_id, change, changed_by, changed_at, request_id, client, changed_fields, snapshot
		FROM history
		WHERE kind = $1 AND record_id = $2
		ORDER BY changed_at DESC`, kind, recordID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			entry    Entry
			change   string
			snapshot []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Kind, &entry.RecordID, &change, &entry.ChangedBy,
			&entry.ChangedAt, &entry.RequestID, &entry.Client, pq.Array(&entry.ChangedFields), &snapshot); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Change = Change(change)
		entry.Snapshot = snapshot
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return out, nil
}
