// Package history keeps the per-record change log. Entries are written in the
// caller's transaction and, once it commits, handed to a background worker
// for publication.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"eam/internal/platform/metrics"
	"eam/pkg/requestcontext"
)

// Store persists history entries.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	ListByRecord(ctx context.Context, kind string, recordID uuid.UUID) ([]Entry, error)
}

// Recorder builds entries from record snapshots. It is append-only.
type Recorder struct {
	store   Store
	outbox  chan<- Entry
	logger  *slog.Logger
	metrics *metrics.Metrics
}

type Option func(*Recorder)

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) { r.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// WithOutbox hands every stored entry to a publication worker. Entries are
// dropped, never blocked on, when the outbox is full.
func WithOutbox(outbox chan<- Entry) Option {
	return func(r *Recorder) { r.outbox = outbox }
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Record stores an entry for one mutation. before is nil for creates and
// after is nil for deletes.
func (r *Recorder) Record(ctx context.Context, kind string, recordID uuid.UUID, change Change, before, after any) (*Entry, error) {
	snapshotOf := after
	if change == Deleted {
		snapshotOf = before
	}
	snapshot, err := json.Marshal(snapshotOf)
	if err != nil {
		return nil, fmt.Errorf("marshal %s snapshot: %w", kind, err)
	}

	entry := Entry{
		ID:            uuid.New(),
		Kind:          kind,
		RecordID:      recordID,
		Change:        change,
		ChangedBy:     requestcontext.Username(ctx),
		ChangedAt:     requestcontext.Now(ctx),
		RequestID:     requestcontext.RequestID(ctx),
		Client:        ClientSummary(requestcontext.UserAgent(ctx)),
		ChangedFields: []string{},
		Snapshot:      snapshot,
	}
	if change == Changed {
		fields, err := ChangedFields(before, after)
		if err != nil {
			return nil, err
		}
		entry.ChangedFields = fields
	}

	if err := r.store.Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}
	if b := batchFrom(ctx); b != nil {
		b.add(entry)
	} else {
		r.publish(ctx, entry)
	}
	return &entry, nil
}

// Publish hands the entries of a committed batch to the outbox. A nil batch
// is a no-op; discarding a batch is how a rolled-back unit of work drops
// its entries.
func (r *Recorder) Publish(ctx context.Context, b *Batch) {
	for _, entry := range b.Entries() {
		r.publish(ctx, entry)
	}
}

// List returns the history of one record, newest first.
func (r *Recorder) List(ctx context.Context, kind string, recordID uuid.UUID) ([]Entry, error) {
	entries, err := r.store.ListByRecord(ctx, kind, recordID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return entries, nil
}

func (r *Recorder) publish(ctx context.Context, entry Entry) {
	if r.outbox == nil {
		return
	}
	select {
	case r.outbox <- entry:
	default:
		r.observe("dropped")
		r.logger.WarnContext(ctx, "history outbox full, entry not published",
			"kind", entry.Kind,
			"record_id", entry.RecordID,
			"request_id", entry.RequestID,
		)
	}
}

func (r *Recorder) observe(outcome string) {
	if r.metrics == nil {
		return
	}
	r.metrics.HistoryPublished.WithLabelValues(outcome).Inc()
}

// ChangedFields lists the top-level JSON keys whose values differ between
// before and after, ignoring updated_at.
func ChangedFields(before, after any) ([]string, error) {
	a, err := topLevel(before)
	if err != nil {
		return nil, err
	}
	b, err := topLevel(after)
	if err != nil {
		return nil, err
	}
	changed := []string{}
	for key, value := range b {
		if key == "updated_at" {
			continue
		}
		if prev, ok := a[key]; !ok || !bytes.Equal(prev, value) {
			changed = append(changed, key)
		}
	}
	for key := range a {
		if _, ok := b[key]; !ok && key != "updated_at" {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func topLevel(v any) (map[string]json.RawMessage, error) {
	out := map[string]json.RawMessage{}
	if v == nil {
		return out, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for diff: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal for diff: %w", err)
	}
	return out, nil
}

// ClientSummary condenses a User-Agent into "Browser version on OS".
func ClientSummary(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return ""
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		return "bot " + name
	}
	name, version := ua.Browser()
	summary := strings.TrimSpace(name + " " + version)
	if os := ua.OS(); os != "" {
		if summary == "" {
			return os
		}
		summary += " on " + os
	}
	return summary
}
