package history

import (
	"context"
	"encoding/json"
	"log/slog"

	"eam/internal/platform/metrics"
)

// Bus publishes serialized entries. The Kafka producer implements it.
type Bus interface {
	Publish(ctx context.Context, key, value []byte) error
}

// Worker drains the recorder's outbox onto the bus. Publication failures are
// logged and counted; the entry is already durable in the store.
type Worker struct {
	bus     Bus
	inbox   <-chan Entry
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewWorker(bus Bus, inbox <-chan Entry, logger *slog.Logger, m *metrics.Metrics) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{bus: bus, inbox: inbox, logger: logger, metrics: m}
}

// Run publishes until ctx is cancelled or the inbox is closed.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case entry, ok := <-w.inbox:
			if !ok {
				return nil
			}
			w.publish(ctx, entry)
		}
	}
}

func (w *Worker) publish(ctx context.Context, entry Entry) {
	value, err := json.Marshal(entry)
	if err != nil {
		w.observe("failed")
		w.logger.ErrorContext(ctx, "marshal history entry", "error", err, "entry_id", entry.ID)
		return
	}
	if err := w.bus.Publish(ctx, []byte(entry.RecordID.String()), value); err != nil {
		w.observe("failed")
		w.logger.WarnContext(ctx, "publish history entry",
			"error", err,
			"kind", entry.Kind,
			"record_id", entry.RecordID,
			"request_id", entry.RequestID,
		)
		return
	}
	w.observe("published")
}

func (w *Worker) observe(outcome string) {
	if w.metrics == nil {
		return
	}
	w.metrics.HistoryPublished.WithLabelValues(outcome).Inc()
}
