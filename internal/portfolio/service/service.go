// Package service implements create, read, update and delete for every
// portfolio kind on top of one generic Service.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eam/internal/history"
	"eam/internal/platform/metrics"
	"eam/internal/portfolio/models"
	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/sentinel"
	"eam/pkg/platform/tx"
	"eam/pkg/platform/validation"
	"eam/pkg/requestcontext"
)

type Store[T any, P models.Entity[T]] interface {
	Create(ctx context.Context, rec P) error
	Update(ctx context.Context, rec P) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (P, error)
	List(ctx context.Context, q store.Query) ([]P, int, error)
	DetachReferences(ctx context.Context, kind models.Kind, id uuid.UUID) error
}

type HistoryRecorder interface {
	Record(ctx context.Context, kind string, recordID uuid.UUID, change history.Change, before, after any) (*history.Entry, error)
	List(ctx context.Context, kind string, recordID uuid.UUID) ([]history.Entry, error)
	Publish(ctx context.Context, b *history.Batch)
}

// Hook runs inside the unit of work after a record is written. before is nil
// on create.
type Hook[P any] interface {
	AfterSave(ctx context.Context, before, after P) error
	AfterDelete(ctx context.Context, rec P) error
}

// stamper is implemented by records with derived timestamps. before is the
// stored version, nil on create.
type stamper[P any] interface {
	Stamp(before P, now time.Time)
}

type settings struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
	history HistoryRecorder
	tx      tx.Runner
}

type Option func(*settings)

func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *settings) { s.metrics = m }
}

func WithHistory(h HistoryRecorder) Option {
	return func(s *settings) { s.history = h }
}

// WithTxRunner sets the unit-of-work boundary. Defaults to an in-process lock.
func WithTxRunner(r tx.Runner) Option {
	return func(s *settings) { s.tx = r }
}

// Service manages records of one kind.
type Service[T any, P models.Entity[T]] struct {
	kind     models.Kind
	store    Store[T, P]
	registry *Registry
	hooks    []Hook[P]
	settings
}

// New builds a Service and registers it with registry.
func New[T any, P models.Entity[T]](st Store[T, P], registry *Registry, opts ...Option) *Service[T, P] {
	s := &Service[T, P]{
		kind:     P(new(T)).Kind(),
		store:    st,
		registry: registry,
		settings: settings{logger: slog.Default(), tx: tx.NewLockRunner()},
	}
	for _, opt := range opts {
		opt(&s.settings)
	}
	registry.Register(s.kind, s)
	return s
}

func (s *Service[T, P]) Kind() models.Kind { return s.kind }

// AddHook registers h to run after every save and delete.
func (s *Service[T, P]) AddHook(h Hook[P]) {
	s.hooks = append(s.hooks, h)
}

func (s *Service[T, P]) List(ctx context.Context, q store.Query) ([]P, int, error) {
	sample := P(new(T))
	for key := range q.Filters {
		if _, ok := sample.FilterValue(key); !ok {
			return nil, 0, dErrors.Newf(dErrors.CodeBadRequest, "unknown filter %q", key)
		}
	}
	items, total, err := s.store.List(ctx, q)
	if err != nil {
		return nil, 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list "+string(s.kind))
	}
	return items, total, nil
}

func (s *Service[T, P]) Get(ctx context.Context, id uuid.UUID) (P, error) {
	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translate(err, "load")
	}
	return rec, nil
}

func (s *Service[T, P]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service[T, P]) DetachReferences(ctx context.Context, kind models.Kind, id uuid.UUID) error {
	return s.store.DetachReferences(ctx, kind, id)
}

func (s *Service[T, P]) Create(ctx context.Context, rec P) (P, error) {
	now := timestamp(ctx)
	meta := rec.Meta()
	meta.ID = uuid.New()
	meta.CreatedAt = now
	meta.UpdatedAt = now

	err := s.inTx(ctx, func(ctx context.Context) error {
		if err := s.prepare(ctx, rec, nil, now); err != nil {
			return err
		}
		if err := s.store.Create(ctx, rec); err != nil {
			return s.translateWrite(err, rec, "create")
		}
		if err := s.record(ctx, meta.ID, history.Created, nil, rec); err != nil {
			return err
		}
		for _, h := range s.hooks {
			if err := h.AfterSave(ctx, nil, rec); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation(string(s.kind), "create")
	s.logger.InfoContext(ctx, "record created",
		"kind", s.kind,
		"id", meta.ID,
		"request_id", requestcontext.RequestID(ctx),
	)
	return rec, nil
}

// Update loads the record, applies the caller's changes and saves it. The
// id and created_at survive whatever apply does.
func (s *Service[T, P]) Update(ctx context.Context, id uuid.UUID, apply func(P) error) (P, error) {
	var updated P
	err := s.inTx(ctx, func(ctx context.Context) error {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return s.translate(err, "load")
		}
		before := P(current.Clone())

		if err := apply(current); err != nil {
			return err
		}
		now := timestamp(ctx)
		meta := current.Meta()
		meta.ID = id
		meta.CreatedAt = before.Meta().CreatedAt
		meta.UpdatedAt = now

		if err := s.prepare(ctx, current, before, now); err != nil {
			return err
		}
		if err := s.store.Update(ctx, current); err != nil {
			return s.translateWrite(err, current, "update")
		}
		if err := s.record(ctx, id, history.Changed, before, current); err != nil {
			return err
		}
		for _, h := range s.hooks {
			if err := h.AfterSave(ctx, before, current); err != nil {
				return err
			}
		}
		updated = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveMutation(string(s.kind), "update")
	s.logger.InfoContext(ctx, "record updated",
		"kind", s.kind,
		"id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return updated, nil
}

// Delete removes the record and clears references to it held by other kinds.
func (s *Service[T, P]) Delete(ctx context.Context, id uuid.UUID) error {
	err := s.inTx(ctx, func(ctx context.Context) error {
		current, err := s.store.FindByID(ctx, id)
		if err != nil {
			return s.translate(err, "load")
		}
		if err := s.store.Delete(ctx, id); err != nil {
			return s.translate(err, "delete")
		}
		if err := s.registry.Detach(ctx, s.kind, id); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear references")
		}
		if err := s.record(ctx, id, history.Deleted, current, nil); err != nil {
			return err
		}
		for _, h := range s.hooks {
			if err := h.AfterDelete(ctx, current); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.metrics.ObserveMutation(string(s.kind), "delete")
	s.logger.InfoContext(ctx, "record deleted",
		"kind", s.kind,
		"id", id,
		"request_id", requestcontext.RequestID(ctx),
	)
	return nil
}

// History returns the change log of one record, newest first. Deleted
// records keep their history.
func (s *Service[T, P]) History(ctx context.Context, id uuid.UUID) ([]history.Entry, error) {
	if s.history == nil {
		return []history.Entry{}, nil
	}
	entries, err := s.history.List(ctx, string(s.kind), id)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load history")
	}
	return entries, nil
}

// inTx runs fn as one unit of work. History entries recorded inside it are
// published only after it commits; nested calls defer to the outermost one.
func (s *Service[T, P]) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, batch := history.Defer(ctx)
	if err := s.tx.RunInTx(ctx, fn); err != nil {
		return err
	}
	if s.history != nil {
		s.history.Publish(ctx, batch)
	}
	return nil
}

func (s *Service[T, P]) prepare(ctx context.Context, rec, before P, now time.Time) error {
	rec.Normalize()
	if st, ok := any(rec).(stamper[P]); ok {
		st.Stamp(before, now)
	}
	if err := validation.Struct(rec); err != nil {
		return err
	}
	return s.checkReferences(ctx, rec)
}

func (s *Service[T, P]) checkReferences(ctx context.Context, rec P) error {
	fields := map[string]string{}
	for _, ref := range rec.References() {
		id, ok := ref.ID()
		if !ok {
			continue
		}
		exists, err := s.registry.Exists(ctx, ref.Kind, id)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check references")
		}
		if !exists {
			fields[ref.Field] = fmt.Sprintf("no %s record with this id", ref.Kind)
		}
	}
	if len(fields) > 0 {
		return dErrors.WithFields("invalid input", fields)
	}
	return nil
}

func (s *Service[T, P]) record(ctx context.Context, id uuid.UUID, change history.Change, before, after P) error {
	if s.history == nil {
		return nil
	}
	var b, a any
	if before != nil {
		b = before
	}
	if after != nil {
		a = after
	}
	if _, err := s.history.Record(ctx, string(s.kind), id, change, b, a); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record history")
	}
	return nil
}

func (s *Service[T, P]) translate(err error, op string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, fmt.Sprintf("failed to %s %s", op, s.kind))
}

func (s *Service[T, P]) translateWrite(err error, rec P, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed):
		field, _ := rec.UniqueKey()
		if field == "" {
			return dErrors.New(dErrors.CodeConflict, "record already exists")
		}
		return &dErrors.Error{
			Code:    dErrors.CodeConflict,
			Message: field + " already in use",
			Fields:  map[string]string{field: "already in use"},
		}
	case errors.Is(err, sentinel.ErrReferenceMissing):
		return dErrors.New(dErrors.CodeValidation, "a referenced record no longer exists")
	}
	return s.translate(err, op)
}

func timestamp(ctx context.Context) time.Time {
	return requestcontext.Now(ctx).UTC().Truncate(time.Microsecond)
}
