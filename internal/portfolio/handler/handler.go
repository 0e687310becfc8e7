// Package handler serves the portfolio routes. Every kind gets the same
// list, detail, new, edit, delete and history pages, answered as HTML when
// the client asks for it and as JSON otherwise.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eam/internal/history"
	"eam/internal/portfolio/models"
	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

// Service is the per-kind portfolio service.
type Service[T any, P models.Entity[T]] interface {
	Kind() models.Kind
	List(ctx context.Context, q store.Query) ([]P, int, error)
	Get(ctx context.Context, id uuid.UUID) (P, error)
	Create(ctx context.Context, rec P) (P, error)
	Update(ctx context.Context, id uuid.UUID, apply func(P) error) (P, error)
	Delete(ctx context.Context, id uuid.UUID) error
	History(ctx context.Context, id uuid.UUID) ([]history.Entry, error)
}

// ListResponse is the JSON envelope of list endpoints.
type ListResponse[P any] struct {
	Items   []P `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

type HistoryResponse struct {
	Items []history.Entry `json:"items"`
}

// reserved query parameters are never treated as filters.
var reserved = map[string]bool{"q": true, "page": true, "per_page": true, "format": true}

type Handler[T any, P models.Entity[T]] struct {
	service Service[T, P]
	views   *Views
	logger  *slog.Logger
	kind    models.Kind
	rtype   reflect.Type
}

func New[T any, P models.Entity[T]](service Service[T, P], views *Views, logger *slog.Logger) *Handler[T, P] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler[T, P]{
		service: service,
		views:   views,
		logger:  logger,
		kind:    service.Kind(),
		rtype:   reflect.TypeOf((*T)(nil)).Elem(),
	}
}

// Register mounts the kind's routes on the router.
func (h *Handler[T, P]) Register(r chi.Router) {
	base := "/" + string(h.kind)
	r.Get(base+"/", h.handleList)
	r.Get(base+"/new/", h.handleNewForm)
	r.Post(base+"/new/", h.handleCreate)
	r.Get(base+"/edit/{id}/", h.handleEditForm)
	r.Post(base+"/edit/{id}/", h.handleUpdate)
	r.Put(base+"/edit/{id}/", h.handleUpdate)
	r.Post(base+"/delete/{id}/", h.handleDelete)
	r.Delete(base+"/delete/{id}/", h.handleDelete)
	r.Get(base+"/{id}/", h.handleGet)
	r.Get(base+"/{id}/history/", h.handleHistory)
}

func (h *Handler[T, P]) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, total, err := h.service.List(ctx, q)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	q = q.Normalized()

	if !wantsHTML(r) {
		httputil.WriteJSON(w, http.StatusOK, ListResponse[P]{Items: items, Total: total, Page: q.Page, PerPage: q.PerPage})
		return
	}
	rows := make([]row, 0, len(items))
	for _, item := range items {
		rows = append(rows, toRow(item))
	}
	data := page{
		Kind:    h.kind,
		Heading: title(string(h.kind)),
		Columns: columnsOf(h.rtype),
		Rows:    rows,
		Total:   total,
		Page:    q.Page,
		PerPage: q.PerPage,
		Search:  q.Search,
	}
	if q.Page > 1 {
		data.PrevPage = q.Page - 1
	}
	if q.Page*q.PerPage < total {
		data.NextPage = q.Page + 1
	}
	h.views.render(w, http.StatusOK, "list.html", data)
}

func (h *Handler[T, P]) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !wantsHTML(r) {
		httputil.WriteJSON(w, http.StatusOK, rec)
		return
	}
	h.views.render(w, http.StatusOK, "detail.html", page{
		Kind:    h.kind,
		Heading: rec.Label(),
		Columns: h.detailColumns(),
		Record:  toRow(rec),
	})
}

// handleNewForm renders an empty form, or for JSON clients the defaults a
// new record would receive.
func (h *Handler[T, P]) handleNewForm(w http.ResponseWriter, r *http.Request) {
	rec := P(new(T))
	rec.Normalize()
	if !wantsHTML(r) {
		httputil.WriteJSON(w, http.StatusOK, rec)
		return
	}
	h.renderForm(w, http.StatusOK, "New "+singular(h.kind), h.newPath(), toRow(rec).Values, nil, "")
}

func (h *Handler[T, P]) handleEditForm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	rec, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !wantsHTML(r) {
		httputil.WriteJSON(w, http.StatusOK, rec)
		return
	}
	h.renderForm(w, http.StatusOK, "Edit "+rec.Label(), h.editPath(id), toRow(rec).Values, nil, "")
}

func (h *Handler[T, P]) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	payload, form, err := h.payload(r)
	if err != nil {
		h.failForm(w, r, "New "+singular(h.kind), h.newPath(), form, err)
		return
	}
	rec := P(new(T))
	if err := httputil.DecodeBytes(payload, rec); err != nil {
		h.failForm(w, r, "New "+singular(h.kind), h.newPath(), form, err)
		return
	}
	created, err := h.service.Create(ctx, rec)
	if err != nil {
		h.failForm(w, r, "New "+singular(h.kind), h.newPath(), form, err)
		return
	}
	if form != nil {
		http.Redirect(w, r, h.detailPath(created.Meta().ID), http.StatusSeeOther)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler[T, P]) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	payload, form, err := h.payload(r)
	if err != nil {
		h.failForm(w, r, "Edit "+singular(h.kind), h.editPath(id), form, err)
		return
	}
	updated, err := h.service.Update(ctx, id, func(rec P) error {
		return httputil.DecodeBytes(payload, rec)
	})
	if err != nil {
		h.failForm(w, r, "Edit "+singular(h.kind), h.editPath(id), form, err)
		return
	}
	if form != nil {
		http.Redirect(w, r, h.detailPath(id), http.StatusSeeOther)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[T, P]) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	if isForm(r) || wantsHTML(r) {
		http.Redirect(w, r, "/"+string(h.kind)+"/", http.StatusSeeOther)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler[T, P]) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := h.parseID(w, r)
	if !ok {
		return
	}
	entries, err := h.service.History(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !wantsHTML(r) {
		httputil.WriteJSON(w, http.StatusOK, HistoryResponse{Items: entries})
		return
	}
	h.views.render(w, http.StatusOK, "history.html", page{
		Kind:    h.kind,
		Heading: "History of " + singular(h.kind) + " " + id.String(),
		Record:  row{ID: id.String()},
		Entries: entries,
	})
}

// payload returns the request as JSON. Form posts are converted and also
// returned so a failed submission can be re-rendered.
func (h *Handler[T, P]) payload(r *http.Request) ([]byte, url.Values, error) {
	if !isForm(r) {
		body, err := httputil.ReadBody(r)
		return body, nil, err
	}
	if err := r.ParseForm(); err != nil {
		return nil, url.Values{}, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid form")
	}
	data, err := formPayload(h.rtype, r.PostForm)
	return data, r.PostForm, err
}

func (h *Handler[T, P]) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid id"))
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler[T, P]) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.log(r, err)
	if wantsHTML(r) {
		h.views.renderError(w, h.kind, err)
		return
	}
	httputil.WriteError(w, err)
}

// failForm re-renders a rejected HTML form with its field errors; JSON
// clients get the usual error envelope.
func (h *Handler[T, P]) failForm(w http.ResponseWriter, r *http.Request, heading, action string, form url.Values, err error) {
	if form == nil || dErrors.CodeOf(err) != dErrors.CodeValidation {
		h.fail(w, r, err)
		return
	}
	h.log(r, err)
	var fields map[string]string
	if de := asDomainError(err); de != nil {
		fields = de.Fields
	}
	values := make(map[string]any, len(form))
	for key := range form {
		values[key] = form.Get(key)
	}
	h.renderForm(w, http.StatusUnprocessableEntity, heading, action, values, fields, "Please correct the errors below.")
}

func (h *Handler[T, P]) renderForm(w http.ResponseWriter, status int, heading, action string, values map[string]any, errs map[string]string, msg string) {
	h.views.render(w, status, "form.html", page{
		Kind:    h.kind,
		Heading: heading,
		Action:  action,
		Fields:  formFields(h.rtype, values, errs),
		Message: msg,
	})
}

func (h *Handler[T, P]) log(r *http.Request, err error) {
	ctx := r.Context()
	attrs := []any{
		"kind", h.kind,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "portfolio request failed", attrs...)
		return
	}
	h.logger.WarnContext(ctx, "portfolio request rejected", attrs...)
}

func (h *Handler[T, P]) detailColumns() []string {
	var cols []string
	for _, f := range fieldsOf(h.rtype) {
		if !bookkeeping[f.Name] {
			cols = append(cols, f.Name)
		}
	}
	return cols
}

func (h *Handler[T, P]) newPath() string { return "/" + string(h.kind) + "/new/" }

func (h *Handler[T, P]) editPath(id uuid.UUID) string {
	return "/" + string(h.kind) + "/edit/" + id.String() + "/"
}

func (h *Handler[T, P]) detailPath(id uuid.UUID) string {
	return "/" + string(h.kind) + "/" + id.String() + "/"
}

func parseQuery(values url.Values) (store.Query, error) {
	q := store.Query{Search: values.Get("q"), Filters: map[string]string{}}
	var err error
	if q.Page, err = intParam(values, "page"); err != nil {
		return q, err
	}
	if q.PerPage, err = intParam(values, "per_page"); err != nil {
		return q, err
	}
	for key, vals := range values {
		if reserved[key] || len(vals) == 0 || strings.TrimSpace(vals[0]) == "" {
			continue
		}
		q.Filters[key] = strings.TrimSpace(vals[0])
	}
	return q, nil
}

func intParam(values url.Values, key string) (int, error) {
	raw := values.Get(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a positive integer", key)
	}
	return n, nil
}

func wantsHTML(r *http.Request) bool {
	switch r.URL.Query().Get("format") {
	case "html":
		return true
	case "json":
		return false
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

func singular(kind models.Kind) string {
	return strings.TrimSuffix(string(kind), "s")
}

func asDomainError(err error) *dErrors.Error {
	var de *dErrors.Error
	if errors.As(err, &de) {
		return de
	}
	return nil
}
