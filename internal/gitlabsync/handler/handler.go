package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"eam/internal/gitlabsync/models"
	"eam/internal/platform/middleware"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service is the sync job API consumed by the handler.
type Service interface {
	Start(ctx context.Context, kind string) (*models.Job, error)
	List(ctx context.Context) ([]*models.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Job, error)
}

type JobListResponse struct {
	Items []*models.Job `json:"items"`
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Register mounts the sync routes. Starting and cancelling jobs needs the admin role.
func (h *Handler) Register(r chi.Router) {
	admin := middleware.RequireRole(middleware.RoleAdmin, h.logger)
	r.Route("/gitlab/sync", func(r chi.Router) {
		r.Get("/jobs/", h.handleList)
		r.Get("/jobs/{id}/", h.handleGet)
		r.With(admin).Post("/jobs/{id}/cancel/", h.handleCancel)
		r.With(admin).Post("/{kind}/", h.handleStart)
	})
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	job, err := h.service.Start(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, JobListResponse{Items: jobs})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, job)
}

func (h *Handler) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	job, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, job)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	attrs := []any{
		"path", r.URL.Path,
		"request_id", requestcontext.RequestID(ctx),
		"error", err,
	}
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "sync request failed", attrs...)
	} else {
		h.logger.WarnContext(ctx, "sync request rejected", attrs...)
	}
	httputil.WriteError(w, err)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "invalid job id")
	}
	return id, nil
}
