package kpi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

// Reporter computes KPI snapshots.
type Reporter interface {
	Portfolio(ctx context.Context, refresh bool) (*PortfolioKPI, error)
	Application(ctx context.Context, id uuid.UUID, refresh bool) (*ApplicationKPI, error)
}

type Handler struct {
	reporter Reporter
	logger   *slog.Logger
}

func NewHandler(reporter Reporter, logger *slog.Logger) *Handler {
	return &Handler{reporter: reporter, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/kpi/", h.handlePortfolio)
	r.Get("/kpi/applications/{id}/", h.handleApplication)
}

func (h *Handler) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	refresh, err := parseRefresh(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	kpi, err := h.reporter.Portfolio(r.Context(), refresh)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kpi)
}

func (h *Handler) handleApplication(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, dErrors.New(dErrors.CodeBadRequest, "invalid application id"))
		return
	}
	refresh, err := parseRefresh(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	kpi, err := h.reporter.Application(r.Context(), id, refresh)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, kpi)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, "kpi request failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
	}
	httputil.WriteError(w, err)
}

func parseRefresh(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("refresh")
	if raw == "" {
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, dErrors.New(dErrors.CodeBadRequest, "refresh must be a boolean")
	}
	return v, nil
}
