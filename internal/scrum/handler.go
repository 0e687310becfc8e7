package scrum

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

type Planner interface {
	Sprints(ctx context.Context, projectID int) (*Board, error)
}

type Handler struct {
	planner Planner
	logger  *slog.Logger
}

func NewHandler(planner Planner, logger *slog.Logger) *Handler {
	return &Handler{planner: planner, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/scrum/projects/{project_id}/sprints/", h.handleSprints)
}

func (h *Handler) handleSprints(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	projectID, err := strconv.Atoi(chi.URLParam(r, "project_id"))
	if err != nil || projectID <= 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "project_id must be a positive integer"))
		return
	}
	board, err := h.planner.Sprints(ctx, projectID)
	if err != nil {
		if dErrors.CodeOf(err) == dErrors.CodeInternal {
			h.logger.ErrorContext(ctx, "failed to build sprint board",
				"request_id", requestcontext.RequestID(ctx),
				"project_id", projectID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, board)
}
