package mirror

import (
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/platform/httputil"
	"eam/pkg/requestcontext"
)

// ListResponse is the JSON envelope of mirror listings.
type ListResponse struct {
	Items   any `json:"items"`
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Handler serves read-only listings of the mirrored GitLab data.
type Handler struct {
	readers map[string]Reader
	logger  *slog.Logger
}

func NewHandler(readers []Reader, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	byName := make(map[string]Reader, len(readers))
	for _, r := range readers {
		byName[r.Name()] = r
	}
	return &Handler{readers: byName, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/gitlab/{kind}/", h.handleList)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	kind := chi.URLParam(r, "kind")
	reader, ok := h.readers[kind]
	if !ok {
		httputil.WriteError(w, dErrors.Newf(dErrors.CodeNotFound, "unknown gitlab resource %q", kind))
		return
	}
	q, err := parseQuery(r.URL.Query(), reader.FilterKeys())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	items, total, err := reader.Read(ctx, q)
	if err != nil {
		h.logger.ErrorContext(ctx, "mirror list failed",
			"kind", kind,
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list "+kind))
		return
	}
	q = q.Normalized()
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Items: items, Total: total, Page: q.Page, PerPage: q.PerPage})
}

func parseQuery(values url.Values, filterKeys []string) (store.Query, error) {
	allowed := make(map[string]bool, len(filterKeys))
	for _, k := range filterKeys {
		allowed[k] = true
	}
	q := store.Query{Filters: map[string]string{}}
	for key, vals := range values {
		value := ""
		if len(vals) > 0 {
			value = strings.TrimSpace(vals[0])
		}
		switch {
		case key == "page" || key == "per_page":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 {
				return q, dErrors.Newf(dErrors.CodeBadRequest, "%s must be a positive integer", key)
			}
			if key == "page" {
				q.Page = n
			} else {
				q.PerPage = n
			}
		case key == "format":
		case allowed[key]:
			if value != "" {
				q.Filters[key] = value
			}
		default:
			return q, dErrors.Newf(dErrors.CodeBadRequest, "unsupported filter %q", key)
		}
	}
	return q, nil
}
