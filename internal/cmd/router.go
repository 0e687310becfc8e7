package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	accounthandler "eam/internal/accounts/handler"
	synchandler "eam/internal/gitlabsync/handler"
	"eam/internal/kpi"
	"eam/internal/mirror"
	"eam/internal/platform/middleware"
	phandler "eam/internal/portfolio/handler"
	"eam/internal/scrum"
	"eam/pkg/platform/httputil"
)

const requestTimeout = 60 * time.Second

type healthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// NewRouter mounts every HTTP surface of the app. Health, metrics and login
// are public; everything else needs a bearer token.
func NewRouter(a *App) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata(a.Proxies))
	r.Use(middleware.Recovery(a.Logger))
	r.Use(middleware.Logger(a.Logger))
	r.Use(middleware.Latency(a.Metrics))

	r.Get("/healthz", a.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{}))

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))
		accounthandler.New(a.Accounts, a.Logger).Register(r)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(a.Tokens, a.Logger))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoleForWrites(middleware.RoleEditor, a.Logger))
				p := a.Portfolio
				phandler.New(p.Applications, a.Views, a.Logger).Register(r)
				phandler.New(p.Proposals, a.Views, a.Logger).Register(r)
				phandler.New(p.Approvals, a.Views, a.Logger).Register(r)
				phandler.New(p.Estimations, a.Views, a.Logger).Register(r)
				phandler.New(p.Meetings, a.Views, a.Logger).Register(r)
				phandler.New(p.Actions, a.Views, a.Logger).Register(r)
			})

			mirror.NewHandler(a.Mirror.Readers(), a.Logger).Register(r)
			kpi.NewHandler(a.KPI, a.Logger).Register(r)
			scrum.NewHandler(a.Scrum, a.Logger).Register(r)
			synchandler.New(a.Sync, a.Logger).Register(r)
		})
	})
	return r
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := a.Health(ctx); err != nil {
		a.Logger.WarnContext(ctx, "health check failed", "error", err)
		httputil.WriteJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable", Error: err.Error()})
		return
	}
	httputil.WriteJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}
