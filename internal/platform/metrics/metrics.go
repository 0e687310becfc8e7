package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors shared across the application.
type Metrics struct {
	HTTPRequestDuration *prometheus.HistogramVec
	RecordMutations     *prometheus.CounterVec
	HistoryPublished    *prometheus.CounterVec
	SyncJobs            *prometheus.CounterVec
	SyncJobsRunning     prometheus.Gauge
	SyncItemsUpserted   *prometheus.CounterVec
	SyncAPIRetries      *prometheus.CounterVec
	SyncProjectsSkipped *prometheus.CounterVec
	KPICacheLookups     *prometheus.CounterVec
	LoginAttempts       *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Tests pass a fresh prometheus.NewRegistry() so repeated construction never collides.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eam_http_request_duration_seconds",
			Help:    "Latency of HTTP requests by route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RecordMutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_record_mutations_total",
			Help: "Portfolio record mutations by kind and operation",
		}, []string{"kind", "op"}),
		HistoryPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_history_events_published_total",
			Help: "History events handed to the message bus, by outcome",
		}, []string{"outcome"}),
		SyncJobs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_gitlab_sync_jobs_total",
			Help: "Finished GitLab sync jobs by kind and final status",
		}, []string{"kind", "status"}),
		SyncJobsRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "eam_gitlab_sync_jobs_running",
			Help: "GitLab sync jobs currently running",
		}),
		SyncItemsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_gitlab_sync_items_upserted_total",
			Help: "Mirror rows upserted by kind",
		}, []string{"kind"}),
		SyncAPIRetries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_gitlab_api_retries_total",
			Help: "Retried GitLab API calls by error type",
		}, []string{"type"}),
		SyncProjectsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_gitlab_sync_projects_skipped_total",
			Help: "Projects skipped during sync by reason",
		}, []string{"reason"}),
		KPICacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_kpi_cache_lookups_total",
			Help: "KPI cache lookups by result",
		}, []string{"result"}),
		LoginAttempts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eam_login_attempts_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveMutation counts one create/update/delete of a record kind.
func (m *Metrics) ObserveMutation(kind, op string) {
	if m == nil {
		return
	}
	m.RecordMutations.WithLabelValues(kind, op).Inc()
}

// ObserveKPICache counts a cache hit or miss.
func (m *Metrics) ObserveKPICache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.KPICacheLookups.WithLabelValues(result).Inc()
}
