package kpi

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eam/internal/gitlab"
	"eam/internal/mirror"
	"eam/internal/platform/metrics"
	"eam/internal/portfolio/models"
	pservice "eam/internal/portfolio/service"
	"eam/internal/portfolio/store"
)

// DefaultCacheTTL applies when WithCache is given a zero TTL.
const DefaultCacheTTL = 5 * time.Minute

type Lister[P any] interface {
	List(ctx context.Context, q store.Query) ([]P, int, error)
}

type ApplicationReader interface {
	Lister[*models.Application]
	Get(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

// Sources are the portfolio services the KPIs are computed from.
type Sources struct {
	Applications ApplicationReader
	Proposals    Lister[*models.Proposal]
	Approvals    Lister[*models.Approval]
	Estimations  Lister[*models.Estimation]
	Meetings     Lister[*models.Meeting]
	Actions      Lister[*models.Action]
}

func SourcesFrom(p *pservice.Portfolio) Sources {
	return Sources{
		Applications: p.Applications,
		Proposals:    p.Proposals,
		Approvals:    p.Approvals,
		Estimations:  p.Estimations,
		Meetings:     p.Meetings,
		Actions:      p.Actions,
	}
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithCache enables snapshot caching. A nil cache leaves caching off.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		if ttl <= 0 {
			ttl = DefaultCacheTTL
		}
		s.ttl = ttl
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

type Service struct {
	sources Sources
	mirror  *mirror.Mirror
	cache   Cache
	ttl     time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(sources Sources, m *mirror.Mirror, opts ...Option) *Service {
	s := &Service{
		sources: sources,
		mirror:  m,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Portfolio returns the figures of every application summed, plus
// application counts by status. refresh skips the cache read.
func (s *Service) Portfolio(ctx context.Context, refresh bool) (*PortfolioKPI, error) {
	out := &PortfolioKPI{}
	err := s.cached(ctx, "portfolio", refresh, out, func() error {
		kpi, err := s.computePortfolio(ctx)
		if err != nil {
			return err
		}
		*out = *kpi
		return nil
	})
	return out, err
}

// Application returns the figures of one application.
func (s *Service) Application(ctx context.Context, id uuid.UUID, refresh bool) (*ApplicationKPI, error) {
	app, err := s.sources.Applications.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	out := &ApplicationKPI{}
	err = s.cached(ctx, "application:"+id.String(), refresh, out, func() error {
		data, err := s.load(ctx)
		if err != nil {
			return err
		}
		kpi, err := s.computeApplication(ctx, app, data)
		if err != nil {
			return err
		}
		*out = *kpi
		return nil
	})
	return out, err
}

// cached fills dst from the cache, or runs compute and stores dst.
// Cache failures are logged and never fail the request.
func (s *Service) cached(ctx context.Context, key string, refresh bool, dst any, compute func() error) error {
	if s.cache == nil {
		return compute()
	}
	if !refresh {
		raw, ok, err := s.cache.Get(ctx, key)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "kpi cache read failed", "key", key, "error", err)
		case ok:
			if err := json.Unmarshal(raw, dst); err == nil {
				s.metrics.ObserveKPICache(true)
				return nil
			}
		}
	}
	s.metrics.ObserveKPICache(false)
	if err := compute(); err != nil {
		return err
	}
	raw, err := json.Marshal(dst)
	if err != nil {
		return err
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		s.logger.WarnContext(ctx, "kpi cache write failed", "key", key, "error", err)
	}
	return nil
}

type dataset struct {
	proposals   []*models.Proposal
	approvals   []*models.Approval
	estimations []*models.Estimation
	meetings    []*models.Meeting
	actions     []*models.Action
}

func (s *Service) load(ctx context.Context) (*dataset, error) {
	var (
		d   dataset
		err error
	)
	if d.proposals, err = all(ctx, s.sources.Proposals); err != nil {
		return nil, err
	}
	if d.approvals, err = all(ctx, s.sources.Approvals); err != nil {
		return nil, err
	}
	if d.estimations, err = all(ctx, s.sources.Estimations); err != nil {
		return nil, err
	}
	if d.meetings, err = all(ctx, s.sources.Meetings); err != nil {
		return nil, err
	}
	if d.actions, err = all(ctx, s.sources.Actions); err != nil {
		return nil, err
	}
	return &d, nil
}

func all[P any](ctx context.Context, l Lister[P]) ([]P, error) {
	rows, _, err := l.List(ctx, store.Query{All: true})
	return rows, err
}

func (s *Service) computePortfolio(ctx context.Context) (*PortfolioKPI, error) {
	apps, err := all[*models.Application](ctx, s.sources.Applications)
	if err != nil {
		return nil, err
	}
	data, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := &PortfolioKPI{
		Applications:         len(apps),
		ApplicationsByStatus: map[string]int{},
		Figures:              Figures{Proposals: map[string]int{}},
		GeneratedAt:          s.now(),
	}
	for _, app := range apps {
		out.ApplicationsByStatus[app.Status]++
		kpi, err := s.computeApplication(ctx, app, data)
		if err != nil {
			return nil, err
		}
		out.Figures.add(kpi.Figures)
		if kpi.GitLab != nil {
			if out.GitLab == nil {
				out.GitLab = newGitLabKPI()
			}
			out.GitLab.add(kpi.GitLab)
		}
	}
	return out, nil
}

func (s *Service) computeApplication(ctx context.Context, app *models.Application, data *dataset) (*ApplicationKPI, error) {
	now := s.now()
	out := &ApplicationKPI{
		ApplicationID:   app.ID,
		Code:            app.Code,
		Name:            app.Name,
		Status:          app.Status,
		GitLabProjectID: app.GitLabProjectID,
		Figures:         figures(app.ID, data, now),
		GeneratedAt:     now,
	}
	if app.GitLabProjectID != nil && s.mirror != nil {
		g, err := s.gitlab(ctx, *app.GitLabProjectID, now)
		if err != nil {
			return nil, err
		}
		out.GitLab = g
	}
	return out, nil
}

func figures(appID uuid.UUID, d *dataset, now time.Time) Figures {
	f := Figures{Proposals: map[string]int{}}

	for _, a := range d.actions {
		if !refersTo(a.ApplicationID, appID) {
			continue
		}
		switch {
		case a.Status == models.ActionDone:
			f.Actions.Done++
		case a.Open():
			f.Actions.Open++
			if a.Overdue(now) {
				f.Actions.Overdue++
			}
		}
	}

	proposals := map[uuid.UUID]bool{}
	for _, p := range d.proposals {
		if !refersTo(p.ApplicationID, appID) {
			continue
		}
		proposals[p.ID] = true
		f.Proposals[p.Status]++
	}

	for _, a := range d.approvals {
		if a.Decision == models.DecisionPending && a.ProposalID != nil && proposals[*a.ProposalID] {
			f.PendingApprovals++
		}
	}

	for _, e := range d.estimations {
		viaProposal := e.ProposalID != nil && proposals[*e.ProposalID]
		if refersTo(e.ApplicationID, appID) || viaProposal {
			f.EffortDays += e.EffortDays
			f.Cost += e.Cost
		}
	}

	horizon := now.Add(Window)
	for _, m := range d.meetings {
		if refersTo(m.ApplicationID, appID) && !m.ScheduledAt.Before(now) && !m.ScheduledAt.After(horizon) {
			f.UpcomingMeetings++
		}
	}
	return f
}

func (s *Service) gitlab(ctx context.Context, projectID int, now time.Time) (*GitLabKPI, error) {
	since := now.Add(-Window)
	out := newGitLabKPI()

	issues, err := mirror.ForProject(ctx, s.mirror.Issues, projectID)
	if err != nil {
		return nil, err
	}
	for _, i := range issues {
		if i.State == "opened" {
			out.OpenIssues++
		}
	}

	mrs, err := mirror.ForProject(ctx, s.mirror.MergeRequests, projectID)
	if err != nil {
		return nil, err
	}
	for _, mr := range mrs {
		switch mr.State {
		case "opened":
			out.OpenMergeRequests++
		case "merged":
			if within(mr.MergedAt, since) {
				out.MergedMergeRequests++
			}
		}
	}

	commits, err := mirror.ForProject(ctx, s.mirror.Commits, projectID)
	if err != nil {
		return nil, err
	}
	for _, c := range commits {
		if within(c.CommittedAt, since) {
			out.Commits++
		}
	}

	pipelines, err := mirror.ForProject(ctx, s.mirror.Pipelines, projectID)
	if err != nil {
		return nil, err
	}
	for _, p := range pipelines {
		if !within(p.CreatedAt, since) {
			continue
		}
		switch p.Status {
		case "success":
			out.PipelinesSucceeded++
		case "failed":
			out.PipelinesFailed++
		}
	}
	out.rate()

	vulns, err := mirror.ForProject(ctx, s.mirror.Vulnerabilities, projectID)
	if err != nil {
		return nil, err
	}
	for _, v := range vulns {
		if openVulnerability(v) {
			out.OpenVulnerabilities[v.Severity]++
		}
	}
	return out, nil
}

func openVulnerability(v gitlab.Vulnerability) bool {
	return v.State == "detected" || v.State == "confirmed"
}

func within(t *time.Time, since time.Time) bool {
	return t != nil && !t.Before(since)
}

func refersTo(ref *uuid.UUID, id uuid.UUID) bool {
	return ref != nil && *ref == id
}
