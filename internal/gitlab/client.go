package gitlab

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eam/internal/platform/metrics"
)

const defaultPerPage = 100

// Client implements Source on top of the GitLab REST API. Retries are
// handled here, so the underlying HTTP client is built with retries off.
type Client struct {
	api     *gl.Client
	perPage int
	retry   RetryConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

// Option configures a Client.
type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func WithRetryConfig(cfg RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

func WithPerPage(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.perPage = n
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(c *Client) { c.tracer = t }
}

// NewClient builds a Client for baseURL (for example https://gitlab.com/api/v4).
func NewClient(baseURL, token string, opts ...Option) (*Client, error) {
	api, err := gl.NewClient(token, gl.WithBaseURL(baseURL), gl.WithCustomRetryMax(0))
	if err != nil {
		return nil, fmt.Errorf("create gitlab client: %w", err)
	}
	c := &Client{
		api:     api,
		perPage: defaultPerPage,
		retry:   DefaultRetryConfig(),
		logger:  slog.Default(),
		tracer:  otel.Tracer("eam/gitlab"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func fetch[T any](
	ctx context.Context,
	c *Client,
	resource string,
	page int,
	call func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]T, *gl.Response, error),
) ([]T, Page, error) {
	ctx, span := c.tracer.Start(ctx, "gitlab.list",
		trace.WithAttributes(
			attribute.String("gitlab.resource", resource),
			attribute.Int("gitlab.page", page),
		))
	defer span.End()

	cfg := c.retry
	cfg.OnRetry = func(err *Error, attempt int, wait time.Duration) {
		if c.metrics != nil {
			c.metrics.SyncAPIRetries.WithLabelValues(string(err.Type)).Inc()
		}
		span.AddEvent("retry", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("error_type", string(err.Type)),
		))
		c.logger.WarnContext(ctx, "retrying gitlab call",
			"resource", resource,
			"page", page,
			"attempt", attempt,
			"wait", wait.String(),
			"error", err.Error(),
		)
	}

	var (
		items []T
		resp  *gl.Response
	)
	err := WithRetry(ctx, cfg, resource, func(ctx context.Context) error {
		var err error
		items, resp, err = call(gl.ListOptions{Page: page, PerPage: c.perPage}, gl.WithContext(ctx))
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, Page{}, err
	}
	span.SetAttributes(attribute.Int("gitlab.items", len(items)))
	return items, pageOf(resp), nil
}

func pageOf(resp *gl.Response) Page {
	if resp == nil {
		return Page{}
	}
	return Page{Next: resp.NextPage, TotalPages: resp.TotalPages}
}

func (c *Client) ListGroups(ctx context.Context, page int) ([]Group, Page, error) {
	raw, p, err := fetch(ctx, c, "groups", page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Group, *gl.Response, error) {
		return c.api.Groups.ListGroups(&gl.ListGroupsOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Group, 0, len(raw))
	for _, g := range raw {
		out = append(out, toGroup(g))
	}
	return out, p, nil
}

func (c *Client) ListProjects(ctx context.Context, page int) ([]Project, Page, error) {
	raw, p, err := fetch(ctx, c, "projects", page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Project, *gl.Response, error) {
		return c.api.Projects.ListProjects(&gl.ListProjectsOptions{ListOptions: lo, Membership: ptr(true)}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	return toProjects(raw), p, nil
}

func (c *Client) ListGroupProjects(ctx context.Context, groupID, page int) ([]Project, Page, error) {
	resource := fmt.Sprintf("group %d projects", groupID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Project, *gl.Response, error) {
		return c.api.Groups.ListGroupProjects(groupID, &gl.ListGroupProjectsOptions{ListOptions: lo, IncludeSubGroups: ptr(true)}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	return toProjects(raw), p, nil
}

func (c *Client) ListBranches(ctx context.Context, projectID, page int) ([]Branch, Page, error) {
	resource := fmt.Sprintf("project %d branches", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Branch, *gl.Response, error) {
		return c.api.Branches.ListBranches(projectID, &gl.ListBranchesOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Branch, 0, len(raw))
	for _, b := range raw {
		branch := Branch{
			ProjectID: projectID,
			Name:      b.Name,
			Merged:    b.Merged,
			Protected: b.Protected,
			Default:   b.Default,
		}
		if b.Commit != nil {
			branch.CommitSHA = b.Commit.ID
		}
		out = append(out, branch)
	}
	return out, p, nil
}

func (c *Client) ListCommits(ctx context.Context, projectID int, since time.Time, page int) ([]Commit, Page, error) {
	resource := fmt.Sprintf("project %d commits", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Commit, *gl.Response, error) {
		opt := &gl.ListCommitsOptions{ListOptions: lo}
		if !since.IsZero() {
			opt.Since = ptr(since)
		}
		return c.api.Commits.ListCommits(projectID, opt, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Commit, 0, len(raw))
	for _, cm := range raw {
		out = append(out, Commit{
			ProjectID:   projectID,
			SHA:         cm.ID,
			ShortID:     cm.ShortID,
			Title:       cm.Title,
			AuthorName:  cm.AuthorName,
			AuthorEmail: cm.AuthorEmail,
			CommittedAt: cm.CommittedDate,
			WebURL:      cm.WebURL,
		})
	}
	return out, p, nil
}

func (c *Client) ListIssues(ctx context.Context, projectID, page int) ([]Issue, Page, error) {
	resource := fmt.Sprintf("project %d issues", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Issue, *gl.Response, error) {
		return c.api.Issues.ListProjectIssues(projectID, &gl.ListProjectIssuesOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Issue, 0, len(raw))
	for _, is := range raw {
		issue := Issue{
			ID:        is.ID,
			IID:       is.IID,
			ProjectID: projectID,
			Title:     is.Title,
			State:     is.State,
			Labels:    append([]string{}, is.Labels...),
			Weight:    is.Weight,
			CreatedAt: is.CreatedAt,
			UpdatedAt: is.UpdatedAt,
			ClosedAt:  is.ClosedAt,
			DueDate:   isoTime(is.DueDate),
			WebURL:    is.WebURL,
		}
		for _, a := range is.Assignees {
			if a != nil {
				issue.Assignees = append(issue.Assignees, a.Username)
			}
		}
		if is.Author != nil {
			issue.Author = is.Author.Username
		}
		if is.Milestone != nil {
			issue.MilestoneID = ptr(is.Milestone.ID)
		}
		out = append(out, issue)
	}
	return out, p, nil
}

func (c *Client) ListMergeRequests(ctx context.Context, projectID, page int) ([]MergeRequest, Page, error) {
	resource := fmt.Sprintf("project %d merge requests", projectID)
	call := forProject(projectID, c.api.MergeRequests.ListProjectMergeRequests, func(lo gl.ListOptions) *gl.ListProjectMergeRequestsOptions {
		return &gl.ListProjectMergeRequestsOptions{ListOptions: lo}
	})
	raw, p, err := fetch(ctx, c, resource, page, call)
	if err != nil {
		return nil, p, err
	}
	out := make([]MergeRequest, 0, len(raw))
	for _, mr := range raw {
		m := MergeRequest{
			ID:           mr.ID,
			IID:          mr.IID,
			ProjectID:    projectID,
			Title:        mr.Title,
			State:        mr.State,
			SourceBranch: mr.SourceBranch,
			TargetBranch: mr.TargetBranch,
			Draft:        mr.Draft,
			CreatedAt:    mr.CreatedAt,
			UpdatedAt:    mr.UpdatedAt,
			MergedAt:     mr.MergedAt,
			WebURL:       mr.WebURL,
		}
		if mr.Author != nil {
			m.Author = mr.Author.Username
		}
		out = append(out, m)
	}
	return out, p, nil
}

// forProject binds a project-scoped list call so fetch can drive it page by page.
func forProject[O, T any](
	projectID int,
	call func(pid any, opt O, ro ...gl.RequestOptionFunc) ([]T, *gl.Response, error),
	options func(gl.ListOptions) O,
) func(gl.ListOptions, ...gl.RequestOptionFunc) ([]T, *gl.Response, error) {
	return func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]T, *gl.Response, error) {
		return call(projectID, options(lo), ro...)
	}
}

func (c *Client) ListPipelines(ctx context.Context, projectID, page int) ([]Pipeline, Page, error) {
	resource := fmt.Sprintf("project %d pipelines", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.PipelineInfo, *gl.Response, error) {
		return c.api.Pipelines.ListProjectPipelines(projectID, &gl.ListProjectPipelinesOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Pipeline, 0, len(raw))
	for _, pl := range raw {
		out = append(out, Pipeline{
			ID:        pl.ID,
			ProjectID: projectID,
			Ref:       pl.Ref,
			SHA:       pl.SHA,
			Status:    pl.Status,
			Source:    pl.Source,
			CreatedAt: pl.CreatedAt,
			UpdatedAt: pl.UpdatedAt,
			WebURL:    pl.WebURL,
		})
	}
	return out, p, nil
}

func (c *Client) ListJobs(ctx context.Context, projectID, page int) ([]Job, Page, error) {
	resource := fmt.Sprintf("project %d jobs", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Job, *gl.Response, error) {
		return c.api.Jobs.ListProjectJobs(projectID, &gl.ListJobsOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Job, 0, len(raw))
	for _, j := range raw {
		out = append(out, Job{
			ID:         j.ID,
			ProjectID:  projectID,
			PipelineID: j.Pipeline.ID,
			Name:       j.Name,
			Stage:      j.Stage,
			Status:     j.Status,
			Duration:   j.Duration,
			CreatedAt:  j.CreatedAt,
			StartedAt:  j.StartedAt,
			FinishedAt: j.FinishedAt,
			WebURL:     j.WebURL,
		})
	}
	return out, p, nil
}

func (c *Client) ListMilestones(ctx context.Context, projectID, page int) ([]Milestone, Page, error) {
	resource := fmt.Sprintf("project %d milestones", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Milestone, *gl.Response, error) {
		return c.api.Milestones.ListMilestones(projectID, &gl.ListMilestonesOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Milestone, 0, len(raw))
	for _, m := range raw {
		out = append(out, Milestone{
			ID:        m.ID,
			IID:       m.IID,
			ProjectID: projectID,
			Title:     m.Title,
			State:     m.State,
			StartDate: isoTime(m.StartDate),
			DueDate:   isoTime(m.DueDate),
			WebURL:    m.WebURL,
		})
	}
	return out, p, nil
}

func (c *Client) ListVulnerabilities(ctx context.Context, projectID, page int) ([]Vulnerability, Page, error) {
	resource := fmt.Sprintf("project %d vulnerabilities", projectID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.ProjectVulnerability, *gl.Response, error) {
		return c.api.ProjectVulnerabilities.ListProjectVulnerabilities(projectID, &gl.ListProjectVulnerabilitiesOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Vulnerability, 0, len(raw))
	for _, v := range raw {
		out = append(out, Vulnerability{
			ID:         v.ID,
			ProjectID:  projectID,
			Title:      v.Title,
			Severity:   v.Severity,
			State:      v.State,
			ReportType: v.ReportType,
			CreatedAt:  v.CreatedAt,
			UpdatedAt:  v.UpdatedAt,
		})
	}
	return out, p, nil
}

func (c *Client) ListEpics(ctx context.Context, groupID, page int) ([]Epic, Page, error) {
	resource := fmt.Sprintf("group %d epics", groupID)
	raw, p, err := fetch(ctx, c, resource, page, func(lo gl.ListOptions, ro ...gl.RequestOptionFunc) ([]*gl.Epic, *gl.Response, error) {
		return c.api.Epics.ListGroupEpics(groupID, &gl.ListGroupEpicsOptions{ListOptions: lo}, ro...)
	})
	if err != nil {
		return nil, p, err
	}
	out := make([]Epic, 0, len(raw))
	for _, e := range raw {
		epic := Epic{
			ID:        e.ID,
			IID:       e.IID,
			GroupID:   groupID,
			Title:     e.Title,
			State:     e.State,
			Labels:    append([]string{}, e.Labels...),
			StartDate: isoTime(e.StartDate),
			DueDate:   isoTime(e.DueDate),
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
			WebURL:    e.WebURL,
		}
		if e.Author != nil {
			epic.Author = e.Author.Username
		}
		out = append(out, epic)
	}
	return out, p, nil
}

func toGroup(g *gl.Group) Group {
	group := Group{
		ID:          g.ID,
		Name:        g.Name,
		FullPath:    g.FullPath,
		Description: g.Description,
		WebURL:      g.WebURL,
		Visibility:  string(g.Visibility),
	}
	if g.ParentID != 0 {
		group.ParentID = ptr(g.ParentID)
	}
	return group
}

func toProjects(raw []*gl.Project) []Project {
	out := make([]Project, 0, len(raw))
	for _, p := range raw {
		project := Project{
			ID:                p.ID,
			Name:              p.Name,
			PathWithNamespace: p.PathWithNamespace,
			Description:       p.Description,
			DefaultBranch:     p.DefaultBranch,
			WebURL:            p.WebURL,
			Visibility:        string(p.Visibility),
			Archived:          p.Archived,
			LastActivityAt:    p.LastActivityAt,
			CreatedAt:         p.CreatedAt,
		}
		if p.Namespace != nil {
			project.NamespaceID = p.Namespace.ID
		}
		out = append(out, project)
	}
	return out
}

func isoTime(t *gl.ISOTime) *time.Time {
	if t == nil {
		return nil
	}
	v := time.Time(*t)
	return &v
}

func ptr[T any](v T) *T { return &v }
