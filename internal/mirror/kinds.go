package mirror

import (
	"time"

	"github.com/lib/pq"

	"eam/internal/gitlab"
)

var GroupKind = Kind[gitlab.Group]{
	Name:    "groups",
	Table:   "gitlab_groups",
	Key:     []string{"id"},
	Columns: []string{"id", "name", "full_path", "description", "web_url", "parent_id", "visibility", "synced_at"},
	Values: func(g *gitlab.Group) []any {
		return []any{g.ID, g.Name, g.FullPath, g.Description, g.WebURL, g.ParentID, g.Visibility, g.SyncedAt}
	},
	Fields: func(g *gitlab.Group) []any {
		return []any{&g.ID, &g.Name, &g.FullPath, &g.Description, &g.WebURL, &g.ParentID, &g.Visibility, &g.SyncedAt}
	},
	KeyOf:   func(g *gitlab.Group) string { return itoa(g.ID) },
	Stamp:   func(g *gitlab.Group, at time.Time) { g.SyncedAt = at },
	Filters: map[string]string{"group_id": "parent_id"},
	Filter: func(g *gitlab.Group, key string) string {
		if key == "group_id" {
			return optItoa(g.ParentID)
		}
		return ""
	},
	Order: "full_path ASC",
	Less:  func(a, b *gitlab.Group) bool { return a.FullPath < b.FullPath },
}

var ProjectKind = Kind[gitlab.Project]{
	Name:  "projects",
	Table: "gitlab_projects",
	Key:   []string{"id"},
	Columns: []string{"id", "name", "path_with_namespace", "description", "default_branch", "web_url",
		"namespace_id", "visibility", "archived", "last_activity_at", "created_at", "synced_at"},
	Values: func(p *gitlab.Project) []any {
		return []any{p.ID, p.Name, p.PathWithNamespace, p.Description, p.DefaultBranch, p.WebURL,
			p.NamespaceID, p.Visibility, p.Archived, p.LastActivityAt, p.CreatedAt, p.SyncedAt}
	},
	Fields: func(p *gitlab.Project) []any {
		return []any{&p.ID, &p.Name, &p.PathWithNamespace, &p.Description, &p.DefaultBranch, &p.WebURL,
			&p.NamespaceID, &p.Visibility, &p.Archived, &p.LastActivityAt, &p.CreatedAt, &p.SyncedAt}
	},
	KeyOf:   func(p *gitlab.Project) string { return itoa(p.ID) },
	Stamp:   func(p *gitlab.Project, at time.Time) { p.SyncedAt = at },
	Filters: map[string]string{"group_id": "namespace_id", "project_id": "id"},
	Filter: func(p *gitlab.Project, key string) string {
		switch key {
		case "group_id":
			return itoa(p.NamespaceID)
		case "project_id":
			return itoa(p.ID)
		}
		return ""
	},
	Order: "path_with_namespace ASC",
	Less:  func(a, b *gitlab.Project) bool { return a.PathWithNamespace < b.PathWithNamespace },
}

var BranchKind = Kind[gitlab.Branch]{
	Name:    "branches",
	Table:   "gitlab_branches",
	Key:     []string{"project_id", "name"},
	Columns: []string{"project_id", "name", "commit_sha", "merged", "protected", "is_default", "synced_at"},
	Values: func(b *gitlab.Branch) []any {
		return []any{b.ProjectID, b.Name, b.CommitSHA, b.Merged, b.Protected, b.Default, b.SyncedAt}
	},
	Fields: func(b *gitlab.Branch) []any {
		return []any{&b.ProjectID, &b.Name, &b.CommitSHA, &b.Merged, &b.Protected, &b.Default, &b.SyncedAt}
	},
	KeyOf:   func(b *gitlab.Branch) string { return itoa(b.ProjectID) + "/" + b.Name },
	Stamp:   func(b *gitlab.Branch, at time.Time) { b.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id"},
	Filter: func(b *gitlab.Branch, key string) string {
		if key == "project_id" {
			return itoa(b.ProjectID)
		}
		return ""
	},
	Order: "project_id ASC, name ASC",
	Less: func(a, b *gitlab.Branch) bool {
		if a.ProjectID != b.ProjectID {
			return a.ProjectID < b.ProjectID
		}
		return a.Name < b.Name
	},
}

var CommitKind = Kind[gitlab.Commit]{
	Name:  "commits",
	Table: "gitlab_commits",
	Key:   []string{"project_id", "sha"},
	Columns: []string{"project_id", "sha", "short_id", "title", "author_name", "author_email",
		"committed_at", "web_url", "synced_at"},
	Values: func(c *gitlab.Commit) []any {
		return []any{c.ProjectID, c.SHA, c.ShortID, c.Title, c.AuthorName, c.AuthorEmail, c.CommittedAt, c.WebURL, c.SyncedAt}
	},
	Fields: func(c *gitlab.Commit) []any {
		return []any{&c.ProjectID, &c.SHA, &c.ShortID, &c.Title, &c.AuthorName, &c.AuthorEmail, &c.CommittedAt, &c.WebURL, &c.SyncedAt}
	},
	KeyOf:   func(c *gitlab.Commit) string { return itoa(c.ProjectID) + "/" + c.SHA },
	Stamp:   func(c *gitlab.Commit, at time.Time) { c.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id"},
	Filter: func(c *gitlab.Commit, key string) string {
		if key == "project_id" {
			return itoa(c.ProjectID)
		}
		return ""
	},
	Order: "committed_at DESC NULLS LAST, sha ASC",
	Less: func(a, b *gitlab.Commit) bool {
		return newerFirst(a.CommittedAt, b.CommittedAt, a.SHA < b.SHA)
	},
}

var IssueKind = Kind[gitlab.Issue]{
	Name:  "issues",
	Table: "gitlab_issues",
	Key:   []string{"id"},
	Columns: []string{"id", "iid", "project_id", "title", "state", "labels", "assignees", "author",
		"milestone_id", "weight", "created_at", "updated_at", "closed_at", "due_date", "web_url", "synced_at"},
	Values: func(i *gitlab.Issue) []any {
		return []any{i.ID, i.IID, i.ProjectID, i.Title, i.State, pq.Array(nonNil(i.Labels)), pq.Array(nonNil(i.Assignees)),
			i.Author, i.MilestoneID, i.Weight, i.CreatedAt, i.UpdatedAt, i.ClosedAt, i.DueDate, i.WebURL, i.SyncedAt}
	},
	Fields: func(i *gitlab.Issue) []any {
		return []any{&i.ID, &i.IID, &i.ProjectID, &i.Title, &i.State, pq.Array(&i.Labels), pq.Array(&i.Assignees),
			&i.Author, &i.MilestoneID, &i.Weight, &i.CreatedAt, &i.UpdatedAt, &i.ClosedAt, &i.DueDate, &i.WebURL, &i.SyncedAt}
	},
	KeyOf: func(i *gitlab.Issue) string { return itoa(i.ID) },
	Stamp: func(i *gitlab.Issue, at time.Time) { i.SyncedAt = at },
	Filters: map[string]string{
		"project_id":   "project_id",
		"state":        "state",
		"milestone_id": "milestone_id",
	},
	Filter: func(i *gitlab.Issue, key string) string {
		switch key {
		case "project_id":
			return itoa(i.ProjectID)
		case "state":
			return i.State
		case "milestone_id":
			return optItoa(i.MilestoneID)
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Issue) bool { return a.ID > b.ID },
}

var MergeRequestKind = Kind[gitlab.MergeRequest]{
	Name:  "merge_requests",
	Table: "gitlab_merge_requests",
	Key:   []string{"id"},
	Columns: []string{"id", "iid", "project_id", "title", "state", "source_branch", "target_branch",
		"author", "draft", "created_at", "updated_at", "merged_at", "web_url", "synced_at"},
	Values: func(m *gitlab.MergeRequest) []any {
		return []any{m.ID, m.IID, m.ProjectID, m.Title, m.State, m.SourceBranch, m.TargetBranch,
			m.Author, m.Draft, m.CreatedAt, m.UpdatedAt, m.MergedAt, m.WebURL, m.SyncedAt}
	},
	Fields: func(m *gitlab.MergeRequest) []any {
		return []any{&m.ID, &m.IID, &m.ProjectID, &m.Title, &m.State, &m.SourceBranch, &m.TargetBranch,
			&m.Author, &m.Draft, &m.CreatedAt, &m.UpdatedAt, &m.MergedAt, &m.WebURL, &m.SyncedAt}
	},
	KeyOf:   func(m *gitlab.MergeRequest) string { return itoa(m.ID) },
	Stamp:   func(m *gitlab.MergeRequest, at time.Time) { m.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id", "state": "state"},
	Filter: func(m *gitlab.MergeRequest, key string) string {
		switch key {
		case "project_id":
			return itoa(m.ProjectID)
		case "state":
			return m.State
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.MergeRequest) bool { return a.ID > b.ID },
}

var PipelineKind = Kind[gitlab.Pipeline]{
	Name:    "pipelines",
	Table:   "gitlab_pipelines",
	Key:     []string{"id"},
	Columns: []string{"id", "project_id", "ref", "sha", "status", "source", "created_at", "updated_at", "web_url", "synced_at"},
	Values: func(p *gitlab.Pipeline) []any {
		return []any{p.ID, p.ProjectID, p.Ref, p.SHA, p.Status, p.Source, p.CreatedAt, p.UpdatedAt, p.WebURL, p.SyncedAt}
	},
	Fields: func(p *gitlab.Pipeline) []any {
		return []any{&p.ID, &p.ProjectID, &p.Ref, &p.SHA, &p.Status, &p.Source, &p.CreatedAt, &p.UpdatedAt, &p.WebURL, &p.SyncedAt}
	},
	KeyOf:   func(p *gitlab.Pipeline) string { return itoa(p.ID) },
	Stamp:   func(p *gitlab.Pipeline, at time.Time) { p.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id", "state": "status"},
	Filter: func(p *gitlab.Pipeline, key string) string {
		switch key {
		case "project_id":
			return itoa(p.ProjectID)
		case "state":
			return p.Status
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Pipeline) bool { return a.ID > b.ID },
}

var JobKind = Kind[gitlab.Job]{
	Name:  "jobs",
	Table: "gitlab_jobs",
	Key:   []string{"id"},
	Columns: []string{"id", "project_id", "pipeline_id", "name", "stage", "status", "duration",
		"created_at", "started_at", "finished_at", "web_url", "synced_at"},
	Values: func(j *gitlab.Job) []any {
		return []any{j.ID, j.ProjectID, j.PipelineID, j.Name, j.Stage, j.Status, j.Duration,
			j.CreatedAt, j.StartedAt, j.FinishedAt, j.WebURL, j.SyncedAt}
	},
	Fields: func(j *gitlab.Job) []any {
		return []any{&j.ID, &j.ProjectID, &j.PipelineID, &j.Name, &j.Stage, &j.Status, &j.Duration,
			&j.CreatedAt, &j.StartedAt, &j.FinishedAt, &j.WebURL, &j.SyncedAt}
	},
	KeyOf:   func(j *gitlab.Job) string { return itoa(j.ID) },
	Stamp:   func(j *gitlab.Job, at time.Time) { j.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id", "state": "status", "pipeline_id": "pipeline_id"},
	Filter: func(j *gitlab.Job, key string) string {
		switch key {
		case "project_id":
			return itoa(j.ProjectID)
		case "state":
			return j.Status
		case "pipeline_id":
			return itoa(j.PipelineID)
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Job) bool { return a.ID > b.ID },
}

var EpicKind = Kind[gitlab.Epic]{
	Name:  "epics",
	Table: "gitlab_epics",
	Key:   []string{"id"},
	Columns: []string{"id", "iid", "group_id", "title", "state", "labels", "author",
		"start_date", "due_date", "created_at", "updated_at", "web_url", "synced_at"},
	Values: func(e *gitlab.Epic) []any {
		return []any{e.ID, e.IID, e.GroupID, e.Title, e.State, pq.Array(nonNil(e.Labels)), e.Author,
			e.StartDate, e.DueDate, e.CreatedAt, e.UpdatedAt, e.WebURL, e.SyncedAt}
	},
	Fields: func(e *gitlab.Epic) []any {
		return []any{&e.ID, &e.IID, &e.GroupID, &e.Title, &e.State, pq.Array(&e.Labels), &e.Author,
			&e.StartDate, &e.DueDate, &e.CreatedAt, &e.UpdatedAt, &e.WebURL, &e.SyncedAt}
	},
	KeyOf:   func(e *gitlab.Epic) string { return itoa(e.ID) },
	Stamp:   func(e *gitlab.Epic, at time.Time) { e.SyncedAt = at },
	Filters: map[string]string{"group_id": "group_id", "state": "state"},
	Filter: func(e *gitlab.Epic, key string) string {
		switch key {
		case "group_id":
			return itoa(e.GroupID)
		case "state":
			return e.State
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Epic) bool { return a.ID > b.ID },
}

var MilestoneKind = Kind[gitlab.Milestone]{
	Name:    "milestones",
	Table:   "gitlab_milestones",
	Key:     []string{"id"},
	Columns: []string{"id", "iid", "project_id", "title", "state", "start_date", "due_date", "web_url", "synced_at"},
	Values: func(m *gitlab.Milestone) []any {
		return []any{m.ID, m.IID, m.ProjectID, m.Title, m.State, m.StartDate, m.DueDate, m.WebURL, m.SyncedAt}
	},
	Fields: func(m *gitlab.Milestone) []any {
		return []any{&m.ID, &m.IID, &m.ProjectID, &m.Title, &m.State, &m.StartDate, &m.DueDate, &m.WebURL, &m.SyncedAt}
	},
	KeyOf:   func(m *gitlab.Milestone) string { return itoa(m.ID) },
	Stamp:   func(m *gitlab.Milestone, at time.Time) { m.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id", "state": "state"},
	Filter: func(m *gitlab.Milestone, key string) string {
		switch key {
		case "project_id":
			return itoa(m.ProjectID)
		case "state":
			return m.State
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Milestone) bool { return a.ID > b.ID },
}

var VulnerabilityKind = Kind[gitlab.Vulnerability]{
	Name:    "vulnerabilities",
	Table:   "gitlab_vulnerabilities",
	Key:     []string{"id"},
	Columns: []string{"id", "project_id", "title", "severity", "state", "report_type", "created_at", "updated_at", "synced_at"},
	Values: func(v *gitlab.Vulnerability) []any {
		return []any{v.ID, v.ProjectID, v.Title, v.Severity, v.State, v.ReportType, v.CreatedAt, v.UpdatedAt, v.SyncedAt}
	},
	Fields: func(v *gitlab.Vulnerability) []any {
		return []any{&v.ID, &v.ProjectID, &v.Title, &v.Severity, &v.State, &v.ReportType, &v.CreatedAt, &v.UpdatedAt, &v.SyncedAt}
	},
	KeyOf:   func(v *gitlab.Vulnerability) string { return itoa(v.ID) },
	Stamp:   func(v *gitlab.Vulnerability, at time.Time) { v.SyncedAt = at },
	Filters: map[string]string{"project_id": "project_id", "state": "state", "severity": "severity"},
	Filter: func(v *gitlab.Vulnerability, key string) string {
		switch key {
		case "project_id":
			return itoa(v.ProjectID)
		case "state":
			return v.State
		case "severity":
			return v.Severity
		}
		return ""
	},
	Order: "id DESC",
	Less:  func(a, b *gitlab.Vulnerability) bool { return a.ID > b.ID },
}
