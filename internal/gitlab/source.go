// Package gitlab reads groups, projects and project activity from the GitLab
// REST API. Every listing returns one page at a time so callers can record
// progress between pages.
package gitlab

import (
	"context"
	"time"
)

//go:generate mockgen -source=source.go -destination=mocks/mocks.go -package=mocks Source

// Source lists GitLab resources page by page. Pages start at 1.
type Source interface {
	ListGroups(ctx context.Context, page int) ([]Group, Page, error)
	ListProjects(ctx context.Context, page int) ([]Project, Page, error)
	ListGroupProjects(ctx context.Context, groupID, page int) ([]Project, Page, error)
	ListBranches(ctx context.Context, projectID, page int) ([]Branch, Page, error)
	ListCommits(ctx context.Context, projectID int, since time.Time, page int) ([]Commit, Page, error)
	ListIssues(ctx context.Context, projectID, page int) ([]Issue, Page, error)
	ListMergeRequests(ctx context.Context, projectID, page int) ([]MergeRequest, Page, error)
	ListPipelines(ctx context.Context, projectID, page int) ([]Pipeline, Page, error)
	ListJobs(ctx context.Context, projectID, page int) ([]Job, Page, error)
	ListMilestones(ctx context.Context, projectID, page int) ([]Milestone, Page, error)
	ListVulnerabilities(ctx context.Context, projectID, page int) ([]Vulnerability, Page, error)
	ListEpics(ctx context.Context, groupID, page int) ([]Epic, Page, error)
}
