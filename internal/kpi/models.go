// Package kpi aggregates portfolio records and mirrored GitLab activity into
// per-application and portfolio-wide figures.
package kpi

import (
	"time"

	"github.com/google/uuid"
)

// Window is the look-back (and, for meetings, look-ahead) period of the
// time-bounded figures.
const Window = 30 * 24 * time.Hour

type ActionCounts struct {
	Open    int `json:"open"`
	Overdue int `json:"overdue"`
	Done    int `json:"done"`
}

func (a *ActionCounts) add(o ActionCounts) {
	a.Open += o.Open
	a.Overdue += o.Overdue
	a.Done += o.Done
}

// GitLabKPI holds delivery figures of the project linked to an application.
type GitLabKPI struct {
	OpenIssues          int            `json:"open_issues"`
	OpenMergeRequests   int            `json:"open_merge_requests"`
	MergedMergeRequests int            `json:"merged_merge_requests_30d"`
	Commits             int            `json:"commits_30d"`
	PipelinesSucceeded  int            `json:"pipelines_succeeded_30d"`
	PipelinesFailed     int            `json:"pipelines_failed_30d"`
	PipelineSuccessRate *float64       `json:"pipeline_success_rate"`
	OpenVulnerabilities map[string]int `json:"open_vulnerabilities"`
}

func newGitLabKPI() *GitLabKPI {
	return &GitLabKPI{OpenVulnerabilities: map[string]int{}}
}

func (g *GitLabKPI) add(o *GitLabKPI) {
	g.OpenIssues += o.OpenIssues
	g.OpenMergeRequests += o.OpenMergeRequests
	g.MergedMergeRequests += o.MergedMergeRequests
	g.Commits += o.Commits
	g.PipelinesSucceeded += o.PipelinesSucceeded
	g.PipelinesFailed += o.PipelinesFailed
	for sev, n := range o.OpenVulnerabilities {
		g.OpenVulnerabilities[sev] += n
	}
	g.rate()
}

// rate sets PipelineSuccessRate to success/(success+failed), or nil when no
// pipeline finished in the window.
func (g *GitLabKPI) rate() {
	finished := g.PipelinesSucceeded + g.PipelinesFailed
	if finished == 0 {
		g.PipelineSuccessRate = nil
		return
	}
	r := float64(g.PipelinesSucceeded) / float64(finished)
	g.PipelineSuccessRate = &r
}

// Figures are the portfolio-side numbers shared by application and portfolio KPIs.
type Figures struct {
	Actions          ActionCounts   `json:"actions"`
	Proposals        map[string]int `json:"proposals"`
	PendingApprovals int            `json:"pending_approvals"`
	EffortDays       float64        `json:"effort_days"`
	Cost             float64        `json:"cost"`
	UpcomingMeetings int            `json:"upcoming_meetings"`
}

func (f *Figures) add(o Figures) {
	f.Actions.add(o.Actions)
	for status, n := range o.Proposals {
		f.Proposals[status] += n
	}
	f.PendingApprovals += o.PendingApprovals
	f.EffortDays += o.EffortDays
	f.Cost += o.Cost
	f.UpcomingMeetings += o.UpcomingMeetings
}

type ApplicationKPI struct {
	ApplicationID   uuid.UUID `json:"application_id"`
	Code            string    `json:"code"`
	Name            string    `json:"name"`
	Status          string    `json:"status"`
	GitLabProjectID *int      `json:"gitlab_project_id"`
	Figures
	GitLab      *GitLabKPI `json:"gitlab"`
	GeneratedAt time.Time  `json:"generated_at"`
}

type PortfolioKPI struct {
	Applications         int            `json:"applications"`
	ApplicationsByStatus map[string]int `json:"applications_by_status"`
	Figures
	GitLab      *GitLabKPI `json:"gitlab"`
	GeneratedAt time.Time  `json:"generated_at"`
}
