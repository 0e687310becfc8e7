package store

import (
	"github.com/lib/pq"

	"eam/internal/portfolio/models"
)

var ApplicationTable = Table[models.Application]{
	Name:    "applications",
	Columns: []string{"name", "code", "description", "owner", "status", "criticality", "gitlab_project_id"},
	Values: func(a *models.Application) []any {
		return []any{a.Name, a.Code, a.Description, a.Owner, a.Status, a.Criticality, a.GitLabProjectID}
	},
	Fields: func(a *models.Application) []any {
		return []any{&a.Name, &a.Code, &a.Description, &a.Owner, &a.Status, &a.Criticality, &a.GitLabProjectID}
	},
	Filters: map[string]string{
		"status":            "status",
		"criticality":       "criticality",
		"owner":             "owner",
		"gitlab_project_id": "gitlab_project_id",
	},
	Search: []string{"name", "code", "description", "owner"},
}

var ProposalTable = Table[models.Proposal]{
	Name:    "proposals",
	Columns: []string{"application_id", "title", "description", "submitted_by", "status", "budget"},
	Values: func(p *models.Proposal) []any {
		return []any{p.ApplicationID, p.Title, p.Description, p.SubmittedBy, p.Status, p.Budget}
	},
	Fields: func(p *models.Proposal) []any {
		return []any{&p.ApplicationID, &p.Title, &p.Description, &p.SubmittedBy, &p.Status, &p.Budget}
	},
	Filters: map[string]string{
		"status":         "status",
		"application_id": "application_id",
		"submitted_by":   "submitted_by",
	},
	Search: []string{"title", "description", "submitted_by"},
}

var ApprovalTable = Table[models.Approval]{
	Name:    "approvals",
	Columns: []string{"proposal_id", "approver", "decision", "comment", "decided_at"},
	Values: func(a *models.Approval) []any {
		return []any{a.ProposalID, a.Approver, a.Decision, a.Comment, a.DecidedAt}
	},
	Fields: func(a *models.Approval) []any {
		return []any{&a.ProposalID, &a.Approver, &a.Decision, &a.Comment, &a.DecidedAt}
	},
	Filters: map[string]string{
		"decision":    "decision",
		"proposal_id": "proposal_id",
		"approver":    "approver",
	},
	Search: []string{"approver", "comment"},
}

var EstimationTable = Table[models.Estimation]{
	Name:    "estimations",
	Columns: []string{"application_id", "proposal_id", "estimator", "effort_days", "cost", "confidence", "notes"},
	Values: func(e *models.Estimation) []any {
		return []any{e.ApplicationID, e.ProposalID, e.Estimator, e.EffortDays, e.Cost, e.Confidence, e.Notes}
	},
	Fields: func(e *models.Estimation) []any {
		return []any{&e.ApplicationID, &e.ProposalID, &e.Estimator, &e.EffortDays, &e.Cost, &e.Confidence, &e.Notes}
	},
	Filters: map[string]string{
		"application_id": "application_id",
		"proposal_id":    "proposal_id",
		"confidence":     "confidence",
	},
	Search: []string{"estimator", "notes"},
}

var MeetingTable = Table[models.Meeting]{
	Name:    "meetings",
	Columns: []string{"application_id", "title", "scheduled_at", "duration_minutes", "location", "attendees", "minutes"},
	Values: func(m *models.Meeting) []any {
		return []any{m.ApplicationID, m.Title, m.ScheduledAt, m.DurationMinutes, m.Location, pq.Array(m.Attendees), m.Minutes}
	},
	Fields: func(m *models.Meeting) []any {
		return []any{&m.ApplicationID, &m.Title, &m.ScheduledAt, &m.DurationMinutes, &m.Location, pq.Array(&m.Attendees), &m.Minutes}
	},
	Filters: map[string]string{
		"application_id": "application_id",
		"location":       "location",
	},
	Search: []string{"title", "location", "minutes", "array_to_string(attendees, ' ')"},
}

var ActionTable = Table[models.Action]{
	Name:    "actions",
	Columns: []string{"application_id", "meeting_id", "title", "assignee", "due_date", "status", "priority"},
	Values: func(a *models.Action) []any {
		return []any{a.ApplicationID, a.MeetingID, a.Title, a.Assignee, a.DueDate, a.Status, a.Priority}
	},
	Fields: func(a *models.Action) []any {
		return []any{&a.ApplicationID, &a.MeetingID, &a.Title, &a.Assignee, &a.DueDate, &a.Status, &a.Priority}
	},
	Filters: map[string]string{
		"status":         "status",
		"priority":       "priority",
		"assignee":       "assignee",
		"application_id": "application_id",
		"meeting_id":     "meeting_id",
	},
	Search: []string{"title", "assignee"},
}
