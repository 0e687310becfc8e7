package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind names what a sync job mirrors.
type Kind string

const (
	KindGroups          Kind = "groups"
	KindProjects        Kind = "projects"
	KindBranches        Kind = "branches"
	KindCommits         Kind = "commits"
	KindIssues          Kind = "issues"
	KindMergeRequests   Kind = "merge_requests"
	KindPipelines       Kind = "pipelines"
	KindJobs            Kind = "jobs"
	KindEpics           Kind = "epics"
	KindMilestones      Kind = "milestones"
	KindVulnerabilities Kind = "vulnerabilities"
	KindAll             Kind = "all"
)

// Sequence is the order in which an "all" job runs the individual kinds.
// Groups and projects come first because the rest iterate over them.
var Sequence = []Kind{
	KindGroups,
	KindProjects,
	KindBranches,
	KindCommits,
	KindIssues,
	KindMergeRequests,
	KindPipelines,
	KindJobs,
	KindEpics,
	KindMilestones,
	KindVulnerabilities,
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if k == KindAll {
		return k, nil
	}
	for _, known := range Sequence {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown sync kind %q", s)
}

// PerProject reports whether the kind iterates mirrored projects.
func (k Kind) PerProject() bool {
	switch k {
	case KindGroups, KindProjects, KindEpics, KindAll:
		return false
	}
	return true
}

type Status string

const (
	StatusPending             Status = "pending"
	StatusRunning             Status = "running"
	StatusCompleted           Status = "completed"
	StatusCompletedWithErrors Status = "completed_with_errors"
	StatusFailed              Status = "failed"
	StatusCancelled           Status = "cancelled"
)

// Finished reports whether the status is terminal.
func (s Status) Finished() bool {
	switch s {
	case StatusCompleted, StatusCompletedWithErrors, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

const (
	MaxLogLines   = 500
	MaxErrorLines = 200
)

// Job tracks one sync run.
type Job struct {
	ID              uuid.UUID  `json:"id"`
	Kind            Kind       `json:"kind"`
	Status          Status     `json:"status"`
	Total           int        `json:"total"`
	Processed       int        `json:"processed"`
	Percent         int        `json:"percent"`
	Logs            []string   `json:"logs"`
	Errors          []string   `json:"errors"`
	CancelRequested bool       `json:"cancel_requested"`
	RequestedBy     string     `json:"requested_by"`
	CreatedAt       time.Time  `json:"created_at"`
	StartedAt       *time.Time `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at"`
}

func NewJob(kind Kind, requestedBy string, now time.Time) *Job {
	return &Job{
		ID:          uuid.New(),
		Kind:        kind,
		Status:      StatusPending,
		Logs:        []string{},
		Errors:      []string{},
		RequestedBy: requestedBy,
		CreatedAt:   now,
	}
}

// Logf appends a timestamped log line, keeping the last MaxLogLines.
func (j *Job) Logf(now time.Time, format string, args ...any) {
	line := now.UTC().Format(time.RFC3339) + " " + fmt.Sprintf(format, args...)
	j.Logs = keepLast(append(j.Logs, line), MaxLogLines)
}

// AddError records a non-fatal failure, keeping the last MaxErrorLines.
func (j *Job) AddError(msg string) {
	j.Errors = keepLast(append(j.Errors, msg), MaxErrorLines)
}

// SetTotal sets the expected unit count and recomputes the percentage.
func (j *Job) SetTotal(total int) {
	j.Total = total
	j.recompute()
}

// Advance marks n more units as processed.
func (j *Job) Advance(n int) {
	j.Processed += n
	j.recompute()
}

// ResetProgress starts a new phase of work.
func (j *Job) ResetProgress(total int) {
	j.Processed = 0
	j.SetTotal(total)
}

func (j *Job) recompute() {
	switch {
	case j.Total <= 0:
		j.Percent = 0
	case j.Processed >= j.Total:
		j.Percent = 100
	default:
		j.Percent = j.Processed * 100 / j.Total
	}
}

// Finish moves the job to a terminal status.
func (j *Job) Finish(status Status, now time.Time) {
	j.Status = status
	j.FinishedAt = &now
	if status == StatusCompleted || status == StatusCompletedWithErrors {
		j.Percent = 100
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (j *Job) Clone() *Job {
	c := *j
	c.Logs = append([]string{}, j.Logs...)
	c.Errors = append([]string{}, j.Errors...)
	if j.StartedAt != nil {
		t := *j.StartedAt
		c.StartedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

func keepLast(lines []string, n int) []string {
	if len(lines) <= n {
		return lines
	}
	return append([]string{}, lines[len(lines)-n:]...)
}
