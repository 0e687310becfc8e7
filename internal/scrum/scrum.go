// Package scrum groups the mirrored issues of a GitLab project into sprints,
// one per project milestone.
package scrum

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"eam/internal/gitlab"
	"eam/internal/mirror"
	"eam/internal/portfolio/store"
	dErrors "eam/pkg/domain-errors"
)

// BacklogTitle names the bucket of issues outside any project milestone.
const BacklogTitle = "Backlog"

type IssueCounts struct {
	Total  int `json:"total"`
	Open   int `json:"open"`
	Closed int `json:"closed"`
}

type WeightTotals struct {
	Total  int `json:"total"`
	Closed int `json:"closed"`
}

type Sprint struct {
	MilestoneID *int         `json:"milestone_id"`
	Title       string       `json:"title"`
	State       string       `json:"state"`
	StartDate   *time.Time   `json:"start_date"`
	DueDate     *time.Time   `json:"due_date"`
	WebURL      string       `json:"web_url"`
	Active      bool         `json:"active"`
	Issues      IssueCounts  `json:"issues"`
	Weight      WeightTotals `json:"weight"`
	// Percent is the closed share of weight, or of issues when nothing is weighted.
	Percent int `json:"percent"`
}

func (s *Sprint) add(i gitlab.Issue) {
	s.Issues.Total++
	s.Weight.Total += i.Weight
	if i.Closed() {
		s.Issues.Closed++
		s.Weight.Closed += i.Weight
	} else {
		s.Issues.Open++
	}
}

func (s *Sprint) complete() {
	switch {
	case s.Weight.Total > 0:
		s.Percent = s.Weight.Closed * 100 / s.Weight.Total
	case s.Issues.Total > 0:
		s.Percent = s.Issues.Closed * 100 / s.Issues.Total
	}
}

type Board struct {
	ProjectID int      `json:"project_id"`
	Project   string   `json:"project"`
	Sprints   []Sprint `json:"sprints"`
}

type Service struct {
	mirror *mirror.Mirror
	now    func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(m *mirror.Mirror, opts ...Option) *Service {
	s := &Service{mirror: m, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sprints builds the board of a mirrored project. Milestones are ordered by
// start date, undated ones last, then by title; the Backlog bucket trails.
func (s *Service) Sprints(ctx context.Context, projectID int) (*Board, error) {
	projects, _, err := s.mirror.Projects.List(ctx, store.Query{
		Filters: map[string]string{"project_id": strconv.Itoa(projectID)},
		All:     true,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load project")
	}
	if len(projects) == 0 {
		return nil, dErrors.Newf(dErrors.CodeNotFound, "project %d is not mirrored", projectID)
	}

	milestones, err := mirror.ForProject(ctx, s.mirror.Milestones, projectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load milestones")
	}
	issues, err := mirror.ForProject(ctx, s.mirror.Issues, projectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load issues")
	}

	slices.SortFunc(milestones, compareMilestones)
	today := day(s.now())

	sprints := make([]Sprint, 0, len(milestones)+1)
	index := make(map[int]int, len(milestones))
	for _, m := range milestones {
		index[m.ID] = len(sprints)
		sprints = append(sprints, Sprint{
			MilestoneID: &m.ID,
			Title:       m.Title,
			State:       m.State,
			StartDate:   m.StartDate,
			DueDate:     m.DueDate,
			WebURL:      m.WebURL,
			Active:      active(m, today),
		})
	}
	backlog := Sprint{Title: BacklogTitle}
	for _, i := range issues {
		if i.MilestoneID != nil {
			if at, ok := index[*i.MilestoneID]; ok {
				sprints[at].add(i)
				continue
			}
		}
		backlog.add(i)
	}
	sprints = append(sprints, backlog)
	for i := range sprints {
		sprints[i].complete()
	}

	return &Board{
		ProjectID: projectID,
		Project:   projects[0].PathWithNamespace,
		Sprints:   sprints,
	}, nil
}

func compareMilestones(a, b gitlab.Milestone) int {
	switch {
	case a.StartDate == nil && b.StartDate != nil:
		return 1
	case a.StartDate != nil && b.StartDate == nil:
		return -1
	case a.StartDate != nil && b.StartDate != nil && !a.StartDate.Equal(*b.StartDate):
		return a.StartDate.Compare(*b.StartDate)
	}
	if c := strings.Compare(a.Title, b.Title); c != 0 {
		return c
	}
	return a.ID - b.ID
}

// active requires both dates; a sprint without a window is never current.
func active(m gitlab.Milestone, today time.Time) bool {
	if m.State != "active" || m.StartDate == nil || m.DueDate == nil {
		return false
	}
	return !today.Before(day(*m.StartDate)) && !today.After(day(*m.DueDate))
}

func day(t time.Time) time.Time {
	y, mo, d := t.UTC().Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
}
