package scrum

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"eam/internal/gitlab"
	"eam/internal/mirror"
	"eam/internal/platform/logger"
	dErrors "eam/pkg/domain-errors"
	"eam/pkg/testutil"
)

type ScrumSuite struct {
	suite.Suite
	ctx     context.Context
	mirror  *mirror.Mirror
	service *Service
}

func TestScrumSuite(t *testing.T) {
	suite.Run(t, new(ScrumSuite))
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func (s *ScrumSuite) SetupTest() {
	s.ctx = context.Background()
	s.mirror = mirror.NewInMemoryMirror()
	now := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	s.service = NewService(s.mirror, WithClock(func() time.Time { return now }))

	_, err := s.mirror.Projects.Upsert(s.ctx, []gitlab.Project{{ID: 5, PathWithNamespace: "team/app"}})
	s.Require().NoError(err)
	_, err = s.mirror.Milestones.Upsert(s.ctx, []gitlab.Milestone{
		{ID: 1, ProjectID: 5, Title: "Sprint 2", State: "active", StartDate: date(2026, 5, 4), DueDate: date(2026, 5, 10)},
		{ID: 2, ProjectID: 5, Title: "Sprint 1", State: "closed", StartDate: date(2026, 4, 20), DueDate: date(2026, 5, 1)},
		{ID: 3, ProjectID: 5, Title: "Later B", State: "active"},
		{ID: 4, ProjectID: 5, Title: "Later A", State: "active"},
		{ID: 9, ProjectID: 6, Title: "Other project", State: "active"},
	})
	s.Require().NoError(err)
}

func ptr(v int) *int { return &v }

func (s *ScrumSuite) seedIssues(issues ...gitlab.Issue) {
	_, err := s.mirror.Issues.Upsert(s.ctx, issues)
	s.Require().NoError(err)
}

func (s *ScrumSuite) TestOrderAndBacklog() {
	board, err := s.service.Sprints(s.ctx, 5)
	s.Require().NoError(err)
	s.Equal("team/app", board.Project)

	var titles []string
	for _, sp := range board.Sprints {
		titles = append(titles, sp.Title)
	}
	s.Equal([]string{"Sprint 1", "Sprint 2", "Later A", "Later B", BacklogTitle}, titles)
	s.Nil(board.Sprints[4].MilestoneID)
}

func (s *ScrumSuite) TestActiveOnlyWithinWindow() {
	board, err := s.service.Sprints(s.ctx, 5)
	s.Require().NoError(err)
	s.False(board.Sprints[0].Active, "closed milestone")
	s.True(board.Sprints[1].Active, "due date is inclusive")
	s.False(board.Sprints[2].Active, "undated milestone")
}

func (s *ScrumSuite) TestCountsAndWeightedPercent() {
	s.seedIssues(
		gitlab.Issue{ID: 1, ProjectID: 5, MilestoneID: ptr(1), State: "closed", Weight: 3},
		gitlab.Issue{ID: 2, ProjectID: 5, MilestoneID: ptr(1), State: "opened", Weight: 5},
		gitlab.Issue{ID: 3, ProjectID: 5, MilestoneID: ptr(1), State: "closed"},
		gitlab.Issue{ID: 4, ProjectID: 5, MilestoneID: ptr(2), State: "closed"},
		gitlab.Issue{ID: 5, ProjectID: 5, MilestoneID: ptr(2), State: "opened"},
		gitlab.Issue{ID: 6, ProjectID: 5, MilestoneID: ptr(2), State: "opened"},
		gitlab.Issue{ID: 7, ProjectID: 5, State: "opened"},
		gitlab.Issue{ID: 8, ProjectID: 5, MilestoneID: ptr(77), State: "closed"},
		gitlab.Issue{ID: 9, ProjectID: 6, MilestoneID: ptr(9), State: "closed"},
	)

	board, err := s.service.Sprints(s.ctx, 5)
	s.Require().NoError(err)

	sprint2 := board.Sprints[1]
	s.Equal(IssueCounts{Total: 3, Open: 1, Closed: 2}, sprint2.Issues)
	s.Equal(WeightTotals{Total: 8, Closed: 3}, sprint2.Weight)
	s.Equal(37, sprint2.Percent)

	sprint1 := board.Sprints[0]
	s.Equal(IssueCounts{Total: 3, Open: 2, Closed: 1}, sprint1.Issues)
	s.Equal(33, sprint1.Percent, "falls back to issue counts without weights")

	backlog := board.Sprints[len(board.Sprints)-1]
	s.Equal(IssueCounts{Total: 2, Open: 1, Closed: 1}, backlog.Issues)
	s.Equal(50, backlog.Percent)

	s.Equal(0, board.Sprints[2].Percent)
}

func (s *ScrumSuite) TestUnknownProject() {
	_, err := s.service.Sprints(s.ctx, 404)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ScrumSuite) TestHandler() {
	r := chi.NewRouter()
	NewHandler(s.service, logger.Discard()).Register(r)

	rr := testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodGet, "/scrum/projects/5/sprints/"))
	testutil.AssertStatusOK(s.T(), rr)
	board := testutil.UnmarshalResponse[Board](s.T(), rr)
	s.Len(board.Sprints, 5)

	rr = testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodGet, "/scrum/projects/abc/sprints/"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")

	rr = testutil.DoRequest(r, testutil.NewRequest(s.T(), http.MethodGet, "/scrum/projects/404/sprints/"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, "not_found")
}
