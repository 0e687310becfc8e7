//go:build integration

package mirror

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"eam/internal/gitlab"
	"eam/internal/portfolio/store"
	"eam/pkg/testutil/containers"
)

type PostgresMirrorSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	mirror   *Mirror
	ctx      context.Context
}

func TestPostgresMirrorSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresMirrorSuite))
}

func (s *PostgresMirrorSuite) SetupSuite() {
	s.postgres = containers.GetManager().GetPostgres(s.T())
	s.mirror = NewPostgresMirror(s.postgres.DB)
	s.ctx = context.Background()
}

func (s *PostgresMirrorSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(s.ctx, "gitlab_branches", "gitlab_issues", "gitlab_projects"))
}

func (s *PostgresMirrorSuite) TestBranchUpsertOnCompositeKey() {
	_, err := s.mirror.Branches.Upsert(s.ctx, []gitlab.Branch{
		{ProjectID: 1, Name: "main", CommitSHA: "a"},
		{ProjectID: 2, Name: "main", CommitSHA: "b"},
	})
	s.Require().NoError(err)
	n, err := s.mirror.Branches.Upsert(s.ctx, []gitlab.Branch{{ProjectID: 1, Name: "main", CommitSHA: "c", Default: true}})
	s.Require().NoError(err)
	s.Equal(1, n)

	rows, total, err := s.mirror.Branches.List(s.ctx, store.Query{All: true})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal("c", rows[0].CommitSHA)
	s.True(rows[0].Default)
	s.Equal(2, rows[1].ProjectID)
	s.False(rows[0].SyncedAt.IsZero())
}

func (s *PostgresMirrorSuite) TestIssueArraysAndFilters() {
	milestone := 7
	_, err := s.mirror.Issues.Upsert(s.ctx, []gitlab.Issue{
		{ID: 10, IID: 1, ProjectID: 1, Title: "a", State: "opened", Labels: []string{"bug", "ui"}, MilestoneID: &milestone},
		{ID: 11, IID: 2, ProjectID: 1, Title: "b", State: "closed"},
		{ID: 12, IID: 1, ProjectID: 2, Title: "c", State: "opened"},
	})
	s.Require().NoError(err)

	rows, total, err := s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"project_id": "1"}})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal([]int{11, 10}, []int{rows[0].ID, rows[1].ID})
	s.Equal([]string{"bug", "ui"}, rows[1].Labels)
	s.Require().NotNil(rows[1].MilestoneID)
	s.Equal(7, *rows[1].MilestoneID)

	rows, _, err = s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"state": "OPENED"}})
	s.Require().NoError(err)
	s.Len(rows, 2)

	rows, _, err = s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"milestone_id": "7"}})
	s.Require().NoError(err)
	s.Len(rows, 1)

	_, _, err = s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"group_id": "1"}})
	s.Error(err)

	ids, err := s.mirror.ProjectIDs(s.ctx)
	s.Require().NoError(err)
	s.Empty(ids)
}
