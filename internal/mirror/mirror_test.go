package mirror

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"eam/internal/gitlab"
	"eam/internal/portfolio/store"
)

type MirrorSuite struct {
	suite.Suite
	ctx    context.Context
	mirror *Mirror
}

func TestMirrorSuite(t *testing.T) {
	suite.Run(t, new(MirrorSuite))
}

func (s *MirrorSuite) SetupTest() {
	s.ctx = context.Background()
	s.mirror = NewInMemoryMirror()
}

func (s *MirrorSuite) TestUpsertReplacesOnNaturalKey() {
	_, err := s.mirror.Branches.Upsert(s.ctx, []gitlab.Branch{
		{ProjectID: 1, Name: "main", CommitSHA: "a"},
		{ProjectID: 2, Name: "main", CommitSHA: "b"},
	})
	s.Require().NoError(err)
	_, err = s.mirror.Branches.Upsert(s.ctx, []gitlab.Branch{{ProjectID: 1, Name: "main", CommitSHA: "c"}})
	s.Require().NoError(err)

	rows, total, err := s.mirror.Branches.List(s.ctx, store.Query{All: true})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal("c", rows[0].CommitSHA)
	s.Equal(2, rows[1].ProjectID)
	s.False(rows[0].SyncedAt.IsZero())
}

func (s *MirrorSuite) TestListFiltersAndOrders() {
	_, err := s.mirror.Issues.Upsert(s.ctx, []gitlab.Issue{
		{ID: 10, ProjectID: 1, Title: "a", State: "opened"},
		{ID: 11, ProjectID: 1, Title: "b", State: "closed"},
		{ID: 12, ProjectID: 2, Title: "c", State: "opened"},
	})
	s.Require().NoError(err)

	rows, total, err := s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"project_id": "1"}})
	s.Require().NoError(err)
	s.Equal(2, total)
	s.Equal([]int{11, 10}, []int{rows[0].ID, rows[1].ID})

	rows, _, err = s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"state": "OPENED"}})
	s.Require().NoError(err)
	s.Len(rows, 2)

	_, _, err = s.mirror.Issues.List(s.ctx, store.Query{Filters: map[string]string{"group_id": "1"}})
	s.Error(err)
}

func (s *MirrorSuite) TestCommitsNewestFirstWithUndatedLast() {
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)
	_, err := s.mirror.Commits.Upsert(s.ctx, []gitlab.Commit{
		{ProjectID: 1, SHA: "undated"},
		{ProjectID: 1, SHA: "old", CommittedAt: &older},
		{ProjectID: 1, SHA: "new", CommittedAt: &newer},
	})
	s.Require().NoError(err)

	rows, err := ForProject(s.ctx, s.mirror.Commits, 1)
	s.Require().NoError(err)
	s.Require().Len(rows, 3)
	s.Equal([]string{"new", "old", "undated"}, []string{rows[0].SHA, rows[1].SHA, rows[2].SHA})
}

func (s *MirrorSuite) TestProjectAndGroupIDs() {
	_, err := s.mirror.Projects.Upsert(s.ctx, []gitlab.Project{
		{ID: 5, PathWithNamespace: "b/x"},
		{ID: 3, PathWithNamespace: "a/y"},
	})
	s.Require().NoError(err)
	_, err = s.mirror.Groups.Upsert(s.ctx, []gitlab.Group{{ID: 9, FullPath: "a"}})
	s.Require().NoError(err)

	ids, err := s.mirror.ProjectIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int{3, 5}, ids)

	groups, err := s.mirror.GroupIDs(s.ctx)
	s.Require().NoError(err)
	s.Equal([]int{9}, groups)
}

func TestUpsertQuery(t *testing.T) {
	q := upsertQuery(BranchKind)
	assert.Contains(t, q, "ON CONFLICT (project_id, name) DO UPDATE SET")
	assert.Contains(t, q, "commit_sha = EXCLUDED.commit_sha")
	assert.NotContains(t, q, "name = EXCLUDED.name")
	assert.Contains(t, q, "$7)")
}

func checkKind[T any](t *testing.T, kind Kind[T]) {
	t.Helper()
	var row T
	assert.Len(t, kind.Values(&row), len(kind.Columns), "%s values", kind.Name)
	assert.Len(t, kind.Fields(&row), len(kind.Columns), "%s fields", kind.Name)
	for _, k := range kind.Key {
		assert.Contains(t, kind.Columns, k, "%s key", kind.Name)
	}
	for key, col := range kind.Filters {
		assert.Contains(t, kind.Columns, col, "%s filter %s", kind.Name, key)
	}
	assert.Contains(t, kind.Columns, "synced_at", kind.Name)
}

func TestKindsAreConsistent(t *testing.T) {
	checkKind(t, GroupKind)
	checkKind(t, ProjectKind)
	checkKind(t, BranchKind)
	checkKind(t, CommitKind)
	checkKind(t, IssueKind)
	checkKind(t, MergeRequestKind)
	checkKind(t, PipelineKind)
	checkKind(t, JobKind)
	checkKind(t, EpicKind)
	checkKind(t, MilestoneKind)
	checkKind(t, VulnerabilityKind)
}

func newTestRouter(t *testing.T, m *Mirror) http.Handler {
	t.Helper()
	h := NewHandler(m.Readers(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func TestHandlerListsWithFilters(t *testing.T) {
	m := NewInMemoryMirror()
	_, err := m.MergeRequests.Upsert(context.Background(), []gitlab.MergeRequest{
		{ID: 1, ProjectID: 4, State: "opened"},
		{ID: 2, ProjectID: 4, State: "merged"},
	})
	require.NoError(t, err)
	router := newTestRouter(t, m)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/gitlab/merge_requests/?project_id=4&state=merged", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp struct {
		Items []gitlab.MergeRequest `json:"items"`
		Total int                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Total)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, 2, resp.Items[0].ID)
}

func TestHandlerRejectsBadRequests(t *testing.T) {
	router := newTestRouter(t, NewInMemoryMirror())
	cases := map[string]int{
		"/gitlab/unknown/":             http.StatusNotFound,
		"/gitlab/issues/?page=0":       http.StatusBadRequest,
		"/gitlab/issues/?colour=red":   http.StatusBadRequest,
		"/gitlab/groups/?project_id=1": http.StatusBadRequest,
		"/gitlab/issues/?state=opened": http.StatusOK,
		"/gitlab/epics/?group_id=2":    http.StatusOK,
	}
	for path, want := range cases {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, want, rr.Code, path)
		if want != http.StatusOK {
			assert.True(t, strings.Contains(rr.Body.String(), `"error"`), path)
		}
	}
}
