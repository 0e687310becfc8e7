package mirror

import (
	"context"
	"database/sql"

	"eam/internal/gitlab"
	"eam/internal/portfolio/store"
)

// Repository stores one mirrored kind.
type Repository[T any] interface {
	Kind() Kind[T]
	Upsert(ctx context.Context, items []T) (int, error)
	List(ctx context.Context, q store.Query) ([]T, int, error)
}

// Mirror groups the repositories of every mirrored kind.
type Mirror struct {
	Groups          Repository[gitlab.Group]
	Projects        Repository[gitlab.Project]
	Branches        Repository[gitlab.Branch]
	Commits         Repository[gitlab.Commit]
	Issues          Repository[gitlab.Issue]
	MergeRequests   Repository[gitlab.MergeRequest]
	Pipelines       Repository[gitlab.Pipeline]
	Jobs            Repository[gitlab.Job]
	Epics           Repository[gitlab.Epic]
	Milestones      Repository[gitlab.Milestone]
	Vulnerabilities Repository[gitlab.Vulnerability]
}

func NewInMemoryMirror() *Mirror {
	return &Mirror{
		Groups:          NewInMemory(GroupKind),
		Projects:        NewInMemory(ProjectKind),
		Branches:        NewInMemory(BranchKind),
		Commits:         NewInMemory(CommitKind),
		Issues:          NewInMemory(IssueKind),
		MergeRequests:   NewInMemory(MergeRequestKind),
		Pipelines:       NewInMemory(PipelineKind),
		Jobs:            NewInMemory(JobKind),
		Epics:           NewInMemory(EpicKind),
		Milestones:      NewInMemory(MilestoneKind),
		Vulnerabilities: NewInMemory(VulnerabilityKind),
	}
}

func NewPostgresMirror(db *sql.DB) *Mirror {
	return &Mirror{
		Groups:          NewPostgres(db, GroupKind),
		Projects:        NewPostgres(db, ProjectKind),
		Branches:        NewPostgres(db, BranchKind),
		Commits:         NewPostgres(db, CommitKind),
		Issues:          NewPostgres(db, IssueKind),
		MergeRequests:   NewPostgres(db, MergeRequestKind),
		Pipelines:       NewPostgres(db, PipelineKind),
		Jobs:            NewPostgres(db, JobKind),
		Epics:           NewPostgres(db, EpicKind),
		Milestones:      NewPostgres(db, MilestoneKind),
		Vulnerabilities: NewPostgres(db, VulnerabilityKind),
	}
}

// ProjectIDs returns the ids of every mirrored project.
func (m *Mirror) ProjectIDs(ctx context.Context) ([]int, error) {
	projects, _, err := m.Projects.List(ctx, store.Query{All: true})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
	}
	return ids, nil
}

// GroupIDs returns the ids of every mirrored group.
func (m *Mirror) GroupIDs(ctx context.Context) ([]int, error) {
	groups, _, err := m.Groups.List(ctx, store.Query{All: true})
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.ID)
	}
	return ids, nil
}

// ForProject lists every row of repo that belongs to projectID.
func ForProject[T any](ctx context.Context, repo Repository[T], projectID int) ([]T, error) {
	rows, _, err := repo.List(ctx, store.Query{
		Filters: map[string]string{"project_id": itoa(projectID)},
		All:     true,
	})
	return rows, err
}

// Reader is the untyped read side of a repository, used by the HTTP handler.
type Reader interface {
	Name() string
	FilterKeys() []string
	Read(ctx context.Context, q store.Query) (any, int, error)
}

type reader[T any] struct {
	repo Repository[T]
}

func (r reader[T]) Name() string         { return r.repo.Kind().Name }
func (r reader[T]) FilterKeys() []string { return r.repo.Kind().FilterKeys() }

func (r reader[T]) Read(ctx context.Context, q store.Query) (any, int, error) {
	return r.repo.List(ctx, q)
}

// Readers returns a Reader per mirrored kind.
func (m *Mirror) Readers() []Reader {
	return []Reader{
		reader[gitlab.Group]{m.Groups},
		reader[gitlab.Project]{m.Projects},
		reader[gitlab.Branch]{m.Branches},
		reader[gitlab.Commit]{m.Commits},
		reader[gitlab.Issue]{m.Issues},
		reader[gitlab.MergeRequest]{m.MergeRequests},
		reader[gitlab.Pipeline]{m.Pipelines},
		reader[gitlab.Job]{m.Jobs},
		reader[gitlab.Epic]{m.Epics},
		reader[gitlab.Milestone]{m.Milestones},
		reader[gitlab.Vulnerability]{m.Vulnerabilities},
	}
}
