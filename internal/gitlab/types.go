package gitlab

import "time"

// Page describes where a listing stands. Next is 0 on the last page and
// TotalPages is 0 when GitLab does not report it.
type Page struct {
	Next       int
	TotalPages int
}

// Done reports whether there are no further pages.
func (p Page) Done() bool { return p.Next == 0 }

type Group struct {
	ID          int       `json:"id"`
	Name        string    `json:"name"`
	FullPath    string    `json:"full_path"`
	Description string    `json:"description"`
	WebURL      string    `json:"web_url"`
	ParentID    *int      `json:"parent_id"`
	Visibility  string    `json:"visibility"`
	SyncedAt    time.Time `json:"synced_at"`
}

type Project struct {
	ID                int        `json:"id"`
	Name              string     `json:"name"`
	PathWithNamespace string     `json:"path_with_namespace"`
	Description       string     `json:"description"`
	DefaultBranch     string     `json:"default_branch"`
	WebURL            string     `json:"web_url"`
	NamespaceID       int        `json:"namespace_id"`
	Visibility        string     `json:"visibility"`
	Archived          bool       `json:"archived"`
	LastActivityAt    *time.Time `json:"last_activity_at"`
	CreatedAt         *time.Time `json:"created_at"`
	SyncedAt          time.Time  `json:"synced_at"`
}

type Branch struct {
	ProjectID int       `json:"project_id"`
	Name      string    `json:"name"`
	CommitSHA string    `json:"commit_sha"`
	Merged    bool      `json:"merged"`
	Protected bool      `json:"protected"`
	Default   bool      `json:"default"`
	SyncedAt  time.Time `json:"synced_at"`
}

type Commit struct {
	ProjectID   int        `json:"project_id"`
	SHA         string     `json:"sha"`
	ShortID     string     `json:"short_id"`
	Title       string     `json:"title"`
	AuthorName  string     `json:"author_name"`
	AuthorEmail string     `json:"author_email"`
	CommittedAt *time.Time `json:"committed_at"`
	WebURL      string     `json:"web_url"`
	SyncedAt    time.Time  `json:"synced_at"`
}

type Issue struct {
	ID          int        `json:"id"`
	IID         int        `json:"iid"`
	ProjectID   int        `json:"project_id"`
	Title       string     `json:"title"`
	State       string     `json:"state"`
	Labels      []string   `json:"labels"`
	Assignees   []string   `json:"assignees"`
	Author      string     `json:"author"`
	MilestoneID *int       `json:"milestone_id"`
	Weight      int        `json:"weight"`
	CreatedAt   *time.Time `json:"created_at"`
	UpdatedAt   *time.Time `json:"updated_at"`
	ClosedAt    *time.Time `json:"closed_at"`
	DueDate     *time.Time `json:"due_date"`
	WebURL      string     `json:"web_url"`
	SyncedAt    time.Time  `json:"synced_at"`
}

// Closed reports whether the issue is no longer open.
func (i Issue) Closed() bool { return i.State == "closed" }

type MergeRequest struct {
	ID           int        `json:"id"`
	IID          int        `json:"iid"`
	ProjectID    int        `json:"project_id"`
	Title        string     `json:"title"`
	State        string     `json:"state"`
	SourceBranch string     `json:"source_branch"`
	TargetBranch string     `json:"target_branch"`
	Author       string     `json:"author"`
	Draft        bool       `json:"draft"`
	CreatedAt    *time.Time `json:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at"`
	MergedAt     *time.Time `json:"merged_at"`
	WebURL       string     `json:"web_url"`
	SyncedAt     time.Time  `json:"synced_at"`
}

type Pipeline struct {
	ID        int        `json:"id"`
	ProjectID int        `json:"project_id"`
	Ref       string     `json:"ref"`
	SHA       string     `json:"sha"`
	Status    string     `json:"status"`
	Source    string     `json:"source"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	WebURL    string     `json:"web_url"`
	SyncedAt  time.Time  `json:"synced_at"`
}

type Job struct {
	ID         int        `json:"id"`
	ProjectID  int        `json:"project_id"`
	PipelineID int        `json:"pipeline_id"`
	Name       string     `json:"name"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	Duration   float64    `json:"duration"`
	CreatedAt  *time.Time `json:"created_at"`
	StartedAt  *time.Time `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	WebURL     string     `json:"web_url"`
	SyncedAt   time.Time  `json:"synced_at"`
}

type Epic struct {
	ID        int        `json:"id"`
	IID       int        `json:"iid"`
	GroupID   int        `json:"group_id"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	Labels    []string   `json:"labels"`
	Author    string     `json:"author"`
	StartDate *time.Time `json:"start_date"`
	DueDate   *time.Time `json:"due_date"`
	CreatedAt *time.Time `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
	WebURL    string     `json:"web_url"`
	SyncedAt  time.Time  `json:"synced_at"`
}

type Milestone struct {
	ID        int        `json:"id"`
	IID       int        `json:"iid"`
	ProjectID int        `json:"project_id"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	StartDate *time.Time `json:"start_date"`
	DueDate   *time.Time `json:"due_date"`
	WebURL    string     `json:"web_url"`
	SyncedAt  time.Time  `json:"synced_at"`
}

type Vulnerability struct {
	ID         int        `json:"id"`
	ProjectID  int        `json:"project_id"`
	Title      string     `json:"title"`
	Severity   string     `json:"severity"`
	State      string     `json:"state"`
	ReportType string     `json:"report_type"`
	CreatedAt  *time.Time `json:"created_at"`
	UpdatedAt  *time.Time `json:"updated_at"`
	SyncedAt   time.Time  `json:"synced_at"`
}
