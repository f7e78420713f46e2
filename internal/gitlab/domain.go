package gitlab

import (
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	gl "gitlab.com/gitlab-org/api/client-go"
)

// Project is the subset of a GitLab project the actions work with.
type Project struct {
	ID            int
	Path          string // full path with namespace
	DefaultBranch string
	HTTPURL       string
	SSHURL        string
	Empty         bool
	ImportStatus  string
	ForkedFrom    string // upstream path, empty when not a fork
}

// User is a GitLab account.
type User struct {
	ID       int
	Username string
	Name     string
}

// Member is a project member as listed by the API.
type Member struct {
	Username    string
	Name        string
	AccessLevel gl.AccessLevelValue
}

// MembershipChange describes what AddMember did.
type MembershipChange string

const (
	MembershipAdded     MembershipChange = "added"
	MembershipUpdated   MembershipChange = "updated"
	MembershipUnchanged MembershipChange = "unchanged"
)

// Tag is a git tag and the commit it points at.
type Tag struct {
	Name   string
	Commit deadline.Commit
}

// FileChange describes what PutFile did.
type FileChange string

const (
	FileCreated FileChange = "created"
	FileUpdated FileChange = "updated"
	FileKept    FileChange = "kept"
)

// FileCommit is a single file committed through the API.
type FileCommit struct {
	Branch  string
	Path    string
	Content string
	Message string
}

type Job struct {
	ID     int
	Name   string
	Status string
}

// Pipeline is a CI pipeline run on one commit. Jobs are only filled by
// PipelineJobs.
type Pipeline struct {
	ID     int
	Status string
	SHA    string
	Jobs   []Job
}

// CommitDetails is a commit with its parents and line statistics.
type CommitDetails struct {
	ID           string
	Title        string
	AuthorEmail  string
	AuthoredDate time.Time
	ParentIDs    []string
	Additions    int
	Deletions    int
	Total        int
}
