package actions

import (
	"context"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	gl "gitlab.com/gitlab-org/api/client-go"
)

const (
	NameAccounts            = "accounts"
	NameFork                = "fork"
	NameUnprotect           = "unprotect"
	NameProtect             = "protect"
	NameAddMember           = "add-member"
	NameRemoveMember        = "remove-member"
	NameGetMembers          = "get-members"
	NameCreateTag           = "create-tag"
	NameProtectTag          = "protect-tag"
	NameUnprotectTag        = "unprotect-tag"
	NameClone               = "clone"
	NameGetFile             = "get-file"
	NamePutFile             = "put-file"
	NameDeadlineCommit      = "deadline-commit"
	NameGetLastPipeline     = "get-last-pipeline"
	NameGetPipelineAtCommit = "get-pipeline-at-commit"
	NameCommitStats         = "commit-stats"
)

// Names lists every action in the order help shows them.
func Names() []string {
	return []string{
		NameAccounts,
		NameFork,
		NameUnprotect,
		NameProtect,
		NameAddMember,
		NameRemoveMember,
		NameGetMembers,
		NameCreateTag,
		NameProtectTag,
		NameUnprotectTag,
		NameClone,
		NameGetFile,
		NamePutFile,
		NameDeadlineCommit,
		NameGetLastPipeline,
		NameGetPipelineAtCommit,
		NameCommitStats,
	}
}

var mutating = map[string]bool{
	NameFork:         true,
	NameUnprotect:    true,
	NameProtect:      true,
	NameAddMember:    true,
	NameRemoveMember: true,
	NameCreateTag:    true,
	NameProtectTag:   true,
	NameUnprotectTag: true,
	NamePutFile:      true,
}

// Mutating reports whether the action changes remote state and therefore
// honours dry runs.
func Mutating(name string) bool {
	return mutating[name]
}

// Action is one operation applied to every roster row.
type Action interface {
	Name() string
	// Target expands the project path the row refers to.
	Target(row roster.Row) (string, error)
	Apply(ctx context.Context, row roster.Row, target string) (Outcome, error)
}

// preparer is implemented by actions that need a setup step before the
// first row, such as writing an output header.
type preparer interface {
	Prepare(ctx context.Context) error
}

// finisher is implemented by actions holding resources until the last row.
type finisher interface {
	Finish() error
}

// projectScoped marks actions where a second row expanding to the same
// project would repeat the same work.
type projectScoped interface {
	ProjectScoped() bool
}

// Host is the remote capability set the actions use.
type Host interface {
	GetProject(ctx context.Context, path string) (*gitlab.Project, error)
	ForkProject(ctx context.Context, source *gitlab.Project, targetPath string) (*gitlab.Project, bool, error)
	WaitForFork(ctx context.Context, project *gitlab.Project) (*gitlab.Project, error)
	RemoveForkRelation(ctx context.Context, project *gitlab.Project) (bool, error)
	MakePrivate(ctx context.Context, project *gitlab.Project) error
	UnprotectBranch(ctx context.Context, project *gitlab.Project, branch string) (bool, error)
	ProtectBranch(ctx context.Context, project *gitlab.Project, branch string, push, merge gl.AccessLevelValue) (bool, error)
	FindUser(ctx context.Context, login string) (*gitlab.User, error)
	AddMember(ctx context.Context, project *gitlab.Project, user *gitlab.User, level gl.AccessLevelValue) (gitlab.MembershipChange, error)
	RemoveMember(ctx context.Context, project *gitlab.Project, user *gitlab.User) (bool, error)
	ListMembers(ctx context.Context, project *gitlab.Project, inherited bool) ([]gitlab.Member, error)
	ListCommits(ctx context.Context, project *gitlab.Project, branch string, until time.Time) ([]deadline.Commit, error)
	CommitDetails(ctx context.Context, project *gitlab.Project, sha string) (*gitlab.CommitDetails, error)
	CreateTag(ctx context.Context, project *gitlab.Project, name, ref, message string) (bool, error)
	GetTag(ctx context.Context, project *gitlab.Project, name string) (*gitlab.Tag, error)
	ProtectTag(ctx context.Context, project *gitlab.Project, name string, level gl.AccessLevelValue) (bool, error)
	UnprotectTag(ctx context.Context, project *gitlab.Project, name string) (bool, error)
	GetFile(ctx context.Context, project *gitlab.Project, ref, filePath string) ([]byte, error)
	PutFile(ctx context.Context, project *gitlab.Project, file gitlab.FileCommit, overwrite bool) (gitlab.FileChange, error)
	Pipelines(ctx context.Context, project *gitlab.Project) ([]gitlab.Pipeline, error)
	PipelineJobs(ctx context.Context, project *gitlab.Project, pipeline gitlab.Pipeline) (gitlab.Pipeline, error)
}

// Repositories manages local working copies.
type Repositories interface {
	SelectURL(httpURL, sshURL string) string
	CloneOrFetch(ctx context.Context, req git.CloneRequest) (*git.Repository, error)
	ResetToCommit(ctx context.Context, repoPath, revision string) error
	HeadCommit(ctx context.Context, repoPath string) (string, error)
}
