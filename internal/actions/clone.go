package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"go.uber.org/zap"
)

type clone struct {
	projectAction

	to       *template.Template
	commit   *template.Template
	branch   branchTemplate
	deadline time.Time
	filter   deadline.Filter

	host  Host
	repos Repositories

	logger *zap.Logger
}

func newClone(req Request, host Host, repos Repositories, now time.Time, logger *zap.Logger) (*clone, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	to, err := parseTemplate("to", req.To)
	if err != nil {
		return nil, err
	}

	commit, err := parseOptionalTemplate("commit", req.Commit)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	until, err := parseDeadline(req.Deadline, now)
	if err != nil {
		return nil, err
	}

	filter, err := parseBlacklist(req.Blacklist)
	if err != nil {
		return nil, err
	}

	return &clone{
		projectAction: base,

		to:       to,
		commit:   commit,
		branch:   branch,
		deadline: until,
		filter:   filter,

		host:  host,
		repos: repos,

		logger: logger,
	}, nil
}

func (a *clone) Name() string        { return NameClone }
func (a *clone) ProjectScoped() bool { return true }

func (a *clone) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	dir, err := a.to.Expand(row, nil)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.expand(row)
	if err != nil {
		return Outcome{}, err
	}

	revision, err := a.revision(ctx, row, project, branchOf(branch, project))
	if err != nil {
		return Outcome{}, err
	}

	repo, err := a.repos.CloneOrFetch(ctx, git.CloneRequest{
		URL:       a.repos.SelectURL(project.HTTPURL, project.SSHURL),
		Branch:    branch,
		Directory: dir,
	})
	if err != nil {
		return Outcome{}, err
	}

	verb := "cloned"
	if repo.Fetched {
		verb = "fetched"
	}

	if revision == "" {
		a.logger.Warn("no commit before deadline, checkout skipped",
			zap.String("target", target),
			zap.Time("deadline", a.deadline))

		// An empty repository has no HEAD to report.
		head, err := a.repos.HeadCommit(ctx, dir)
		if err != nil {
			a.logger.Debug("failed to read head", zap.String("target", target), zap.Error(err))
			return skipped(verb + ", no commit before deadline"), nil
		}

		return skipped(fmt.Sprintf("%s at %s, no commit before deadline", verb, shortID(head))), nil
	}

	if err := a.repos.ResetToCommit(ctx, dir, revision); err != nil {
		return Outcome{}, err
	}

	return ok(fmt.Sprintf("%s at %s", verb, shortID(revision))), nil
}

// revision picks the commit to check out: the --commit template when given,
// otherwise the last commit before the deadline. Empty means none qualifies.
func (a *clone) revision(ctx context.Context, row roster.Row, project *gitlab.Project, branch string) (string, error) {
	if a.commit != nil {
		return a.commit.Expand(row, nil)
	}

	commits, err := a.host.ListCommits(ctx, project, branch, a.deadline)
	if err != nil {
		return "", err
	}

	commit, found := deadline.SelectMatching(commits, a.deadline, a.filter)
	if !found {
		return "", nil
	}

	return commit.ID, nil
}

func shortID(id string) string {
	const length = 8
	if len(id) > length {
		return id[:length]
	}
	return id
}
