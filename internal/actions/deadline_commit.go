package actions

import (
	"context"
	"errors"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"go.uber.org/zap"
)

type deadlineCommit struct {
	projectAction

	branch    branchTemplate
	deadline  time.Time
	filter    deadline.Filter
	preferTag string
	firstLine string
	format    *template.Template

	host Host
	out  *sink

	logger *zap.Logger
}

func newDeadlineCommit(req Request, host Host, out Output, now time.Time, logger *zap.Logger) (*deadlineCommit, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	formatSource := req.Format
	if formatSource == "" {
		formatSource = DefaultFormat
	}
	format, err := parseTemplate("format", formatSource)
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

	firstLine := DefaultFirstLine
	if req.FirstLine != nil {
		firstLine = *req.FirstLine
	}

	return &deadlineCommit{
		projectAction: base,

		branch:    branch,
		deadline:  until,
		filter:    filter,
		preferTag: req.PreferTag,
		firstLine: firstLine,
		format:    format,

		host: host,
		out:  newSink(req.Output, out),

		logger: logger,
	}, nil
}

func (a *deadlineCommit) Name() string { return NameDeadlineCommit }

// Prepare opens the output and writes the header line.
func (a *deadlineCommit) Prepare(_ context.Context) error {
	if err := a.out.open(); err != nil {
		return err
	}

	a.logger.Debug("selecting commits",
		zap.Time("deadline", a.deadline),
		zap.String("output", a.out.path),
		zap.String("prefer_tag", a.preferTag))

	if a.firstLine == "" {
		return nil
	}

	return a.out.writeLine(a.firstLine)
}

func (a *deadlineCommit) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	commit, found, err := a.tagged(ctx, project)
	if err != nil {
		return Outcome{}, err
	}

	if !found {
		branch, err := a.branch.of(row, project)
		if err != nil {
			return Outcome{}, err
		}

		commits, err := a.host.ListCommits(ctx, project, branch, a.deadline)
		if err != nil {
			return Outcome{}, err
		}

		commit, found = deadline.SelectMatching(commits, a.deadline, a.filter)
	}

	line, err := a.format.Expand(row, template.Context{
		"commit": template.Struct(commitFields(commit, found)),
	})
	if err != nil {
		return Outcome{}, err
	}

	if err := a.out.writeLine(line); err != nil {
		return Outcome{}, err
	}

	if !found {
		return skipped("no commit before deadline"), nil
	}

	return ok(shortID(commit.ID)), nil
}

// tagged returns the commit of the --prefer-tag tag when it was made before
// the deadline. The author blacklist does not apply to it.
func (a *deadlineCommit) tagged(ctx context.Context, project *gitlab.Project) (deadline.Commit, bool, error) {
	if a.preferTag == "" {
		return deadline.Commit{}, false, nil
	}

	tag, err := a.host.GetTag(ctx, project, a.preferTag)
	if errors.Is(err, gitlab.ErrNotFound) {
		return deadline.Commit{}, false, nil
	}
	if err != nil {
		return deadline.Commit{}, false, err
	}

	commit, found := deadline.Select([]deadline.Commit{tag.Commit}, a.deadline)
	if !found {
		a.logger.Debug("tag made after deadline, ignored",
			zap.String("project", project.Path),
			zap.String("tag", a.preferTag))
	}

	return commit, found, nil
}

func (a *deadlineCommit) Finish() error {
	return a.out.close()
}

// commitFields exposes a commit to output templates. A missing commit has
// every field empty.
func commitFields(c deadline.Commit, found bool) template.Fields {
	if !found {
		return template.Fields{"id": "", "short_id": "", "title": "", "author_email": "", "timestamp": ""}
	}

	short := c.ShortID
	if short == "" {
		short = shortID(c.ID)
	}

	return template.Fields{
		"id":           c.ID,
		"short_id":     short,
		"title":        c.Title,
		"author_email": c.AuthorEmail,
		"timestamp":    c.Timestamp.Format(time.RFC3339),
	}
}
