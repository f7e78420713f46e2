package actions

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"go.uber.org/zap"
)

// getFile downloads one file as it was at the last commit before the
// deadline.
type getFile struct {
	projectAction

	remote   *template.Template
	local    *template.Template
	branch   branchTemplate
	deadline time.Time
	filter   deadline.Filter

	host Host

	logger *zap.Logger
}

func newGetFile(req Request, host Host, now time.Time, logger *zap.Logger) (*getFile, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	remote, err := parseTemplate("remote-file", req.RemoteFile)
	if err != nil {
		return nil, err
	}

	local, err := parseTemplate("local-file", req.LocalFile)
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

	return &getFile{
		projectAction: base,

		remote:   remote,
		local:    local,
		branch:   branch,
		deadline: until,
		filter:   filter,

		host: host,

		logger: logger,
	}, nil
}

func (a *getFile) Name() string        { return NameGetFile }
func (a *getFile) ProjectScoped() bool { return true }

func (a *getFile) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.of(row, project)
	if err != nil {
		return Outcome{}, err
	}

	commits, err := a.host.ListCommits(ctx, project, branch, a.deadline)
	if err != nil {
		return Outcome{}, err
	}

	commit, found := deadline.SelectMatching(commits, a.deadline, a.filter)
	if !found {
		return skipped("no commit before deadline"), nil
	}

	extra := template.Context{"commit": template.Struct(commitFields(commit, true))}

	remote, err := a.remote.Expand(row, extra)
	if err != nil {
		return Outcome{}, err
	}

	local, err := a.local.Expand(row, extra)
	if err != nil {
		return Outcome{}, err
	}

	content, err := a.host.GetFile(ctx, project, commit.ID, remote)
	if err != nil {
		return Outcome{}, err
	}

	if dir := filepath.Dir(local); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Outcome{}, fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(local, content, 0o644); err != nil { //nolint:gosec // downloaded student files are not secret
		return Outcome{}, fmt.Errorf("failed to write %s: %w", local, err)
	}

	a.logger.Debug("file downloaded",
		zap.String("target", target),
		zap.String("file", remote),
		zap.String("commit", commit.ID))

	return ok(fmt.Sprintf("%s at %s", remote, shortID(commit.ID))), nil
}

// putFile commits a local file into every project.
type putFile struct {
	projectAction

	from        *template.Template
	to          *template.Template
	branch      branchTemplate
	message     *template.Template
	force       bool
	skipMissing bool
	once        bool

	host Host

	logger *zap.Logger
}

func newPutFile(req Request, host Host, logger *zap.Logger) (*putFile, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	from, err := parseTemplate("from", req.From)
	if err != nil {
		return nil, err
	}

	to, err := parseTemplate("to", req.To)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	messageSource := req.Message
	if messageSource == "" {
		messageSource = DefaultPutFileMessage
	}
	message, err := parseTemplate("message", messageSource)
	if err != nil {
		return nil, err
	}

	return &putFile{
		projectAction: base,

		from:        from,
		to:          to,
		branch:      branch,
		message:     message,
		force:       req.ForceCommit,
		skipMissing: req.SkipMissing,
		once:        req.Once,

		host: host,

		logger: logger,
	}, nil
}

func (a *putFile) Name() string        { return NamePutFile }
func (a *putFile) ProjectScoped() bool { return true }

func (a *putFile) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	from, err := a.from.Expand(row, nil)
	if err != nil {
		return Outcome{}, err
	}

	content, err := os.ReadFile(from)
	switch {
	case errors.Is(err, fs.ErrNotExist) && a.skipMissing:
		return skipped(from + " does not exist"), nil
	case err != nil:
		return Outcome{}, fmt.Errorf("failed to read %s: %w", from, err)
	}

	to, err := a.to.Expand(row, nil)
	if err != nil {
		return Outcome{}, err
	}

	message, err := a.message.Expand(row, template.Context{"target_filename": template.String(to)})
	if err != nil {
		return Outcome{}, err
	}

	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.of(row, project)
	if err != nil {
		return Outcome{}, err
	}

	if !a.force {
		current, err := a.host.GetFile(ctx, project, branch, to)
		switch {
		case err == nil && bytes.Equal(current, content):
			return ok(to + " unchanged"), nil
		case err == nil && a.once:
			return ok(to + " " + string(gitlab.FileKept)), nil
		case err != nil && !errors.Is(err, gitlab.ErrNotFound):
			return Outcome{}, err
		}
	}

	change, err := a.host.PutFile(ctx, project, gitlab.FileCommit{
		Branch:  branch,
		Path:    to,
		Content: string(content),
		Message: message,
	}, !a.once)
	if err != nil {
		return Outcome{}, err
	}

	a.logger.Debug("file committed",
		zap.String("target", target),
		zap.String("file", to),
		zap.String("change", string(change)))

	return ok(to + " " + string(change)), nil
}
