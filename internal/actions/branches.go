package actions

import (
	"context"

	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	gl "gitlab.com/gitlab-org/api/client-go"
)

// projectAction expands --project into the target of every row.
type projectAction struct {
	project *template.Template
}

func newProjectAction(req Request) (projectAction, error) {
	project, err := parseTemplate("project", req.Project)
	if err != nil {
		return projectAction{}, err
	}

	return projectAction{project: project}, nil
}

func (a projectAction) Target(row roster.Row) (string, error) {
	return a.project.Expand(row, nil)
}

// branchTemplate is the optional --branch template.
type branchTemplate struct {
	t *template.Template
}

func newBranchTemplate(req Request) (branchTemplate, error) {
	t, err := parseOptionalTemplate("branch", req.Branch)
	if err != nil {
		return branchTemplate{}, err
	}
	return branchTemplate{t: t}, nil
}

// expand returns the branch for row, empty when --branch was not given.
func (b branchTemplate) expand(row roster.Row) (string, error) {
	if b.t == nil {
		return "", nil
	}
	return b.t.Expand(row, nil)
}

// of expands the branch for row and falls back to the default branch.
func (b branchTemplate) of(row roster.Row, project *gitlab.Project) (string, error) {
	branch, err := b.expand(row)
	if err != nil {
		return "", err
	}
	return branchOf(branch, project), nil
}

func branchOf(branch string, project *gitlab.Project) string {
	if branch != "" {
		return branch
	}
	return project.DefaultBranch
}

type unprotect struct {
	projectAction

	branch branchTemplate
	host   Host
}

func newUnprotect(req Request, host Host) (*unprotect, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	return &unprotect{projectAction: base, branch: branch, host: host}, nil
}

func (a *unprotect) Name() string        { return NameUnprotect }
func (a *unprotect) ProjectScoped() bool { return true }

func (a *unprotect) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.of(row, project)
	if err != nil {
		return Outcome{}, err
	}

	removed, err := a.host.UnprotectBranch(ctx, project, branch)
	if err != nil {
		return Outcome{}, err
	}

	if !removed {
		return ok(branch + " not protected"), nil
	}

	return ok("unprotected " + branch), nil
}

type protect struct {
	projectAction

	branch branchTemplate
	push   gl.AccessLevelValue
	merge  gl.AccessLevelValue
	host   Host
}

func newProtect(req Request, host Host) (*protect, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	branch, err := newBranchTemplate(req)
	if err != nil {
		return nil, err
	}

	push, err := parseAccessLevel("push-access-level", req.PushAccessLevel, gl.MaintainerPermissions)
	if err != nil {
		return nil, err
	}

	merge, err := parseAccessLevel("merge-access-level", req.MergeAccessLevel, gl.MaintainerPermissions)
	if err != nil {
		return nil, err
	}

	return &protect{projectAction: base, branch: branch, push: push, merge: merge, host: host}, nil
}

func (a *protect) Name() string        { return NameProtect }
func (a *protect) ProjectScoped() bool { return true }

func (a *protect) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	branch, err := a.branch.of(row, project)
	if err != nil {
		return Outcome{}, err
	}

	changed, err := a.host.ProtectBranch(ctx, project, branch, a.push, a.merge)
	if err != nil {
		return Outcome{}, err
	}

	if !changed {
		return ok(branch + " already protected"), nil
	}

	return ok("protected " + branch), nil
}
