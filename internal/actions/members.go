package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	gl "gitlab.com/gitlab-org/api/client-go"
)

type memberAction struct {
	projectAction

	loginColumn string
	host        Host
}

func (a memberAction) resolve(ctx context.Context, row roster.Row, target string) (*gitlab.Project, *gitlab.User, error) {
	login, _ := row.Get(a.loginColumn)
	login = strings.TrimSpace(login)
	if login == "" {
		return nil, nil, fmt.Errorf("%w: column %q is empty or missing", ErrMissingLogin, a.loginColumn)
	}

	user, err := a.host.FindUser(ctx, login)
	if err != nil {
		return nil, nil, err
	}

	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return nil, nil, err
	}

	return project, user, nil
}

type addMember struct {
	memberAction

	level gl.AccessLevelValue
}

func newAddMember(req Request, host Host) (*addMember, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	level, err := parseAccessLevel("access-level", req.AccessLevel, gl.DeveloperPermissions)
	if err != nil {
		return nil, err
	}

	return &addMember{
		memberAction: memberAction{projectAction: base, loginColumn: req.LoginColumn, host: host},
		level:        level,
	}, nil
}

func (a *addMember) Name() string { return NameAddMember }

func (a *addMember) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, user, err := a.resolve(ctx, row, target)
	if err != nil {
		return Outcome{}, err
	}

	change, err := a.host.AddMember(ctx, project, user, a.level)
	if err != nil {
		return Outcome{}, err
	}

	return ok(fmt.Sprintf("%s %s as %s", user.Username, change, gitlab.AccessLevelName(a.level))), nil
}

type removeMember struct {
	memberAction
}

func newRemoveMember(req Request, host Host) (*removeMember, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	return &removeMember{
		memberAction: memberAction{projectAction: base, loginColumn: req.LoginColumn, host: host},
	}, nil
}

func (a *removeMember) Name() string { return NameRemoveMember }

func (a *removeMember) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, user, err := a.resolve(ctx, row, target)
	if err != nil {
		return Outcome{}, err
	}

	removed, err := a.host.RemoveMember(ctx, project, user)
	if err != nil {
		return Outcome{}, err
	}

	if !removed {
		return ok(user.Username + " not a member"), nil
	}

	return ok(user.Username + " removed"), nil
}

// getMembers lists the members of every project.
type getMembers struct {
	projectAction

	inherited bool
	firstLine string
	format    *template.Template

	host Host
	out  *sink
}

func newGetMembers(req Request, host Host, out Output) (*getMembers, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	formatSource := req.Format
	if formatSource == "" {
		formatSource = DefaultMembersFormat
	}
	format, err := parseTemplate("format", formatSource)
	if err != nil {
		return nil, err
	}

	firstLine := DefaultMembersFirstLine
	if req.FirstLine != nil {
		firstLine = *req.FirstLine
	}

	return &getMembers{
		projectAction: base,

		inherited: req.Inherited,
		firstLine: firstLine,
		format:    format,

		host: host,
		out:  newSink(req.Output, out),
	}, nil
}

func (a *getMembers) Name() string        { return NameGetMembers }
func (a *getMembers) ProjectScoped() bool { return true }

func (a *getMembers) Prepare(_ context.Context) error {
	if err := a.out.open(); err != nil {
		return err
	}
	if a.firstLine == "" {
		return nil
	}
	return a.out.writeLine(a.firstLine)
}

func (a *getMembers) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	members, err := a.host.ListMembers(ctx, project, a.inherited)
	if err != nil {
		return Outcome{}, err
	}

	for _, m := range members {
		line, err := a.format.Expand(row, template.Context{
			"project": template.String(project.Path),
			"member": template.Struct(template.Fields{
				"login":        m.Username,
				"name":         m.Name,
				"access_level": gitlab.AccessLevelName(m.AccessLevel),
			}),
		})
		if err != nil {
			return Outcome{}, err
		}
		if err := a.out.writeLine(line); err != nil {
			return Outcome{}, err
		}
	}

	return ok(fmt.Sprintf("%d members", len(members))), nil
}

func (a *getMembers) Finish() error {
	return a.out.close()
}
