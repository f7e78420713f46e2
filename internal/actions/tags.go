package actions

import (
	"context"
	"fmt"

	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	gl "gitlab.com/gitlab-org/api/client-go"
)

type createTag struct {
	projectAction

	tag     string
	ref     *template.Template
	message *template.Template
	host    Host
}

func newCreateTag(req Request, host Host) (*createTag, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	if err := requireValue("tag", req.Tag); err != nil {
		return nil, err
	}

	ref, err := parseTemplate("ref", req.Ref)
	if err != nil {
		return nil, err
	}

	message, err := parseOptionalTemplate("message", req.Message)
	if err != nil {
		return nil, err
	}

	return &createTag{projectAction: base, tag: req.Tag, ref: ref, message: message, host: host}, nil
}

func (a *createTag) Name() string        { return NameCreateTag }
func (a *createTag) ProjectScoped() bool { return true }

func (a *createTag) Apply(ctx context.Context, row roster.Row, target string) (Outcome, error) {
	extra := template.Context{"tag": template.String(a.tag)}

	ref, err := a.ref.Expand(row, extra)
	if err != nil {
		return Outcome{}, err
	}

	var message string
	if a.message != nil {
		if message, err = a.message.Expand(row, extra); err != nil {
			return Outcome{}, err
		}
	}

	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	created, err := a.host.CreateTag(ctx, project, a.tag, ref, message)
	if err != nil {
		return Outcome{}, err
	}

	if !created {
		return ok("tag " + a.tag + " exists"), nil
	}

	return ok(fmt.Sprintf("tagged %s as %s", shortID(ref), a.tag)), nil
}

type protectTag struct {
	projectAction

	tag   string
	level gl.AccessLevelValue
	host  Host
}

func newProtectTag(req Request, host Host) (*protectTag, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	if err := requireValue("tag", req.Tag); err != nil {
		return nil, err
	}

	level, err := parseAccessLevel("create-access-level", req.CreateAccessLevel, gl.NoPermissions)
	if err != nil {
		return nil, err
	}

	return &protectTag{projectAction: base, tag: req.Tag, level: level, host: host}, nil
}

func (a *protectTag) Name() string        { return NameProtectTag }
func (a *protectTag) ProjectScoped() bool { return true }

func (a *protectTag) Apply(ctx context.Context, _ roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	changed, err := a.host.ProtectTag(ctx, project, a.tag, a.level)
	if err != nil {
		return Outcome{}, err
	}

	if !changed {
		return ok("tag " + a.tag + " already protected"), nil
	}

	return ok("protected tag " + a.tag), nil
}

type unprotectTag struct {
	projectAction

	tag  string
	host Host
}

func newUnprotectTag(req Request, host Host) (*unprotectTag, error) {
	base, err := newProjectAction(req)
	if err != nil {
		return nil, err
	}

	if err := requireValue("tag", req.Tag); err != nil {
		return nil, err
	}

	return &unprotectTag{projectAction: base, tag: req.Tag, host: host}, nil
}

func (a *unprotectTag) Name() string        { return NameUnprotectTag }
func (a *unprotectTag) ProjectScoped() bool { return true }

func (a *unprotectTag) Apply(ctx context.Context, _ roster.Row, target string) (Outcome, error) {
	project, err := a.host.GetProject(ctx, target)
	if err != nil {
		return Outcome{}, err
	}

	removed, err := a.host.UnprotectTag(ctx, project, a.tag)
	if err != nil {
		return Outcome{}, err
	}

	if !removed {
		return ok("tag " + a.tag + " not protected"), nil
	}

	return ok("unprotected tag " + a.tag), nil
}
