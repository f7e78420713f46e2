package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"go.uber.org/zap"
)

type fork struct {
	from     string
	to       *template.Template
	hideFork bool
	private  bool

	host   Host
	source *gitlab.Project

	logger *zap.Logger
}

func newFork(req Request, host Host, logger *zap.Logger) (*fork, error) {
	to, err := parseTemplate("to", req.To)
	if err != nil {
		return nil, err
	}

	return &fork{
		from:     req.From,
		to:       to,
		hideFork: req.HideFork,
		private:  req.Private,

		host: host,

		logger: logger,
	}, nil
}

func (a *fork) Name() string { return NameFork }

func (a *fork) Target(row roster.Row) (string, error) {
	return a.to.Expand(row, nil)
}

// Prepare resolves the upstream project once for the whole run.
func (a *fork) Prepare(ctx context.Context) error {
	source, err := a.host.GetProject(ctx, a.from)
	if err != nil {
		return fmt.Errorf("failed to get upstream project: %w", err)
	}

	a.source = source

	return nil
}

func (a *fork) Apply(ctx context.Context, _ roster.Row, target string) (Outcome, error) {
	project, created, err := a.host.ForkProject(ctx, a.source, target)
	if err != nil {
		return Outcome{}, err
	}

	details := []string{"already forked"}
	switch {
	case created:
		details[0] = "forked"
		a.logger.Debug("fork created, waiting for import", zap.String("target", target))
	case project.ForkedFrom == "" && !a.hideFork:
		// Only a fork whose relation this tool removed may have no parent.
		return Outcome{}, fmt.Errorf("%w: %s exists and is not a fork of %s", gitlab.ErrConflict, target, a.source.Path)
	}

	project, err = a.host.WaitForFork(ctx, project)
	if err != nil {
		return Outcome{}, err
	}

	if a.hideFork {
		removed, err := a.host.RemoveForkRelation(ctx, project)
		if err != nil {
			return Outcome{}, err
		}
		if removed {
			details = append(details, "fork relation removed")
		}
	}

	if a.private {
		if err := a.host.MakePrivate(ctx, project); err != nil {
			return Outcome{}, err
		}
		details = append(details, "private")
	}

	return ok(strings.Join(details, ", ")), nil
}
