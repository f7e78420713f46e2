package actions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/roster"
)

// accounts checks that every login in the roster exists.
type accounts struct {
	loginColumn string
	showSummary bool

	host Host
	out  *sink

	total    int
	notFound int
	found    int
}

func newAccounts(req Request, host Host, out Output) *accounts {
	return &accounts{
		loginColumn: req.LoginColumn,
		showSummary: req.ShowSummary,

		host: host,
		out:  newSink("", out),
	}
}

func (a *accounts) Name() string { return NameAccounts }

func (a *accounts) Target(row roster.Row) (string, error) {
	login, _ := row.Get(a.loginColumn)
	login = strings.TrimSpace(login)
	if login == "" {
		return "", fmt.Errorf("%w: column %q is empty or missing", ErrMissingLogin, a.loginColumn)
	}
	return login, nil
}

func (a *accounts) Apply(ctx context.Context, _ roster.Row, target string) (Outcome, error) {
	a.total++

	user, err := a.host.FindUser(ctx, target)
	if err != nil {
		if errors.Is(err, gitlab.ErrUserNotFound) {
			a.notFound++
		}
		return Outcome{}, err
	}

	a.found++

	return ok(fmt.Sprintf("id %d", user.ID)), nil
}

// Finish prints the totals when requested.
func (a *accounts) Finish() error {
	if !a.showSummary {
		return nil
	}

	line := fmt.Sprintf("Total: %d, Not-found: %d, Ok: %d", a.total, a.notFound, a.found)
	if err := a.out.writeLine(line); err != nil {
		return err
	}

	return a.out.close()
}
