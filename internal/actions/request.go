package actions

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/template"
	"github.com/go-playground/validator/v10"
	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	DefaultLoginColumn = "login"
	DefaultFirstLine   = "login,commit"
	DefaultFormat      = "{login},{commit.id}"

	DefaultMembersFirstLine = "login,name"
	DefaultMembersFormat    = "{member.login},{member.name}"

	DefaultPutFileMessage = "Updating {target_filename}"
)

// Request carries the parsed command line of one run. Exactly one action is
// selected by Action. --project is checked by the actions that use it.
type Request struct {
	Action      string `validate:"required,oneof=accounts fork unprotect protect add-member remove-member get-members create-tag protect-tag unprotect-tag clone get-file put-file deadline-commit get-last-pipeline get-pipeline-at-commit commit-stats"`
	LoginColumn string `validate:"required"`
	DryRun      bool

	Project string
	From    string `validate:"required_if=Action fork"`
	To      string
	Branch  string

	AccessLevel       string
	MergeAccessLevel  string
	PushAccessLevel   string
	CreateAccessLevel string

	Deadline  string
	Commit    string
	Blacklist string
	PreferTag string

	Tag     string
	Ref     string
	Message string

	RemoteFile  string
	LocalFile   string
	ForceCommit bool
	SkipMissing bool
	Once        bool `validate:"excluded_with=ForceCommit"`

	Output      string
	FirstLine   *string
	Format      string
	Inherited   bool
	ShowSummary bool
	SummaryOnly bool

	HideFork bool
	Private  bool
}

// Output is where deadline-commit writes when no file is given.
type Output struct {
	Stdout io.Writer
}

type Params struct {
	fx.In

	Request      Request
	Host         Host
	Repositories Repositories
	Validate     *validator.Validate
	Output       Output
	Logger       *zap.Logger

	Now func() time.Time `optional:"true"`
}

// New validates the request and builds the selected action. Templates,
// access levels and the deadline are parsed here so that mistakes are
// reported before the first row.
func New(p Params) (Action, error) {
	req := p.Request

	if err := p.Validate.Struct(req); err != nil {
		return nil, validationError(err)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	switch req.Action {
	case NameAccounts:
		return newAccounts(req, p.Host, p.Output), nil
	case NameFork:
		return newFork(req, p.Host, p.Logger)
	case NameUnprotect:
		return newUnprotect(req, p.Host)
	case NameProtect:
		return newProtect(req, p.Host)
	case NameAddMember:
		return newAddMember(req, p.Host)
	case NameRemoveMember:
		return newRemoveMember(req, p.Host)
	case NameGetMembers:
		return newGetMembers(req, p.Host, p.Output)
	case NameCreateTag:
		return newCreateTag(req, p.Host)
	case NameProtectTag:
		return newProtectTag(req, p.Host)
	case NameUnprotectTag:
		return newUnprotectTag(req, p.Host)
	case NameClone:
		return newClone(req, p.Host, p.Repositories, now(), p.Logger)
	case NameGetFile:
		return newGetFile(req, p.Host, now(), p.Logger)
	case NamePutFile:
		return newPutFile(req, p.Host, p.Logger)
	case NameDeadlineCommit:
		return newDeadlineCommit(req, p.Host, p.Output, now(), p.Logger)
	case NameGetLastPipeline:
		return newLastPipeline(req, p.Host, p.Output)
	case NameGetPipelineAtCommit:
		return newPipelineAtCommit(req, p.Host, p.Output)
	case NameCommitStats:
		return newCommitStats(req, p.Host, p.Output, p.Logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownAction, req.Action)
	}
}

var flagNames = map[string]string{
	"Action":      "action",
	"LoginColumn": "--login-column",
	"From":        "--from",
	"Once":        "--once",
	"ForceCommit": "--force-commit",
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	field := verrs[0]
	name := flagNames[field.Field()]
	switch field.Tag() {
	case "oneof":
		return fmt.Errorf("%w: %q", ErrUnknownAction, field.Value())
	case "excluded_with":
		return fmt.Errorf("%w: %s cannot be combined with %s", ErrInvalidRequest, name, flagNames[field.Param()])
	}

	return fmt.Errorf("%w: %s is required", ErrInvalidRequest, name)
}

func parseTemplate(flag, value string) (*template.Template, error) {
	if value == "" {
		return nil, fmt.Errorf("%w: --%s is required", ErrInvalidRequest, flag)
	}

	t, err := template.Parse(value)
	if err != nil {
		return nil, fmt.Errorf("--%s: %w", flag, err)
	}

	return t, nil
}

func requireValue(flag, value string) error {
	if value == "" {
		return fmt.Errorf("%w: --%s is required", ErrInvalidRequest, flag)
	}
	return nil
}

func parseOptionalTemplate(flag, value string) (*template.Template, error) {
	if value == "" {
		return nil, nil //nolint:nilnil // absent template
	}
	return parseTemplate(flag, value)
}

func parseAccessLevel(flag, value string, fallback gl.AccessLevelValue) (gl.AccessLevelValue, error) {
	if value == "" {
		return fallback, nil
	}

	level, err := gitlab.ParseAccessLevel(value)
	if err != nil {
		return 0, fmt.Errorf("--%s: %w", flag, err)
	}

	return level, nil
}

func parseDeadline(value string, now time.Time) (time.Time, error) {
	t, err := deadline.Parse(value, now)
	if err != nil {
		return time.Time{}, fmt.Errorf("--deadline: %w", err)
	}
	return t, nil
}

func parseBlacklist(value string) (deadline.Filter, error) {
	filter, err := deadline.AuthorBlacklist(value)
	if err != nil {
		return nil, fmt.Errorf("--blacklist: %w", err)
	}
	return filter, nil
}
