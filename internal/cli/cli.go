// Package cli turns the command line into a run description.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/apiarycd/glroster/internal/actions"
)

const helpCommand = "help"

// Invocation is the parsed command line.
type Invocation struct {
	Request actions.Request

	Roster    string
	Delimiter rune

	ConfigFile  string
	Instance    string
	MetricsFile string
	Debug       bool

	// Help is set when usage was requested; Topic names the action, if any.
	Help  bool
	Topic string
}

type flags struct {
	inv *Invocation

	delimiter string
	firstLine string
}

var descriptions = map[string]string{
	actions.NameAccounts:            "Check that every login exists.",
	actions.NameFork:                "Fork a project for every row.",
	actions.NameUnprotect:           "Remove branch protection.",
	actions.NameProtect:             "Protect a branch with the given access levels.",
	actions.NameAddMember:           "Add the row's user as a project member.",
	actions.NameRemoveMember:        "Remove the row's user from a project.",
	actions.NameGetMembers:          "List project members.",
	actions.NameCreateTag:           "Create a tag in every project.",
	actions.NameProtectTag:          "Protect tags matching a name or wildcard.",
	actions.NameUnprotectTag:        "Remove tag protection.",
	actions.NameClone:               "Clone projects and check out the last commit before a deadline.",
	actions.NameGetFile:             "Download a file as it was before a deadline.",
	actions.NamePutFile:             "Commit a local file into every project.",
	actions.NameDeadlineCommit:      "Print the last commit before a deadline for every project.",
	actions.NameGetLastPipeline:     "Report the newest CI pipeline of every project as JSON.",
	actions.NameGetPipelineAtCommit: "Report the CI pipeline of a given commit as JSON.",
	actions.NameCommitStats:         "Dump per-commit line statistics as JSON.",
}

const (
	projectUsage = "Project path template. Required."
	branchUsage  = "Branch template (default: project default branch)."
)

func newFlagSet(action string, f *flags) *flag.FlagSet {
	fs := flag.NewFlagSet(action, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	inv := f.inv
	req := &inv.Request

	fs.StringVar(&inv.Roster, "entries", "", "CSV roster with a header row. Required.")
	fs.StringVar(&inv.Roster, "users", "", "Alias for --entries.")
	fs.StringVar(&f.delimiter, "delimiter", ",", "Roster field delimiter.")
	fs.StringVar(&req.LoginColumn, "login-column", actions.DefaultLoginColumn, "Roster column holding GitLab logins.")
	fs.StringVar(&inv.ConfigFile, "config-file", "", "YAML configuration file (defaults to $CONFIG_PATH).")
	fs.StringVar(&inv.Instance, "instance", "", "GitLab instance name from the configuration file.")
	fs.StringVar(&inv.MetricsFile, "metrics-file", "", "Write Prometheus metrics of the run to this file.")
	fs.BoolVar(&inv.Debug, "debug", false, "Verbose logging.")

	switch action {
	case actions.NameAccounts:
		fs.BoolVar(&req.ShowSummary, "show-summary", false, "Print totals after the last row.")
	case actions.NameFork:
		fs.StringVar(&req.From, "from", "", "Upstream project path. Required.")
		fs.StringVar(&req.To, "to", "", "Fork path template, e.g. students/{login}. Required.")
		fs.BoolVar(&req.HideFork, "hide-fork", false, "Remove the fork relationship.")
		fs.BoolVar(&req.Private, "private", false, "Make the fork private.")
	case actions.NameUnprotect:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
	case actions.NameProtect:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.MergeAccessLevel, "merge-access-level", "maintainer", "Minimal level allowed to merge.")
		fs.StringVar(&req.PushAccessLevel, "push-access-level", "maintainer", "Minimal level allowed to push.")
	case actions.NameAddMember:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.AccessLevel, "access-level", "developer", "Access level: guest, reporter, developer, maintainer, owner.")
	case actions.NameRemoveMember:
		fs.StringVar(&req.Project, "project", "", projectUsage)
	case actions.NameGetMembers:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.BoolVar(&req.Inherited, "inherited", false, "Include members inherited from groups.")
		fs.StringVar(&req.Output, "output", "", "Output file (default: standard output).")
		fs.StringVar(&f.firstLine, "first-line", actions.DefaultMembersFirstLine, "Header line, empty to omit.")
		fs.StringVar(&req.Format, "format", actions.DefaultMembersFormat, "Line template; {member.login}, {member.name}, {member.access_level} and {project} are available.")
	case actions.NameCreateTag:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Tag, "tag", "", "Tag name. Required.")
		fs.StringVar(&req.Ref, "ref", "", "Branch or commit template to tag. Required.")
		fs.StringVar(&req.Message, "message", "", "Annotation template; {tag} is available.")
	case actions.NameProtectTag:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Tag, "tag", "", "Tag name or wildcard. Required.")
		fs.StringVar(&req.CreateAccessLevel, "create-access-level", "no_access", "Minimal level allowed to create matching tags.")
	case actions.NameUnprotectTag:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Tag, "tag", "", "Tag name or wildcard. Required.")
	case actions.NameClone:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.To, "to", "", "Local directory template. Required.")
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.Commit, "commit", "", "Commit template to reset to instead of using the deadline.")
		fs.StringVar(&req.Deadline, "deadline", "now", "Submission deadline.")
		fs.StringVar(&req.Blacklist, "blacklist", "", "Ignore commits whose author email matches this regular expression.")
	case actions.NameGetFile:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.RemoteFile, "remote-file", "", "Repository file template. Required.")
		fs.StringVar(&req.LocalFile, "local-file", "", "Local path template. Required.")
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.Deadline, "deadline", "now", "Submission deadline.")
		fs.StringVar(&req.Blacklist, "blacklist", "", "Ignore commits whose author email matches this regular expression.")
	case actions.NamePutFile:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.From, "from", "", "Local file template. Required.")
		fs.StringVar(&req.To, "to", "", "Repository file template. Required.")
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.Message, "message", actions.DefaultPutFileMessage, "Commit message template; {target_filename} is available.")
		fs.BoolVar(&req.ForceCommit, "force-commit", false, "Commit even when the content is unchanged.")
		fs.BoolVar(&req.SkipMissing, "skip-missing-files", false, "Skip rows whose local file does not exist.")
		fs.BoolVar(&req.Once, "once", false, "Never overwrite a file that already exists.")
	case actions.NameDeadlineCommit:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.Deadline, "deadline", "now", "Submission deadline.")
		fs.StringVar(&req.Blacklist, "blacklist", "", "Ignore commits whose author email matches this regular expression.")
		fs.StringVar(&req.PreferTag, "prefer-tag", "", "Use the commit of this tag when it was made before the deadline.")
		fs.StringVar(&req.Output, "output", "", "Output file (default: standard output).")
		fs.StringVar(&f.firstLine, "first-line", actions.DefaultFirstLine, "Header line, empty to omit.")
		fs.StringVar(&req.Format, "format", actions.DefaultFormat, "Line template; {commit.id}, {commit.short_id}, {commit.title}, {commit.author_email} and {commit.timestamp} are available.")
	case actions.NameGetLastPipeline:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Output, "output", "", "Output file (default: standard output).")
		fs.BoolVar(&req.SummaryOnly, "summary-only", false, "Print pipeline status counts instead of JSON.")
	case actions.NameGetPipelineAtCommit:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Commit, "commit", "", "Commit template. Required.")
		fs.StringVar(&req.Output, "output", "", "Output file (default: standard output).")
		fs.BoolVar(&req.SummaryOnly, "summary-only", false, "Print pipeline status counts instead of JSON.")
	case actions.NameCommitStats:
		fs.StringVar(&req.Project, "project", "", projectUsage)
		fs.StringVar(&req.Branch, "branch", "", branchUsage)
		fs.StringVar(&req.Output, "output", "", "Output file (default: standard output).")
	}

	if actions.Mutating(action) {
		fs.BoolVar(&req.DryRun, "dry-run", false, "Log what would change without changing it.")
	}

	return fs
}

// Parse reads `<action> [flags]`.
func Parse(args []string) (Invocation, error) {
	if len(args) == 0 {
		return Invocation{}, invalidInvocationf("", "missing action")
	}

	action := args[0]
	switch {
	case action == helpCommand || action == "-h" || action == "--help" || action == "-help":
		inv := Invocation{Help: true}
		if len(args) > 1 {
			inv.Topic = args[1]
		}
		if inv.Topic != "" && !slices.Contains(actions.Names(), inv.Topic) {
			return Invocation{}, invalidInvocationf("", "unknown action %q", inv.Topic)
		}
		return inv, nil
	case !slices.Contains(actions.Names(), action):
		return Invocation{}, invalidInvocationf("", "unknown action %q", action)
	}

	inv := Invocation{}
	inv.Request.Action = action
	f := &flags{inv: &inv}

	fs := newFlagSet(action, f)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return Invocation{Help: true, Topic: action}, nil
		}
		return Invocation{}, invalidInvocationf(action, "%v", err)
	}
	if fs.NArg() != 0 {
		return Invocation{}, invalidInvocationf(action, "unexpected arguments: %q", strings.Join(fs.Args(), " "))
	}

	if inv.Roster == "" {
		return Invocation{}, invalidInvocationf(action, "--entries is required")
	}

	delimiter, err := parseDelimiter(f.delimiter)
	if err != nil {
		return Invocation{}, invalidInvocationf(action, "%v", err)
	}
	inv.Delimiter = delimiter

	if action == actions.NameDeadlineCommit || action == actions.NameGetMembers {
		firstLine := f.firstLine
		inv.Request.FirstLine = &firstLine
	}

	return inv, nil
}

func parseDelimiter(s string) (rune, error) {
	switch s {
	case `\t`, "tab":
		return '\t', nil
	case "":
		return ',', nil
	}

	if utf8.RuneCountInString(s) != 1 {
		return 0, fmt.Errorf("--delimiter must be a single character, got %q", s)
	}

	r, _ := utf8.DecodeRuneInString(s)
	switch r {
	case '"', '\r', '\n', utf8.RuneError:
		return 0, fmt.Errorf("--delimiter cannot be %q", r)
	}

	return r, nil
}

// Usage prints general help, or the flags of one action when topic is set.
func Usage(w io.Writer, topic string) {
	if topic == "" {
		_, _ = fmt.Fprintln(w, "Usage: glroster <action> --entries roster.csv [flags]")
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Actions:")
		for _, name := range actions.Names() {
			_, _ = fmt.Fprintf(w, "  %-24s %s\n", name, descriptions[name])
		}
		_, _ = fmt.Fprintln(w)
		_, _ = fmt.Fprintln(w, "Templates expand {column} from the roster row.")
		_, _ = fmt.Fprintln(w, "Run 'glroster help <action>' for the flags of an action.")
		return
	}

	_, _ = fmt.Fprintf(w, "Usage: glroster %s [flags]\n\n%s\n\nFlags:\n", topic, descriptions[topic])

	fs := newFlagSet(topic, &flags{inv: &Invocation{}})
	fs.SetOutput(w)
	fs.PrintDefaults()
}
