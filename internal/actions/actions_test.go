package actions_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/apiarycd/glroster/internal/actions"
	"github.com/apiarycd/glroster/internal/deadline"
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/gitlab/gitlabtest"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/internal/template"
	"github.com/go-playground/validator/v10"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap/zaptest"
)

var now = time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC)

func day(d int) time.Time {
	return time.Date(2020, time.January, d, 12, 0, 0, 0, time.UTC)
}

func seed() gitlabtest.Seed {
	protected := map[string]gitlabtest.Protection{"main": {Push: 40, Merge: 40}}
	return gitlabtest.Seed{
		Projects: []gitlabtest.Project{
			{
				Path:    "teaching/course",
				Members: map[int]int{1: 30, 3: 40},
				Commits: []gitlabtest.Commit{{ID: "base000001", Date: day(1)}},
			},
			{
				Path:      "students/alice",
				Protected: protected,
				Files:     map[string]string{"README.md": "alice readme\n"},
				Tags:      map[string]string{"submitted": "alice00001"},
				Pipelines: []gitlabtest.Pipeline{
					{ID: 8, Status: "skipped", SHA: "alice00003"},
					{ID: 7, Status: "failed", SHA: "alice00002", Jobs: []gitlabtest.Job{{ID: 71, Name: "test", Status: "failed"}}},
					{ID: 6, Status: "success", SHA: "alice00001"},
				},
				Commits: []gitlabtest.Commit{
					{ID: "alice00003", AuthorEmail: "teacher@example.com", Date: day(20)},
					{ID: "alice00002", AuthorEmail: "alice@example.com", Date: day(10)},
					{ID: "alice00001", AuthorEmail: "teacher@example.com", Date: day(1)},
				},
			},
			{
				Path:      "students/carol",
				Protected: protected,
				Tags:      map[string]string{"submitted": "carol00001"},
				Commits: []gitlabtest.Commit{
					{ID: "carol00001", AuthorEmail: "carol@example.com", Date: day(18), Additions: 5},
				},
			},
		},
		Users: []gitlabtest.User{{ID: 1, Username: "alice"}, {ID: 3, Username: "carol"}},
	}
}

// rows: bob's project does not exist on the server.
const students = "login,number\nalice,1\nbob,2\ncarol,3\n"

type fixture struct {
	server *gitlabtest.Server
	host   *gitlab.Service
	stdout *bytes.Buffer
	repos  *fakeRepositories
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	srv := gitlabtest.NewServer(seed())
	t.Cleanup(srv.Close)

	client, err := gl.NewClient("token", gl.WithBaseURL(srv.URL))
	require.NoError(t, err)

	cfg := gitlab.DefaultConfig()
	cfg.ForkPollInterval = time.Millisecond

	return &fixture{
		server: srv,
		host:   gitlab.NewService(client, cfg, zaptest.NewLogger(t)),
		stdout: &bytes.Buffer{},
		repos:  &fakeRepositories{},
	}
}

func (f *fixture) build(t *testing.T, req actions.Request) (actions.Action, error) {
	t.Helper()

	if req.LoginColumn == "" {
		req.LoginColumn = actions.DefaultLoginColumn
	}

	return actions.New(actions.Params{
		Request:      req,
		Host:         f.host,
		Repositories: f.repos,
		Validate:     validator.New(),
		Output:       actions.Output{Stdout: f.stdout},
		Logger:       zaptest.NewLogger(t),
		Now:          func() time.Time { return now },
	})
}

func (f *fixture) run(t *testing.T, req actions.Request, csv string) actions.Summary {
	t.Helper()

	if req.LoginColumn == "" {
		req.LoginColumn = actions.DefaultLoginColumn
	}

	action, err := f.build(t, req)
	require.NoError(t, err)

	r, err := roster.Load(strings.NewReader(csv))
	require.NoError(t, err)

	runner := actions.NewRunner(actions.RunnerParams{
		Roster:  r,
		Action:  action,
		Request: req,
		RunID:   "test",
		Logger:  zaptest.NewLogger(t),
	})

	summary, err := runner.Run(context.Background())
	require.NoError(t, err)

	return summary
}

type outcome struct {
	Label  string
	Target string
	Status actions.Status
	Detail string
}

func outcomes(s actions.Summary) []outcome {
	var out []outcome
	for _, r := range s.Results {
		detail := r.Detail
		if r.Status == actions.StatusFailed {
			detail = ""
		}
		out = append(out, outcome{Label: r.Label, Target: r.Target, Status: r.Status, Detail: detail})
	}
	return out
}

type fakeRepositories struct {
	cloned []git.CloneRequest
	resets []string
}

func (f *fakeRepositories) SelectURL(httpURL, _ string) string {
	return httpURL
}

func (f *fakeRepositories) CloneOrFetch(_ context.Context, req git.CloneRequest) (*git.Repository, error) {
	f.cloned = append(f.cloned, req)
	return &git.Repository{Path: req.Directory, URL: req.URL}, nil
}

func (f *fakeRepositories) ResetToCommit(_ context.Context, repoPath, revision string) error {
	f.resets = append(f.resets, repoPath+"@"+revision)
	return nil
}

func (f *fakeRepositories) HeadCommit(_ context.Context, _ string) (string, error) {
	return "head00000001", nil
}

func TestRunner_PartialFailure(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameUnprotect,
		Project: "students/{login}",
	}, students)

	want := []outcome{
		{Label: "alice", Target: "students/alice", Status: actions.StatusOK, Detail: "unprotected main"},
		{Label: "bob", Target: "students/bob", Status: actions.StatusFailed},
		{Label: "carol", Target: "students/carol", Status: actions.StatusOK, Detail: "unprotected main"},
	}
	if diff := cmp.Diff(want, outcomes(summary)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	assert.ErrorIs(t, summary.Results[1].Err, gitlab.ErrNotFound)
	assert.Equal(t, 1, summary.ExitCode())
	assert.Equal(t, 2, summary.Count(actions.StatusOK))

	carol, _ := f.server.Project("students/carol")
	assert.Empty(t, carol.Protected)
}

func TestRunner_UnresolvedPlaceholderFailsRow(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameUnprotect,
		Project: "students/{group}",
	}, "login\nalice\n")

	require.Len(t, summary.Results, 1)
	assert.Equal(t, actions.StatusFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, template.ErrUnresolvedPlaceholder)
}

func TestRunner_DuplicateProject(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameUnprotect,
		Project: "students/{team}",
	}, "login,team\nalice,alice\nalicia,alice\n")

	require.Len(t, summary.Results, 2)
	assert.Equal(t, actions.StatusOK, summary.Results[0].Status)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "duplicate project, see row 1", summary.Results[1].Detail)
	assert.Equal(t, 0, summary.ExitCode())
}

func TestRunner_DryRun(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameUnprotect,
		Project: "students/{login}",
		DryRun:  true,
	}, students)

	for _, r := range summary.Results {
		assert.Equal(t, actions.StatusSkipped, r.Status)
		assert.Equal(t, "dry run", r.Detail)
	}
	assert.Empty(t, f.server.Requests())
}

func TestFork(t *testing.T) {
	f := newFixture(t)
	f.server.ForkImportPolls = 1

	summary := f.run(t, actions.Request{
		Action:   actions.NameFork,
		From:     "teaching/course",
		To:       "students/{login}-{number}",
		HideFork: true,
		Private:  true,
	}, "login,number\ndave,4\n")

	require.Len(t, summary.Results, 1)
	assert.Equal(t, "forked, fork relation removed, private", summary.Results[0].Detail)

	fork, found := f.server.Project("students/dave-4")
	require.True(t, found)
	assert.Empty(t, fork.ForkedFrom)
	assert.Equal(t, "private", fork.Visibility)

	// A second run finds the detached fork.
	summary = f.run(t, actions.Request{
		Action:   actions.NameFork,
		From:     "teaching/course",
		To:       "students/{login}-{number}",
		HideFork: true,
	}, "login,number\ndave,4\n")
	assert.Equal(t, "already forked", summary.Results[0].Detail)
}

func TestFork_ExistingProjectNotAFork(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action: actions.NameFork,
		From:   "teaching/course",
		To:     "students/{login}",
	}, "login\ncarol\n")

	require.Len(t, summary.Results, 1)
	assert.Equal(t, actions.StatusFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, gitlab.ErrConflict)
	assert.Contains(t, summary.Results[0].Detail, "is not a fork of teaching/course")
}

func TestFork_MissingUpstream(t *testing.T) {
	f := newFixture(t)

	action, err := f.build(t, actions.Request{
		Action: actions.NameFork,
		From:   "teaching/missing",
		To:     "students/{login}",
	})
	require.NoError(t, err)

	r, err := roster.Load(strings.NewReader(students))
	require.NoError(t, err)

	runner := actions.NewRunner(actions.RunnerParams{
		Roster: r, Action: action, RunID: "test", Logger: zaptest.NewLogger(t),
		Request: actions.Request{LoginColumn: actions.DefaultLoginColumn},
	})
	_, err = runner.Run(context.Background())
	assert.ErrorIs(t, err, gitlab.ErrNotFound)
}

func TestProtect(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:           actions.NameProtect,
		Project:          "students/{login}",
		MergeAccessLevel: "developer",
		PushAccessLevel:  "maintainer",
	}, "login\nalice\n")

	assert.Equal(t, "protected main", summary.Results[0].Detail)

	alice, _ := f.server.Project("students/alice")
	assert.Equal(t, gitlabtest.Protection{Push: 40, Merge: 30}, alice.Protected["main"])

	summary = f.run(t, actions.Request{
		Action:           actions.NameProtect,
		Project:          "students/{login}",
		MergeAccessLevel: "developer",
		PushAccessLevel:  "maintainer",
	}, "login\nalice\n")
	assert.Equal(t, "main already protected", summary.Results[0].Detail)
}

func TestMembers(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:      actions.NameAddMember,
		Project:     "students/{project}",
		AccessLevel: "DEVELOPER",
	}, "login,project\nalice,alice\nnobody,alice\n,carol\n")

	require.Len(t, summary.Results, 3)
	assert.Equal(t, "alice added as developer", summary.Results[0].Detail)
	assert.ErrorIs(t, summary.Results[1].Err, gitlab.ErrUserNotFound)
	assert.ErrorIs(t, summary.Results[2].Err, actions.ErrMissingLogin)
	assert.Equal(t, "row 3", summary.Results[2].Label)

	alice, _ := f.server.Project("students/alice")
	assert.Equal(t, 30, alice.Members[1])

	summary = f.run(t, actions.Request{
		Action:  actions.NameRemoveMember,
		Project: "students/{project}",
	}, "login,project\nalice,alice\nalice,alice\n")

	assert.Equal(t, "alice removed", summary.Results[0].Detail)
	assert.Equal(t, "alice not a member", summary.Results[1].Detail)
}

func TestDeadlineCommit(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:   actions.NameDeadlineCommit,
		Project:  "students/{login}",
		Deadline: "2020-01-15",
	}, students)

	want := "login,commit\n" +
		"alice,alice00002\n" +
		"carol,\n"
	assert.Equal(t, want, f.stdout.String())

	require.Len(t, summary.Results, 3)
	assert.Equal(t, actions.StatusOK, summary.Results[0].Status)
	assert.Equal(t, actions.StatusFailed, summary.Results[1].Status)
	assert.Equal(t, actions.StatusSkipped, summary.Results[2].Status)
	assert.Equal(t, 1, summary.ExitCode())
}

func TestDeadlineCommit_FormatAndBlacklist(t *testing.T) {
	f := newFixture(t)
	noHeader := ""

	f.run(t, actions.Request{
		Action:    actions.NameDeadlineCommit,
		Project:   "students/{login}",
		Blacklist: `teacher@example\.com`,
		FirstLine: &noHeader,
		Format:    "{number};{login};{commit.short_id};{commit.author_email}",
	}, "login,number\nalice,1\n")

	assert.Equal(t, "1;alice;alice000;alice@example.com\n", f.stdout.String())
}

func TestClone(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:   actions.NameClone,
		Project:  "students/{login}",
		To:       "solutions/{number}-{login}",
		Deadline: "2020-01-15",
	}, "login,number\nalice,1\ncarol,3\n")

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "cloned at alice000", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "cloned at head0000, no commit before deadline", summary.Results[1].Detail)

	require.Len(t, f.repos.cloned, 2)
	assert.Equal(t, "solutions/1-alice", f.repos.cloned[0].Directory)
	assert.Equal(t, f.server.URL+"/students/alice.git", f.repos.cloned[0].URL)
	assert.Equal(t, []string{"solutions/1-alice@alice00002"}, f.repos.resets)
}

func TestClone_ExplicitCommit(t *testing.T) {
	f := newFixture(t)

	f.run(t, actions.Request{
		Action:  actions.NameClone,
		Project: "students/{login}",
		To:      "solutions/{login}",
		Commit:  "{commit}",
	}, "login,commit\nalice,alice00001\n")

	assert.Equal(t, []string{"solutions/alice@alice00001"}, f.repos.resets)
}

func TestNew_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		req  actions.Request
		want error
	}{
		{name: "unknown action", req: actions.Request{Action: "archive", Project: "x"}, want: actions.ErrUnknownAction},
		{name: "missing project", req: actions.Request{Action: actions.NameUnprotect}, want: actions.ErrInvalidRequest},
		{name: "missing from", req: actions.Request{Action: actions.NameFork, To: "x/{login}"}, want: actions.ErrInvalidRequest},
		{name: "missing to", req: actions.Request{Action: actions.NameClone, Project: "x/{login}"}, want: actions.ErrInvalidRequest},
		{name: "malformed template", req: actions.Request{Action: actions.NameUnprotect, Project: "x/{login"}, want: template.ErrMalformedTemplate},
		{name: "bad access level", req: actions.Request{Action: actions.NameAddMember, Project: "x", AccessLevel: "boss"}, want: gitlab.ErrInvalidAccessLevel},
		{name: "bad blacklist", req: actions.Request{Action: actions.NameDeadlineCommit, Project: "x", Blacklist: "("}, want: deadline.ErrInvalidBlacklist},
		{name: "bad deadline", req: actions.Request{Action: actions.NameGetFile, Project: "x", RemoteFile: "a", LocalFile: "b", Deadline: "next tuesdy"}, want: deadline.ErrInvalidDeadline},
		{name: "missing tag", req: actions.Request{Action: actions.NameCreateTag, Project: "x", Ref: "main"}, want: actions.ErrInvalidRequest},
		{name: "missing ref", req: actions.Request{Action: actions.NameCreateTag, Project: "x", Tag: "v1"}, want: actions.ErrInvalidRequest},
		{name: "missing local file", req: actions.Request{Action: actions.NameGetFile, Project: "x", RemoteFile: "a"}, want: actions.ErrInvalidRequest},
		{name: "missing commit", req: actions.Request{Action: actions.NameGetPipelineAtCommit, Project: "x"}, want: actions.ErrInvalidRequest},
		{name: "once with force", req: actions.Request{Action: actions.NamePutFile, Project: "x", From: "a", To: "b", Once: true, ForceCommit: true}, want: actions.ErrInvalidRequest},
		{name: "bad branch template", req: actions.Request{Action: actions.NameProtect, Project: "x", Branch: "{"}, want: template.ErrMalformedTemplate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.build(t, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestMutating(t *testing.T) {
	for _, name := range []string{actions.NamePutFile, actions.NameCreateTag, actions.NameProtectTag, actions.NameUnprotectTag, actions.NameFork} {
		assert.True(t, actions.Mutating(name), name)
	}
	for _, name := range []string{actions.NameAccounts, actions.NameGetFile, actions.NameGetMembers, actions.NameCommitStats, actions.NameClone} {
		assert.False(t, actions.Mutating(name), name)
	}
}

func TestAccounts(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:      actions.NameAccounts,
		ShowSummary: true,
	}, students)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, "id 1", summary.Results[0].Detail)
	assert.ErrorIs(t, summary.Results[1].Err, gitlab.ErrUserNotFound)
	assert.Equal(t, "carol", summary.Results[2].Target)
	assert.Equal(t, "Total: 3, Not-found: 1, Ok: 2\n", f.stdout.String())
}

func TestGetMembers(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameGetMembers,
		Project: "teaching/course",
	}, "login\nalice\ncarol\n")

	assert.Equal(t, "2 members", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)
	assert.Equal(t, "login,name\nalice,alice\ncarol,carol\n", f.stdout.String())

	f.stdout.Reset()
	noHeader := ""
	f.run(t, actions.Request{
		Action:    actions.NameGetMembers,
		Project:   "teaching/course",
		FirstLine: &noHeader,
		Format:    "{project};{member.login};{member.access_level}",
	}, "login\nalice\n")

	assert.Equal(t, "teaching/course;alice;developer\nteaching/course;carol;maintainer\n", f.stdout.String())
}

func TestTags(t *testing.T) {
	f := newFixture(t)
	create := actions.Request{
		Action:  actions.NameCreateTag,
		Project: "students/{login}",
		Tag:     "v1",
		Ref:     "main",
		Message: "{tag} for {login}",
	}

	summary := f.run(t, create, students)
	want := []outcome{
		{Label: "alice", Target: "students/alice", Status: actions.StatusOK, Detail: "tagged main as v1"},
		{Label: "bob", Target: "students/bob", Status: actions.StatusFailed},
		{Label: "carol", Target: "students/carol", Status: actions.StatusOK, Detail: "tagged main as v1"},
	}
	if diff := cmp.Diff(want, outcomes(summary)); diff != "" {
		t.Errorf("results mismatch (-want +got):\n%s", diff)
	}

	alice, _ := f.server.Project("students/alice")
	assert.Equal(t, "alice00003", alice.Tags["v1"])

	summary = f.run(t, create, "login\nalice\n")
	assert.Equal(t, "tag v1 exists", summary.Results[0].Detail)

	summary = f.run(t, actions.Request{Action: actions.NameProtectTag, Project: "students/{login}", Tag: "v*"}, "login\nalice\n")
	assert.Equal(t, "protected tag v*", summary.Results[0].Detail)
	alice, _ = f.server.Project("students/alice")
	assert.Equal(t, map[string]int{"v*": 0}, alice.ProtectedTags)

	summary = f.run(t, actions.Request{Action: actions.NameProtectTag, Project: "students/{login}", Tag: "v*"}, "login\nalice\n")
	assert.Equal(t, "tag v* already protected", summary.Results[0].Detail)

	summary = f.run(t, actions.Request{Action: actions.NameUnprotectTag, Project: "students/{login}", Tag: "v*"}, "login\nalice\nalice\n")
	assert.Equal(t, "unprotected tag v*", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)

	summary = f.run(t, actions.Request{Action: actions.NameUnprotectTag, Project: "students/{login}", Tag: "v*"}, "login\nalice\n")
	assert.Equal(t, "tag v* not protected", summary.Results[0].Detail)
}

func TestGetFile(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()

	summary := f.run(t, actions.Request{
		Action:     actions.NameGetFile,
		Project:    "students/{login}",
		RemoteFile: "README.md",
		LocalFile:  filepath.Join(dir, "{login}", "README.md"),
		Deadline:   "2020-01-15",
	}, "login\nalice\ncarol\n")

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "README.md at alice000", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)

	content, err := os.ReadFile(filepath.Join(dir, "alice", "README.md"))
	require.NoError(t, err)
	assert.Equal(t, "alice readme\n", string(content))
	assert.NoFileExists(t, filepath.Join(dir, "carol", "README.md"))
}

func TestPutFile(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	local := filepath.Join(dir, "alice.md")
	require.NoError(t, os.WriteFile(local, []byte("first"), 0o600))

	req := actions.Request{
		Action:      actions.NamePutFile,
		Project:     "students/{login}",
		From:        filepath.Join(dir, "{login}.md"),
		To:          "TASK.md",
		SkipMissing: true,
	}

	summary := f.run(t, req, "login\nalice\ncarol\n")
	assert.Equal(t, "TASK.md created", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)
	assert.Contains(t, summary.Results[1].Detail, "does not exist")

	alice, _ := f.server.Project("students/alice")
	assert.Equal(t, "first", alice.Files["TASK.md"])
	assert.Equal(t, "Updating TASK.md", alice.Commits[0].Title)

	summary = f.run(t, req, "login\nalice\n")
	assert.Equal(t, "TASK.md unchanged", summary.Results[0].Detail)

	require.NoError(t, os.WriteFile(local, []byte("second"), 0o600))

	once := req
	once.Once = true
	summary = f.run(t, once, "login\nalice\n")
	assert.Equal(t, "TASK.md kept", summary.Results[0].Detail)

	summary = f.run(t, req, "login\nalice\n")
	assert.Equal(t, "TASK.md updated", summary.Results[0].Detail)

	alice, _ = f.server.Project("students/alice")
	assert.Equal(t, "second", alice.Files["TASK.md"])

	strict := req
	strict.SkipMissing = false
	summary = f.run(t, strict, "login\ncarol\n")
	assert.Equal(t, actions.StatusFailed, summary.Results[0].Status)
	assert.ErrorIs(t, summary.Results[0].Err, fs.ErrNotExist)
}

func TestDeadlineCommit_PreferTag(t *testing.T) {
	f := newFixture(t)
	noHeader := ""

	f.run(t, actions.Request{
		Action:    actions.NameDeadlineCommit,
		Project:   "students/{login}",
		Deadline:  "2020-01-15",
		Blacklist: `teacher@example\.com`,
		PreferTag: "submitted",
		FirstLine: &noHeader,
	}, "login\nalice\ncarol\n")

	// alice00001 is by a blacklisted author but tagged; carol tagged after
	// the deadline and has no earlier commit.
	assert.Equal(t, "alice,alice00001\ncarol,\n", f.stdout.String())
}

func TestLastPipeline(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameGetLastPipeline,
		Project: "students/{login}",
	}, students)

	require.Len(t, summary.Results, 3)
	assert.Equal(t, "skipped #8", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusFailed, summary.Results[1].Status)
	assert.Equal(t, "no pipeline", summary.Results[2].Detail)

	assert.JSONEq(t, `{
		"students/alice": {"status": "skipped", "id": 8, "commit": "alice00003"},
		"students/carol": {"status": "none"}
	}`, f.stdout.String())

	f.stdout.Reset()
	f.run(t, actions.Request{
		Action:      actions.NameGetLastPipeline,
		Project:     "students/{login}",
		SummaryOnly: true,
	}, "login\nalice\ncarol\n")

	assert.Equal(t, "none: 1 (50%)\nskipped: 1 (50%)\ntotal: 2\n", f.stdout.String())
}

func TestPipelineAtCommit(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameGetPipelineAtCommit,
		Project: "students/{login}",
		Commit:  "{commit}",
	}, "login,commit\nalice,alice00003\ncarol,carol00001\n")

	require.Len(t, summary.Results, 2)
	assert.Equal(t, "failed #7", summary.Results[0].Detail)
	assert.Equal(t, actions.StatusSkipped, summary.Results[1].Status)

	assert.JSONEq(t, `{
		"students/alice": {
			"status": "failed",
			"id": 7,
			"commit": "alice00002",
			"jobs": [{"status": "failed", "id": 71, "name": "test"}]
		},
		"students/carol": {"status": "none"}
	}`, f.stdout.String())
}

func TestCommitStats(t *testing.T) {
	f := newFixture(t)

	summary := f.run(t, actions.Request{
		Action:  actions.NameCommitStats,
		Project: "students/{login}",
	}, "login\ncarol\n")

	assert.Equal(t, "1 commits", summary.Results[0].Detail)
	assert.JSONEq(t, `[{
		"project": "students/carol",
		"commits": {
			"carol00001": {
				"parents": [],
				"subject": "",
				"line_stats": {"additions": 5, "deletions": 0, "total": 5},
				"author_email": "carol@example.com",
				"author_date": "2020-01-18T12:00:00Z"
			}
		}
	}]`, f.stdout.String())
}
