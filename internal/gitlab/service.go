package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/apiarycd/glroster/internal/deadline"
	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
)

// Service performs the project, membership and history operations the
// roster actions need against a single GitLab instance.
type Service struct {
	client *gl.Client
	config Config

	logger *zap.Logger
}

// NewService creates a Service. Non-positive durations and page sizes fall
// back to DefaultConfig.
func NewService(client *gl.Client, config Config, logger *zap.Logger) *Service {
	defaults := DefaultConfig()
	if config.ForkTimeout <= 0 {
		config.ForkTimeout = defaults.ForkTimeout
	}
	if config.ForkPollInterval <= 0 {
		config.ForkPollInterval = defaults.ForkPollInterval
	}
	if config.CommitsPageSize <= 0 {
		config.CommitsPageSize = defaults.CommitsPageSize
	}

	return &Service{
		client: client,
		config: config,

		logger: logger,
	}
}

// GetProject looks a project up by its full path.
func (s *Service) GetProject(ctx context.Context, projectPath string) (*Project, error) {
	p, resp, err := s.client.Projects.GetProject(projectPath, nil, gl.WithContext(ctx))
	if err != nil {
		return nil, apiError("get project "+projectPath, resp, err)
	}

	return newProject(p), nil
}

// ForkProject forks source into targetPath. An already existing target is
// returned as is with created set to false, unless it is a fork of another
// project.
func (s *Service) ForkProject(ctx context.Context, source *Project, targetPath string) (*Project, bool, error) {
	namespace, name := path.Split(strings.Trim(targetPath, "/"))
	namespace = strings.TrimSuffix(namespace, "/")

	s.logger.Debug("forking project",
		zap.String("source", source.Path),
		zap.String("target", targetPath))

	opts := &gl.ForkProjectOptions{
		Name: gl.Ptr(name),
		Path: gl.Ptr(name),
	}
	if namespace != "" {
		opts.NamespacePath = gl.Ptr(namespace)
	}

	p, resp, err := s.client.Projects.ForkProject(source.ID, opts, gl.WithContext(ctx))
	if err == nil {
		return newProject(p), true, nil
	}

	if !pathTaken(resp, err) {
		return nil, false, apiError("fork "+source.Path, resp, err)
	}

	existing, getErr := s.GetProject(ctx, targetPath)
	if getErr != nil {
		return nil, false, apiError("fork "+source.Path, resp, err)
	}

	if existing.ForkedFrom != "" && existing.ForkedFrom != source.Path {
		return nil, false, fmt.Errorf("%w: %s is a fork of %s, not of %s",
			ErrConflict, targetPath, existing.ForkedFrom, source.Path)
	}

	s.logger.Debug("fork target already exists",
		zap.String("target", targetPath),
		zap.String("forked_from", existing.ForkedFrom))

	return existing, false, nil
}

// pathTaken recognizes the answers GitLab gives when the fork target
// already exists: 409, or 400 complaining about the name or path.
func pathTaken(resp *gl.Response, err error) bool {
	if statusIs(resp, http.StatusConflict) {
		return true
	}
	if !statusIs(resp, http.StatusBadRequest) {
		return false
	}

	var errResp *gl.ErrorResponse
	return errors.As(err, &errResp) && strings.Contains(errResp.Message, "already been taken")
}

// WaitForFork polls the project until GitLab finishes importing it.
func (s *Service) WaitForFork(ctx context.Context, project *Project) (*Project, error) {
	if forkReady(project) {
		return project, nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.ForkTimeout)
	defer cancel()

	ticker := time.NewTicker(s.config.ForkPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %w", ErrForkTimeout, project.Path, ctx.Err())
		case <-ticker.C:
		}

		current, err := s.GetProject(ctx, project.Path)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %s: %w", ErrForkTimeout, project.Path, err)
			}
			return nil, err
		}

		if current.ImportStatus == "failed" {
			return nil, fmt.Errorf("%w: %s", ErrForkFailed, project.Path)
		}

		if forkReady(current) {
			return current, nil
		}

		s.logger.Debug("waiting for fork",
			zap.String("project", project.Path),
			zap.String("import_status", current.ImportStatus))
	}
}

func forkReady(p *Project) bool {
	return p.ImportStatus == "finished" || (!p.Empty && p.ImportStatus != "scheduled" && p.ImportStatus != "started")
}

// RemoveForkRelation detaches a fork from its upstream. It reports whether
// there was a relation to remove.
func (s *Service) RemoveForkRelation(ctx context.Context, project *Project) (bool, error) {
	resp, err := s.client.Projects.DeleteProjectForkRelation(project.ID, gl.WithContext(ctx))
	switch {
	case err == nil:
		return !statusIs(resp, http.StatusNotModified), nil
	case statusIs(resp, http.StatusNotFound):
		return false, nil
	default:
		return false, apiError("remove fork relation of "+project.Path, resp, err)
	}
}

// MakePrivate sets the project visibility to private.
func (s *Service) MakePrivate(ctx context.Context, project *Project) error {
	_, resp, err := s.client.Projects.EditProject(project.ID, &gl.EditProjectOptions{
		Visibility: gl.Ptr(gl.PrivateVisibility),
	}, gl.WithContext(ctx))
	if err != nil {
		return apiError("change visibility of "+project.Path, resp, err)
	}

	return nil
}

// UnprotectBranch removes branch protection. It reports whether the branch
// was protected before the call.
func (s *Service) UnprotectBranch(ctx context.Context, project *Project, branch string) (bool, error) {
	resp, err := s.client.ProtectedBranches.UnprotectRepositoryBranches(project.ID, branch, gl.WithContext(ctx))
	if err != nil {
		if statusIs(resp, http.StatusNotFound) {
			return false, nil
		}
		return false, apiError(fmt.Sprintf("unprotect %s of %s", branch, project.Path), resp, err)
	}

	return true, nil
}

// ProtectBranch protects branch with the given levels, replacing any
// protection with different levels. It reports whether anything changed.
func (s *Service) ProtectBranch(
	ctx context.Context,
	project *Project,
	branch string,
	push, merge gl.AccessLevelValue,
) (bool, error) {
	op := fmt.Sprintf("protect %s of %s", branch, project.Path)

	current, resp, err := s.client.ProtectedBranches.GetProtectedBranch(project.ID, branch, gl.WithContext(ctx))
	switch {
	case err == nil:
		if hasLevel(current.PushAccessLevels, push) && hasLevel(current.MergeAccessLevels, merge) {
			return false, nil
		}
		if _, err := s.UnprotectBranch(ctx, project, branch); err != nil {
			return false, err
		}
	case !statusIs(resp, http.StatusNotFound):
		return false, apiError(op, resp, err)
	}

	_, resp, err = s.client.ProtectedBranches.ProtectRepositoryBranches(project.ID, &gl.ProtectRepositoryBranchesOptions{
		Name:             gl.Ptr(branch),
		PushAccessLevel:  gl.Ptr(push),
		MergeAccessLevel: gl.Ptr(merge),
	}, gl.WithContext(ctx))
	if err != nil {
		return false, apiError(op, resp, err)
	}

	return true, nil
}

func hasLevel(levels []*gl.BranchAccessDescription, level gl.AccessLevelValue) bool {
	for _, l := range levels {
		if l.AccessLevel == level {
			return true
		}
	}
	return false
}

// FindUser resolves a login to an account.
func (s *Service) FindUser(ctx context.Context, login string) (*User, error) {
	users, resp, err := s.client.Users.ListUsers(&gl.ListUsersOptions{
		Username: gl.Ptr(login),
	}, gl.WithContext(ctx))
	if err != nil {
		return nil, apiError("find user "+login, resp, err)
	}

	for _, u := range users {
		if strings.EqualFold(u.Username, login) {
			return &User{ID: u.ID, Username: u.Username, Name: u.Name}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrUserNotFound, login)
}

// AddMember grants user the level on project. An existing member with a
// different level is updated in place.
func (s *Service) AddMember(
	ctx context.Context,
	project *Project,
	user *User,
	level gl.AccessLevelValue,
) (MembershipChange, error) {
	op := fmt.Sprintf("add %s to %s", user.Username, project.Path)

	member, resp, err := s.client.ProjectMembers.GetProjectMember(project.ID, user.ID, gl.WithContext(ctx))
	switch {
	case err == nil && member.AccessLevel == level:
		return MembershipUnchanged, nil
	case err == nil:
		_, resp, err = s.client.ProjectMembers.EditProjectMember(project.ID, user.ID, &gl.EditProjectMemberOptions{
			AccessLevel: gl.Ptr(level),
		}, gl.WithContext(ctx))
		if err != nil {
			return "", apiError(op, resp, err)
		}
		return MembershipUpdated, nil
	case !statusIs(resp, http.StatusNotFound):
		return "", apiError(op, resp, err)
	}

	_, resp, err = s.client.ProjectMembers.AddProjectMember(project.ID, &gl.AddProjectMemberOptions{
		UserID:      gl.Ptr(user.ID),
		AccessLevel: gl.Ptr(level),
	}, gl.WithContext(ctx))
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return MembershipAdded, nil
}

// RemoveMember revokes the user's direct membership. It reports whether the
// user was a member.
func (s *Service) RemoveMember(ctx context.Context, project *Project, user *User) (bool, error) {
	resp, err := s.client.ProjectMembers.DeleteProjectMember(project.ID, user.ID, gl.WithContext(ctx))
	if err != nil {
		if statusIs(resp, http.StatusNotFound) {
			return false, nil
		}
		return false, apiError(fmt.Sprintf("remove %s from %s", user.Username, project.Path), resp, err)
	}

	return true, nil
}

// ListMembers lists the direct members of project, or every member
// including inherited ones.
func (s *Service) ListMembers(ctx context.Context, project *Project, inherited bool) ([]Member, error) {
	list := s.client.ProjectMembers.ListProjectMembers
	if inherited {
		list = s.client.ProjectMembers.ListAllProjectMembers
	}

	opts := &gl.ListProjectMembersOptions{
		ListOptions: gl.ListOptions{Page: 1, PerPage: s.config.CommitsPageSize},
	}

	var members []Member
	for {
		page, resp, err := list(project.ID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, apiError("list members of "+project.Path, resp, err)
		}

		for _, m := range page {
			members = append(members, Member{Username: m.Username, Name: m.Name, AccessLevel: m.AccessLevel})
		}

		if resp.NextPage == 0 {
			return members, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListCommits returns the history of branch newest first, limited to
// commits created before until when it is non-zero.
func (s *Service) ListCommits(
	ctx context.Context,
	project *Project,
	branch string,
	until time.Time,
) ([]deadline.Commit, error) {
	opts := &gl.ListCommitsOptions{
		ListOptions: gl.ListOptions{
			Page:    1,
			PerPage: s.config.CommitsPageSize,
		},
	}
	if branch != "" {
		opts.RefName = gl.Ptr(branch)
	}
	if !until.IsZero() {
		opts.Until = gl.Ptr(until)
	}

	var commits []deadline.Commit
	for pages := 0; s.config.CommitsMaxPages <= 0 || pages < s.config.CommitsMaxPages; pages++ {
		page, resp, err := s.client.Commits.ListCommits(project.ID, opts, gl.WithContext(ctx))
		if err != nil {
			return nil, apiError("list commits of "+project.Path, resp, err)
		}

		for _, c := range page {
			commits = append(commits, newCommit(c))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	s.logger.Debug("commits listed",
		zap.String("project", project.Path),
		zap.String("branch", branch),
		zap.Int("count", len(commits)))

	return commits, nil
}

func newProject(p *gl.Project) *Project {
	project := &Project{
		ID:            p.ID,
		Path:          p.PathWithNamespace,
		DefaultBranch: p.DefaultBranch,
		HTTPURL:       p.HTTPURLToRepo,
		SSHURL:        p.SSHURLToRepo,
		Empty:         p.EmptyRepo,
		ImportStatus:  p.ImportStatus,
	}
	if p.ForkedFromProject != nil {
		project.ForkedFrom = p.ForkedFromProject.PathWithNamespace
	}

	return project
}

func newCommit(c *gl.Commit) deadline.Commit {
	commit := deadline.Commit{
		ID:          c.ID,
		ShortID:     c.ShortID,
		Title:       c.Title,
		AuthorEmail: c.AuthorEmail,
	}

	switch {
	case c.CommittedDate != nil:
		commit.Timestamp = *c.CommittedDate
	case c.CreatedAt != nil:
		commit.Timestamp = *c.CreatedAt
	case c.AuthoredDate != nil:
		commit.Timestamp = *c.AuthoredDate
	}

	return commit
}
