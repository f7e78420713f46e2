package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	gl "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/zap"
)

// CreateTag tags ref. It reports false when the tag already exists.
func (s *Service) CreateTag(ctx context.Context, project *Project, name, ref, message string) (bool, error) {
	opts := &gl.CreateTagOptions{
		TagName: gl.Ptr(name),
		Ref:     gl.Ptr(ref),
	}
	if message != "" {
		opts.Message = gl.Ptr(message)
	}

	_, resp, err := s.client.Tags.CreateTag(project.ID, opts, gl.WithContext(ctx))
	if err == nil {
		return true, nil
	}

	var errResp *gl.ErrorResponse
	if statusIs(resp, http.StatusConflict) ||
		(statusIs(resp, http.StatusBadRequest) && errors.As(err, &errResp) && strings.Contains(errResp.Message, "already exists")) {
		return false, nil
	}

	return false, apiError(fmt.Sprintf("create tag %s in %s", name, project.Path), resp, err)
}

// GetTag returns the tag and the commit it points at.
func (s *Service) GetTag(ctx context.Context, project *Project, name string) (*Tag, error) {
	t, resp, err := s.client.Tags.GetTag(project.ID, name, gl.WithContext(ctx))
	if err != nil {
		return nil, apiError(fmt.Sprintf("get tag %s of %s", name, project.Path), resp, err)
	}

	tag := &Tag{Name: t.Name}
	if t.Commit != nil {
		tag.Commit = newCommit(t.Commit)
	}

	return tag, nil
}

// ProtectTag protects the tag name pattern so that only level may create it.
// Existing protection with another level is replaced. It reports whether
// anything changed.
func (s *Service) ProtectTag(ctx context.Context, project *Project, name string, level gl.AccessLevelValue) (bool, error) {
	op := fmt.Sprintf("protect tag %s of %s", name, project.Path)

	current, resp, err := s.client.ProtectedTags.GetProtectedTag(project.ID, name, gl.WithContext(ctx))
	switch {
	case err == nil:
		if len(current.CreateAccessLevels) > 0 && current.CreateAccessLevels[0].AccessLevel == level {
			return false, nil
		}
		s.logger.Debug("replacing tag protection",
			zap.String("project", project.Path),
			zap.String("tag", name))
		if _, err := s.UnprotectTag(ctx, project, name); err != nil {
			return false, err
		}
	case !statusIs(resp, http.StatusNotFound):
		return false, apiError(op, resp, err)
	}

	_, resp, err = s.client.ProtectedTags.ProtectRepositoryTags(project.ID, &gl.ProtectRepositoryTagsOptions{
		Name:              gl.Ptr(name),
		CreateAccessLevel: gl.Ptr(level),
	}, gl.WithContext(ctx))
	if err != nil {
		return false, apiError(op, resp, err)
	}

	return true, nil
}

// UnprotectTag removes tag protection. It reports whether the tag was
// protected.
func (s *Service) UnprotectTag(ctx context.Context, project *Project, name string) (bool, error) {
	resp, err := s.client.ProtectedTags.UnprotectRepositoryTags(project.ID, name, gl.WithContext(ctx))
	if err != nil {
		if statusIs(resp, http.StatusNotFound) {
			return false, nil
		}
		return false, apiError(fmt.Sprintf("unprotect tag %s of %s", name, project.Path), resp, err)
	}

	return true, nil
}

// GetFile reads a file at ref, which may be a branch, tag or commit.
func (s *Service) GetFile(ctx context.Context, project *Project, ref, filePath string) ([]byte, error) {
	content, resp, err := s.client.RepositoryFiles.GetRawFile(project.ID, filePath, &gl.GetRawFileOptions{
		Ref: gl.Ptr(ref),
	}, gl.WithContext(ctx))
	if err != nil {
		return nil, apiError(fmt.Sprintf("get %s at %s of %s", filePath, ref, project.Path), resp, err)
	}

	return content, nil
}

// PutFile commits the file, creating it when missing. An existing file is
// overwritten only when overwrite is set.
func (s *Service) PutFile(ctx context.Context, project *Project, file FileCommit, overwrite bool) (FileChange, error) {
	op := fmt.Sprintf("commit %s to %s", file.Path, project.Path)

	_, resp, err := s.commitFile(ctx, project, file, gl.FileCreate)
	switch {
	case err == nil:
		return FileCreated, nil
	case !statusIs(resp, http.StatusBadRequest):
		return "", apiError(op, resp, err)
	case !overwrite:
		return FileKept, nil
	}

	s.logger.Debug("file exists, updating",
		zap.String("project", project.Path),
		zap.String("file", file.Path))

	_, resp, err = s.commitFile(ctx, project, file, gl.FileUpdate)
	if err != nil {
		return "", apiError(op, resp, err)
	}

	return FileUpdated, nil
}

func (s *Service) commitFile(ctx context.Context, project *Project, file FileCommit, action gl.FileActionValue) (*gl.Commit, *gl.Response, error) {
	return s.client.Commits.CreateCommit(project.ID, &gl.CreateCommitOptions{
		Branch:        gl.Ptr(file.Branch),
		CommitMessage: gl.Ptr(file.Message),
		Actions: []*gl.CommitActionOptions{{
			Action:   gl.Ptr(action),
			FilePath: gl.Ptr(file.Path),
			Content:  gl.Ptr(file.Content),
		}},
	}, gl.WithContext(ctx))
}

// CommitDetails returns a single commit with line statistics.
func (s *Service) CommitDetails(ctx context.Context, project *Project, sha string) (*CommitDetails, error) {
	c, resp, err := s.client.Commits.GetCommit(project.ID, sha, &gl.GetCommitOptions{
		Stats: gl.Ptr(true),
	}, gl.WithContext(ctx))
	if err != nil {
		return nil, apiError(fmt.Sprintf("get commit %s of %s", sha, project.Path), resp, err)
	}

	details := &CommitDetails{
		ID:          c.ID,
		Title:       c.Title,
		AuthorEmail: c.AuthorEmail,
		ParentIDs:   c.ParentIDs,
	}
	if c.AuthoredDate != nil {
		details.AuthoredDate = *c.AuthoredDate
	}
	if c.Stats != nil {
		details.Additions = c.Stats.Additions
		details.Deletions = c.Stats.Deletions
		details.Total = c.Stats.Total
	}

	return details, nil
}
