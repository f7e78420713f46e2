package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v6"
	"github.com/go-git/go-git/v6/plumbing"
	"github.com/go-git/go-git/v6/plumbing/transport"
	githttp "github.com/go-git/go-git/v6/plumbing/transport/http"
	"github.com/go-git/go-git/v6/plumbing/transport/ssh"
	"go.uber.org/zap"
)

const defaultHTTPSUsername = "oauth2"

type Service struct {
	config Config

	logger *zap.Logger
}

// NewService creates a new git Service.
func NewService(config Config, logger *zap.Logger) *Service {
	return &Service{
		config: config,

		logger: logger,
	}
}

// SelectURL picks the remote URL matching the configured protocol.
func (s *Service) SelectURL(httpURL, sshURL string) string {
	if s.config.Protocol == ProtocolSSH && sshURL != "" {
		return sshURL
	}
	return httpURL
}

// CloneOrFetch clones the repository into req.Directory, or fetches when the
// directory already holds a git repository. A non-empty directory that is
// not a repository is refused.
func (s *Service) CloneOrFetch(ctx context.Context, req CloneRequest) (*Repository, error) {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	auth, err := s.auth(req.URL)
	if err != nil {
		return nil, err
	}

	if _, statErr := os.Stat(filepath.Join(req.Directory, ".git")); statErr == nil {
		return s.fetch(ctx, req, auth)
	}

	entries, err := os.ReadDir(req.Directory)
	if err == nil && len(entries) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrDirectoryNotEmpty, req.Directory)
	}

	s.logger.Info("cloning repository",
		zap.String("url", req.URL),
		zap.String("directory", req.Directory),
		zap.String("branch", req.Branch))

	cloneOptions := &git.CloneOptions{
		URL:  req.URL,
		Auth: auth,
	}

	if req.Branch != "" {
		cloneOptions.ReferenceName = plumbing.NewBranchReferenceName(req.Branch)
	}

	_, err = git.PlainCloneContext(ctx, req.Directory, cloneOptions)
	if err != nil {
		s.logger.Error("failed to clone repository", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrCloneFailed, err)
	}

	s.logger.Info("repository cloned successfully",
		zap.String("url", req.URL),
		zap.String("directory", req.Directory))

	return &Repository{
		Path: req.Directory,
		URL:  req.URL,
	}, nil
}

func (s *Service) fetch(ctx context.Context, req CloneRequest, auth transport.AuthMethod) (*Repository, error) {
	s.logger.Info("fetching repository",
		zap.String("directory", req.Directory))

	repo, err := git.PlainOpen(req.Directory)
	if err != nil {
		s.logger.Error("failed to open repository", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrRepositoryNotFound, err)
	}

	err = repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: git.DefaultRemoteName,
		Auth:       auth,
		Force:      true,
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		s.logger.Error("failed to fetch repository", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	s.logger.Info("repository fetched successfully",
		zap.String("directory", req.Directory))

	return &Repository{
		Path:    req.Directory,
		URL:     req.URL,
		Fetched: true,
	}, nil
}

// ResetToCommit hard-resets the working copy to the given revision.
func (s *Service) ResetToCommit(_ context.Context, repoPath, revision string) error {
	s.logger.Info("resetting repository",
		zap.String("path", repoPath),
		zap.String("revision", revision))

	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		s.logger.Error("failed to open repository", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrRepositoryNotFound, err)
	}

	hash, err := repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		s.logger.Error("failed to resolve revision", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrCommitNotFound, revision, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		s.logger.Error("failed to get worktree", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}

	if err := worktree.Reset(&git.ResetOptions{Commit: *hash, Mode: git.HardReset}); err != nil {
		s.logger.Error("failed to reset worktree", zap.Error(err))
		return fmt.Errorf("%w: %w", ErrResetFailed, err)
	}

	s.logger.Info("repository reset successfully",
		zap.String("path", repoPath),
		zap.String("hash", hash.String()))

	return nil
}

// HeadCommit returns the hash HEAD points to.
func (s *Service) HeadCommit(_ context.Context, repoPath string) (string, error) {
	repo, err := git.PlainOpen(repoPath)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRepositoryNotFound, err)
	}

	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidRepository, err)
	}

	return head.Hash().String(), nil
}

func (s *Service) auth(url string) (transport.AuthMethod, error) {
	switch {
	case strings.HasPrefix(url, "http://"), strings.HasPrefix(url, "https://"):
		if s.config.Auth.HTTPS.Token == "" {
			return nil, nil
		}
		username := s.config.Auth.HTTPS.Username
		if username == "" {
			username = defaultHTTPSUsername
		}
		return &githttp.BasicAuth{Username: username, Password: s.config.Auth.HTTPS.Token}, nil
	case s.config.Auth.SSH.PrivateKeyFile != "" && !isLocal(url):
		keys, err := ssh.NewPublicKeysFromFile("git", s.config.Auth.SSH.PrivateKeyFile, s.config.Auth.SSH.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthenticationSetup, err)
		}
		return keys, nil
	default:
		return nil, nil
	}
}

func isLocal(url string) bool {
	return strings.HasPrefix(url, "file://") || filepath.IsAbs(url)
}
