package git

import "errors"

var (
	ErrRepositoryNotFound  = errors.New("repository not found")
	ErrCloneFailed         = errors.New("failed to clone repository")
	ErrFetchFailed         = errors.New("failed to fetch repository")
	ErrResetFailed         = errors.New("failed to reset repository")
	ErrCommitNotFound      = errors.New("commit not found")
	ErrInvalidRepository   = errors.New("invalid repository")
	ErrDirectoryNotEmpty   = errors.New("directory is not empty and is not a git repository")
	ErrAuthenticationSetup = errors.New("failed to prepare authentication")
	ErrInvalidConfig       = errors.New("invalid git configuration")
)
