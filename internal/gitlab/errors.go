package gitlab

import (
	"errors"
	"fmt"
	"net/http"

	gl "gitlab.com/gitlab-org/api/client-go"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrForbidden          = errors.New("access denied")
	ErrUserNotFound       = fmt.Errorf("user %w", ErrNotFound)
	ErrForkFailed         = errors.New("fork failed")
	ErrForkTimeout        = errors.New("timed out waiting for fork")
	ErrInvalidAccessLevel = errors.New("invalid access level")
)

// apiError wraps a client error with a sentinel derived from the HTTP status.
func apiError(op string, resp *gl.Response, err error) error {
	if resp != nil && resp.Response != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%w: failed to %s: %w", ErrNotFound, op, err)
		case http.StatusConflict:
			return fmt.Errorf("%w: failed to %s: %w", ErrConflict, op, err)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: failed to %s: %w", ErrForbidden, op, err)
		}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

func statusIs(resp *gl.Response, code int) bool {
	return resp != nil && resp.Response != nil && resp.StatusCode == code
}
