package deadline

import "errors"

var (
	ErrInvalidDeadline  = errors.New("invalid deadline")
	ErrInvalidBlacklist = errors.New("invalid blacklist pattern")
)
