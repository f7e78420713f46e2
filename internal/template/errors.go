package template

import (
	"errors"
	"fmt"
)

var (
	ErrMalformedTemplate     = errors.New("malformed template")
	ErrUnresolvedPlaceholder = errors.New("unresolved placeholder")
)

// UnresolvedPlaceholderError names the placeholder key that could not be
// resolved against the row or the extra context.
type UnresolvedPlaceholderError struct {
	Key    string
	Reason string
}

func (e *UnresolvedPlaceholderError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s {%s}", ErrUnresolvedPlaceholder, e.Key)
	}
	return fmt.Sprintf("%s {%s}: %s", ErrUnresolvedPlaceholder, e.Key, e.Reason)
}

func (e *UnresolvedPlaceholderError) Is(target error) bool {
	return target == ErrUnresolvedPlaceholder
}
