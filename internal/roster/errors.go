package roster

import (
	"errors"
	"fmt"
)

var ErrMalformedRoster = errors.New("malformed roster")

// MalformedRosterError reports a schema problem found while loading a roster.
// Line is the 1-based physical line in the source, 0 when unknown.
type MalformedRosterError struct {
	Line   int
	Reason string
}

func (e *MalformedRosterError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s", ErrMalformedRoster, e.Line, e.Reason)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedRoster, e.Reason)
}

func (e *MalformedRosterError) Is(target error) bool {
	return target == ErrMalformedRoster
}
