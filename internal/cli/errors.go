package cli

import (
	"errors"
	"fmt"
)

const (
	ExitSuccess           = 0
	ExitRowFailure        = 1
	ExitInvalidInvocation = 2
)

var ErrUsage = errors.New("usage error")

// InvocationError is a command line problem reported before any work starts.
type InvocationError struct {
	Action  string
	Message string
}

func (e *InvocationError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return e.Action + ": " + e.Message
}

func (e *InvocationError) Is(target error) bool {
	return target == ErrUsage
}

func invalidInvocationf(action, format string, args ...any) error {
	return &InvocationError{Action: action, Message: fmt.Sprintf(format, args...)}
}

// ExitCode maps an error returned by Parse to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	return ExitInvalidInvocation
}
