package actions

import "errors"

var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrUnknownAction  = errors.New("unknown action")
	ErrMissingLogin   = errors.New("row has no login")
	ErrCancelled      = errors.New("run cancelled")
)
