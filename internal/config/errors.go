package config

import "errors"

var (
	ErrUnknownInstance = errors.New("unknown gitlab instance")
	ErrInvalidConfig   = errors.New("invalid configuration")
)
