package gitlabfx

import "errors"

var (
	ErrInvalidTLSConfig = errors.New("invalid TLS configuration")
	ErrInvalidAuthType  = errors.New("invalid authentication type")
)
