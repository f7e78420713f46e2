package gitlabfx

import (
	"time"
)

// AuthType selects how the token is sent to GitLab.
type AuthType string

const (
	// AuthPrivateToken sends the token in the PRIVATE-TOKEN header.
	AuthPrivateToken AuthType = "private_token"
	// AuthOAuth sends the token as an OAuth bearer token.
	AuthOAuth AuthType = "oauth"
)

// Config holds the configuration for the GitLab API client.
//
// Example:
//
//	cfg := gitlabfx.Config{
//	    BaseURL: "https://gitlab.example.com",
//	    Token:   "glpat-...",
//	    Timeout: 30 * time.Second,
//	}
//
//	client, err := gitlabfx.NewClient(cfg)
type Config struct {
	// BaseURL of the GitLab instance. The API suffix is added by the client.
	BaseURL string

	// Token is a personal, group, project or OAuth access token.
	Token string

	// AuthType selects the authentication header, private token by default.
	AuthType AuthType

	// Timeout applies to every HTTP request made to the API.
	// Defaults to 30 seconds if zero.
	Timeout time.Duration

	// RetryMax overrides the number of retries the client performs on
	// rate limiting and server errors. Negative keeps the client default.
	RetryMax int

	// TLSConfig provides TLS configuration for self-hosted instances.
	TLSConfig TLSConfig
}

// TLSConfig holds TLS configuration for the GitLab client.
type TLSConfig struct {
	// CAFile path to an additional CA certificate bundle.
	CAFile string

	// InsecureSkipVerify disables certificate verification.
	InsecureSkipVerify bool
}

// DefaultConfig returns a default configuration for the GitLab client.
func DefaultConfig() Config {
	//nolint:exhaustruct,mnd //default values
	return Config{
		BaseURL:  "https://gitlab.com",
		AuthType: AuthPrivateToken,
		Timeout:  30 * time.Second,
		RetryMax: -1,
	}
}
