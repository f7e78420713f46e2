package git

import (
	"fmt"
	"os"
	"time"
)

type Protocol string

const (
	ProtocolHTTPS Protocol = "https"
	ProtocolSSH   Protocol = "ssh"
)

type HTTPSAuthConfig struct {
	Username string
	Token    string
}

type SSHAuthConfig struct {
	PrivateKeyFile string
	Passphrase     string
}

type AuthConfig struct {
	HTTPS HTTPSAuthConfig
	SSH   SSHAuthConfig
}

type Config struct {
	Protocol Protocol
	Timeout  time.Duration
	Auth     AuthConfig
}

// Validate rejects unknown protocols and missing SSH key files.
func (c Config) Validate() error {
	switch c.Protocol {
	case ProtocolHTTPS, "":
		return nil
	case ProtocolSSH:
		if c.Auth.SSH.PrivateKeyFile == "" {
			return nil
		}
		if _, err := os.Stat(c.Auth.SSH.PrivateKeyFile); err != nil {
			return fmt.Errorf("%w: ssh private key: %w", ErrInvalidConfig, err)
		}
		return nil
	default:
		return fmt.Errorf("%w: unsupported protocol %q", ErrInvalidConfig, c.Protocol)
	}
}
