package gitlabfx

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	gitlab "gitlab.com/gitlab-org/api/client-go"
)

// NewClient creates a new GitLab API client with the given configuration.
func NewClient(cfg Config) (*gitlab.Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultConfig().BaseURL
	}

	httpClient := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.TLSConfig.CAFile != "" || cfg.TLSConfig.InsecureSkipVerify {
		tlsConfig, err := newTLSConfig(cfg)
		if err != nil {
			return nil, err
		}

		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = tlsConfig
		httpClient.Transport = transport
	}

	opts := []gitlab.ClientOptionFunc{
		gitlab.WithBaseURL(cfg.BaseURL),
		gitlab.WithHTTPClient(httpClient),
	}

	if cfg.RetryMax >= 0 {
		opts = append(opts, gitlab.WithCustomRetryMax(cfg.RetryMax))
	}

	var (
		client *gitlab.Client
		err    error
	)
	switch cfg.AuthType {
	case "", AuthPrivateToken:
		client, err = gitlab.NewClient(cfg.Token, opts...)
	case AuthOAuth:
		client, err = gitlab.NewOAuthClient(cfg.Token, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAuthType, cfg.AuthType)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create GitLab client: %w", err)
	}

	return client, nil
}

func newTLSConfig(cfg Config) (*tls.Config, error) {
	//nolint:gosec // opt-in for self-signed instances
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: cfg.TLSConfig.InsecureSkipVerify,
	}

	if cfg.TLSConfig.CAFile != "" {
		caCert, err := os.ReadFile(cfg.TLSConfig.CAFile)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CA certificate: %w", ErrInvalidTLSConfig, err)
		}

		caCertPool, err := x509.SystemCertPool()
		if err != nil {
			caCertPool = x509.NewCertPool()
		}
		if !caCertPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("%w: failed to parse CA certificate", ErrInvalidTLSConfig)
		}
		tlsConfig.RootCAs = caCertPool
	}

	return tlsConfig, nil
}
