package gitlabfx_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apiarycd/glroster/pkg/gitlabfx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient(t *testing.T) {
	cfg := gitlabfx.DefaultConfig()
	cfg.BaseURL = "https://gitlab.example.com"
	cfg.Token = "secret"

	client, err := gitlabfx.NewClient(cfg)
	require.NoError(t, err)
	assert.Equal(t, "https://gitlab.example.com/api/v4/", client.BaseURL().String())

	cfg.AuthType = gitlabfx.AuthOAuth
	_, err = gitlabfx.NewClient(cfg)
	require.NoError(t, err)
}

func TestNewClient_Errors(t *testing.T) {
	cfg := gitlabfx.DefaultConfig()
	cfg.AuthType = "basic"
	_, err := gitlabfx.NewClient(cfg)
	require.ErrorIs(t, err, gitlabfx.ErrInvalidAuthType)

	cfg = gitlabfx.DefaultConfig()
	cfg.TLSConfig.CAFile = filepath.Join(t.TempDir(), "missing.pem")
	_, err = gitlabfx.NewClient(cfg)
	require.ErrorIs(t, err, gitlabfx.ErrInvalidTLSConfig)

	garbage := filepath.Join(t.TempDir(), "garbage.pem")
	require.NoError(t, os.WriteFile(garbage, []byte("not a certificate"), 0o600))
	cfg.TLSConfig.CAFile = garbage
	_, err = gitlabfx.NewClient(cfg)
	require.ErrorIs(t, err, gitlabfx.ErrInvalidTLSConfig)
}
