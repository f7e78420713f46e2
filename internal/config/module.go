package config

import (
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/report"
	"github.com/apiarycd/glroster/pkg/gitlabfx"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"config",
		fx.Provide(New),
		fx.Provide(func(cfg Config) gitlabfx.Config {
			retryMax := -1
			if cfg.Instance.RetryMax != nil {
				retryMax = *cfg.Instance.RetryMax
			}

			return gitlabfx.Config{
				BaseURL:  cfg.Instance.URL,
				Token:    cfg.Instance.Token,
				AuthType: gitlabfx.AuthType(cfg.Instance.Auth),
				Timeout:  cfg.Instance.Timeout,
				RetryMax: retryMax,
				TLSConfig: gitlabfx.TLSConfig{
					CAFile:             cfg.Instance.CAFile,
					InsecureSkipVerify: cfg.Instance.InsecureSkipVerify,
				},
			}
		}),
		fx.Provide(func(cfg Config) gitlab.Config {
			return gitlab.Config{
				ForkTimeout:      cfg.GitLab.ForkTimeout,
				ForkPollInterval: cfg.GitLab.ForkPollInterval,
				CommitsPageSize:  cfg.GitLab.CommitsPageSize,
				CommitsMaxPages:  cfg.GitLab.CommitsMaxPages,
			}
		}),
		fx.Provide(func(cfg Config) git.Config {
			return git.Config{
				Protocol: git.Protocol(cfg.Git.Protocol),
				Timeout:  cfg.Git.Timeout,
				Auth: git.AuthConfig{
					HTTPS: git.HTTPSAuthConfig{
						Username: cfg.Git.Auth.HTTPS.Username,
						Token:    cfg.Instance.Token,
					},
					SSH: git.SSHAuthConfig{
						PrivateKeyFile: cfg.Git.Auth.SSH.PrivateKeyFile,
						Passphrase:     cfg.Git.Auth.SSH.Passphrase,
					},
				},
			}
		}),
		fx.Provide(func(cfg Config) report.Config {
			return report.Config{
				MetricsFile: cfg.Report.MetricsFile,
			}
		}),
	)
}
