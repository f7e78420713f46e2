package gitlabfx

import (
	"context"

	"github.com/go-core-fx/logger"
	gitlab "gitlab.com/gitlab-org/api/client-go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"gitlabfx",
		logger.WithNamedLogger("gitlabfx"),
		fx.Provide(NewClient),
		fx.Invoke(func(lc fx.Lifecycle, client *gitlab.Client, logger *zap.Logger) {
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					logger.Debug("gitlab client ready", zap.String("base_url", client.BaseURL().String()))
					return nil
				},
			})
		}),
	)
}
