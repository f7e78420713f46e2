package git

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func Module() fx.Option {
	return fx.Module(
		"git",
		logger.WithNamedLogger("git"),
		fx.Provide(NewService),
		fx.Invoke(func(config Config, logger *zap.Logger) error {
			if err := config.Validate(); err != nil {
				return err
			}
			logger.Debug("git transport configured", zap.String("protocol", string(config.Protocol)))
			return nil
		}),
	)
}
