package gitlab

import (
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"gitlab",
		logger.WithNamedLogger("gitlab"),
		fx.Provide(NewService),
	)
}
