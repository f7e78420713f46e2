package actions

import (
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/go-core-fx/logger"
	"go.uber.org/fx"
)

func Module() fx.Option {
	return fx.Module(
		"actions",
		logger.WithNamedLogger("actions"),
		fx.Provide(func(s *gitlab.Service) Host { return s }, fx.Private),
		fx.Provide(func(s *git.Service) Repositories { return s }, fx.Private),
		fx.Provide(New, fx.Private),
		fx.Provide(NewRunner),
	)
}
