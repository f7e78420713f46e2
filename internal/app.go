package internal

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/apiarycd/glroster/internal/actions"
	"github.com/apiarycd/glroster/internal/cli"
	"github.com/apiarycd/glroster/internal/config"
	"github.com/apiarycd/glroster/internal/git"
	"github.com/apiarycd/glroster/internal/gitlab"
	"github.com/apiarycd/glroster/internal/report"
	"github.com/apiarycd/glroster/internal/roster"
	"github.com/apiarycd/glroster/pkg/gitlabfx"
	"github.com/capcom6/go-infra-fx/validator"
	"github.com/google/uuid"
	"go.uber.org/dig"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const lifecycleTimeout = 30 * time.Second

// Run executes one command line and returns the process exit code.
func Run(args []string) int {
	inv, err := cli.Parse(args)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n\n", err)
		cli.Usage(os.Stderr, "")
		return cli.ExitCode(err)
	}

	if inv.Help {
		cli.Usage(os.Stdout, inv.Topic)
		return cli.ExitSuccess
	}

	logger := newLogger(inv.Debug)
	defer func() { _ = logger.Sync() }()

	entries, err := roster.LoadFile(inv.Roster, roster.WithDelimiter(inv.Delimiter))
	if err != nil {
		logger.Error("failed to load roster", zap.Error(err))
		return cli.ExitInvalidInvocation
	}

	var (
		runner   *actions.Runner
		reporter *report.Service
	)

	app := fx.New(
		// CORE MODULES
		fx.Supply(logger),
		fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: l.Named("fx").WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))}
		}),
		validator.Module,
		//
		// APP MODULES
		fx.Supply(config.Source{
			Path:        inv.ConfigFile,
			Instance:    inv.Instance,
			MetricsFile: inv.MetricsFile,
		}),
		config.Module(),
		gitlabfx.Module(),
		//
		// BUSINESS MODULES
		fx.Supply(
			entries,
			inv.Request,
			actions.Output{Stdout: os.Stdout},
			actions.RunID(uuid.NewString()),
		),
		gitlab.Module(),
		git.Module(),
		actions.Module(),
		report.Module(),
		fx.Populate(&runner, &reporter),
	)
	if err := app.Err(); err != nil {
		logger.Error("failed to initialize", zap.Error(dig.RootCause(err)))
		return cli.ExitInvalidInvocation
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, lifecycleTimeout)
	defer cancel()
	if err := app.Start(startCtx); err != nil {
		logger.Error("failed to start", zap.Error(err))
		return cli.ExitInvalidInvocation
	}

	summary, runErr := runner.Run(ctx)
	reporter.Report(summary)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), lifecycleTimeout)
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warn("failed to stop cleanly", zap.Error(err))
	}

	if runErr != nil {
		logger.Error("run aborted", zap.Error(runErr))
		return cli.ExitRowFailure
	}

	return summary.ExitCode()
}

func newLogger(debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	cfg := zap.NewDevelopmentConfig()
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = !debug
	cfg.DisableCaller = !debug
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}

	return logger.Named("glroster")
}
