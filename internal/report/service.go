package report

import (
	"io"
	"os"
	"time"

	"github.com/apiarycd/glroster/internal/actions"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const durationPrecision = time.Millisecond

type Params struct {
	fx.In

	Config Config
	Logger *zap.Logger

	Output io.Writer `name:"report_output" optional:"true"`
}

// Service presents the outcome of a run.
type Service struct {
	config Config
	out    io.Writer

	logger *zap.Logger
}

func NewService(p Params) *Service {
	out := p.Output
	if out == nil {
		out = os.Stderr
	}

	return &Service{
		config: p.Config,
		out:    out,

		logger: p.Logger,
	}
}

// Report prints the summary table and, when configured, writes metrics.
// Metrics failures are logged and do not change the outcome of the run.
func (s *Service) Report(summary actions.Summary) {
	WriteTable(s.out, summary)

	if s.config.MetricsFile == "" {
		return
	}

	if err := WriteMetrics(s.config.MetricsFile, summary); err != nil {
		s.logger.Error("failed to write metrics", zap.String("path", s.config.MetricsFile), zap.Error(err))
		return
	}

	s.logger.Debug("metrics written", zap.String("path", s.config.MetricsFile))
}
